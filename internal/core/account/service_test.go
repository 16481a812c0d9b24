package account

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"foodtube/internal/platform/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, tokenURL string) *Service {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewService(db, Options{ClientID: "cid", ClientSecret: "secret", TokenURL: tokenURL})
}

func tokenServer(t *testing.T, calls *int32, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt-1", r.PostForm.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
			return
		}
		fmt.Fprint(w, `{"access_token":"at-2","token_type":"Bearer","expires_in":3600}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGetAccessTokenMissing(t *testing.T) {
	s := newTestService(t, "")
	_, err := s.GetAccessToken(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestGetAccessTokenStillValid(t *testing.T) {
	var calls int32
	srv := tokenServer(t, &calls, http.StatusOK)
	s := newTestService(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, Account{UserID: "u1", AccessToken: "at-1", RefreshToken: "rt-1", ExpiresAt: time.Now().Add(time.Hour)}))

	tok, err := s.GetAccessToken(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "at-1", tok)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestGetAccessTokenRefreshesNearExpiry(t *testing.T) {
	var calls int32
	srv := tokenServer(t, &calls, http.StatusOK)
	s := newTestService(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, Account{UserID: "u1", AccessToken: "at-1", RefreshToken: "rt-1", ExpiresAt: time.Now().Add(2 * time.Minute)}))

	tok, err := s.GetAccessToken(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "at-2", tok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	stored, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "at-2", stored.AccessToken)
	assert.Equal(t, "rt-1", stored.RefreshToken, "refresh token survives a response without one")
	assert.True(t, stored.ExpiresAt.After(time.Now().Add(50*time.Minute)))

	// the new token is used without another refresh
	tok, err = s.GetAccessToken(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "at-2", tok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetAccessTokenRefreshFailure(t *testing.T) {
	var calls int32
	srv := tokenServer(t, &calls, http.StatusBadRequest)
	s := newTestService(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, Account{UserID: "u1", AccessToken: "at-1", RefreshToken: "rt-1", ExpiresAt: time.Now().Add(-time.Minute)}))

	_, err := s.GetAccessToken(ctx, "u1")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestGetAccessTokenWithoutRefreshToken(t *testing.T) {
	s := newTestService(t, "")
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, Account{UserID: "soon", AccessToken: "a", ExpiresAt: time.Now().Add(time.Minute)}))
	tok, err := s.GetAccessToken(ctx, "soon")
	require.NoError(t, err)
	assert.Equal(t, "a", tok)

	require.NoError(t, s.Save(ctx, Account{UserID: "gone", AccessToken: "b", ExpiresAt: time.Now().Add(-time.Minute)}))
	_, err = s.GetAccessToken(ctx, "gone")
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, s.Save(ctx, Account{UserID: "forever", AccessToken: "c"}))
	tok, err = s.GetAccessToken(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, "c", tok)
}

func TestSaveValidates(t *testing.T) {
	s := newTestService(t, "")
	assert.Error(t, s.Save(context.Background(), Account{UserID: "u1"}))
}
