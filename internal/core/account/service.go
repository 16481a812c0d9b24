package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"foodtube/internal/logger"
	"foodtube/internal/platform/database"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const ProviderGoogle = "google"

// refreshWindow: tokens expiring sooner than this are refreshed first.
const refreshWindow = 5 * time.Minute

var ErrNoToken = errors.New("no usable youtube access token")

// Account is the OAuth token set stored by the sign-in flow.
type Account struct {
	UserID       string
	Provider     string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type Options struct {
	ClientID     string
	ClientSecret string
	// TokenURL overrides the Google token endpoint.
	TokenURL string
}

type Service struct {
	db    *database.DB
	oauth *oauth2.Config
	log   *logger.Logger
	now   func() time.Time
}

func NewService(db *database.DB, opts Options) *Service {
	endpoint := endpoints.Google
	if opts.TokenURL != "" {
		endpoint.TokenURL = opts.TokenURL
	}
	return &Service{
		db: db,
		oauth: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Endpoint:     endpoint,
		},
		log: logger.New("AccountService"),
		now: time.Now,
	}
}

const upsertSQL = `INSERT INTO accounts (user_id, provider, access_token, refresh_token, expires_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, provider) DO UPDATE SET
	access_token = excluded.access_token,
	refresh_token = CASE WHEN excluded.refresh_token <> '' THEN excluded.refresh_token ELSE accounts.refresh_token END,
	expires_at = excluded.expires_at,
	updated_at = excluded.updated_at`

// Save upserts the user's tokens. An empty refresh token keeps the stored one.
func (s *Service) Save(ctx context.Context, a Account) error {
	if a.UserID == "" || a.AccessToken == "" {
		return fmt.Errorf("save account: user id and access token are required")
	}
	if a.Provider == "" {
		a.Provider = ProviderGoogle
	}
	var expires sql.NullTime
	if !a.ExpiresAt.IsZero() {
		expires = sql.NullTime{Time: a.ExpiresAt.UTC(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, s.db.Rebind(upsertSQL),
		a.UserID, a.Provider, a.AccessToken, a.RefreshToken, expires, s.now().UTC())
	if err != nil {
		return fmt.Errorf("save account %s: %w", a.UserID, err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, userID string) (*Account, error) {
	var (
		a       Account
		expires sql.NullTime
	)
	err := s.db.QueryRowContext(ctx,
		s.db.Rebind(`SELECT user_id, provider, access_token, refresh_token, expires_at FROM accounts WHERE user_id = ? AND provider = ?`),
		userID, ProviderGoogle,
	).Scan(&a.UserID, &a.Provider, &a.AccessToken, &a.RefreshToken, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("load account %s: %w", userID, err)
	}
	if expires.Valid {
		a.ExpiresAt = expires.Time.UTC()
	}
	return &a, nil
}

// GetAccessToken returns a token good for at least a few more minutes,
// refreshing and persisting it when needed. Anything short of that is
// ErrNoToken.
func (s *Service) GetAccessToken(ctx context.Context, userID string) (string, error) {
	a, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}

	now := s.now()
	if a.ExpiresAt.IsZero() || a.ExpiresAt.After(now.Add(refreshWindow)) {
		return a.AccessToken, nil
	}

	if a.RefreshToken == "" {
		if a.ExpiresAt.After(now) {
			return a.AccessToken, nil
		}
		s.log.LogWarnf("token of %s expired and no refresh token stored", userID)
		return "", ErrNoToken
	}

	// a token without access token forces the refresher to hit the endpoint
	tok, err := s.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: a.RefreshToken}).Token()
	if err != nil {
		s.log.LogErrorf("refresh token for %s: %v", userID, err)
		return "", fmt.Errorf("%w: refresh failed: %v", ErrNoToken, err)
	}

	refreshed := Account{
		UserID:       userID,
		Provider:     a.Provider,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if err := s.Save(ctx, refreshed); err != nil {
		// the fresh token is still usable for this request
		s.log.LogWarnf("persist refreshed token for %s: %v", userID, err)
	}
	s.log.LogInfof("refreshed access token for %s", userID)
	return tok.AccessToken, nil
}
