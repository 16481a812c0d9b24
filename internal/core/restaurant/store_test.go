package restaurant

import (
	"context"
	"testing"
	"time"

	"foodtube/internal/platform/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func at(day int) *time.Time {
	t := time.Date(2024, 5, day, 12, 0, 0, 0, time.UTC)
	return &t
}

func kimsBBQ(jobID string) Restaurant {
	return Restaurant{
		UserID:         "u1",
		JobID:          jobID,
		VideoID:        "A",
		VideoTitle:     "Best BBQ in Seoul",
		ThumbnailURL:   "https://i.ytimg.com/a.jpg",
		ChannelName:    "eats",
		RestaurantName: "Kim's BBQ",
		Region:         "Seoul",
		FoodType:       "Korean BBQ",
		PublishedAt:    at(1),
	}
}

func TestInsertManySkipsDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.InsertMany(ctx, []Restaurant{kimsBBQ("j1"), kimsBBQ("j1")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.InsertMany(ctx, []Restaurant{kimsBBQ("j1")})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// another scan may record the same place again
	n, err = s.InsertMany(ctx, []Restaurant{kimsBBQ("j2")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, err := s.ListByUser(ctx, "u1", "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := s.ListByUser(ctx, "u1", "j1", 0)
	require.NoError(t, err)
	require.Len(t, one, 1)
	got := one[0]
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "Kim's BBQ", got.RestaurantName)
	assert.Equal(t, "Korean BBQ", got.FoodType)
	require.NotNil(t, got.PublishedAt)
	assert.True(t, at(1).Equal(*got.PublishedAt))
	assert.False(t, got.Placeholder)
}

func TestInsertManyEmpty(t *testing.T) {
	s := newTestStore(t)
	n, err := s.InsertMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListOrderAndOwnership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := kimsBBQ("j1")
	old.VideoID, old.PublishedAt = "old", at(1)
	recent := kimsBBQ("j1")
	recent.VideoID, recent.PublishedAt = "recent", at(20)
	undated := kimsBBQ("j1")
	undated.VideoID, undated.PublishedAt = "undated", nil
	placeholder := kimsBBQ("j1")
	placeholder.VideoID, placeholder.PublishedAt = "mid", at(10)
	placeholder.RestaurantName, placeholder.Region, placeholder.FoodType = "unknown", "unknown", "unknown"
	placeholder.Placeholder = true
	other := kimsBBQ("j9")
	other.UserID = "u2"

	_, err := s.InsertMany(ctx, []Restaurant{old, undated, recent, placeholder, other})
	require.NoError(t, err)

	rs, err := s.ListByUser(ctx, "u1", "", 0)
	require.NoError(t, err)
	var order []string
	for _, r := range rs {
		order = append(order, r.VideoID)
	}
	assert.Equal(t, []string{"recent", "mid", "old", "undated"}, order)
	assert.True(t, rs[1].Placeholder)
	assert.Nil(t, rs[3].PublishedAt)

	limited, err := s.ListByUser(ctx, "u1", "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := s.ListByUser(ctx, "u3", "", 0)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestDeleteOnlyOwn(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertMany(ctx, []Restaurant{kimsBBQ("j1")})
	require.NoError(t, err)
	rs, err := s.ListByUser(ctx, "u1", "", 0)
	require.NoError(t, err)
	id := rs[0].ID

	assert.ErrorIs(t, s.Delete(ctx, id, "u2"), ErrNotFound)
	require.NoError(t, s.Delete(ctx, id, "u1"))
	assert.ErrorIs(t, s.Delete(ctx, id, "u1"), ErrNotFound)
}
