package restaurant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"foodtube/internal/logger"
	"foodtube/internal/platform/database"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("restaurant not found")

// Restaurant is one place extracted from one video of one scan.
type Restaurant struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	JobID          string     `json:"jobId"`
	VideoID        string     `json:"videoId"`
	VideoTitle     string     `json:"videoTitle"`
	ThumbnailURL   string     `json:"thumbnailUrl"`
	ChannelName    string     `json:"channelName"`
	RestaurantName string     `json:"restaurantName"`
	Region         string     `json:"region"`
	FoodType       string     `json:"foodType"`
	PublishedAt    *time.Time `json:"publishedAt,omitempty"`
	// Placeholder marks rows written for a video whose extraction failed.
	Placeholder bool      `json:"placeholder"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Store struct {
	db  *database.DB
	log *logger.Logger
	now func() time.Time
}

func NewStore(db *database.DB) *Store {
	return &Store{db: db, log: logger.New("RestaurantStore"), now: time.Now}
}

const insertSQL = `INSERT INTO restaurants (
	id, user_id, job_id, video_id, video_title, thumbnail_url, channel_name,
	restaurant_name, region, food_type, published_at, placeholder, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, job_id, video_id, restaurant_name, region, food_type) DO NOTHING`

// InsertMany stores rs in one transaction, silently skipping records that
// already exist. It returns how many rows were actually written.
func (s *Store) InsertMany(ctx context.Context, rs []Restaurant) (int, error) {
	if len(rs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.db.Rebind(insertSQL))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := s.now().UTC()
	inserted := 0
	for _, r := range rs {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		var published sql.NullTime
		if r.PublishedAt != nil && !r.PublishedAt.IsZero() {
			published = sql.NullTime{Time: r.PublishedAt.UTC(), Valid: true}
		}

		res, err := stmt.ExecContext(ctx,
			r.ID, r.UserID, r.JobID, r.VideoID, r.VideoTitle, r.ThumbnailURL, r.ChannelName,
			r.RestaurantName, r.Region, r.FoodType, published, r.Placeholder, now,
		)
		if err != nil {
			return 0, fmt.Errorf("insert restaurant for video %s: %w", r.VideoID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	if skipped := len(rs) - inserted; skipped > 0 {
		s.log.LogDebugf("skipped %d duplicate restaurants", skipped)
	}
	return inserted, nil
}

// ListByUser returns the user's restaurants, newest video first, optionally
// limited to one scan.
func (s *Store) ListByUser(ctx context.Context, userID, jobID string, limit int) ([]Restaurant, error) {
	query := `SELECT id, user_id, job_id, video_id, video_title, thumbnail_url, channel_name,
	restaurant_name, region, food_type, published_at, placeholder, created_at
FROM restaurants WHERE user_id = ?`
	args := []interface{}{userID}
	if jobID != "" {
		query += ` AND job_id = ?`
		args = append(args, jobID)
	}
	query += ` ORDER BY published_at DESC NULLS LAST, created_at DESC, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list restaurants: %w", err)
	}
	defer rows.Close()

	out := []Restaurant{}
	for rows.Next() {
		var (
			r         Restaurant
			published sql.NullTime
		)
		if err := rows.Scan(
			&r.ID, &r.UserID, &r.JobID, &r.VideoID, &r.VideoTitle, &r.ThumbnailURL, &r.ChannelName,
			&r.RestaurantName, &r.Region, &r.FoodType, &published, &r.Placeholder, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan restaurant: %w", err)
		}
		if published.Valid {
			t := published.Time.UTC()
			r.PublishedAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Delete removes a restaurant the user owns. Someone else's id looks exactly
// like a missing one.
func (s *Store) Delete(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM restaurants WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return fmt.Errorf("delete restaurant %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete restaurant %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
