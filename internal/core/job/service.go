package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"foodtube/internal/logger"
	rds "foodtube/internal/platform/redis"

	"github.com/google/uuid"
)

type Options struct {
	// LockTTL bounds how long a crashed job can block its user.
	LockTTL time.Duration
	// Retention is how long job records live in Redis.
	Retention time.Duration
}

// Service stores ScanJobs in Redis, enforces one active job per user and
// publishes every write for status streams.
type Service struct {
	redis *rds.Service
	opts  Options
	log   *logger.Logger
	now   func() time.Time
}

func NewService(redis *rds.Service, opts Options) *Service {
	if opts.LockTTL <= 0 {
		opts.LockTTL = time.Hour
	}
	if opts.Retention <= 0 {
		opts.Retention = 7 * 24 * time.Hour
	}
	return &Service{redis: redis, opts: opts, log: logger.New("JobService"), now: time.Now}
}

// Create checks that the user has no active job and records a pending one,
// atomically through the per-user lock.
func (s *Service) Create(ctx context.Context, userID string, source SourceType, playlistID string) (*ScanJob, error) {
	if !source.Valid() {
		return nil, ErrInvalidSource
	}
	if source == SourcePlaylist && playlistID == "" {
		return nil, ErrMissingPlaylist
	}
	if source == SourceLiked {
		playlistID = ""
	}

	id := uuid.NewString()
	if err := s.lock(ctx, userID, id); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	job := ScanJob{
		ID:         id,
		UserID:     userID,
		SourceType: source,
		PlaylistID: playlistID,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.save(ctx, job); err != nil {
		_ = s.redis.Release(ctx, lockKey(userID), id)
		return nil, err
	}
	s.log.LogInfof("created scan job %s for user %s (%s)", id, userID, source)
	return &job, nil
}

// lock takes the user's active-job lock for id. A lock whose holder is
// already terminal or gone is taken over once.
func (s *Service) lock(ctx context.Context, userID, id string) error {
	for attempt := 0; attempt < 2; attempt++ {
		ok, holder, err := s.redis.Acquire(ctx, lockKey(userID), id, s.opts.LockTTL)
		if err != nil {
			return fmt.Errorf("acquire scan lock: %w", err)
		}
		if ok {
			return nil
		}

		held, err := s.GetStatus(ctx, holder)
		switch {
		case errors.Is(err, ErrNotFound) || (err == nil && held.Status.Terminal()):
			s.log.LogWarnf("releasing stale scan lock of user %s held by %s", userID, holder)
			if err := s.redis.Release(ctx, lockKey(userID), holder); err != nil {
				return fmt.Errorf("release stale scan lock: %w", err)
			}
		case err != nil:
			return err
		default:
			return &ActiveJobError{JobID: holder}
		}
	}
	return ErrActiveJob
}

// GetStatus reads the latest committed job record.
func (s *Service) GetStatus(ctx context.Context, jobID string) (*ScanJob, error) {
	var job ScanJob
	if err := s.redis.CacheGet(ctx, key(jobID), &job); err != nil {
		if errors.Is(err, rds.ErrMiss) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load job %s: %w", jobID, err)
	}
	return &job, nil
}

// Apply runs Transition on the stored job, persists the result and publishes
// it. Reaching a terminal status frees the user's lock.
func (s *Service) Apply(ctx context.Context, jobID string, ev Event) (*ScanJob, error) {
	cur, err := s.GetStatus(ctx, jobID)
	if err != nil {
		return nil, err
	}
	next, err := Transition(*cur, ev)
	if err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now().UTC()

	if err := s.save(ctx, next); err != nil {
		return nil, err
	}
	if next.Status.Terminal() {
		if err := s.redis.Release(ctx, lockKey(next.UserID), next.ID); err != nil {
			s.log.LogWarnf("release scan lock for %s: %v", next.ID, err)
		}
	}
	return &next, nil
}

func (s *Service) save(ctx context.Context, job ScanJob) error {
	if err := s.redis.CacheSet(ctx, key(job.ID), job, s.opts.Retention); err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	if err := s.redis.Publish(ctx, channel(job.ID), "updated"); err != nil {
		s.log.LogWarnf("publish update for %s: %v", job.ID, err)
	}
	return nil
}

// Watch streams the job's projection: the current value first, then one per
// stored update, until the job is terminal or ctx ends.
func (s *Service) Watch(ctx context.Context, jobID string) (<-chan ScanJob, error) {
	sub := s.redis.Subscribe(ctx, channel(jobID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel(jobID), err)
	}

	current, err := s.GetStatus(ctx, jobID)
	if err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan ScanJob, 1)
	go func() {
		defer close(out)
		defer sub.Close()

		send := func(j ScanJob) bool {
			select {
			case out <- j:
				return !j.Status.Terminal()
			case <-ctx.Done():
				return false
			}
		}
		if !send(*current) {
			return
		}

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				j, err := s.GetStatus(ctx, jobID)
				if err != nil {
					s.log.LogWarnf("watch %s: %v", jobID, err)
					return
				}
				if !send(*j) {
					return
				}
			}
		}
	}()
	return out, nil
}

func key(id string) string         { return "job:" + id }
func channel(id string) string     { return "scan:" + id }
func lockKey(userID string) string { return "scan:active:" + userID }
