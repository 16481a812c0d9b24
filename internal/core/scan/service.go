package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"foodtube/internal/core/inference"
	"foodtube/internal/core/job"
	"foodtube/internal/core/restaurant"
	"foodtube/internal/core/youtube"
	"foodtube/internal/logger"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type VideoSource interface {
	ListCollectionVideoIDs(ctx context.Context, token, collectionID string, maxResults int) ([]string, error)
	GetVideoDetails(ctx context.Context, token string, ids []string) ([]youtube.Video, error)
	GetTopComment(ctx context.Context, token, videoID string) string
}

type Inference interface {
	Classify(ctx context.Context, videos []youtube.Video) ([]inference.ClassificationResult, error)
	Extract(ctx context.Context, inputs []inference.ExtractInput) ([]inference.ExtractionResult, error)
}

type JobStore interface {
	Create(ctx context.Context, userID string, source job.SourceType, playlistID string) (*job.ScanJob, error)
	GetStatus(ctx context.Context, jobID string) (*job.ScanJob, error)
	Apply(ctx context.Context, jobID string, ev job.Event) (*job.ScanJob, error)
}

type RestaurantStore interface {
	InsertMany(ctx context.Context, rs []restaurant.Restaurant) (int, error)
}

type TokenProvider interface {
	GetAccessToken(ctx context.Context, userID string) (string, error)
}

type Enqueuer interface {
	EnqueueOnce(task *asynq.Task, id string, timeout time.Duration) error
}

type Options struct {
	// VideoLimit caps how many videos one scan collects.
	VideoLimit         int
	CommentConcurrency int
	// CommentRate limits top-comment lookups per second; 0 means no limit.
	CommentRate float64
	ScanTimeout time.Duration
}

// ScanRequest is everything one pipeline run needs. Token is resolved once
// before the run starts.
type ScanRequest struct {
	JobID      string
	UserID     string
	Token      string
	SourceType job.SourceType
	PlaylistID string
}

type Service struct {
	videos      VideoSource
	inference   Inference
	jobs        JobStore
	restaurants RestaurantStore
	tokens      TokenProvider
	tasks       Enqueuer
	opts        Options
	log         *logger.Logger
}

type Deps struct {
	Videos      VideoSource
	Inference   Inference
	Jobs        JobStore
	Restaurants RestaurantStore
	Tokens      TokenProvider
	Tasks       Enqueuer
}

func NewService(d Deps, opts Options) *Service {
	if opts.VideoLimit < 0 {
		opts.VideoLimit = 0
	}
	if opts.CommentConcurrency < 1 {
		opts.CommentConcurrency = 1
	}
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = time.Hour
	}
	return &Service{
		videos:      d.Videos,
		inference:   d.Inference,
		jobs:        d.Jobs,
		restaurants: d.Restaurants,
		tokens:      d.Tokens,
		tasks:       d.Tasks,
		opts:        opts,
		log:         logger.New("ScanService"),
	}
}

// RunScan drives one job from pending to a terminal status. Whatever goes
// wrong after the job exists is recorded as failed with the error's message,
// and that error is returned.
func (s *Service) RunScan(ctx context.Context, req ScanRequest) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scan panicked: %v", r)
		}
		if err != nil {
			s.fail(ctx, req.JobID, err)
			return
		}
		s.log.LogSuccessf("scan %s completed in %v", req.JobID, time.Since(start).Round(time.Millisecond))
	}()
	return s.run(ctx, req)
}

func (s *Service) run(ctx context.Context, req ScanRequest) error {
	apply := func(ev job.Event) error {
		_, err := s.jobs.Apply(ctx, req.JobID, ev)
		return err
	}

	// 1. collect ids
	if err := apply(job.StartCollecting{}); err != nil {
		return err
	}
	collection := youtube.LikedCollectionID
	if req.SourceType == job.SourcePlaylist {
		collection = req.PlaylistID
	}
	ids, err := s.videos.ListCollectionVideoIDs(ctx, req.Token, collection, s.opts.VideoLimit)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		s.log.LogInfof("scan %s: collection %s is empty", req.JobID, collection)
		return apply(job.Complete{})
	}

	// 2. details
	videos, err := s.videos.GetVideoDetails(ctx, req.Token, ids)
	if err != nil {
		return err
	}
	s.log.LogInfof("scan %s: %d of %d videos available", req.JobID, len(videos), len(ids))
	if err := apply(job.DetailsFetched{Total: len(videos)}); err != nil {
		return err
	}
	if err := apply(job.StartFiltering{}); err != nil {
		return err
	}

	// 3. classify
	classified, err := s.inference.Classify(ctx, videos)
	if err != nil {
		return err
	}
	kept := keepRestaurantVideos(videos, classified)
	if err := apply(job.Classified{Filtered: len(kept)}); err != nil {
		return err
	}
	if len(kept) == 0 {
		s.log.LogInfof("scan %s: no restaurant videos", req.JobID)
		return apply(job.Complete{})
	}

	// 4. comments
	if err := apply(job.StartExtracting{}); err != nil {
		return err
	}
	inputs, err := s.fetchComments(ctx, req.Token, kept)
	if err != nil {
		return err
	}

	// 5. extract and persist
	extracted, err := s.inference.Extract(ctx, inputs)
	if err != nil {
		return err
	}
	records := buildRestaurants(req, kept, extracted)
	inserted, err := s.restaurants.InsertMany(ctx, records)
	if err != nil {
		return err
	}
	s.log.LogInfof("scan %s: %d restaurants built, %d new", req.JobID, len(records), inserted)

	// 6. done
	return apply(job.Complete{Restaurants: len(records)})
}

// fail records err on the job. The write outlives ctx so a timed-out or
// shut-down task still ends in a terminal status.
func (s *Service) fail(ctx context.Context, jobID string, err error) {
	s.log.LogErrorf("scan %s failed: %v", jobID, err)
	if _, ferr := s.jobs.Apply(context.WithoutCancel(ctx), jobID, job.Fail{Message: err.Error()}); ferr != nil && !errors.Is(ferr, job.ErrTerminal) {
		s.log.LogErrorf("scan %s: could not record failure: %v", jobID, ferr)
	}
}

// keepRestaurantVideos returns the videos explicitly classified as restaurant
// videos, in input order. Missing results count as false.
func keepRestaurantVideos(videos []youtube.Video, results []inference.ClassificationResult) []youtube.Video {
	yes := make(map[string]bool, len(results))
	for _, r := range results {
		if r.IsRestaurant {
			yes[r.VideoID] = true
		}
	}
	kept := make([]youtube.Video, 0, len(yes))
	for _, v := range videos {
		if yes[v.ID] {
			kept = append(kept, v)
		}
	}
	return kept
}

// fetchComments looks up every kept video's top comment. Lookups run with
// bounded concurrency and rate; each result lands at its video's index.
func (s *Service) fetchComments(ctx context.Context, token string, kept []youtube.Video) ([]inference.ExtractInput, error) {
	inputs := make([]inference.ExtractInput, len(kept))

	limit := rate.Inf
	if s.opts.CommentRate > 0 {
		limit = rate.Limit(s.opts.CommentRate)
	}
	limiter := rate.NewLimiter(limit, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.CommentConcurrency)
	for i, v := range kept {
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			inputs[i] = inference.ExtractInput{
				Video:      v,
				TopComment: s.videos.GetTopComment(gctx, token, v.ID),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}

// buildRestaurants expands extraction results into rows. Results for videos
// outside the kept set are dropped; blank fields become "unknown".
func buildRestaurants(req ScanRequest, kept []youtube.Video, extracted []inference.ExtractionResult) []restaurant.Restaurant {
	byID := make(map[string]youtube.Video, len(kept))
	for _, v := range kept {
		byID[v.ID] = v
	}

	var out []restaurant.Restaurant
	for _, res := range extracted {
		v, ok := byID[res.VideoID]
		if !ok {
			continue
		}
		var published *time.Time
		if !v.PublishedAt.IsZero() {
			t := v.PublishedAt
			published = &t
		}
		for _, info := range res.Restaurants {
			out = append(out, restaurant.Restaurant{
				UserID:         req.UserID,
				JobID:          req.JobID,
				VideoID:        v.ID,
				VideoTitle:     v.Title,
				ThumbnailURL:   v.ThumbnailURL,
				ChannelName:    v.ChannelName,
				RestaurantName: orUnknown(info.Name),
				Region:         orUnknown(info.Region),
				FoodType:       orUnknown(info.FoodType),
				PublishedAt:    published,
				Placeholder:    res.Degraded,
			})
		}
	}
	return out
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return inference.Unknown
	}
	return s
}
