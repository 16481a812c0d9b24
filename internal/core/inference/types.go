package inference

import (
	"time"

	"foodtube/internal/core/youtube"
)

// Unknown fills any restaurant field the model could not determine.
const Unknown = "unknown"

type ClassificationResult struct {
	VideoID      string `json:"videoId"`
	IsRestaurant bool   `json:"isRestaurant"`
}

type RestaurantInfo struct {
	Name     string `json:"name"`
	Region   string `json:"region"`
	FoodType string `json:"foodType"`
}

// ExtractionResult lists the restaurants found in one video. Degraded is set
// when the entries are the failure placeholder, not a model answer.
type ExtractionResult struct {
	VideoID     string           `json:"videoId"`
	Restaurants []RestaurantInfo `json:"restaurants"`
	Degraded    bool             `json:"-"`
}

// ExtractInput is a kept video plus its optional top comment.
type ExtractInput struct {
	Video      youtube.Video
	TopComment string
}

// Options tunes batching and retry. Start from DefaultOptions; non-positive
// batch sizes and retry durations are replaced by the defaults.
type Options struct {
	ClassifyBatchSize int
	ExtractBatchSize  int
	// Pause before every batch after the first.
	BatchPause time.Duration

	MaxRetries int
	RetryBase  time.Duration
	RetryCap   time.Duration
	MaxJitter  time.Duration

	Temperature float32
}

func DefaultOptions() Options {
	return Options{
		ClassifyBatchSize: 30,
		ExtractBatchSize:  10,
		BatchPause:        2 * time.Second,
		MaxRetries:        3,
		RetryBase:         2 * time.Second,
		RetryCap:          60 * time.Second,
		MaxJitter:         time.Second,
		Temperature:       0.1,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ClassifyBatchSize <= 0 {
		o.ClassifyBatchSize = d.ClassifyBatchSize
	}
	if o.ExtractBatchSize <= 0 {
		o.ExtractBatchSize = d.ExtractBatchSize
	}
	if o.BatchPause < 0 {
		o.BatchPause = 0
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBase <= 0 {
		o.RetryBase = d.RetryBase
	}
	if o.RetryCap <= 0 {
		o.RetryCap = d.RetryCap
	}
	if o.MaxJitter < 0 {
		o.MaxJitter = 0
	}
	return o
}
