package job

import (
	"errors"
	"fmt"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusCollecting Status = "collecting"
	StatusFiltering  Status = "filtering"
	StatusExtracting Status = "extracting"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type SourceType string

const (
	SourceLiked    SourceType = "liked"
	SourcePlaylist SourceType = "playlist"
)

func (s SourceType) Valid() bool {
	return s == SourceLiked || s == SourcePlaylist
}

// ScanJob is one run of the scan pipeline and the projection pollers read.
type ScanJob struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	SourceType      SourceType `json:"sourceType"`
	PlaylistID      string     `json:"playlistId,omitempty"`
	Status          Status     `json:"status"`
	TotalVideos     int        `json:"totalVideos"`
	FilteredCount   int        `json:"filteredCount"`
	RestaurantCount int        `json:"restaurantCount"`
	ErrorMessage    string     `json:"errorMessage,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

var (
	ErrNotFound          = errors.New("scan job not found")
	ErrActiveJob         = errors.New("a scan is already in progress")
	ErrInvalidSource     = errors.New("invalid source type")
	ErrMissingPlaylist   = errors.New("playlistId is required for playlist scans")
	ErrTerminal          = errors.New("scan job already finished")
	ErrInvalidTransition = errors.New("invalid scan job transition")
)

// ActiveJobError carries the id of the job that blocks a new scan.
type ActiveJobError struct {
	JobID string
}

func (e *ActiveJobError) Error() string {
	return fmt.Sprintf("%s (job %s)", ErrActiveJob, e.JobID)
}

func (e *ActiveJobError) Is(target error) bool { return target == ErrActiveJob }
