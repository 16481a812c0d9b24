package scan

import (
	"context"
	"encoding/json"
	"fmt"

	"foodtube/internal/core/job"
	"foodtube/internal/platform/tasks"

	"github.com/hibiken/asynq"
)

// TaskPayload is what the queue carries for one scan. The access token is
// looked up when the task runs and never stored in Redis.
type TaskPayload struct {
	JobID      string         `json:"job_id"`
	UserID     string         `json:"user_id"`
	SourceType job.SourceType `json:"source_type"`
	PlaylistID string         `json:"playlist_id,omitempty"`
}

// StartScan creates the job (rejecting a second active one for the user) and
// hands it to the worker queue. It returns as soon as the task is accepted.
func (s *Service) StartScan(ctx context.Context, userID string, source job.SourceType, playlistID string) (*job.ScanJob, error) {
	j, err := s.jobs.Create(ctx, userID, source, playlistID)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(TaskPayload{
		JobID:      j.ID,
		UserID:     userID,
		SourceType: j.SourceType,
		PlaylistID: j.PlaylistID,
	})
	if err != nil {
		return nil, err
	}
	task := asynq.NewTask(tasks.TaskTypeScan, payload)
	if err := s.tasks.EnqueueOnce(task, j.ID, s.opts.ScanTimeout); err != nil {
		err = fmt.Errorf("enqueue scan: %w", err)
		s.fail(ctx, j.ID, err)
		return nil, err
	}

	s.log.LogInfof("enqueued scan %s for user %s (%s)", j.ID, userID, source)
	return j, nil
}

// HandleScanTask is the asynq handler for tasks.TaskTypeScan.
func (s *Service) HandleScanTask(ctx context.Context, task *asynq.Task) error {
	var p TaskPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("decode scan payload: %v: %w", err, asynq.SkipRetry)
	}

	token, err := s.tokens.GetAccessToken(ctx, p.UserID)
	if err != nil {
		s.fail(ctx, p.JobID, err)
		return err
	}

	return s.RunScan(ctx, ScanRequest{
		JobID:      p.JobID,
		UserID:     p.UserID,
		Token:      token,
		SourceType: p.SourceType,
		PlaylistID: p.PlaylistID,
	})
}
