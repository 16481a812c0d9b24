package tasks

import (
	"time"

	"foodtube/internal/platform/redis"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeScan = "scan:run"

	QueueScans = "scans"
)

type Client struct{ c *asynq.Client }

func New(r *redis.Service) *Client { return &Client{c: asynq.NewClient(r.AsynqRedisOpt())} }

func (t *Client) Close() error { return t.c.Close() }

// EnqueueOnce submits a task that is never retried by the queue; a failed run
// is recorded by the handler itself. The task id is the job id so a repeated
// submission for the same job is rejected by asynq.
func (t *Client) EnqueueOnce(task *asynq.Task, id string, timeout time.Duration) error {
	_, err := t.c.Enqueue(task,
		asynq.Queue(QueueScans),
		asynq.MaxRetry(0),
		asynq.TaskID(id),
		asynq.Timeout(timeout),
	)
	return err
}
