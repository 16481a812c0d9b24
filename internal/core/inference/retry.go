package inference

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"regexp"
	"strings"
	"time"

	"google.golang.org/genai"
)

// backoff returns min(base*2^attempt + jitter, cap).
func backoff(opts Options, attempt int, jitter time.Duration) time.Duration {
	wait := time.Duration(float64(opts.RetryBase)*math.Pow(2, float64(attempt))) + jitter
	if wait > opts.RetryCap || wait < 0 {
		wait = opts.RetryCap
	}
	return wait
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// statusCodeRe matches a rate limit or server status code standing alone in
// an error message.
var statusCodeRe = regexp.MustCompile(`\b(?:429|5\d\d)\b`)

// isTransient reports rate limiting and server side failures.
func isTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}

	msg := strings.ToLower(err.Error())
	if statusCodeRe.MatchString(msg) {
		return true
	}
	for _, pattern := range []string{
		"rate limit",
		"rate_limit",
		"resource_exhausted",
		"too many requests",
		"unavailable",
		"internal error",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// withRetry calls fn until it succeeds, fails permanently, or MaxRetries
// transient failures have been retried.
func (c *Client) withRetry(ctx context.Context, label string, fn func() (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		out, err := fn()
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !isTransient(err) || attempt == c.opts.MaxRetries {
			return "", err
		}

		wait := backoff(c.opts, attempt, c.jitter(c.opts.MaxJitter))
		c.log.LogWarnf("%s: transient failure, retry %d/%d in %s: %v", label, attempt+1, c.opts.MaxRetries, wait.Round(time.Millisecond), err)
		if err := c.sleep(ctx, wait); err != nil {
			return "", err
		}
	}
	return "", lastErr
}
