package inference

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"google.golang.org/genai"
)

func TestBackoff(t *testing.T) {
	opts := DefaultOptions()
	tests := []struct {
		attempt int
		jitter  time.Duration
		want    time.Duration
	}{
		{0, 0, 2 * time.Second},
		{1, 500 * time.Millisecond, 4500 * time.Millisecond},
		{2, 0, 8 * time.Second},
		{4, 999 * time.Millisecond, 32999 * time.Millisecond},
		{5, 0, 60 * time.Second},
		{10, time.Second, 60 * time.Second},
	}
	for _, tt := range tests {
		if got := backoff(opts, tt.attempt, tt.jitter); got != tt.want {
			t.Errorf("backoff(%d, %s) = %s, want %s", tt.attempt, tt.jitter, got, tt.want)
		}
	}
}

func TestRandomJitterBounded(t *testing.T) {
	for i := 0; i < 100; i++ {
		if j := randomJitter(time.Second); j < 0 || j >= time.Second {
			t.Fatalf("jitter %s out of range", j)
		}
	}
	if randomJitter(0) != 0 {
		t.Error("zero max should give zero jitter")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"api 429", &genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}, true},
		{"api 503", &genai.APIError{Code: 503}, true},
		{"api 400", &genai.APIError{Code: 400, Message: "bad request"}, false},
		{"wrapped api 500", fmt.Errorf("generate: %w", &genai.APIError{Code: 500}), true},
		{"rate limit text", errors.New("rate limit exceeded"), true},
		{"resource exhausted text", errors.New("RESOURCE_EXHAUSTED"), true},
		{"unavailable text", errors.New("service UNAVAILABLE"), true},
		{"502 text", errors.New("upstream returned 502"), true},
		{"429 text", errors.New("status 429"), true},
		{"code inside a number", errors.New("prompt exceeds 1500 tokens"), false},
		{"code as prefix", errors.New("model returned 5000 candidates"), false},
		{"permission", errors.New("permission denied"), false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransient(tt.err); got != tt.want {
				t.Errorf("isTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
