package eino

import (
	"context"
	"sync/atomic"
	"time"

	"foodtube/internal/logger"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
)

type traceStartKey struct{}

// Tracer is an Eino callback handler that logs every chat model call with its
// latency and token usage, and keeps process-wide totals.
type Tracer struct {
	log    *logger.Logger
	calls  atomic.Int64
	errors atomic.Int64
	tokens atomic.Int64
}

// TraceStats is a snapshot of the tracer's counters.
type TraceStats struct {
	Calls  int64 `json:"calls"`
	Errors int64 `json:"errors"`
	Tokens int64 `json:"tokens"`
}

func NewTracer() *Tracer {
	return &Tracer{log: logger.New("EinoTracer")}
}

// Handler builds the callbacks.Handler to attach with callbacks.InitCallbacks.
func (t *Tracer) Handler() callbacks.Handler {
	return callbacks.NewHandlerBuilder().
		OnStartFn(t.onStart).
		OnEndFn(t.onEnd).
		OnErrorFn(t.onError).
		Build()
}

func (t *Tracer) Stats() TraceStats {
	return TraceStats{Calls: t.calls.Load(), Errors: t.errors.Load(), Tokens: t.tokens.Load()}
}

func (t *Tracer) onStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	t.calls.Add(1)
	if in := model.ConvCallbackInput(input); in != nil {
		t.log.LogDebugf("[trace] %s start messages=%d", nodeName(info), len(in.Messages))
	}
	return context.WithValue(ctx, traceStartKey{}, time.Now())
}

func (t *Tracer) onEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	out := model.ConvCallbackOutput(output)
	var total int
	if out != nil && out.TokenUsage != nil {
		total = out.TokenUsage.TotalTokens
		t.tokens.Add(int64(total))
	}
	t.log.LogDebugf("[trace] %s end duration=%s tokens=%d", nodeName(info), elapsed(ctx), total)
	return ctx
}

func (t *Tracer) onError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	t.errors.Add(1)
	t.log.LogWarnf("[trace] %s error after %s: %v", nodeName(info), elapsed(ctx), err)
	return ctx
}

func elapsed(ctx context.Context) time.Duration {
	if start, ok := ctx.Value(traceStartKey{}).(time.Time); ok {
		return time.Since(start).Round(time.Millisecond)
	}
	return 0
}

func nodeName(info *callbacks.RunInfo) string {
	if info == nil {
		return "model"
	}
	if info.Name != "" {
		return info.Name
	}
	return string(info.Component)
}
