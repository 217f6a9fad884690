package adapters

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/CURENT/pv-curve-llm/agent/dialogue/ports"
)

type spanLoggerKey struct{}

// ZerologTracer emits engine spans and events as structured log lines.
type ZerologTracer struct {
	logger zerolog.Logger
}

func NewZerologTracer(logger zerolog.Logger) *ZerologTracer {
	return &ZerologTracer{logger: logger}
}

// StartSpan opens a span: a child logger carrying the span name and
// attributes travels in the returned context so events correlate.
func (t *ZerologTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	span := t.logger.With().Str("span", name).Logger()
	for k, v := range attrs {
		span = span.With().Interface(k, v).Logger()
	}
	ctx = context.WithValue(ctx, spanLoggerKey{}, span)

	start := time.Now()
	span.Debug().Msg("span start")

	return ctx, func(err error) {
		ev := span.Debug()
		if err != nil {
			ev = span.Error().Err(err)
		}
		ev.Dur("duration", time.Since(start)).Msg("span end")
	}
}

// Event logs one event within the surrounding span, or against the base
// logger when no span is open.
func (t *ZerologTracer) Event(ctx context.Context, name string, attrs map[string]any) {
	logger := t.logger
	if span, ok := ctx.Value(spanLoggerKey{}).(zerolog.Logger); ok {
		logger = span
	}
	ev := logger.Debug().Str("event", name)
	for k, v := range attrs {
		ev = ev.Interface(k, v)
	}
	ev.Msg("trace event")
}

var _ ports.Tracer = (*ZerologTracer)(nil)
