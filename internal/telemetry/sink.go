package telemetry

import (
	"context"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/salesagent/pkg/logger"
)

// Event names emitted by the turn pipeline.
const (
	EventPresenceActive         = "presence.active"
	EventTurnCompleted          = "turn.completed"
	EventClassificationFallback = "classification.fallback"
	EventLLMUsage               = "llm.usage"
	EventGoal                   = "goal.event"
)

// LogSink writes events to the structured log.
type LogSink struct{}

func (LogSink) Emit(_ context.Context, event string, payload map[string]any) {
	logx.Debug().Str("event", event).Fields(payload).Msg("telemetry event")
	EventsPublished.WithLabelValues(event, "logged").Inc()
}

// NopSink drops every event.
type NopSink struct{}

func (NopSink) Emit(context.Context, string, map[string]any) {}

// MultiSink fans an event out to every sink.
type MultiSink []model.TelemetrySink

func (m MultiSink) Emit(ctx context.Context, event string, payload map[string]any) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, event, payload)
		}
	}
}

// Safe wraps a sink so a panicking implementation cannot reach the caller.
func Safe(s model.TelemetrySink) model.TelemetrySink {
	if s == nil {
		return NopSink{}
	}
	return safeSink{s}
}

type safeSink struct{ inner model.TelemetrySink }

func (s safeSink) Emit(ctx context.Context, event string, payload map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			logx.Warn().Str("event", event).Interface("panic", r).Msg("telemetry sink panicked")
			EventsPublished.WithLabelValues(event, "panic").Inc()
		}
	}()
	s.inner.Emit(ctx, event, payload)
}

var (
	_ model.TelemetrySink = LogSink{}
	_ model.TelemetrySink = NopSink{}
	_ model.TelemetrySink = MultiSink{}
)
