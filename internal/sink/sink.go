// Package sink dispatches gateway usage and error events to whichever
// backends are configured: an always-present in-process/log sink, and an
// optional Redis pub/sub sink for fanning events out to other processes.
package sink

import (
	"context"
	"time"
)

// Topic names for the events this gateway raises.
const (
	TopicRequestCompleted = "request.completed"
	TopicRequestFailed    = "request.failed"
	TopicProviderCooldown = "provider.cooldown"
)

// Event is one usage/error record.
type Event struct {
	Topic     string
	Timestamp time.Time
	RequestID string
	RouteName string
	Provider  string
	Model     string
	Payload   map[string]any
}

// EventSink receives gateway events. Publish must not block the request
// path on a slow subscriber; implementations that fan out over the
// network should do so asynchronously.
type EventSink interface {
	Publish(ctx context.Context, evt Event)
}

// MultiSink fans one event out to every configured sink.
type MultiSink struct {
	sinks []EventSink
}

// NewMultiSink builds a MultiSink over the given backends, skipping nils.
func NewMultiSink(sinks ...EventSink) *MultiSink {
	out := make([]EventSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &MultiSink{sinks: out}
}

func (m *MultiSink) Publish(ctx context.Context, evt Event) {
	for _, s := range m.sinks {
		s.Publish(ctx, evt)
	}
}
