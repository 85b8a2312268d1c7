package sink

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// LogSink is the always-present sink: it records events to the structured
// logger and keeps the last N in memory for debug inspection, mirroring
// the teacher's in-process Hub but without the subscribe/unsubscribe
// machinery this gateway has no caller for.
type LogSink struct {
	mu      sync.Mutex
	recent  []Event
	maxKept int
}

// NewLogSink builds a LogSink retaining at most maxKept recent events
// (0 means an unbounded-but-reasonable default of 256).
func NewLogSink(maxKept int) *LogSink {
	if maxKept <= 0 {
		maxKept = 256
	}
	return &LogSink{maxKept: maxKept}
}

func (s *LogSink) Publish(_ context.Context, evt Event) {
	log.WithFields(log.Fields{
		"topic":      evt.Topic,
		"request_id": evt.RequestID,
		"route":      evt.RouteName,
		"provider":   evt.Provider,
		"model":      evt.Model,
	}).Info("gateway event")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, evt)
	if len(s.recent) > s.maxKept {
		s.recent = s.recent[len(s.recent)-s.maxKept:]
	}
}

// Recent returns a snapshot of the most recently published events.
func (s *LogSink) Recent() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.recent))
	copy(out, s.recent)
	return out
}
