package sink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogSinkKeepsBoundedRecent(t *testing.T) {
	s := NewLogSink(2)
	s.Publish(context.Background(), Event{Topic: TopicRequestCompleted, RequestID: "1"})
	s.Publish(context.Background(), Event{Topic: TopicRequestCompleted, RequestID: "2"})
	s.Publish(context.Background(), Event{Topic: TopicRequestCompleted, RequestID: "3"})
	recent := s.Recent()
	assert.Len(t, recent, 2)
	assert.Equal(t, "2", recent[0].RequestID)
	assert.Equal(t, "3", recent[1].RequestID)
}

func TestMultiSinkFansOutAndSkipsNil(t *testing.T) {
	a := NewLogSink(4)
	b := NewLogSink(4)
	m := NewMultiSink(a, nil, b)
	m.Publish(context.Background(), Event{Topic: TopicRequestFailed})
	assert.Len(t, a.Recent(), 1)
	assert.Len(t, b.Recent(), 1)
}

func TestRedisSinkDegradesGracefullyWhenUnreachable(t *testing.T) {
	s := NewRedisSink("127.0.0.1:1", "", 0, "gateway-events")
	assert.NotPanics(t, func() {
		s.Publish(context.Background(), Event{Topic: TopicProviderCooldown})
	})
	assert.NoError(t, s.Close())
}
