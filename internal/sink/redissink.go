package sink

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RedisSink publishes events to a Redis pub/sub channel so other gateway
// instances (or an external collector) can observe them. Construction
// failures are non-fatal for the caller: Publish on a nil client is a
// no-op, since usage reporting must never block or fail a request.
type RedisSink struct {
	client  *redis.Client
	channel string
}

// NewRedisSink connects to addr and returns a sink publishing to channel.
// A connection error is logged and a sink with a nil client is still
// returned so callers can wire it unconditionally.
func NewRedisSink(addr, password string, db int, channel string) *RedisSink {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.WithError(err).WithField("addr", addr).Warn("sink: redis ping failed, publishing disabled")
		return &RedisSink{channel: channel}
	}
	return &RedisSink{client: client, channel: channel}
}

func (s *RedisSink) Publish(ctx context.Context, evt Event) {
	if s.client == nil {
		return
	}
	body, err := json.Marshal(evt)
	if err != nil {
		log.WithError(err).Warn("sink: failed to marshal event")
		return
	}
	go func() {
		if err := s.client.Publish(context.WithoutCancel(ctx), s.channel, body).Err(); err != nil {
			log.WithError(err).Warn("sink: redis publish failed")
		}
	}()
}

// Close releases the underlying Redis connection, if any.
func (s *RedisSink) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
