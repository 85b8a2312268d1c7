package sse

import "time"

// HeartbeatMode selects how an idle-stream heartbeat is rendered.
type HeartbeatMode string

const (
	// HeartbeatComment emits a bare SSE comment line.
	HeartbeatComment HeartbeatMode = "comment"
	// HeartbeatChunk emits a chat.completion.chunk carrying
	// reasoning_content tagged with metadata.rccHeartbeat=true, so
	// downstream normalization can filter it back out.
	HeartbeatChunk HeartbeatMode = "chunk"
)

// Options configures the pre-heartbeat and in-stream heartbeat cadence.
type Options struct {
	PreDelay    time.Duration // default 800ms
	PreInterval time.Duration // default 3000ms
	HeartbeatMs time.Duration // default 15000ms
	Mode        HeartbeatMode // default HeartbeatChunk
}

// DefaultOptions matches the spec's default cadence.
func DefaultOptions() Options {
	return Options{
		PreDelay:    800 * time.Millisecond,
		PreInterval: 3000 * time.Millisecond,
		HeartbeatMs: 15000 * time.Millisecond,
		Mode:        HeartbeatChunk,
	}
}

func (o Options) withDefaults() Options {
	if o.PreDelay <= 0 {
		o.PreDelay = 800 * time.Millisecond
	}
	if o.PreInterval <= 0 {
		o.PreInterval = 3000 * time.Millisecond
	}
	if o.HeartbeatMs <= 0 {
		o.HeartbeatMs = 15000 * time.Millisecond
	}
	if o.Mode == "" {
		o.Mode = HeartbeatChunk
	}
	return o
}

func heartbeatChunk(model string) map[string]any {
	return map[string]any{
		"id":      nextChunkID(),
		"object":  "chat.completion.chunk",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []any{map[string]any{
			"index":         0,
			"delta":         map[string]any{"reasoning_content": ""},
			"finish_reason": nil,
		}},
		"metadata": map[string]any{"rccHeartbeat": true},
	}
}

// IsHeartbeatChunk reports whether a decoded OpenAI chunk is a heartbeat,
// per the metadata.rccHeartbeat tag — downstream consumers use this to
// filter heartbeats back out before presenting a transcript.
func IsHeartbeatChunk(chunk map[string]any) bool {
	meta, ok := chunk["metadata"].(map[string]any)
	if !ok {
		return false
	}
	flag, _ := meta["rccHeartbeat"].(bool)
	return flag
}
