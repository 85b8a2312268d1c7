package sse

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/routecodex/gateway/internal/workflow"
)

type flushRecorder struct {
	*httptest.ResponseRecorder
	flushes int
}

func (f *flushRecorder) Flush() { f.flushes++ }

func TestStreamChunksEmitsRoleBodyDoneSequence(t *testing.T) {
	rec := &flushRecorder{ResponseRecorder: httptest.NewRecorder()}
	chunks := []workflow.ChunkEvent{
		{Delta: map[string]any{"content": "hi"}},
		{Delta: map[string]any{}, FinishReason: "stop"},
	}
	err := StreamChunks(rec, rec, "gpt-4", chunks, DefaultOptions())
	assert.NoError(t, err)
	body := rec.Body.String()
	assert.Contains(t, body, `"role":"assistant"`)
	assert.Contains(t, body, `"content":"hi"`)
	assert.Contains(t, body, `"finish_reason":"stop"`)
	assert.Contains(t, body, "data: [DONE]")
	assert.Greater(t, rec.flushes, 0)
}

func TestStreamChunksDefaultsFinishReasonToToolCalls(t *testing.T) {
	rec := &flushRecorder{ResponseRecorder: httptest.NewRecorder()}
	chunks := []workflow.ChunkEvent{
		{Delta: map[string]any{"tool_calls": []any{map[string]any{"id": "1"}}}},
	}
	err := StreamChunks(rec, rec, "gpt-4", chunks, DefaultOptions())
	assert.NoError(t, err)
	assert.Contains(t, rec.Body.String(), `"finish_reason":"tool_calls"`)
}

func TestStripThinkRemovesMarkers(t *testing.T) {
	assert.Equal(t, "hello world", StripThink("hello <think>secret</think> world"))
	assert.Equal(t, "hello ", StripThink("hello <think>unterminated"))
	assert.Equal(t, "plain", StripThink("plain"))
}

func TestIsHeartbeatChunkDetectsTag(t *testing.T) {
	assert.True(t, IsHeartbeatChunk(heartbeatChunk("gpt-4")))
	assert.False(t, IsHeartbeatChunk(map[string]any{}))
}

func TestStreamAnthropicEmitsEventSequence(t *testing.T) {
	rec := &flushRecorder{ResponseRecorder: httptest.NewRecorder()}
	chunks := []workflow.ChunkEvent{
		{Delta: map[string]any{"content": "hi"}},
		{Delta: map[string]any{}, FinishReason: "stop"},
	}
	err := StreamAnthropic(rec, rec, "claude-3", chunks, DefaultOptions())
	assert.NoError(t, err)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "event: message_start"))
	assert.True(t, strings.Contains(body, "event: content_block_start"))
	assert.True(t, strings.Contains(body, "event: content_block_stop"))
	assert.True(t, strings.Contains(body, "event: message_delta"))
	assert.True(t, strings.Contains(body, "event: message_stop"))
	assert.Contains(t, body, "data: [DONE]")
}

func TestWritePingIncrementsSequence(t *testing.T) {
	rec := &flushRecorder{ResponseRecorder: httptest.NewRecorder()}
	assert.NoError(t, WritePing(rec, rec))
	assert.Contains(t, rec.Body.String(), `"type":"ping"`)
}
