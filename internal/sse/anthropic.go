package sse

import (
	"net/http"
	"sync/atomic"

	"github.com/routecodex/gateway/internal/workflow"
)

// pingSeq is the monotonic sequence used by Anthropic-flavor "ping"
// heartbeats; shared across streams since the spec only requires it be
// monotonic, not per-stream.
var pingSeq uint64

// WritePing emits an Anthropic-style `event: ping` heartbeat.
func WritePing(w http.ResponseWriter, flusher http.Flusher) error {
	seq := atomic.AddUint64(&pingSeq, 1)
	return writeEvent(w, flusher, "ping", map[string]any{"type": "ping", "sequence": seq})
}

// StreamAnthropic renders an OpenAI-chunk sequence (already materialized,
// e.g. from workflow.SynthesizeStream) as the Anthropic-messages SSE
// sequence: message_start, one content_block per distinct delta kind
// (text vs tool_use) tracked by a running block index, message_delta
// carrying stop_reason/usage, message_stop, then data: [DONE].
func StreamAnthropic(w http.ResponseWriter, flusher http.Flusher, model string, chunks []workflow.ChunkEvent, opts Options) error {
	opts = opts.withDefaults()

	if err := writeEvent(w, flusher, "message_start", map[string]any{
		"type": "message_start",
		"message": map[string]any{
			"id":      nextChunkID(),
			"type":    "message",
			"role":    "assistant",
			"model":   model,
			"content": []any{},
			"usage":   map[string]any{"input_tokens": 0, "output_tokens": 0},
		},
	}); err != nil {
		return err
	}

	t := &blockTracker{}
	defer t.closeOpenBlock(w, flusher)

	finishReason := ""
	for _, chunk := range chunks {
		if chunk.FinishReason != "" {
			finishReason = chunk.FinishReason
		}
		if content, ok := chunk.Delta["content"].(string); ok && content != "" {
			if err := t.emitText(w, flusher, StripThink(content)); err != nil {
				return err
			}
		}
		if toolCalls, ok := chunk.Delta["tool_calls"].([]any); ok {
			for _, tc := range toolCalls {
				if m, ok := tc.(map[string]any); ok {
					if err := t.emitToolCall(w, flusher, m); err != nil {
						return err
					}
				}
			}
		}
	}
	t.closeOpenBlock(w, flusher)

	stopReason := "end_turn"
	switch finishReason {
	case "length":
		stopReason = "max_tokens"
	case "tool_calls":
		stopReason = "tool_use"
	}
	if err := writeEvent(w, flusher, "message_delta", map[string]any{
		"type":  "message_delta",
		"delta": map[string]any{"stop_reason": stopReason},
		"usage": map[string]any{"output_tokens": 0},
	}); err != nil {
		return err
	}
	if err := writeEvent(w, flusher, "message_stop", map[string]any{"type": "message_stop"}); err != nil {
		return err
	}
	return writeDone(w, flusher)
}

// blockTracker holds the one piece of state the Anthropic transformer
// needs: which content block (if any) is currently open, and its index.
type blockTracker struct {
	index    int
	open     bool
	openKind string
}

func (t *blockTracker) emitText(w http.ResponseWriter, flusher http.Flusher, text string) error {
	if t.open && t.openKind != "text" {
		t.closeOpenBlock(w, flusher)
	}
	if !t.open {
		if err := writeEvent(w, flusher, "content_block_start", map[string]any{
			"type":          "content_block_start",
			"index":         t.index,
			"content_block": map[string]any{"type": "text", "text": ""},
		}); err != nil {
			return err
		}
		t.open, t.openKind = true, "text"
	}
	return writeEvent(w, flusher, "content_block_delta", map[string]any{
		"type":  "content_block_delta",
		"index": t.index,
		"delta": map[string]any{"type": "text_delta", "text": text},
	})
}

func (t *blockTracker) emitToolCall(w http.ResponseWriter, flusher http.Flusher, toolCall map[string]any) error {
	t.closeOpenBlock(w, flusher)

	fn, _ := toolCall["function"].(map[string]any)
	name, _ := fn["name"].(string)
	id, _ := toolCall["id"].(string)
	args, _ := fn["arguments"].(string)

	if err := writeEvent(w, flusher, "content_block_start", map[string]any{
		"type":  "content_block_start",
		"index": t.index,
		"content_block": map[string]any{
			"type": "tool_use", "id": id, "name": name, "input": map[string]any{},
		},
	}); err != nil {
		return err
	}
	if err := writeEvent(w, flusher, "content_block_delta", map[string]any{
		"type":  "content_block_delta",
		"index": t.index,
		"delta": map[string]any{"type": "input_json_delta", "partial_json": args},
	}); err != nil {
		return err
	}
	t.open, t.openKind = true, "tool_use"
	return nil
}

func (t *blockTracker) closeOpenBlock(w http.ResponseWriter, flusher http.Flusher) {
	if !t.open {
		return
	}
	_ = writeEvent(w, flusher, "content_block_stop", map[string]any{"type": "content_block_stop", "index": t.index})
	t.open = false
	t.index++
}
