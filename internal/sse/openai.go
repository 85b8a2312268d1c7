package sse

import (
	"net/http"
	"strings"
	"time"

	"github.com/routecodex/gateway/internal/workflow"
)

var thinkBlock = struct {
	open, close string
}{"<think>", "</think>"}

// StripThink removes private <think>...</think> markers from streamed
// content; a still-open tag (no matching close yet in this delta) has its
// remainder dropped too, since think content must never reach the client.
func StripThink(content string) string {
	for {
		start := strings.Index(content, thinkBlock.open)
		if start < 0 {
			return content
		}
		end := strings.Index(content[start:], thinkBlock.close)
		if end < 0 {
			return content[:start]
		}
		content = content[:start] + content[start+end+len(thinkBlock.close):]
	}
}

// StreamChunks renders an already-materialized chunk sequence (from
// workflow.SynthesizeStream, or a real provider stream once one is
// wired) as OpenAI-chunk SSE: an initial role chunk, each chunk's delta
// with <think> markers stripped from any content, a terminal chunk whose
// finish_reason is "tool_calls" if any delta carried a tool_call and
// "stop" otherwise, then data: [DONE].
func StreamChunks(w http.ResponseWriter, flusher http.Flusher, model string, chunks []workflow.ChunkEvent, opts Options) error {
	opts = opts.withDefaults()

	if err := writeEvent(w, flusher, "", map[string]any{
		"id":      nextChunkID(),
		"object":  "chat.completion.chunk",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []any{map[string]any{"index": 0, "delta": map[string]any{"role": "assistant"}, "finish_reason": nil}},
	}); err != nil {
		return err
	}

	sawToolCall := false
	for i, chunk := range chunks {
		delta := map[string]any{}
		for k, v := range chunk.Delta {
			delta[k] = v
		}
		if content, ok := delta["content"].(string); ok {
			delta["content"] = StripThink(content)
		}
		if _, ok := delta["tool_calls"]; ok {
			sawToolCall = true
		}

		finish := chunk.FinishReason
		isLast := i == len(chunks)-1
		if isLast && finish == "" {
			if sawToolCall {
				finish = "tool_calls"
			} else {
				finish = "stop"
			}
		}

		var finishVal any
		if finish != "" {
			finishVal = finish
		}
		if err := writeEvent(w, flusher, "", map[string]any{
			"id":      nextChunkID(),
			"object":  "chat.completion.chunk",
			"created": time.Now().Unix(),
			"model":   model,
			"choices": []any{map[string]any{"index": 0, "delta": delta, "finish_reason": finishVal}},
		}); err != nil {
			return err
		}
	}

	return writeDone(w, flusher)
}
