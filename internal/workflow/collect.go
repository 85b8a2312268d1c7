package workflow

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"
)

type pendingToolCall struct {
	id        string
	name      string
	arguments strings.Builder
}

// CollectStream reads an OpenAI-chunk SSE body and aggregates it into a
// single chat-completion response, the way a client would have seen it
// had the provider answered non-streaming. Cancelling ctx aborts the
// read loop immediately; the caller's transport call shares the same
// ctx, so the upstream connection unwinds too.
func CollectStream(ctx context.Context, model string, reader io.Reader) ([]byte, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var id string
	var content strings.Builder
	var finishReason string
	toolCallsByIndex := map[int]*pendingToolCall{}
	var toolCallOrder []int

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 || !bytes.HasPrefix(line, []byte("data: ")) {
			continue
		}
		payload := bytes.TrimPrefix(line, []byte("data: "))
		if bytes.Equal(bytes.TrimSpace(payload), []byte("[DONE]")) {
			break
		}

		chunk := gjson.ParseBytes(payload)
		if chunk.Get("id").Exists() && id == "" {
			id = chunk.Get("id").String()
		}
		delta := chunk.Get("choices.0.delta")
		if text := delta.Get("content"); text.Exists() {
			content.WriteString(text.String())
		}
		if fr := chunk.Get("choices.0.finish_reason"); fr.Exists() && fr.String() != "" {
			finishReason = fr.String()
		}
		for _, tc := range delta.Get("tool_calls").Array() {
			idx := int(tc.Get("index").Int())
			pending, ok := toolCallsByIndex[idx]
			if !ok {
				pending = &pendingToolCall{}
				toolCallsByIndex[idx] = pending
				toolCallOrder = append(toolCallOrder, idx)
			}
			if v := tc.Get("id").String(); v != "" {
				pending.id = v
			}
			if v := tc.Get("function.name").String(); v != "" {
				pending.name = v
			}
			pending.arguments.WriteString(tc.Get("function.arguments").String())
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if id == "" {
		return nil, fmt.Errorf("workflow: stream produced no chunks to collect")
	}
	if finishReason == "" {
		finishReason = "stop"
	}

	message := map[string]any{"role": "assistant", "content": content.String()}
	if len(toolCallOrder) > 0 {
		var calls []any
		for _, idx := range toolCallOrder {
			pending := toolCallsByIndex[idx]
			calls = append(calls, map[string]any{
				"id":   pending.id,
				"type": "function",
				"function": map[string]any{
					"name":      pending.name,
					"arguments": pending.arguments.String(),
				},
			})
		}
		message["tool_calls"] = calls
		finishReason = "tool_calls"
	}

	out := map[string]any{
		"id":      id,
		"object":  "chat.completion",
		"model":   model,
		"choices": []any{map[string]any{"index": 0, "message": message, "finish_reason": finishReason}},
	}
	return json.Marshal(out)
}
