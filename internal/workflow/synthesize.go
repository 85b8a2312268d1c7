package workflow

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// ChunkEvent is one OpenAI-chunk-shaped delta; the SSE bridge serializes
// it onto the wire. Adapted from the teacher's streamChunk literal in
// its fake-streaming path.
type ChunkEvent struct {
	ID           string
	Model        string
	Delta        map[string]any
	FinishReason string
}

// SynthesizeStream turns one complete chat-completion response into the
// two chunks of a single-block stream: an initial role-bearing delta
// carrying the whole message, then a terminal empty delta with the
// original finish_reason.
func SynthesizeStream(model string, completeResponse []byte) ([]ChunkEvent, error) {
	root := gjson.ParseBytes(completeResponse)
	message := root.Get("choices.0.message")
	if !message.Exists() {
		return nil, fmt.Errorf("workflow: no choices[0].message in response to synthesize")
	}

	id := root.Get("id").String()
	if id == "" {
		id = fmt.Sprintf("chatcmpl-%d", time.Now().UnixNano())
	}

	delta := map[string]any{"role": "assistant"}
	if content := message.Get("content").String(); content != "" {
		delta["content"] = content
	}
	if toolCalls := message.Get("tool_calls"); toolCalls.IsArray() {
		var calls []any
		_ = json.Unmarshal([]byte(toolCalls.Raw), &calls)
		if len(calls) > 0 {
			delta["tool_calls"] = calls
		}
	}

	finishReason := root.Get("choices.0.finish_reason").String()
	if finishReason == "" {
		finishReason = "stop"
	}

	return []ChunkEvent{
		{ID: id, Model: model, Delta: delta},
		{ID: id, Model: model, Delta: map[string]any{}, FinishReason: finishReason},
	}, nil
}
