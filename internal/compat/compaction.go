package compat

import (
	"encoding/json"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// CompactMessages rewrites the "messages" array of a shaped request body:
// consecutive assistant tool_calls blocks merge into one, and consecutive
// tool messages sharing the same tool_call_id coalesce their content with
// a newline join. It leaves the rest of the body untouched.
func CompactMessages(body []byte) ([]byte, error) {
	messages := gjson.GetBytes(body, "messages")
	if !messages.IsArray() {
		return body, nil
	}

	var decoded []map[string]any
	if err := json.Unmarshal([]byte(messages.Raw), &decoded); err != nil {
		return body, err
	}

	compacted := compactDecoded(decoded)

	encoded, err := json.Marshal(compacted)
	if err != nil {
		return body, err
	}
	return sjson.SetRawBytes(body, "messages", encoded)
}

func compactDecoded(messages []map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(messages))
	for _, msg := range messages {
		if len(out) == 0 {
			out = append(out, msg)
			continue
		}
		prev := out[len(out)-1]
		if mergeAssistantToolCalls(prev, msg) {
			continue
		}
		if mergeToolResults(prev, msg) {
			continue
		}
		out = append(out, msg)
	}
	return out
}

func mergeAssistantToolCalls(prev, cur map[string]any) bool {
	if !isAssistantWithToolCalls(prev) || !isAssistantWithToolCalls(cur) {
		return false
	}
	prevCalls, _ := prev["tool_calls"].([]any)
	curCalls, _ := cur["tool_calls"].([]any)
	prev["tool_calls"] = append(prevCalls, curCalls...)
	return true
}

func isAssistantWithToolCalls(msg map[string]any) bool {
	if msg["role"] != "assistant" {
		return false
	}
	calls, ok := msg["tool_calls"].([]any)
	return ok && len(calls) > 0
}

func mergeToolResults(prev, cur map[string]any) bool {
	if prev["role"] != "tool" || cur["role"] != "tool" {
		return false
	}
	prevID, _ := prev["tool_call_id"].(string)
	curID, _ := cur["tool_call_id"].(string)
	if prevID == "" || prevID != curID {
		return false
	}
	prevContent, _ := prev["content"].(string)
	curContent, _ := cur["content"].(string)
	prev["content"] = prevContent + "\n" + curContent
	return true
}
