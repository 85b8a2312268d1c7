package llmswitch

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

func init() {
	Register(FormatOpenAI, FormatAnthropic, TranslatorConfig{
		RequestTransform:  OpenAIToAnthropicRequest,
		ResponseTransform: OpenAIToAnthropicResponse,
	})
	Register(FormatAnthropic, FormatOpenAI, TranslatorConfig{
		RequestTransform:  AnthropicToOpenAIRequest,
		ResponseTransform: AnthropicToOpenAIResponse,
	})
}

const defaultAnthropicMaxTokens = 4096

// OpenAIToAnthropicRequest reshapes an OpenAI chat-completion request
// into an Anthropic messages request: leading system messages collapse
// into the top-level "system" string, assistant tool_calls become
// tool_use content blocks, and tool-role messages become user messages
// carrying a tool_result block.
func OpenAIToAnthropicRequest(model string, rawJSON []byte) ([]byte, error) {
	root := gjson.ParseBytes(rawJSON)

	var systemParts []string
	var messages []map[string]any

	for _, msg := range root.Get("messages").Array() {
		role := msg.Get("role").String()
		switch role {
		case "system":
			systemParts = append(systemParts, msg.Get("content").String())
		case "user":
			messages = append(messages, map[string]any{
				"role":    "user",
				"content": msg.Get("content").String(),
			})
		case "assistant":
			messages = append(messages, assistantToAnthropic(msg))
		case "tool":
			messages = append(messages, map[string]any{
				"role": "user",
				"content": []any{map[string]any{
					"type":        "tool_result",
					"tool_use_id": msg.Get("tool_call_id").String(),
					"content":     msg.Get("content").String(),
				}},
			})
		}
	}

	maxTokens := root.Get("max_tokens").Int()
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	out := map[string]any{
		"model":      model,
		"max_tokens": maxTokens,
		"messages":   messages,
	}
	if len(systemParts) > 0 {
		out["system"] = joinNonEmpty(systemParts)
	}
	if root.Get("stream").Bool() {
		out["stream"] = true
	}
	if tools := root.Get("tools"); tools.IsArray() {
		out["tools"] = openAIToolsToAnthropic(tools)
	}
	return json.Marshal(out)
}

func assistantToAnthropic(msg gjson.Result) map[string]any {
	var blocks []any
	if text := msg.Get("content").String(); text != "" {
		blocks = append(blocks, map[string]any{"type": "text", "text": text})
	}
	for _, tc := range msg.Get("tool_calls").Array() {
		var input any
		_ = json.Unmarshal([]byte(tc.Get("function.arguments").String()), &input)
		blocks = append(blocks, map[string]any{
			"type":  "tool_use",
			"id":    tc.Get("id").String(),
			"name":  tc.Get("function.name").String(),
			"input": input,
		})
	}
	return map[string]any{"role": "assistant", "content": blocks}
}

func openAIToolsToAnthropic(tools gjson.Result) []any {
	var out []any
	for _, tool := range tools.Array() {
		if tool.Get("type").String() != "function" {
			continue
		}
		fn := tool.Get("function")
		var schema any
		_ = json.Unmarshal([]byte(fn.Get("parameters").Raw), &schema)
		out = append(out, map[string]any{
			"name":         fn.Get("name").String(),
			"description":  fn.Get("description").String(),
			"input_schema": schema,
		})
	}
	return out
}

// OpenAIToAnthropicResponse reshapes an OpenAI chat-completion response
// into an Anthropic message response — used when the client speaks
// Anthropic but the dispatched provider answered in OpenAI shape.
func OpenAIToAnthropicResponse(model string, rawJSON []byte) ([]byte, error) {
	root := gjson.ParseBytes(rawJSON)
	choice := root.Get("choices.0")
	message := choice.Get("message")

	var blocks []any
	if text := message.Get("content").String(); text != "" {
		blocks = append(blocks, map[string]any{"type": "text", "text": text})
	}
	for _, tc := range message.Get("tool_calls").Array() {
		var input any
		_ = json.Unmarshal([]byte(tc.Get("function.arguments").String()), &input)
		blocks = append(blocks, map[string]any{
			"type":  "tool_use",
			"id":    tc.Get("id").String(),
			"name":  tc.Get("function.name").String(),
			"input": input,
		})
	}

	stopReason := "end_turn"
	switch choice.Get("finish_reason").String() {
	case "length":
		stopReason = "max_tokens"
	case "tool_calls":
		stopReason = "tool_use"
	}

	out := map[string]any{
		"id":          root.Get("id").String(),
		"type":        "message",
		"role":        "assistant",
		"model":       model,
		"content":     blocks,
		"stop_reason": stopReason,
		"usage": map[string]any{
			"input_tokens":  root.Get("usage.prompt_tokens").Int(),
			"output_tokens": root.Get("usage.completion_tokens").Int(),
		},
	}
	return json.Marshal(out)
}

// AnthropicToOpenAIRequest reshapes an Anthropic messages request into
// an OpenAI chat-completion request: the top-level "system" string
// becomes a leading system message, tool_use blocks become assistant
// tool_calls, and tool_result blocks become tool-role messages.
func AnthropicToOpenAIRequest(model string, rawJSON []byte) ([]byte, error) {
	root := gjson.ParseBytes(rawJSON)
	var messages []map[string]any

	if sys := root.Get("system"); sys.Exists() && sys.String() != "" {
		messages = append(messages, map[string]any{"role": "system", "content": sys.String()})
	}

	for _, msg := range root.Get("messages").Array() {
		role := msg.Get("role").String()
		content := msg.Get("content")
		if !content.IsArray() {
			messages = append(messages, map[string]any{"role": role, "content": content.String()})
			continue
		}
		messages = append(messages, anthropicBlocksToOpenAI(role, content)...)
	}

	out := map[string]any{
		"model":    model,
		"messages": messages,
	}
	if maxTokens := root.Get("max_tokens"); maxTokens.Exists() {
		out["max_tokens"] = maxTokens.Int()
	}
	if root.Get("stream").Bool() {
		out["stream"] = true
	}
	if tools := root.Get("tools"); tools.IsArray() {
		out["tools"] = anthropicToolsToOpenAI(tools)
	}
	return json.Marshal(out)
}

func anthropicBlocksToOpenAI(role string, content gjson.Result) []map[string]any {
	var text string
	var toolCalls []any
	var toolResults []map[string]any

	for _, block := range content.Array() {
		switch block.Get("type").String() {
		case "text":
			text += block.Get("text").String()
		case "tool_use":
			argsJSON, _ := json.Marshal(block.Get("input").Value())
			toolCalls = append(toolCalls, map[string]any{
				"id":   block.Get("id").String(),
				"type": "function",
				"function": map[string]any{
					"name":      block.Get("name").String(),
					"arguments": string(argsJSON),
				},
			})
		case "tool_result":
			toolResults = append(toolResults, map[string]any{
				"role":         "tool",
				"tool_call_id": block.Get("tool_use_id").String(),
				"content":      toolResultContent(block),
			})
		}
	}

	if len(toolResults) > 0 {
		return toolResults
	}

	msg := map[string]any{"role": role, "content": text}
	if len(toolCalls) > 0 {
		msg["tool_calls"] = toolCalls
	}
	return []map[string]any{msg}
}

func toolResultContent(block gjson.Result) string {
	content := block.Get("content")
	if content.Type == gjson.String {
		return content.String()
	}
	return content.Raw
}

func anthropicToolsToOpenAI(tools gjson.Result) []any {
	var out []any
	for _, tool := range tools.Array() {
		var schema any
		_ = json.Unmarshal([]byte(tool.Get("input_schema").Raw), &schema)
		out = append(out, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        tool.Get("name").String(),
				"description": tool.Get("description").String(),
				"parameters":  schema,
			},
		})
	}
	return out
}

// AnthropicToOpenAIResponse reshapes an Anthropic message response into
// an OpenAI chat-completion response — used when the client speaks
// OpenAI but the dispatched provider answered in Anthropic shape.
func AnthropicToOpenAIResponse(model string, rawJSON []byte) ([]byte, error) {
	root := gjson.ParseBytes(rawJSON)

	var text string
	var toolCalls []any
	for _, block := range root.Get("content").Array() {
		switch block.Get("type").String() {
		case "text":
			text += block.Get("text").String()
		case "tool_use":
			argsJSON, _ := json.Marshal(block.Get("input").Value())
			toolCalls = append(toolCalls, map[string]any{
				"id":   block.Get("id").String(),
				"type": "function",
				"function": map[string]any{
					"name":      block.Get("name").String(),
					"arguments": string(argsJSON),
				},
			})
		}
	}

	finishReason := "stop"
	switch root.Get("stop_reason").String() {
	case "max_tokens":
		finishReason = "length"
	case "tool_use":
		finishReason = "tool_calls"
	}

	message := map[string]any{"role": "assistant", "content": text}
	if len(toolCalls) > 0 {
		message["tool_calls"] = toolCalls
	}

	promptTokens := root.Get("usage.input_tokens").Int()
	completionTokens := root.Get("usage.output_tokens").Int()

	out := map[string]any{
		"id":      fmt.Sprintf("chatcmpl-%s", root.Get("id").String()),
		"object":  "chat.completion",
		"model":   model,
		"choices": []any{map[string]any{"index": 0, "message": message, "finish_reason": finishReason}},
		"usage": map[string]any{
			"prompt_tokens":     promptTokens,
			"completion_tokens": completionTokens,
			"total_tokens":      promptTokens + completionTokens,
		},
	}
	return json.Marshal(out)
}

func joinNonEmpty(parts []string) string {
	out := ""
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i > 0 && out != "" {
			out += "\n"
		}
		out += p
	}
	return out
}
