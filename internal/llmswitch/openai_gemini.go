package llmswitch

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

func init() {
	Register(FormatOpenAI, FormatGemini, TranslatorConfig{
		RequestTransform: OpenAIToGeminiRequest,
	})
	Register(FormatGemini, FormatOpenAI, TranslatorConfig{
		ResponseTransform: GeminiToOpenAIResponse,
	})
}

// OpenAIToGeminiRequest reshapes an OpenAI chat-completion request into
// a Gemini generateContent request: system messages become
// systemInstruction, assistant tool_calls become functionCall parts, and
// tool-role messages become user-role functionResponse parts.
func OpenAIToGeminiRequest(model string, rawJSON []byte) ([]byte, error) {
	root := gjson.ParseBytes(rawJSON)

	var systemParts []any
	var contents []any

	for _, msg := range root.Get("messages").Array() {
		role := msg.Get("role").String()
		content := msg.Get("content")

		switch role {
		case "system":
			systemParts = append(systemParts, map[string]any{"text": content.String()})
		case "user":
			contents = append(contents, map[string]any{
				"role":  "user",
				"parts": []any{map[string]any{"text": content.String()}},
			})
		case "assistant":
			contents = append(contents, assistantToGemini(msg, content))
		case "tool":
			contents = append(contents, toolToGemini(msg, content))
		}
	}

	out := map[string]any{"contents": contents}
	if len(systemParts) > 0 {
		out["systemInstruction"] = map[string]any{"parts": systemParts}
	}
	if tools := root.Get("tools"); tools.IsArray() {
		if decls := openAIToolsToGemini(tools); len(decls) > 0 {
			out["tools"] = []any{map[string]any{"functionDeclarations": decls}}
		}
	}
	return json.Marshal(out)
}

func assistantToGemini(msg, content gjson.Result) map[string]any {
	var parts []any
	if text := content.String(); text != "" {
		parts = append(parts, map[string]any{"text": text})
	}
	for _, tc := range msg.Get("tool_calls").Array() {
		var args any
		_ = json.Unmarshal([]byte(tc.Get("function.arguments").String()), &args)
		parts = append(parts, map[string]any{
			"functionCall": map[string]any{
				"name": tc.Get("function.name").String(),
				"args": args,
			},
		})
	}
	return map[string]any{"role": "model", "parts": parts}
}

func toolToGemini(msg, content gjson.Result) map[string]any {
	var response any
	if json.Unmarshal([]byte(content.String()), &response) != nil {
		response = map[string]any{"result": content.String()}
	}
	return map[string]any{
		"role": "user",
		"parts": []any{map[string]any{
			"functionResponse": map[string]any{
				"name":     msg.Get("name").String(),
				"response": response,
			},
		}},
	}
}

func openAIToolsToGemini(tools gjson.Result) []any {
	var out []any
	for _, tool := range tools.Array() {
		if tool.Get("type").String() != "function" {
			continue
		}
		fn := tool.Get("function")
		var params any
		_ = json.Unmarshal([]byte(fn.Get("parameters").Raw), &params)
		out = append(out, map[string]any{
			"name":        fn.Get("name").String(),
			"description": fn.Get("description").String(),
			"parameters":  params,
		})
	}
	return out
}

// GeminiToOpenAIResponse reshapes a non-streaming Gemini generateContent
// response into an OpenAI chat-completion response.
func GeminiToOpenAIResponse(model string, rawJSON []byte) ([]byte, error) {
	root := gjson.ParseBytes(rawJSON)
	candidate := root.Get("candidates.0")
	parts := candidate.Get("content.parts")

	var text string
	var toolCalls []any
	for i, part := range parts.Array() {
		if t := part.Get("text"); t.Exists() {
			text += t.String()
		}
		if fc := part.Get("functionCall"); fc.Exists() {
			argsJSON, _ := json.Marshal(fc.Get("args").Value())
			toolCalls = append(toolCalls, map[string]any{
				"id":   fmt.Sprintf("call_%s_%d", fc.Get("name").String(), i),
				"type": "function",
				"function": map[string]any{
					"name":      fc.Get("name").String(),
					"arguments": string(argsJSON),
				},
			})
		}
	}

	finishReason := "stop"
	switch candidate.Get("finishReason").String() {
	case "MAX_TOKENS":
		finishReason = "length"
	case "SAFETY", "RECITATION":
		finishReason = "content_filter"
	}
	if len(toolCalls) > 0 {
		finishReason = "tool_calls"
	}

	message := map[string]any{"role": "assistant", "content": text}
	if len(toolCalls) > 0 {
		message["tool_calls"] = toolCalls
	}

	promptTokens := root.Get("usageMetadata.promptTokenCount").Int()
	completionTokens := root.Get("usageMetadata.candidatesTokenCount").Int()

	out := map[string]any{
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
