package llmswitch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestOpenAIToGeminiRequestMapsSystemAndToolCall(t *testing.T) {
	body := []byte(`{"messages":[
		{"role":"system","content":"be terse"},
		{"role":"user","content":"hi"},
		{"role":"assistant","content":"","tool_calls":[
			{"id":"call_1","type":"function","function":{"name":"search","arguments":"{\"q\":\"go\"}"}}
		]}
	]}`)
	out, err := OpenAIToGeminiRequest("gemini-pro", body)
	require.NoError(t, err)

	parsed := gjson.ParseBytes(out)
	assert.Equal(t, "be terse", parsed.Get("systemInstruction.parts.0.text").String())
	assert.Len(t, parsed.Get("contents").Array(), 2)
	fc := parsed.Get("contents.1.parts.0.functionCall")
	assert.Equal(t, "search", fc.Get("name").String())
}

func TestOpenAIToGeminiRequestMapsToolMessageToFunctionResponse(t *testing.T) {
	body := []byte(`{"messages":[{"role":"tool","name":"search","content":"{\"result\":42}"}]}`)
	out, err := OpenAIToGeminiRequest("gemini-pro", body)
	require.NoError(t, err)

	fr := gjson.GetBytes(out, "contents.0.parts.0.functionResponse")
	assert.Equal(t, "user", gjson.GetBytes(out, "contents.0.role").String())
	assert.Equal(t, "search", fr.Get("name").String())
}

func TestGeminiToOpenAIResponseMapsFunctionCallAndUsage(t *testing.T) {
	body := []byte(`{"candidates":[{"content":{"parts":[
		{"functionCall":{"name":"search","args":{"q":"go"}}}
	]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":4,"candidatesTokenCount":2}}`)
	out, err := GeminiToOpenAIResponse("gemini-pro", body)
	require.NoError(t, err)

	parsed := gjson.ParseBytes(out)
	assert.Equal(t, "tool_calls", parsed.Get("choices.0.finish_reason").String())
	assert.Equal(t, "search", parsed.Get("choices.0.message.tool_calls.0.function.name").String())
	assert.Equal(t, int64(6), parsed.Get("usage.total_tokens").Int())
}
