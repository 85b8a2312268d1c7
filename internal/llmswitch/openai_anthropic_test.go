package llmswitch

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestOpenAIToAnthropicRequestCollapsesSystemMessage(t *testing.T) {
	body := []byte(`{"model":"gpt-4","messages":[
		{"role":"system","content":"be terse"},
		{"role":"user","content":"hi"}
	]}`)
	out, err := OpenAIToAnthropicRequest("claude-3", body)
	require.NoError(t, err)

	parsed := gjson.ParseBytes(out)
	assert.Equal(t, "be terse", parsed.Get("system").String())
	assert.Len(t, parsed.Get("messages").Array(), 1)
	assert.Equal(t, "user", parsed.Get("messages.0.role").String())
}

func TestOpenAIToAnthropicRequestMapsToolCalls(t *testing.T) {
	body := []byte(`{"messages":[
		{"role":"assistant","content":"","tool_calls":[
			{"id":"call_1","type":"function","function":{"name":"search","arguments":"{\"q\":\"go\"}"}}
		]}
	]}`)
	out, err := OpenAIToAnthropicRequest("claude-3", body)
	require.NoError(t, err)

	block := gjson.GetBytes(out, "messages.0.content.0")
	assert.Equal(t, "tool_use", block.Get("type").String())
	assert.Equal(t, "search", block.Get("name").String())
}

func TestOpenAIToAnthropicRequestDefaultsMaxTokens(t *testing.T) {
	body := []byte(`{"messages":[{"role":"user","content":"hi"}]}`)
	out, err := OpenAIToAnthropicRequest("claude-3", body)
	require.NoError(t, err)
	assert.Equal(t, int64(defaultAnthropicMaxTokens), gjson.GetBytes(out, "max_tokens").Int())
}

func TestAnthropicToOpenAIRequestFlattensSystemAndToolResult(t *testing.T) {
	body := []byte(`{"system":"be terse","messages":[
		{"role":"user","content":[{"type":"tool_result","tool_use_id":"call_1","content":"42"}]}
	]}`)
	out, err := AnthropicToOpenAIRequest("gpt-4", body)
	require.NoError(t, err)

	parsed := gjson.ParseBytes(out)
	assert.Equal(t, "system", parsed.Get("messages.0.role").String())
	assert.Equal(t, "tool", parsed.Get("messages.1.role").String())
	assert.Equal(t, "call_1", parsed.Get("messages.1.tool_call_id").String())
}

func TestOpenAIAnthropicResponseRoundTripPreservesToolCall(t *testing.T) {
	openaiResp := []byte(`{"id":"abc","choices":[{"message":{"role":"assistant","content":"","tool_calls":[
		{"id":"call_1","type":"function","function":{"name":"search","arguments":"{\"q\":\"go\"}"}}
	]},"finish_reason":"tool_calls"}],"usage":{"prompt_tokens":5,"completion_tokens":3}}`)

	asAnthropic, err := OpenAIToAnthropicResponse("claude-3", openaiResp)
	require.NoError(t, err)
	assert.Equal(t, "tool_use", gjson.GetBytes(asAnthropic, "content.0.type").String())

	backToOpenAI, err := AnthropicToOpenAIResponse("gpt-4", asAnthropic)
	require.NoError(t, err)
	assert.Equal(t, "search", gjson.GetBytes(backToOpenAI, "choices.0.message.tool_calls.0.function.name").String())
	assert.Equal(t, "tool_calls", gjson.GetBytes(backToOpenAI, "choices.0.finish_reason").String())
}

// TestOpenAIAnthropicRequestRoundTripPreservesMessageShape asserts the L1
// round-trip law: translating a request to Anthropic's shape and back to
// OpenAI's must reproduce the same message list, modulo fields neither
// side carries (e.g. Anthropic's separate "system" slot).
func TestOpenAIAnthropicRequestRoundTripPreservesMessageShape(t *testing.T) {
	original := []byte(`{"model":"gpt-4","messages":[
		{"role":"system","content":"be terse"},
		{"role":"user","content":"hi"}
	]}`)

	asAnthropic, err := OpenAIToAnthropicRequest("claude-3", original)
	require.NoError(t, err)

	backToOpenAI, err := AnthropicToOpenAIRequest("gpt-4", asAnthropic)
	require.NoError(t, err)

	var want, got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(gjson.GetBytes(original, "messages").Raw), &want))
	require.NoError(t, json.Unmarshal([]byte(gjson.GetBytes(backToOpenAI, "messages").Raw), &got))

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("message shape did not survive the OpenAI->Anthropic->OpenAI round trip (-want +got):\n%s", diff)
	}
}
