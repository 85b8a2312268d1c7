package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestCompactMessagesMergesConsecutiveAssistantToolCalls(t *testing.T) {
	body := []byte(`{"messages":[
		{"role":"user","content":"hi"},
		{"role":"assistant","tool_calls":[{"id":"1"}]},
		{"role":"assistant","tool_calls":[{"id":"2"}]}
	]}`)
	out, err := CompactMessages(body)
	require.NoError(t, err)

	msgs := gjson.GetBytes(out, "messages")
	require.True(t, msgs.IsArray())
	assert.Len(t, msgs.Array(), 2)
	assert.Len(t, msgs.Array()[1].Get("tool_calls").Array(), 2)
}

func TestCompactMessagesCoalescesSharedToolCallID(t *testing.T) {
	body := []byte(`{"messages":[
		{"role":"tool","tool_call_id":"abc","content":"first"},
		{"role":"tool","tool_call_id":"abc","content":"second"}
	]}`)
	out, err := CompactMessages(body)
	require.NoError(t, err)

	msgs := gjson.GetBytes(out, "messages")
	require.Len(t, msgs.Array(), 1)
	assert.Equal(t, "first\nsecond", msgs.Array()[0].Get("content").String())
}

func TestCompactMessagesLeavesUnrelatedContentUntouched(t *testing.T) {
	body := []byte(`{"messages":[
		{"role":"tool","tool_call_id":"abc","content":"first"},
		{"role":"tool","tool_call_id":"xyz","content":"second"}
	]}`)
	out, err := CompactMessages(body)
	require.NoError(t, err)

	msgs := gjson.GetBytes(out, "messages")
	assert.Len(t, msgs.Array(), 2)
}

func TestCompactMessagesNoMessagesFieldPassesThrough(t *testing.T) {
	body := []byte(`{"model":"gpt-test"}`)
	out, err := CompactMessages(body)
	require.NoError(t, err)
	assert.Equal(t, body, out)
}
