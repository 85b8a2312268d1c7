package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeStreamProducesInitialAndTerminalChunk(t *testing.T) {
	body := []byte(`{"id":"chatcmpl-1","choices":[{"message":{"role":"assistant","content":"hi there"},"finish_reason":"stop"}]}`)
	chunks, err := SynthesizeStream("gpt-4", body)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "assistant", chunks[0].Delta["role"])
	assert.Equal(t, "hi there", chunks[0].Delta["content"])
	assert.Empty(t, chunks[0].FinishReason)

	assert.Empty(t, chunks[1].Delta)
	assert.Equal(t, "stop", chunks[1].FinishReason)
}

func TestSynthesizeStreamCarriesToolCalls(t *testing.T) {
	body := []byte(`{"id":"chatcmpl-2","choices":[{"message":{"role":"assistant","content":"","tool_calls":[
		{"id":"call_1","type":"function","function":{"name":"search","arguments":"{}"}}
	]},"finish_reason":"tool_calls"}]}`)
	chunks, err := SynthesizeStream("gpt-4", body)
	require.NoError(t, err)
	require.NotEmpty(t, chunks[0].Delta["tool_calls"])
}

func TestSynthesizeStreamErrorsWithoutChoices(t *testing.T) {
	_, err := SynthesizeStream("gpt-4", []byte(`{}`))
	assert.Error(t, err)
}
