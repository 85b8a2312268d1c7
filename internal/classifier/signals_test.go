package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSignalsDetectsImagesAndTools(t *testing.T) {
	body := []byte(`{"model":"gpt-4-vision","tools":[{"function":{"name":"web_search_preview"}}],"messages":[
		{"role":"user","content":[{"type":"text","text":"describe"},{"type":"image_url","image_url":{"url":"x"}}]}
	]}`)
	s := ExtractSignals("/v1/chat/completions", "openai", body)
	assert.True(t, s.HasImages)
	assert.Equal(t, 1, s.ToolCount)
	assert.True(t, s.WebSearch)
	assert.Equal(t, "gpt-4-vision", s.Model)
}

func TestExtractSignalsEstimatesTokenBudgetFromPlainText(t *testing.T) {
	body := []byte(`{"model":"gpt-4","messages":[{"role":"user","content":"hello world"}]}`)
	s := ExtractSignals("/v1/chat/completions", "openai", body)
	assert.Greater(t, s.TokenBudget, 0)
}

func TestExtractSignalsHandlesMalformedBodyGracefully(t *testing.T) {
	s := ExtractSignals("/v1/chat/completions", "openai", []byte(`not json`))
	assert.Equal(t, 0, s.TokenBudget)
	assert.Equal(t, "", s.Model)
}
