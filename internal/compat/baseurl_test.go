package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeBaseURLStripsTrailingSegment(t *testing.T) {
	assert.Equal(t, "https://example.com/v1", NormalizeBaseURL("https://example.com/v1/chat/completions"))
	assert.Equal(t, "https://example.com/v1", NormalizeBaseURL("https://example.com/v1/messages"))
}

func TestNormalizeBaseURLCollapsesDuplicateSlashes(t *testing.T) {
	assert.Equal(t, "https://example.com/v1/models", NormalizeBaseURL("https://example.com//v1//models"))
}

func TestNormalizeBaseURLOpenAIEnsuresV1Suffix(t *testing.T) {
	assert.Equal(t, "https://api.openai.com/v1", NormalizeBaseURL("https://api.openai.com"))
	assert.Equal(t, "https://api.openai.com/v1", NormalizeBaseURL("https://api.openai.com/v1"))
}

func TestNormalizeBaseURLBigmodelStripsV1(t *testing.T) {
	assert.Equal(t, "https://open.bigmodel.cn/api/paas", NormalizeBaseURL("https://open.bigmodel.cn/api/paas/v1"))
}

func TestNormalizeBaseURLEmpty(t *testing.T) {
	assert.Equal(t, "", NormalizeBaseURL(""))
}
