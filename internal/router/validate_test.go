package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCompletionShapeRequiresModel(t *testing.T) {
	err := validateCompletionShape([]byte(`{"messages":[{"role":"user","content":"hi"}]}`), true)
	assert.Error(t, err)
}

func TestValidateCompletionShapeRequiresAtLeastOneMessage(t *testing.T) {
	err := validateCompletionShape([]byte(`{"model":"gpt-4","messages":[]}`), true)
	assert.Error(t, err)
}

func TestValidateCompletionShapeAcceptsPromptOnlyBody(t *testing.T) {
	err := validateCompletionShape([]byte(`{"model":"gpt-4","prompt":"hi"}`), false)
	assert.NoError(t, err)
}

func TestValidateCompletionShapeAcceptsWellFormedChatBody(t *testing.T) {
	err := validateCompletionShape([]byte(`{"model":"gpt-4","messages":[{"role":"user","content":"hi"}]}`), true)
	assert.NoError(t, err)
}
