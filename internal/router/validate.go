package router

import (
	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
)

// bodyValidator runs the struct-tag checks below; validator.Validate is
// safe for concurrent use once constructed, so one instance is shared
// across every request.
var bodyValidator = validator.New()

// modelOnlyShape covers the legacy /v1/completions surface, which keys
// its input off "prompt" rather than "messages".
type modelOnlyShape struct {
	Model string `validate:"required"`
}

// modelWithMessagesShape covers the chat- and messages-shaped surfaces,
// which additionally require at least one message.
type modelWithMessagesShape struct {
	Model        string `validate:"required"`
	MessageCount int    `validate:"min=1"`
}

// validateCompletionShape rejects a request missing its model, or (for
// message-based endpoints) missing any message, before it reaches the
// classifier and pool — cheaper than discovering the shape is broken
// only after a provider round trip.
func validateCompletionShape(body []byte, requireMessages bool) error {
	model := gjson.GetBytes(body, "model").String()
	if !requireMessages {
		return bodyValidator.Struct(modelOnlyShape{Model: model})
	}
	count := len(gjson.GetBytes(body, "messages").Array())
	return bodyValidator.Struct(modelWithMessagesShape{Model: model, MessageCount: count})
}
