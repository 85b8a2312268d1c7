// Package classifier maps an inbound request to a route name with a pure,
// side-effect-free function: no network calls, no shared state, the same
// input always yields the same route.
package classifier

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/tidwall/gjson"
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

func encoding() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		enc, _ = tiktoken.GetEncoding("cl100k_base")
	})
	return enc
}

// Signals is everything a rule can match on, extracted once per request.
type Signals struct {
	Endpoint    string
	Protocol    string
	Model       string
	TokenBudget int
	ToolCount   int
	HasImages   bool
	WebSearch   bool
}

// ExtractSignals reads the recognized signals out of a raw request body:
// token budget (estimated from message text), tool presence/count, image
// presence, the model name, and a webSearch flag. Unrecognized or
// malformed fields are treated as absent rather than erroring, since a
// classifier must never fail a request outright.
func ExtractSignals(endpoint, protocol string, rawJSON []byte) Signals {
	root := gjson.ParseBytes(rawJSON)

	s := Signals{
		Endpoint: endpoint,
		Protocol: protocol,
		Model:    root.Get("model").String(),
	}

	var textBuilder strings.Builder
	for _, msg := range root.Get("messages").Array() {
		content := msg.Get("content")
		if content.IsArray() {
			for _, part := range content.Array() {
				if part.Get("type").String() == "image_url" || part.Get("type").String() == "image" {
					s.HasImages = true
				}
				if text := part.Get("text"); text.Exists() {
					textBuilder.WriteString(text.String())
				}
			}
		} else {
			textBuilder.WriteString(content.String())
		}
	}
	s.TokenBudget = estimateTokens(textBuilder.String())
	s.ToolCount = len(root.Get("tools").Array())

	if root.Get("webSearch").Bool() || root.Get("web_search").Bool() {
		s.WebSearch = true
	}
	for _, tool := range root.Get("tools").Array() {
		if strings.Contains(strings.ToLower(tool.Get("function.name").String()), "web_search") {
			s.WebSearch = true
		}
	}
	return s
}

func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	e := encoding()
	if e == nil {
		return len(text) / 4
	}
	return len(e.Encode(text, nil, nil))
}
