// Package httpformat decides which client-facing error envelope a request
// should receive, based on which surface it hit.
package httpformat

import (
	"net/http"
	"strings"

	"github.com/routecodex/gateway/internal/gwerrors"
)

// DetectFromRequest determines the error format using an HTTP request.
func DetectFromRequest(r *http.Request) gwerrors.ErrorFormat {
	if r == nil || r.URL == nil {
		return gwerrors.FormatOpenAI
	}
	return DetectFromPath(r.URL.Path)
}

// DetectFromPath determines the error format based on a raw path string:
// Anthropic Messages surfaces get the Anthropic envelope, Gemini
// generateContent/v1beta surfaces get the Gemini envelope, everything else
// (including plain OpenAI chat/completions) defaults to the OpenAI one.
func DetectFromPath(path string) gwerrors.ErrorFormat {
	path = strings.ToLower(path)
	switch {
	case strings.Contains(path, "/v1beta/"),
		strings.Contains(path, ":generatecontent"),
		strings.Contains(path, ":streamgeneratecontent"),
		strings.Contains(path, "/v1internal/"):
		return gwerrors.FormatGemini
	case strings.Contains(path, "/v1/messages"):
		return gwerrors.FormatAnthropic
	default:
		return gwerrors.FormatOpenAI
	}
}
