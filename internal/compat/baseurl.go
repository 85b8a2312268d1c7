// Package compat shapes requests and responses at the edge of the
// provider boundary: base-URL normalization, message compaction, strict
// tool-output validation, and opt-in dotted tool-name canonicalization.
package compat

import (
	"regexp"
	"strings"
)

var trailingSegment = regexp.MustCompile(`(?:chat|completions|messages)/?$`)
var duplicateSlashes = regexp.MustCompile(`/{2,}`)

// NormalizeBaseURL strips a trailing chat/completions/messages segment,
// collapses duplicate slashes, and applies two vendor-specific fixups:
// api.openai.com always ends in /v1, open.bigmodel.cn never does.
func NormalizeBaseURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return u
	}

	schemeIdx := strings.Index(u, "://")
	prefix, rest := "", u
	if schemeIdx >= 0 {
		prefix, rest = u[:schemeIdx+3], u[schemeIdx+3:]
	}
	rest = duplicateSlashes.ReplaceAllString(rest, "/")
	u = prefix + rest

	u = strings.TrimRight(u, "/")
	for {
		trimmed := trailingSegment.ReplaceAllString(u, "")
		trimmed = strings.TrimRight(trimmed, "/")
		if trimmed == u {
			break
		}
		u = trimmed
	}

	switch {
	case strings.Contains(u, "api.openai.com"):
		if !strings.HasSuffix(u, "/v1") {
			u += "/v1"
		}
	case strings.Contains(u, "open.bigmodel.cn"):
		u = strings.TrimSuffix(u, "/v1")
	}
	return u
}
