// Package authheader builds the Authorization header and vendor-specific
// identity headers attached to each outbound provider request.
package authheader

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"runtime"
	"strings"
)

// Family selects the vendor-specific identity-header behavior.
type Family string

const (
	FamilyGeneric     Family = "generic"
	FamilyCodexCLI    Family = "codex_cli"
	FamilyAntigravity Family = "antigravity"
	FamilyIFlow       Family = "iflow"
	FamilyGemini      Family = "gemini"
)

const maxIdentityHeaderLen = 64

// Credential is the minimal shape authheader needs from an oauthcred.Credential
// (kept decoupled so this package has no import-time dependency on oauthcred).
type Credential struct {
	APIKey      string
	TokenType   string
	AccessToken string
}

// Request carries everything the builder needs to compose a request's
// outbound headers.
type Request struct {
	Family    Family
	Cred      Credential
	RequestID string
	RouteName string
	Streaming bool

	// Supplied values win over derived ones; leave empty to derive.
	SessionID      string
	ConversationID string
}

// Build composes the Authorization header plus every vendor-specific
// identity header for req, returning a ready-to-copy http.Header.
func Build(req Request) http.Header {
	h := http.Header{}
	h.Set("Authorization", authorizationValue(req.Cred))

	switch req.Family {
	case FamilyCodexCLI:
		applyCodexCLIHeaders(h, req)
	case FamilyAntigravity:
		applyCodexCLIHeaders(h, req)
		h.Del("session_id")
		h.Del("conversation_id")
	case FamilyIFlow:
		applyIFlowHeaders(h)
	case FamilyGemini:
		applyGeminiHeaders(h, req.Streaming)
	}
	return h
}

// authorizationValue prefers the vendor API key (set by OAuth
// post-activation or a static key) over the raw OAuth access token.
func authorizationValue(cred Credential) string {
	if cred.APIKey != "" {
		return "Bearer " + cred.APIKey
	}
	tokenType := cred.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return tokenType + " " + cred.AccessToken
}

func applyCodexCLIHeaders(h http.Header, req Request) {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = boundedIdentity(req.RequestID + ":session")
	}
	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = boundedIdentity(req.RouteName + ":" + req.RequestID + ":conversation")
	}
	h.Set("session_id", sessionID)
	h.Set("conversation_id", conversationID)
	h.Set("originator", boundedIdentity("codex_cli:"+req.RouteName))
	h.Set("User-Agent", "codex-cli/1.0.0 ("+runtime.GOOS+"; "+runtime.GOARCH+") "+strings.TrimPrefix(runtime.Version(), "go"))
}

func applyIFlowHeaders(h http.Header) {
	h.Set("X-Client-Name", "iflow-cli")
	h.Set("X-Client-Version", "1.0.0")
}

func applyGeminiHeaders(h http.Header, streaming bool) {
	goVersion := strings.TrimPrefix(runtime.Version(), "go")
	if goVersion == "" {
		goVersion = "unknown"
	}
	h.Set("X-Goog-Api-Client", "gl-go/"+goVersion)
	h.Set("Client-Metadata", "ideType=IDE_UNSPECIFIED,platform=PLATFORM_UNSPECIFIED,pluginType=GEMINI")
	if streaming {
		h.Set("Accept", "text/event-stream")
	}
}

// boundedIdentity derives a deterministic identity value and enforces
// the 64-char upper bound by replacing an overflow with a sha256 prefix
// of the full value (never truncating mid-value, which could collide).
func boundedIdentity(seed string) string {
	if len(seed) <= maxIdentityHeaderLen {
		return seed
	}
	sum := sha256.Sum256([]byte(seed))
	return "sha256:" + hex.EncodeToString(sum[:])[:maxIdentityHeaderLen-7]
}

// KeyFingerprint computes the redacted "sha256:<16 hex>" form of an API
// key for error details and logs — the raw key must never appear there.
func KeyFingerprint(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return "sha256:" + hex.EncodeToString(sum[:])[:16]
}
