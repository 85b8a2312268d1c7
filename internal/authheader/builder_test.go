package authheader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthorizationPrefersAPIKey(t *testing.T) {
	h := Build(Request{Cred: Credential{APIKey: "sk-abc", AccessToken: "at-xyz"}})
	assert.Equal(t, "Bearer sk-abc", h.Get("Authorization"))
}

func TestAuthorizationFallsBackToAccessToken(t *testing.T) {
	h := Build(Request{Cred: Credential{AccessToken: "at-xyz", TokenType: "Custom"}})
	assert.Equal(t, "Custom at-xyz", h.Get("Authorization"))
}

func TestAuthorizationDefaultsTokenTypeToBearer(t *testing.T) {
	h := Build(Request{Cred: Credential{AccessToken: "at-xyz"}})
	assert.Equal(t, "Bearer at-xyz", h.Get("Authorization"))
}

func TestCodexCLIHeadersDerivedDeterministically(t *testing.T) {
	req := Request{Family: FamilyCodexCLI, RequestID: "req-1", RouteName: "route-a"}
	a := Build(req)
	b := Build(req)
	assert.Equal(t, a.Get("session_id"), b.Get("session_id"))
	assert.Equal(t, a.Get("conversation_id"), b.Get("conversation_id"))
	assert.NotEmpty(t, a.Get("originator"))
	assert.Contains(t, a.Get("User-Agent"), "codex-cli")
}

func TestCodexCLIHeadersRespectSuppliedIDs(t *testing.T) {
	h := Build(Request{Family: FamilyCodexCLI, SessionID: "sess-1", ConversationID: "conv-1"})
	assert.Equal(t, "sess-1", h.Get("session_id"))
	assert.Equal(t, "conv-1", h.Get("conversation_id"))
}

func TestAntigravityDeletesSessionHeaders(t *testing.T) {
	h := Build(Request{Family: FamilyAntigravity, SessionID: "sess-1", ConversationID: "conv-1"})
	assert.Empty(t, h.Get("session_id"))
	assert.Empty(t, h.Get("conversation_id"))
}

func TestGeminiHeadersSetStreamingAccept(t *testing.T) {
	h := Build(Request{Family: FamilyGemini, Streaming: true})
	assert.Equal(t, "text/event-stream", h.Get("Accept"))
	assert.NotEmpty(t, h.Get("X-Goog-Api-Client"))
}

func TestGeminiHeadersOmitAcceptWhenNotStreaming(t *testing.T) {
	h := Build(Request{Family: FamilyGemini, Streaming: false})
	assert.Empty(t, h.Get("Accept"))
}

func TestIFlowHeaders(t *testing.T) {
	h := Build(Request{Family: FamilyIFlow})
	assert.Equal(t, "iflow-cli", h.Get("X-Client-Name"))
}

func TestBoundedIdentityEnforcesSixtyFourCharLimit(t *testing.T) {
	longSeed := strings.Repeat("x", 200)
	got := boundedIdentity(longSeed)
	assert.LessOrEqual(t, len(got), maxIdentityHeaderLen)
	assert.True(t, strings.HasPrefix(got, "sha256:"))
}

func TestBoundedIdentityPassesThroughShortValues(t *testing.T) {
	assert.Equal(t, "short", boundedIdentity("short"))
}

func TestKeyFingerprintNeverExposesRawKey(t *testing.T) {
	fp := KeyFingerprint("sk-super-secret")
	assert.NotContains(t, fp, "sk-super-secret")
	assert.True(t, strings.HasPrefix(fp, "sha256:"))
	assert.Len(t, strings.TrimPrefix(fp, "sha256:"), 16)
}
