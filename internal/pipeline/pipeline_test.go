package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routecodex/gateway/internal/authheader"
	"github.com/routecodex/gateway/internal/llmswitch"
	"github.com/routecodex/gateway/internal/transport"
)

func TestPipelineExecuteTranslatesDispatchesAndTranslatesBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"abc","choices":[{"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":1}}`))
	}))
	defer server.Close()

	cfg := Config{
		ProviderKey:       "openai_default",
		Model:             "gpt-4",
		BaseURL:           server.URL,
		ClientFormat:      llmswitch.FormatAnthropic,
		ProviderFormat:    llmswitch.FormatOpenAI,
		HeaderFamily:      authheader.FamilyGeneric,
		SupportsNonStream: true,
	}
	p := New(cfg, transport.New(""))

	req := Request{
		RawJSON: []byte(`{"model":"claude-3","max_tokens":100,"messages":[{"role":"user","content":"hi"}]}`),
		Cred:    Credential{APIKey: "sk-test"},
	}
	out, err := p.Execute(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, out.Message)
	assert.Contains(t, string(out.Message), `"type":"message"`)
}

func TestPipelineExecuteSynthesizesStreamWhenProviderCannotStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"abc","choices":[{"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	cfg := Config{
		ProviderKey:       "openai_default",
		Model:             "gpt-4",
		BaseURL:           server.URL,
		ClientFormat:      llmswitch.FormatOpenAI,
		ProviderFormat:    llmswitch.FormatOpenAI,
		HeaderFamily:      authheader.FamilyGeneric,
		SupportsNonStream: true,
	}
	p := New(cfg, transport.New(""))

	req := Request{
		RawJSON: []byte(`{"model":"gpt-4","messages":[{"role":"user","content":"hi"}]}`),
		Stream:  true,
		Cred:    Credential{APIKey: "sk-test"},
	}
	out, err := p.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, out.Chunks, 2)
}
