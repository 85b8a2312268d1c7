// Package pipeline wires C8 (llmswitch), C9 (workflow), C7 (compat), and
// C6 (transport) into one stateless call chain per (providerKey, model).
package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/routecodex/gateway/internal/authheader"
	"github.com/routecodex/gateway/internal/compat"
	"github.com/routecodex/gateway/internal/llmswitch"
	"github.com/routecodex/gateway/internal/transport"
	"github.com/routecodex/gateway/internal/workflow"
)

// Credential is the subset of an oauthcred.Credential a pipeline needs
// to build outbound headers; kept narrow so this package doesn't import
// oauthcred's persistence machinery just to read two fields.
type Credential struct {
	APIKey      string
	AccessToken string
	TokenType   string
}

// Config is everything fixed at boot for one (providerKey, model) pipeline.
type Config struct {
	ProviderKey       string
	Model             string
	BaseURL           string
	ClientFormat      llmswitch.Format
	ProviderFormat    llmswitch.Format
	HeaderFamily      authheader.Family
	SupportsStream    bool
	SupportsNonStream bool
	SchemaRegistry    compat.SchemaRegistry
}

// Pipeline is the stateless, injected-dependency-only call chain for one
// (providerKey, model) pair. Pipelines share C6's transport.Client and
// read credentials per call, never caching them across requests.
type Pipeline struct {
	cfg    Config
	client *transport.Client
}

// Model is the model name this pipeline was wired for, used by the
// router to report /v1/models without a separate registry.
func (p *Pipeline) Model() string { return p.cfg.Model }

// New builds a Pipeline. baseURL is normalized once here, at boot, not
// on every request.
func New(cfg Config, client *transport.Client) *Pipeline {
	cfg.BaseURL = compat.NormalizeBaseURL(cfg.BaseURL)
	return &Pipeline{cfg: cfg, client: client}
}

// Request is one shaped call through the pipeline.
type Request struct {
	RawJSON   []byte
	Stream    bool
	Cred      Credential
	RequestID string
	RouteName string
}

// Execute runs the full chain: translate the client-shaped request into
// the provider's protocol, compact its messages, dispatch it, validate
// and translate the response back. Cancelling ctx aborts the outbound
// call in C6.
func (p *Pipeline) Execute(ctx context.Context, req Request) (*workflow.Outcome, error) {
	caps := workflow.Capability{SupportsStream: p.cfg.SupportsStream, SupportsNonStream: p.cfg.SupportsNonStream}

	dispatcher := workflow.Dispatcher{
		DispatchNonStream: func(ctx context.Context) ([]byte, error) {
			return p.dispatchOnce(ctx, req)
		},
		DispatchStream: func(ctx context.Context) (io.Reader, error) {
			return nil, fmt.Errorf("pipeline %s: provider declared streaming support but no streaming transport is wired yet", p.cfg.ProviderKey)
		},
	}
	return workflow.Run(ctx, p.cfg.Model, req.Stream, caps, dispatcher)
}

func (p *Pipeline) dispatchOnce(ctx context.Context, req Request) ([]byte, error) {
	providerBody, err := llmswitch.TranslateRequest(p.cfg.ClientFormat, p.cfg.ProviderFormat, p.cfg.Model, req.RawJSON)
	if err != nil {
		return nil, err
	}
	providerBody, err = compat.CompactMessages(providerBody)
	if err != nil {
		return nil, err
	}

	headers := authheader.Build(authheader.Request{
		Family:    p.cfg.HeaderFamily,
		Cred:      authheader.Credential{APIKey: req.Cred.APIKey, AccessToken: req.Cred.AccessToken, TokenType: req.Cred.TokenType},
		RequestID: req.RequestID,
		RouteName: p.cfg.RouteName(),
		Streaming: req.Stream,
	})
	headers.Set("Content-Type", "application/json")

	result, err := p.client.Dispatch(ctx, p.cfg.BaseURL, headers, providerBody, req.Cred.APIKey)
	if err != nil {
		return nil, err
	}

	if p.cfg.SchemaRegistry != nil {
		if verr := compat.ValidateToolCalls(result.Body, p.cfg.SchemaRegistry); verr != nil {
			return nil, verr
		}
	}

	return llmswitch.TranslateResponse(p.cfg.ProviderFormat, p.cfg.ClientFormat, p.cfg.Model, result.Body)
}

// RouteName is the identity this pipeline presents for authheader
// composition; pipelines are registered per-route so this is a no-op
// accessor over the config's own provider key today, kept as a method
// so call sites don't reach into Config directly.
func (c Config) RouteName() string { return c.ProviderKey }
