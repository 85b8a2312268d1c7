// Package router implements the edge HTTP surface (C13): it classifies
// each inbound request to a route, picks a pipeline off that route's
// pool, runs the pipeline, and serializes the outcome back to the
// client as JSON or an SSE stream.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/routecodex/gateway/internal/classifier"
	"github.com/routecodex/gateway/internal/middleware"
	"github.com/routecodex/gateway/internal/pipeline"
	"github.com/routecodex/gateway/internal/pool"
	"github.com/routecodex/gateway/internal/ratelimit"
	"github.com/routecodex/gateway/internal/sink"
)

// CredentialResolver looks up the credential a pipeline should
// authenticate with for one providerKey. Kept as an interface, rather
// than importing oauthcred directly, so the router doesn't drag in
// persistence/refresh machinery it never touches.
type CredentialResolver interface {
	Resolve(providerKey string) (pipeline.Credential, error)
}

// Route is one classifier destination: the pool of pipelines it round-
// robins over, and the pipelines themselves keyed by providerKey.
type Route struct {
	Pool      *pool.Pool
	Pipelines map[string]*pipeline.Pipeline
}

// Config is everything the router needs at construction: the rule
// table C11 evaluates, the route table C12 schedules over, shared
// cooldown state, a credential resolver, and an event sink.
type Config struct {
	Rules                 []classifier.Rule
	Routes                map[string]*Route
	Cooldowns             *ratelimit.State
	Credentials           CredentialResolver
	Sink                  sink.EventSink
	AllowUpstreamOverride bool
	PipelineTimeout       time.Duration
}

// Router holds the wiring needed to serve every handler; it is stateless
// beyond the shared Config references, which are themselves either
// immutable after boot (Routes) or internally synchronized (Cooldowns).
type Router struct {
	cfg Config
}

// New builds a Router and its chi.Mux.
func New(cfg Config) (*Router, http.Handler) {
	if cfg.PipelineTimeout <= 0 {
		cfg.PipelineTimeout = 300 * time.Second
	}
	rt := &Router{cfg: cfg}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recovery)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	mux.Post("/v1/chat/completions", rt.handleChatCompletions)
	mux.Post("/v1/completions", rt.handleCompletions)
	mux.Post("/v1/messages", rt.handleMessages)
	mux.Get("/v1/models", rt.handleListModels)
	mux.Get("/v1/models/{model}", rt.handleGetModel)

	for _, path := range notImplementedPaths {
		mux.Handle(path, http.HandlerFunc(rt.handleNotImplemented))
	}

	return rt, mux
}

var notImplementedPaths = []string{
	"/v1/embeddings",
	"/v1/moderations",
	"/v1/images/generations",
	"/v1/audio/*",
	"/v1/files",
	"/v1/files/*",
	"/v1/fine_tuning/*",
	"/v1/batches",
	"/v1/batches/*",
	"/v1/assistants",
}
