package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/routecodex/gateway/internal/authheader"
	"github.com/routecodex/gateway/internal/classifier"
	"github.com/routecodex/gateway/internal/config"
	"github.com/routecodex/gateway/internal/llmswitch"
	"github.com/routecodex/gateway/internal/logging"
	"github.com/routecodex/gateway/internal/metrics"
	"github.com/routecodex/gateway/internal/oauthcred"
	"github.com/routecodex/gateway/internal/pipeline"
	"github.com/routecodex/gateway/internal/pool"
	"github.com/routecodex/gateway/internal/ratelimit"
	"github.com/routecodex/gateway/internal/router"
	"github.com/routecodex/gateway/internal/sink"
	"github.com/routecodex/gateway/internal/transport"
)

const (
	credentialRefreshInterval = 5 * time.Minute
	credentialRefreshSkew     = 5 * time.Minute
	credentialGetSkew         = 2 * time.Minute
	shutdownTimeout           = 10 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the route/provider topology file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := logging.Setup(&cfg.Server); err != nil {
		fmt.Fprintln(os.Stderr, "logging setup:", err)
		os.Exit(1)
	}
	log.Infof("starting gateway (topology: %s)", *configPath)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	credStore := oauthcred.NewStore(homeDir)
	credMgr := oauthcred.NewManager(credStore, vendorClientSecrets())

	httpClient := transport.New(os.Getenv("RCC_PROXY_URL"))
	eventSink := buildSink()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handlerRef := &atomicHandler{}
	if err := rebuild(cfg, credMgr, httpClient, eventSink, handlerRef); err != nil {
		log.WithError(err).Fatal("failed to assemble routing topology")
	}

	go credMgr.RunBackgroundRefresh(ctx, credentialRefreshInterval, credentialRefreshSkew)

	watcher := config.WatchFile(*configPath, func(next *config.Config) {
		if err := logging.Setup(&next.Server); err != nil {
			log.WithError(err).Warn("failed to re-apply logging config on reload")
		}
		if err := rebuild(next, credMgr, httpClient, eventSink, handlerRef); err != nil {
			log.WithError(err).Warn("topology reload failed, keeping previous routing table")
			return
		}
		log.Info("topology reloaded")
	})
	defer watcher.Stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handlerRef,
	}

	go func() {
		log.Infof("listening on :%d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("server stopped unexpectedly")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutdown signal received")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown did not complete cleanly")
	}
}

// atomicHandler lets a hot config reload swap in a freshly built mux
// without racing in-flight requests against the old one.
type atomicHandler struct {
	h atomic.Value
}

func (a *atomicHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.h.Load().(http.Handler).ServeHTTP(w, r)
}

func (a *atomicHandler) store(h http.Handler) { a.h.Store(h) }

// rebuild assembles the pipeline/pool/route table from cfg and swaps it
// into handlerRef. Called once at boot and again on every topology
// file change the watcher observes.
func rebuild(cfg *config.Config, credMgr *oauthcred.Manager, httpClient *transport.Client, eventSink sink.EventSink, handlerRef *atomicHandler) error {
	pipelines := make(map[string]*pipeline.Pipeline, len(cfg.Providers))
	resolverTable := make(map[string]credentialKey, len(cfg.Providers))

	for _, p := range cfg.Providers {
		pipelines[p.Key] = pipeline.New(pipeline.Config{
			ProviderKey:       p.Key,
			Model:             p.Model,
			BaseURL:           p.BaseURL,
			ClientFormat:      llmswitch.Format(p.ClientFormat),
			ProviderFormat:    llmswitch.Format(p.ProviderFormat),
			HeaderFamily:      authheader.Family(p.HeaderFamily),
			SupportsStream:    p.SupportsStream,
			SupportsNonStream: true,
		}, httpClient)
		resolverTable[p.Key] = credentialKey{providerID: p.ProviderID, alias: p.CredentialAlias}

		if _, err := credMgr.Load(p.ProviderID, p.CredentialAlias); err != nil {
			log.WithError(err).WithField("provider_key", p.Key).Warn("no persisted credential found yet; requests to this provider will fail authentication until one is onboarded")
		}
	}

	rules := make([]classifier.Rule, 0, len(cfg.Routes))
	routes := make(map[string]*router.Route, len(cfg.Routes))
	for _, rc := range cfg.Routes {
		candidates := make([]pool.Candidate, 0, len(rc.ProviderKeys))
		routePipelines := make(map[string]*pipeline.Pipeline, len(rc.ProviderKeys))
		for _, key := range rc.ProviderKeys {
			p, ok := cfg.ProviderByKey(key)
			if !ok {
				return fmt.Errorf("route %s: unknown provider key %s", rc.Name, key)
			}
			candidates = append(candidates, pool.Candidate{ProviderKey: p.Key, ProviderID: p.ProviderID, Model: p.Model, Vendor: p.Vendor})
			routePipelines[p.Key] = pipelines[p.Key]
		}
		routes[rc.Name] = &router.Route{Pool: pool.New(rc.Name, candidates), Pipelines: routePipelines}
		rules = append(rules, classifier.Rule{
			RouteName:      rc.Name,
			MinTokens:      rc.Rule.MinTokens,
			MaxTokens:      rc.Rule.MaxTokens,
			RequiresTools:  rc.Rule.RequiresTools,
			RequiresImages: rc.Rule.RequiresImages,
			RequiresWeb:    rc.Rule.RequiresWeb,
			ModelContains:  rc.Rule.ModelContains,
		})
	}

	_, mux := router.New(router.Config{
		Rules:                 rules,
		Routes:                routes,
		Cooldowns:             ratelimit.New(metrics.RateLimitEscalationsTotal),
		Credentials:           &credentialResolver{mgr: credMgr, table: resolverTable},
		Sink:                  eventSink,
		AllowUpstreamOverride: cfg.Runtime.AllowUpstreamOverride,
		PipelineTimeout:       time.Duration(cfg.Runtime.PipelineMaxWaitMs) * time.Millisecond,
	})
	handlerRef.store(mux)
	return nil
}

// credentialKey identifies the oauthcred.Store entry a provider key
// authenticates with, resolved once at topology-build time so the hot
// path never re-parses config.
type credentialKey struct {
	providerID string
	alias      string
}

func (k credentialKey) string() string {
	if k.alias == "" {
		return k.providerID
	}
	return k.providerID + "." + k.alias
}

// credentialResolver adapts oauthcred.Manager to router.CredentialResolver,
// translating a pipeline's providerKey into the (providerID, alias) pair
// the manager's refresh-aware store keys on.
type credentialResolver struct {
	mgr   *oauthcred.Manager
	table map[string]credentialKey
}

func (r *credentialResolver) Resolve(providerKey string) (pipeline.Credential, error) {
	key, ok := r.table[providerKey]
	if !ok {
		return pipeline.Credential{}, fmt.Errorf("credentialResolver: no credential mapping for provider key %s", providerKey)
	}
	cred, err := r.mgr.Get(context.Background(), key.string(), credentialGetSkew)
	if err != nil {
		return pipeline.Credential{}, err
	}
	return pipeline.Credential{APIKey: cred.APIKey, AccessToken: cred.AccessToken, TokenType: cred.TokenType}, nil
}

// vendorClientSecrets reads the OAuth client secret for each vendor from
// its own environment variable; vendors using public-client PKCE (Qwen,
// Google's installed-app flow) need none.
func vendorClientSecrets() map[oauthcred.VendorID]string {
	secrets := map[oauthcred.VendorID]string{}
	for _, vendor := range []oauthcred.VendorID{oauthcred.VendorGoogle, oauthcred.VendorIFlow, oauthcred.VendorQwen, oauthcred.VendorGLM, oauthcred.VendorGeneric} {
		envKey := "RCC_OAUTH_CLIENT_SECRET_" + strings.ToUpper(string(vendor))
		if v := os.Getenv(envKey); v != "" {
			secrets[vendor] = v
		}
	}
	return secrets
}

// buildSink wires the always-present log sink plus an optional Redis
// fan-out sink when RCC_REDIS_ADDR is set.
func buildSink() sink.EventSink {
	logSink := sink.NewLogSink(256)
	addr := os.Getenv("RCC_REDIS_ADDR")
	if addr == "" {
		return sink.NewMultiSink(logSink)
	}
	redisSink := sink.NewRedisSink(addr, os.Getenv("RCC_REDIS_PASSWORD"), 0, "routecodex:events")
	return sink.NewMultiSink(logSink, redisSink)
}
