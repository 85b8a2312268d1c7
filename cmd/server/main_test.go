package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routecodex/gateway/internal/config"
	"github.com/routecodex/gateway/internal/oauthcred"
	"github.com/routecodex/gateway/internal/sink"
	"github.com/routecodex/gateway/internal/transport"
)

func TestCredentialKeyStringOmitsEmptyAlias(t *testing.T) {
	assert.Equal(t, "openai", credentialKey{providerID: "openai"}.string())
	assert.Equal(t, "openai.work", credentialKey{providerID: "openai", alias: "work"}.string())
}

func TestVendorClientSecretsReadsPerVendorEnvVar(t *testing.T) {
	t.Setenv("RCC_OAUTH_CLIENT_SECRET_GOOGLE", "shh")
	secrets := vendorClientSecrets()
	assert.Equal(t, "shh", secrets[oauthcred.VendorGoogle])
	_, hasQwen := secrets[oauthcred.VendorQwen]
	assert.False(t, hasQwen)
}

func TestBuildSinkWithoutRedisAddrIsLogOnly(t *testing.T) {
	os.Unsetenv("RCC_REDIS_ADDR")
	s := buildSink()
	require.NotNil(t, s)
	if multi, ok := s.(*sink.MultiSink); ok {
		_ = multi
	}
}

func TestCredentialResolverReturnsErrorForUnknownProviderKey(t *testing.T) {
	store := oauthcred.NewStore(t.TempDir())
	mgr := oauthcred.NewManager(store, nil)
	resolver := &credentialResolver{mgr: mgr, table: map[string]credentialKey{}}

	_, err := resolver.Resolve("does-not-exist")
	require.Error(t, err)
}

func TestRebuildRejectsRouteWithUnknownProviderKey(t *testing.T) {
	cfg := &config.Config{
		Providers: []config.ProviderConfig{{Key: "openai_default", ProviderID: "openai", Model: "gpt-4"}},
		Routes:    []config.RouteConfig{{Name: "default", ProviderKeys: []string{"missing_key"}}},
	}
	store := oauthcred.NewStore(t.TempDir())
	mgr := oauthcred.NewManager(store, nil)
	httpClient := transport.New("")

	err := rebuild(cfg, mgr, httpClient, sink.NewMultiSink(sink.NewLogSink(4)), &atomicHandler{})
	require.Error(t, err)
}

func TestRebuildSucceedsAndStoresHandler(t *testing.T) {
	cfg := &config.Config{
		Providers: []config.ProviderConfig{{Key: "openai_default", ProviderID: "openai", Model: "gpt-4", ClientFormat: "openai", ProviderFormat: "openai"}},
		Routes:    []config.RouteConfig{{Name: "default", ProviderKeys: []string{"openai_default"}}},
	}
	store := oauthcred.NewStore(t.TempDir())
	mgr := oauthcred.NewManager(store, nil)
	httpClient := transport.New("")
	handlerRef := &atomicHandler{}

	err := rebuild(cfg, mgr, httpClient, sink.NewMultiSink(sink.NewLogSink(4)), handlerRef)
	require.NoError(t, err)
	assert.NotNil(t, handlerRef.h.Load())
}
