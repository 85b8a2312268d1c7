// Package config loads the gateway's routing/provider topology from a
// YAML file and overlays the RCC_*/ROUTECODEX_* environment contract on
// top of it, with optional hot-reload on file change.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ProviderConfig describes one pipeline's static wiring: which vendor and
// base URL it dispatches to, which protocol it expects versus what the
// client sends, and which stored credential it authenticates with.
type ProviderConfig struct {
	Key             string `yaml:"key"`
	Vendor          string `yaml:"vendor"`
	ProviderID      string `yaml:"provider_id"`
	BaseURL         string `yaml:"base_url"`
	Model           string `yaml:"model"`
	ClientFormat    string `yaml:"client_format"`
	ProviderFormat  string `yaml:"provider_format"`
	HeaderFamily    string `yaml:"header_family"`
	SupportsStream  bool   `yaml:"supports_stream"`
	CredentialAlias string `yaml:"credential_alias"`
}

// RuleConfig is the YAML projection of a classifier.Rule.
type RuleConfig struct {
	MinTokens      int    `yaml:"min_tokens"`
	MaxTokens      int    `yaml:"max_tokens"`
	RequiresTools  bool   `yaml:"requires_tools"`
	RequiresImages bool   `yaml:"requires_images"`
	RequiresWeb    bool   `yaml:"requires_web"`
	ModelContains  string `yaml:"model_contains"`
}

// RouteConfig names a pool of provider keys reachable under one route
// name, plus the classifier rule that selects that route.
type RouteConfig struct {
	Name         string     `yaml:"name"`
	ProviderKeys []string   `yaml:"provider_keys"`
	Rule         RuleConfig `yaml:"rule"`
}

// ServerConfig is the process's own listen/log configuration.
type ServerConfig struct {
	Port     int    `yaml:"port" env:"RCC_PORT" envDefault:"8080"`
	LogLevel string `yaml:"log_level" env:"RCC_LOG_LEVEL" envDefault:"info"`
	LogFile  string `yaml:"log_file" env:"RCC_LOG_FILE"`
}

// RuntimeConfig holds the env-only knobs spec §6 names — none of these
// have a YAML projection since they are meant to be overridden per
// deployment without editing the topology file.
type RuntimeConfig struct {
	AllowUpstreamOverride       bool   `env:"RCC_ALLOW_UPSTREAM_OVERRIDE" envDefault:"false"`
	PipelineMaxWaitMs           int    `env:"RCC_PIPELINE_MAX_WAIT_MS" envDefault:"300000"`
	SSEHeartbeatMs              int    `env:"RCC_SSE_HEARTBEAT_MS" envDefault:"15000"`
	SSEHeartbeatMode            string `env:"RCC_SSE_HEARTBEAT_MODE" envDefault:"chunk"`
	SSEHeartbeatStatusText      string `env:"RCC_SSE_HEARTBEAT_STATUS_TEXT"`
	PreSSEHeartbeatMs           int    `env:"RCC_PRE_SSE_HEARTBEAT_MS" envDefault:"3000"`
	PreSSEHeartbeatDelayMs      int    `env:"RCC_PRE_SSE_HEARTBEAT_DELAY_MS" envDefault:"800"`
	CanonicalizeDottedToolNames bool   `env:"RCC_CANONICALIZE_DOTTED_TOOL_NAMES" envDefault:"false"`
	RLDefaultQuotaCooldownMs    int64  `env:"ROUTECODEX_RL_DEFAULT_QUOTA_COOLDOWN" envDefault:"300000"`
	RLCapacityCooldownMs        int64  `env:"ROUTECODEX_RL_CAPACITY_COOLDOWN" envDefault:"30000"`
	OAuthLenientState           bool   `env:"ROUTECODEX_OAUTH_LENIENT_STATE" envDefault:"false"`
}

// Config is the gateway's full static+env configuration.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Providers []ProviderConfig `yaml:"providers"`
	Routes    []RouteConfig    `yaml:"routes"`
	Runtime   RuntimeConfig    `yaml:"-"`
}

// Load reads the YAML topology file at path, then overlays environment
// variables (env vars always win, matching the teacher's merge order).
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg.Server, env.Options{SetDefaultsForZeroValuesOnly: true}); err != nil {
		return nil, fmt.Errorf("config: env overlay (server): %w", err)
	}
	if err := env.Parse(&cfg.Runtime); err != nil {
		return nil, fmt.Errorf("config: env overlay (runtime): %w", err)
	}
	return cfg, nil
}

// ProviderByKey finds a provider definition by its key.
func (c *Config) ProviderByKey(key string) (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.Key == key {
			return p, true
		}
	}
	return ProviderConfig{}, false
}
