// Package config handles application configuration using Viper.
// Viper supports YAML files, environment variables, and defaults — merged in priority order.
// Go convention: configuration is loaded into structs, not accessed as raw key-value pairs.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration struct. Nested structs organize related settings.
// `mapstructure` tags tell Viper how to map YAML/env keys to struct fields.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Auth      AuthConfig      `mapstructure:"auth"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Brand     BrandConfig     `mapstructure:"brand"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Judge     JudgeConfig     `mapstructure:"judge"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Run       RunConfig       `mapstructure:"run"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type StorageConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

type AuthConfig struct {
	// AdminSecret gates the run and recommendation triggers. There is no
	// multi-user model — one shared secret for the single stakeholder.
	AdminSecret string `mapstructure:"admin_secret"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// BrandConfig names the tracked brand. Token is what the analyzer scans
// response texts for, case-insensitively.
type BrandConfig struct {
	Name  string `mapstructure:"name"`
	Token string `mapstructure:"token"`
}

// LLMConfig holds the six monitored-provider settings plus the call policy
// shared by all adapters.
type LLMConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	BackoffSeconds int `mapstructure:"backoff_seconds"`

	ChatGPT    ProviderConfig `mapstructure:"chatgpt"`
	Gemini     ProviderConfig `mapstructure:"gemini"`
	Mistral    ProviderConfig `mapstructure:"mistral"`
	Grok       ProviderConfig `mapstructure:"grok"`
	Claude     ProviderConfig `mapstructure:"claude"`
	Perplexity ProviderConfig `mapstructure:"perplexity"`
}

// ProviderConfig is per-vendor data: credential, model name, retry cap and
// (for the non-SDK vendors) API base URL. Vendor differences are data here,
// not code branching.
type ProviderConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max_retries"`
	BaseURL    string `mapstructure:"base_url"`
}

// JudgeConfig configures the Claude judge used for mention analysis and
// recommendation drafting (a distinct role from the claude provider, even
// though it is the same vendor).
type JudgeConfig struct {
	APIKey        string `mapstructure:"api_key"`
	Model         string `mapstructure:"model"`
	RatePerMinute int    `mapstructure:"rate_per_minute"`
	TruncateChars int    `mapstructure:"truncate_chars"`
}

// ScoringConfig carries the market-share weight table used for the global
// score. Injected configuration, not embedded constants, so tests can
// supply deterministic weights.
type ScoringConfig struct {
	MarketWeights map[string]float64 `mapstructure:"market_weights"`
}

// RunConfig bounds one orchestrator invocation.
type RunConfig struct {
	ChunkSize     int `mapstructure:"chunk_size"`
	BudgetSeconds int `mapstructure:"budget_seconds"`
	// MinResultsMultiplier: recommendations are only generated once the
	// date's stored result count reaches multiplier × active query count.
	MinResultsMultiplier int `mapstructure:"min_results_multiplier"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.database_path", "./storage/arianeegeo.db")
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("brand.name", "Arianee")
	v.SetDefault("brand.token", "arianee")
	v.SetDefault("llm.timeout_seconds", 45)
	v.SetDefault("llm.backoff_seconds", 2)
	v.SetDefault("llm.chatgpt.model", "gpt-4o-search-preview")
	v.SetDefault("llm.chatgpt.max_retries", 2)
	v.SetDefault("llm.gemini.model", "gemini-2.0-flash")
	v.SetDefault("llm.gemini.max_retries", 2)
	v.SetDefault("llm.gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("llm.mistral.model", "mistral-small-latest")
	// Mistral's web-search path 429s often enough to deserve an extra attempt.
	v.SetDefault("llm.mistral.max_retries", 3)
	v.SetDefault("llm.mistral.base_url", "https://api.mistral.ai")
	v.SetDefault("llm.grok.model", "grok-4-1-fast-non-reasoning")
	v.SetDefault("llm.grok.max_retries", 2)
	v.SetDefault("llm.grok.base_url", "https://api.x.ai/v1")
	v.SetDefault("llm.claude.model", "claude-haiku-4-5-20251001")
	v.SetDefault("llm.claude.max_retries", 2)
	v.SetDefault("llm.perplexity.model", "sonar")
	v.SetDefault("llm.perplexity.max_retries", 2)
	v.SetDefault("llm.perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("judge.model", "claude-sonnet-4-6")
	v.SetDefault("judge.rate_per_minute", 10)
	v.SetDefault("judge.truncate_chars", 3000)
	v.SetDefault("scoring.market_weights", map[string]float64{
		"chatgpt":    0.60,
		"gemini":     0.13,
		"perplexity": 0.10,
		"claude":     0.08,
		"mistral":    0.05,
		"grok":       0.04,
	})
	v.SetDefault("run.chunk_size", 5)
	v.SetDefault("run.budget_seconds", 250)
	v.SetDefault("run.min_results_multiplier", 2)
	v.SetDefault("rate_limit.requests_per_second", 10)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("log.level", "info")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Read config file (ignore "not found" — defaults + env are enough)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Environment variables override everything.
	// ARIANEEGEO_ prefix + nested keys: ARIANEEGEO_SERVER_PORT=9090 → server.port
	v.SetEnvPrefix("ARIANEEGEO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Credentials are also picked up from the conventional vendor variables,
	// so a plain OPENAI_API_KEY works without the prefix dance.
	_ = v.BindEnv("llm.chatgpt.api_key", "ARIANEEGEO_LLM_CHATGPT_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("llm.gemini.api_key", "ARIANEEGEO_LLM_GEMINI_API_KEY", "GOOGLE_AI_API_KEY")
	_ = v.BindEnv("llm.mistral.api_key", "ARIANEEGEO_LLM_MISTRAL_API_KEY", "MISTRAL_API_KEY")
	_ = v.BindEnv("llm.grok.api_key", "ARIANEEGEO_LLM_GROK_API_KEY", "XAI_API_KEY")
	_ = v.BindEnv("llm.claude.api_key", "ARIANEEGEO_LLM_CLAUDE_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("llm.perplexity.api_key", "ARIANEEGEO_LLM_PERPLEXITY_API_KEY", "PERPLEXITY_API_KEY")
	_ = v.BindEnv("judge.api_key", "ARIANEEGEO_JUDGE_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("auth.admin_secret", "ARIANEEGEO_AUTH_ADMIN_SECRET", "ADMIN_SECRET")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Address returns the listen address string like "0.0.0.0:8080".
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Timeout returns the per-adapter-call deadline as a time.Duration.
func (l LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// Backoff returns the initial retry backoff as a time.Duration.
func (l LLMConfig) Backoff() time.Duration {
	return time.Duration(l.BackoffSeconds) * time.Second
}

// Budget returns the wall-clock budget for one run invocation.
func (r RunConfig) Budget() time.Duration {
	return time.Duration(r.BudgetSeconds) * time.Second
}
