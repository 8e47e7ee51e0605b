// Package config loads the YAML-backed configuration for the report
// generation core: LLM provider credentials, Rate Controller tuning, Agent
// Loop Driver limits, Execution Cache backend, Jira client credentials, and
// logging. Nested-struct shape with yaml tags and a Load(path) entry point
// with strict unknown-field rejection, scoped to the options this core's
// components actually read — no channel routing, gateway clustering,
// plugin marketplaces, or multi-provider fallback chains, since this core
// has no component for any of those.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the reportloom core.
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Loop      LoopConfig      `yaml:"loop"`
	Cache     CacheConfig     `yaml:"cache"`
	Jira      JiraConfig      `yaml:"jira"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LLMConfig selects and configures the LLM provider. Temperature lives
// under Loop, since it is a per-session driver setting, not a provider
// credential.
type LLMConfig struct {
	// Provider selects the backend: "anthropic" or "openai".
	Provider string `yaml:"provider"`
	// APIKey authenticates against the provider. Falls back to
	// ANTHROPIC_API_KEY / OPENAI_API_KEY when empty (see Load).
	APIKey string `yaml:"api_key"`
	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`
	// Model is the default model id for completions.
	Model string `yaml:"model"`
	// MaxRetries bounds the provider client's own transport-level retries,
	// distinct from the Rate Controller's rate-limit retries.
	MaxRetries int `yaml:"max_retries"`
	// RetryDelay is the base delay between transport retries.
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// RateLimitConfig configures the Rate Controller.
type RateLimitConfig struct {
	// MaxRequestsPerMinute bounds admissions in any sliding 60s window. Default 30.
	MaxRequestsPerMinute int `yaml:"max_requests_per_minute"`
	// MaxRetries is retry attempts after the first on a 429-class failure. Default 3.
	MaxRetries int `yaml:"max_retries"`
	// InitialBackoff is the first backoff delay in seconds. Default 5.0.
	InitialBackoff float64 `yaml:"initial_backoff"`
	// MaxBackoff bounds exponential backoff in seconds. Default 120.0.
	MaxBackoff float64 `yaml:"max_backoff"`
	// AcquireTimeout bounds how long Acquire blocks, in seconds. Default 120.0.
	AcquireTimeout float64 `yaml:"acquire_timeout"`
}

// LoopConfig configures the Agent Loop Driver.
type LoopConfig struct {
	// MaxIterations is the upper bound on LLM turns per session. Default 15.
	MaxIterations int `yaml:"max_iterations"`
	// Temperature is forwarded to the LLM on every call. Default 0.3.
	Temperature float64 `yaml:"temperature"`
	// SummaryMaxChars bounds the Result Summarizer's output. Default 50000.
	SummaryMaxChars int `yaml:"summary_max_chars"`
	// NonCacheableTools lists tool names excluded from the automatic
	// Blackboard write on success. Default empty.
	NonCacheableTools []string `yaml:"non_cacheable_tools"`
	// MaxTokens bounds the LLM response length per call.
	MaxTokens int `yaml:"max_tokens"`
	// SystemPrompt overrides the default system instruction when non-empty.
	SystemPrompt string `yaml:"system_prompt"`
}

// CacheConfig selects and configures the Execution Cache backend.
type CacheConfig struct {
	// Backend selects the store: "postgres" or "sqlite".
	Backend string `yaml:"backend"`
	// DSN is the connection string (postgres) or file path (sqlite, ":memory:" allowed).
	DSN string `yaml:"dsn"`
	// RetentionDays bounds how long the janitor keeps prompt_executions rows.
	// Zero disables pruning.
	RetentionDays int `yaml:"retention_days"`
	// RetentionCron is the schedule the janitor runs on, standard cron
	// syntax (seconds optional). Default "0 3 * * *" (daily at 03:00).
	RetentionCron string `yaml:"retention_cron"`
	// DedupeTTL is the RunDedupe admission guard's window. Zero or unset
	// disables the guard.
	DedupeTTL time.Duration `yaml:"dedupe_ttl"`
}

// JiraConfig configures the Jira REST client backing search_issues.
type JiraConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Email    string        `yaml:"email"`
	APIToken string        `yaml:"api_token"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level: "debug", "info", "warn", "error". Default "info".
	Level string `yaml:"level"`
	// Format: "json" or "text". Default "json".
	Format string `yaml:"format"`
	// AddSource includes file/line in log records.
	AddSource bool `yaml:"add_source"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:   "anthropic",
			MaxRetries: 3,
			RetryDelay: time.Second,
		},
		RateLimit: RateLimitConfig{
			MaxRequestsPerMinute: 30,
			MaxRetries:           3,
			InitialBackoff:       5.0,
			MaxBackoff:           120.0,
			AcquireTimeout:       120.0,
		},
		Loop: LoopConfig{
			MaxIterations:   15,
			Temperature:     0.3,
			SummaryMaxChars: 50000,
			MaxTokens:       4096,
		},
		Cache: CacheConfig{
			Backend:       "sqlite",
			DSN:           "reportloom.db",
			RetentionCron: "0 3 * * *",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads and parses a YAML config file at path, applying Default()
// values for anything left unset and expanding ${VAR} environment
// references. Unknown top-level keys are rejected (yaml.Decoder.KnownFields)
// so a misnamed option fails loudly instead of being silently ignored.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyEnvFallbacks(cfg)
	return cfg, nil
}

// applyEnvFallbacks fills provider/Jira credentials from environment
// variables when the config file leaves them blank — the conventional way
// to keep secrets out of a committed YAML file.
func applyEnvFallbacks(cfg *Config) {
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		default:
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if cfg.Jira.APIToken == "" {
		cfg.Jira.APIToken = os.Getenv("JIRA_API_TOKEN")
	}
	if cfg.Jira.Email == "" {
		cfg.Jira.Email = os.Getenv("JIRA_EMAIL")
	}
	if cfg.Jira.BaseURL == "" {
		cfg.Jira.BaseURL = os.Getenv("JIRA_BASE_URL")
	}
}

// Seconds converts a float-seconds config value to a time.Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
