package main

import (
	"fmt"

	"github.com/skylarklabs/reportloom/internal/agent"
	"github.com/skylarklabs/reportloom/internal/agent/providers"
	"github.com/skylarklabs/reportloom/internal/cache"
	"github.com/skylarklabs/reportloom/internal/config"
	"github.com/skylarklabs/reportloom/internal/jira"
	"github.com/skylarklabs/reportloom/internal/observability"
	"github.com/skylarklabs/reportloom/internal/ratelimit"
	"github.com/skylarklabs/reportloom/internal/tools"
)

// app bundles the constructed core components a command needs, built once
// from a loaded Config — a per-command "build what I need from cfg" style
// rather than a heavyweight DI container. This core has few enough
// components that one struct of constructors is the idiomatic shape.
type app struct {
	cfg      *config.Config
	logger   *observability.Logger
	metrics  *observability.Metrics
	registry *agent.ToolRegistry
	provider agent.LLMProvider
	rateCtrl *ratelimit.Controller
	store    cache.Store
	dedupe   *cache.RunDedupe
	closeFn  func() error
}

// buildApp loads configPath and wires every component this core's
// commands can use. closeFn (on the returned app) must be called before
// exit to release the cache store's connection.
func buildApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.AddSource,
	})
	metrics := observability.NewMetrics()

	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}

	rateCtrl := ratelimit.NewController(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
		MaxRetries:           cfg.RateLimit.MaxRetries,
		InitialBackoff:       config.Seconds(cfg.RateLimit.InitialBackoff),
		MaxBackoff:           config.Seconds(cfg.RateLimit.MaxBackoff),
		AcquireTimeout:       config.Seconds(cfg.RateLimit.AcquireTimeout),
	})

	store, closeFn, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	registry := buildRegistry(cfg)

	dedupe := cache.NewRunDedupe(cache.RunDedupeOptions{
		Window:     cfg.Cache.DedupeTTL,
		MaxEntries: 1024,
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		registry: registry,
		provider: provider,
		rateCtrl: rateCtrl,
		store:    store,
		dedupe:   dedupe,
		closeFn:  closeFn,
	}, nil
}

func (a *app) Close() error {
	if a.closeFn == nil {
		return nil
	}
	return a.closeFn()
}

// buildProvider selects and constructs the LLMProvider named by
// cfg.LLM.Provider.
func buildProvider(cfg *config.Config) (agent.LLMProvider, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return providers.NewOpenAIProvider(providers.OpenAIConfig{
			APIKey:       cfg.LLM.APIKey,
			BaseURL:      cfg.LLM.BaseURL,
			DefaultModel: cfg.LLM.Model,
			MaxRetries:   cfg.LLM.MaxRetries,
			RetryDelay:   cfg.LLM.RetryDelay,
		})
	case "anthropic", "":
		return providers.NewAnthropicProvider(providers.AnthropicConfig{
			APIKey:       cfg.LLM.APIKey,
			BaseURL:      cfg.LLM.BaseURL,
			DefaultModel: cfg.LLM.Model,
			MaxRetries:   cfg.LLM.MaxRetries,
			RetryDelay:   cfg.LLM.RetryDelay,
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// buildStore selects and opens the Execution Cache backend named by
// cfg.Cache.Backend.
func buildStore(cfg *config.Config) (cache.Store, func() error, error) {
	switch cfg.Cache.Backend {
	case "postgres":
		return cache.NewPostgresStoreFromDSN(cfg.Cache.DSN, nil)
	case "sqlite", "":
		dsn := cfg.Cache.DSN
		if dsn == "" {
			dsn = "reportloom.db"
		}
		return cache.NewSQLiteStore(dsn)
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// buildRegistry registers every Tool Descriptor in the core's catalog:
// issue querying (backed by a Jira client and a shared Blackboard view),
// data shaping, text/date helpers, presentation, and blackboard storage.
func buildRegistry(cfg *config.Config) *agent.ToolRegistry {
	registry := agent.NewToolRegistry()

	jiraClient := jira.NewClient(jira.Config{
		BaseURL:  cfg.Jira.BaseURL,
		Email:    cfg.Jira.Email,
		APIToken: cfg.Jira.APIToken,
		Timeout:  cfg.Jira.Timeout,
	})

	registry.Register(tools.NewSearchIssuesTool(jiraClient))
	registry.Register(tools.NewGetCachedIssuesTool())
	registry.Register(tools.NewGetIssueTool())
	registry.Register(tools.NewFindIssueByFieldTool())
	registry.Register(tools.NewFilterIssuesTool())
	registry.Register(tools.NewGroupByFieldTool())
	registry.Register(tools.NewCountByFieldTool())
	registry.Register(tools.NewExtractVersionTool())
	registry.Register(tools.NewFormatDateTool())
	registry.Register(tools.NewFormatAsTableTool())
	registry.Register(tools.NewFormatAsListTool())
	registry.Register(tools.NewStoreResultTool())

	return registry
}
