package main

import (
	"context"
	"fmt"
	"net/http"

	"edinet_qa/pkg/config"
	"edinet_qa/pkg/core/agent"
	"edinet_qa/pkg/core/metrics"
	"edinet_qa/pkg/core/skill"
	"edinet_qa/pkg/core/skill/edinetqa"
	"edinet_qa/pkg/core/store"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app holds the components shared by the subcommands.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	registry *skill.Registry
	agents   *agent.Manager
	qa       *edinetqa.Skill
	pool     *pgxpool.Pool
}

func newLogger() (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zcfg.Build()
}

// loadConfig reads the configuration before building the logger, so a bad
// config file leaves nothing to flush.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, logger, nil
}

// newApp wires the skill. Configuration problems are not fatal here: the
// skill reports them in its output.
func newApp(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics.New(prometheus.DefaultRegisterer),
		registry: skill.NewRegistry(),
	}

	var sectionCache *store.SectionCache
	if cfg.DatabaseURL != "" {
		pool, err := store.OpenPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Warn("database unavailable, section cache falls back to files", zap.Error(err))
		} else {
			a.pool = pool
			sectionCache = store.NewSectionCache(pool, "")
		}
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	a.agents = agent.NewManager(cfg.AgentConfig(), httpClient, logger)
	logger.Info("language model providers", zap.Strings("enabled", a.agents.Enabled()))

	a.qa = edinetqa.New(cfg, edinetqa.Deps{
		LLM:          a.agents,
		HTTPClient:   httpClient,
		Metrics:      a.metrics,
		SectionCache: sectionCache,
		Logger:       logger,
	})
	if err := a.registry.Register(a.qa); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
	_ = a.logger.Sync()
}
