// Package app builds the pipeline from configuration. Both binaries start
// here so the CLI and the job workers share one wiring.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"gig-recommender/internal/common/config"
	"gig-recommender/internal/common/llm"
	"gig-recommender/internal/common/logger"
	"gig-recommender/internal/common/observability"
	"gig-recommender/internal/orchestrator"
	"gig-recommender/internal/tools"
	gathercontext "gig-recommender/internal/workers/agent/gather-context"
	"gig-recommender/internal/workers/agent/recommend"
)

// Options overrides collaborators, mostly for tests.
type Options struct {
	// Dialer starts stdio tool servers. Defaults to tools.StdioDialer.
	Dialer tools.Dialer
	// Model replaces the HTTP chat model.
	Model llm.ChatModel
	// Registerer receives OpenTelemetry metrics. Defaults to the global registerer.
	Registerer prometheus.Registerer
}

type App struct {
	Config        *config.Config
	Logger        logger.Logger
	Observability *observability.Observability
	Tools         *tools.Registry
	Gatherer      *gathercontext.Handler
	Recommender   *recommend.Handler
	Orchestrator  *orchestrator.Orchestrator
}

// Build validates cfg and assembles the pipeline. Configuration and
// credential errors are returned before any tool server is started.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*App, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	obs, err := observability.New(observability.Options{
		ServiceName:    cfg.Observability.ServiceName,
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
		Registerer:     opts.Registerer,
	})
	if err != nil {
		log.Warn("observability degraded", map[string]interface{}{"error": err.Error()})
	}

	registry := tools.NewRegistry(log, obs)
	if err := tools.Build(ctx, cfg, registry, opts.Dialer); err != nil {
		_ = registry.Close()
		obs.Shutdown()
		return nil, err
	}
	log.Info("tools ready", map[string]interface{}{"count": registry.Len()})

	model := opts.Model
	if model == nil {
		model = llm.NewClient(&llm.Config{
			BaseURL:     cfg.Model.BaseURL,
			Model:       cfg.Model.Name,
			APIKey:      cfg.Credentials.OpenAIAPIKey,
			Temperature: cfg.Model.Temperature,
			MaxTokens:   cfg.Model.MaxTokens,
			Timeout:     config.GetDuration(cfg.Model.Timeout),
		})
	}

	gatherer := gathercontext.NewHandler(gathercontext.LoadConfig(cfg), model, registry, obs, log)
	recommender := recommend.NewHandler(recommend.LoadConfig(cfg), model, obs, log)
	orch := orchestrator.New(&orchestrator.Config{
		Name:               cfg.Stages.RootName,
		RejectEmptyContext: cfg.Pipeline.RejectEmptyContext,
	}, gatherer, recommender, obs, log)

	return &App{
		Config:        cfg,
		Logger:        log,
		Observability: obs,
		Tools:         registry,
		Gatherer:      gatherer,
		Recommender:   recommender,
		Orchestrator:  orch,
	}, nil
}

// Close stops tool servers and flushes telemetry.
func (a *App) Close() error {
	err := a.Tools.Close()
	a.Observability.Shutdown()
	if err != nil {
		return fmt.Errorf("close tools: %w", err)
	}
	return nil
}
