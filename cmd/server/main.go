// Package main provides the entry point for the literature review service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/scholarstream/literature-review-service/internal/analysis"
	"github.com/scholarstream/literature-review-service/internal/config"
	"github.com/scholarstream/literature-review-service/internal/llm"
	"github.com/scholarstream/literature-review-service/internal/observability"
	"github.com/scholarstream/literature-review-service/internal/papersources"
	"github.com/scholarstream/literature-review-service/internal/papersources/openalex"
	"github.com/scholarstream/literature-review-service/internal/papersources/semanticscholar"
	"github.com/scholarstream/literature-review-service/internal/pipeline"
	"github.com/scholarstream/literature-review-service/internal/pool"
	"github.com/scholarstream/literature-review-service/internal/retrieval"
	httpserver "github.com/scholarstream/literature-review-service/internal/server/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; production deployments use real env vars.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("literature-review-service starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics(cfg.Metrics.Namespace)

	// LLM generator and optional embedder.
	llmCfg := llm.FactoryConfig{
		Provider:          cfg.LLM.Provider,
		EmbeddingProvider: cfg.LLM.EmbeddingProvider,
		Temperature:       cfg.LLM.Temperature,
		Timeout:           cfg.LLM.Timeout,
		MaxRetries:        cfg.LLM.MaxRetries,
		OpenAI: llm.OpenAIConfig{
			APIKey:         cfg.LLM.OpenAI.APIKey,
			Model:          cfg.LLM.OpenAI.Model,
			ReasoningModel: cfg.LLM.OpenAI.ReasoningModel,
			EmbeddingModel: cfg.LLM.OpenAI.EmbeddingModel,
			BaseURL:        cfg.LLM.OpenAI.BaseURL,
		},
		Anthropic: llm.AnthropicConfig{
			APIKey:         cfg.LLM.Anthropic.APIKey,
			Model:          cfg.LLM.Anthropic.Model,
			ReasoningModel: cfg.LLM.Anthropic.ReasoningModel,
			BaseURL:        cfg.LLM.Anthropic.BaseURL,
		},
	}

	generator, err := llm.NewGenerator(llmCfg)
	if err != nil {
		return fmt.Errorf("create LLM generator: %w", err)
	}
	logger.Info().
		Str("provider", generator.Provider()).
		Str("model", generator.Model()).
		Msg("LLM generator ready")

	var embedder llm.Embedder
	if cfg.Pipeline.RerankEnabled {
		embedder, err = llm.NewEmbedder(llmCfg)
		if err != nil {
			// Reranking is an enhancement; the corpus keeps merge
			// order without it.
			logger.Warn().Err(err).Msg("embedder unavailable, relevance reranking disabled")
			embedder = nil
		}
	}

	// Paper sources: Semantic Scholar with OpenAlex as fallback.
	primary := semanticscholar.NewClient(semanticscholar.Config{
		BaseURL:   cfg.PaperSources.SemanticScholar.BaseURL,
		APIKey:    cfg.PaperSources.SemanticScholar.APIKey,
		Timeout:   cfg.PaperSources.SemanticScholar.Timeout,
		RateLimit: cfg.PaperSources.SemanticScholar.RateLimit,
		BurstSize: cfg.PaperSources.SemanticScholar.BurstSize,
	}, nil)
	fallback := openalex.New(openalex.Config{
		BaseURL:   cfg.PaperSources.OpenAlex.BaseURL,
		Email:     cfg.PaperSources.OpenAlex.Email,
		Timeout:   cfg.PaperSources.OpenAlex.Timeout,
		RateLimit: cfg.PaperSources.OpenAlex.RateLimit,
		BurstSize: cfg.PaperSources.OpenAlex.BurstSize,
	})
	source := papersources.NewFallbackSource(primary, fallback, metrics, logger)

	// Shared worker pool bounds the search and summarization fan-out.
	workers := pool.New(cfg.Pipeline.WorkerPoolSize)
	defer workers.Wait()

	engine := retrieval.NewEngine(source, embedder, workers, retrieval.Options{
		BranchTimeout:    cfg.Pipeline.BranchTimeout,
		PerBranchResults: cfg.Pipeline.PerBranchResults,
		MaxTotalPapers:   cfg.Pipeline.MaxTotalPapers,
	}, metrics, logger)

	analyzer := analysis.NewAnalyzer(generator, workers, analysis.Options{
		SummaryWorkers: cfg.Pipeline.SummaryWorkers,
	}, metrics, logger)

	runner := pipeline.NewStageRunner(workers, pipeline.DefaultPollInterval, pipeline.DefaultHeartbeatInterval)
	orchestrator := pipeline.NewOrchestrator(engine, analyzer, runner, metrics, logger, cfg.Pipeline.JobTimeout)

	server := httpserver.NewServer(httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, orchestrator, logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("HTTP server: %w", err)
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown HTTP server: %w", err)
	}

	logger.Info().Msg("literature-review-service stopped")
	return nil
}
