package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/querychat/querychat/internal/api"
	"github.com/querychat/querychat/internal/artifact"
	s3store "github.com/querychat/querychat/internal/artifact/s3"
	"github.com/querychat/querychat/internal/auth"
	"github.com/querychat/querychat/internal/chart"
	"github.com/querychat/querychat/internal/config"
	"github.com/querychat/querychat/internal/embedding"
	"github.com/querychat/querychat/internal/explain"
	"github.com/querychat/querychat/internal/llm"
	"github.com/querychat/querychat/internal/nl2sql"
	"github.com/querychat/querychat/internal/observability"
	"github.com/querychat/querychat/internal/schema"
	"github.com/querychat/querychat/internal/vectorstore"
	duckdbengine "github.com/querychat/querychat/internal/warehouse/duckdb"
)

func main() {
	cfg, err := config.LoadFromEnv("querychat-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	var collection vectorstore.Collection
	readiness := []api.ReadinessCheck{api.CheckWarehouseConfig(cfg)}
	if cfg.VectorStore.DSN != "" {
		db, err := vectorstore.OpenPostgres(context.Background(), vectorstore.PostgresConfig{
			DSN:             cfg.VectorStore.DSN,
			MaxOpenConns:    cfg.VectorStore.MaxOpenConns,
			MaxIdleConns:    cfg.VectorStore.MaxIdleConns,
			ConnMaxIdleTime: cfg.VectorStore.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.VectorStore.ConnMaxLifetime,
		})
		if err != nil {
			logger.Error("failed to open vector store db", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()

		pg := vectorstore.NewPostgresCollection(db)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			logger.Error("failed to ensure vector store schema", slog.Any("error", err))
			os.Exit(1)
		}
		readiness = append(readiness, pg.HealthCheck)
		collection = pg
	} else {
		logger.Warn("no vector store DSN configured, using in-memory collection")
		collection = vectorstore.NewMemoryCollection()
	}

	embedder := buildEmbedder(cfg, logger)
	schemaStore := schema.NewStore(collection, embedder, schema.EventsTable(), logger)
	if err := schemaStore.Initialize(context.Background()); err != nil {
		logger.Error("schema store initialization failed, retrieval degrades to fallback context", slog.Any("error", err))
	}

	llmClient, err := llm.NewOpenAIClient(llm.OpenAIConfig{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize llm client", slog.Any("error", err))
		os.Exit(1)
	}

	synthesizer := nl2sql.NewSynthesizer(schemaStore, llmClient, nl2sql.Config{
		TopK:            cfg.Retrieval.TopK,
		MaxOutputTokens: cfg.AI.MaxOutputTokens,
		Temperature:     cfg.AI.SQLTemperature,
	}, logger)

	executor := duckdbengine.NewEngine(duckdbengine.Config{
		DataDir:             cfg.Warehouse.DataDir,
		RequireTenantFilter: cfg.Warehouse.RequireTenantFilter,
		QueryTimeout:        cfg.Warehouse.QueryTimeout,
	}, []string{schema.EventsTable().Name}, logger)

	explainer := explain.NewExplainer(llmClient, explain.Config{
		MaxOutputTokens:    cfg.AI.MaxOutputTokens,
		ResultsTemperature: cfg.AI.ExplainTemperature,
		SQLTemperature:     cfg.AI.SQLExplainTemperature,
	}, logger)

	artifacts, err := buildArtifactStore(cfg)
	if err != nil {
		logger.Error("failed to initialize artifact store", slog.Any("error", err))
		os.Exit(1)
	}

	deps := api.Dependencies{
		Logger:            logger,
		Readiness:         api.CombineReadinessChecks(readiness...),
		DependencyTimeout: time.Second,
		Synthesizer:       synthesizer,
		Executor:          executor,
		Explainer:         explainer,
		Charts:            chart.NewRenderer(artifacts, logger),
		Artifacts:         artifacts,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		authenticate := auth.Middleware(logger, validator)
		authorize := auth.RequireRole(logger, auth.RoleChatUser)
		deps.AuthMiddleware = func(next http.Handler) http.Handler {
			return authenticate(authorize(next))
		}
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

// buildEmbedder wires the remote embedding provider with the local Ollama
// fallback. Without an API key only the local backend is used.
func buildEmbedder(cfg config.Config, logger *slog.Logger) embedding.TextEmbedder {
	ollama := embedding.NewOllamaEmbedder(embedding.OllamaConfig{
		Host:    cfg.Embedding.OllamaHost,
		Model:   cfg.Embedding.OllamaModel,
		Timeout: cfg.Embedding.Timeout,
	})
	if cfg.AI.APIKey == "" {
		logger.Warn("no AI API key configured, embedding with local backend only")
		return embedding.NewFallback(nil, ollama, logger)
	}
	openai, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.Embedding.Model,
		Timeout: cfg.Embedding.Timeout,
	})
	if err != nil {
		logger.Warn("remote embedder unavailable, embedding with local backend only", slog.Any("error", err))
		return embedding.NewFallback(nil, ollama, logger)
	}
	return embedding.NewFallback(openai, ollama, logger)
}

func buildArtifactStore(cfg config.Config) (artifact.Store, error) {
	if cfg.Artifacts.UseObjectStore {
		return s3store.New(context.Background(), s3store.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
	}
	return artifact.NewFSStore(cfg.Artifacts.Dir)
}
