// Package api wires the HTTP surface: the chat endpoint, the standalone
// SQL explainer, chart artifacts, and the operational endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/querychat/querychat/internal/artifact"
	"github.com/querychat/querychat/internal/chart"
	"github.com/querychat/querychat/internal/config"
	"github.com/querychat/querychat/internal/observability"
	"github.com/querychat/querychat/internal/warehouse"
)

type ReadinessCheck func(ctx context.Context) error

// SQLSynthesizer turns a question into tenant-scoped SQL.
type SQLSynthesizer interface {
	Synthesize(ctx context.Context, question, tenantID string) (string, error)
}

// ResultExplainer produces the natural language halves of a chat answer.
type ResultExplainer interface {
	ExplainResults(ctx context.Context, question, sqlText string, rows []warehouse.Row) (string, error)
	ExplainSQL(ctx context.Context, sqlText string) (string, error)
}

// ChartRenderer draws a selected chart and returns its /static URL, empty
// on failure.
type ChartRenderer interface {
	Render(ctx context.Context, sel chart.Selection, rows []warehouse.Row) string
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Synthesizer       SQLSynthesizer
	Executor          warehouse.Executor
	Explainer         ResultExplainer
	Charts            ChartRenderer
	Artifacts         artifact.Store
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	mux.HandleFunc("GET /static/{file}", func(w http.ResponseWriter, r *http.Request) {
		handleStatic(deps, w, r)
	})

	protected := http.NewServeMux()
	protected.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		handleChat(cfg, deps, w, r)
	})
	protected.HandleFunc("POST /api/explain-sql", func(w http.ResponseWriter, r *http.Request) {
		handleExplainSQL(deps, w, r)
	})

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			deps.Logger.Error("auth required but auth middleware missing")
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("POST /api/chat", protectedHandler)
	mux.Handle("POST /api/explain-sql", protectedHandler)

	return chain(mux,
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
		observability.LoggingMiddleware(deps.Logger),
	)
}

func handleStatic(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")
	if deps.Artifacts == nil {
		writeError(r.Context(), w, http.StatusNotFound, "ARTIFACT_NOT_FOUND", "artifact store is not configured", false, nil)
		return
	}
	reader, err := deps.Artifacts.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, artifact.ErrArtifactNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "ARTIFACT_NOT_FOUND", "artifact does not exist", false, map[string]any{"file": name})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "ARTIFACT_READ_FAILED", err.Error(), true, map[string]any{"file": name})
		return
	}
	defer func() { _ = reader.Close() }()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}

func CheckWarehouseConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.Warehouse.DataDir == "" {
			return errors.New("warehouse data directory is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
