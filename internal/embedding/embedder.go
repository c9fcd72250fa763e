package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/querychat/querychat/internal/observability"
)

// TextEmbedder turns text into fixed-length vectors. Implementations must
// produce compatible vectors for documents and queries alike.
type TextEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

// ProvidersError reports that every configured embedding backend failed.
type ProvidersError struct {
	PrimaryErr   error
	SecondaryErr error
}

func (e *ProvidersError) Error() string {
	if e.SecondaryErr == nil {
		return fmt.Sprintf("embedding provider failed: %v", e.PrimaryErr)
	}
	return fmt.Sprintf("all embedding providers failed: primary: %v; secondary: %v", e.PrimaryErr, e.SecondaryErr)
}

func (e *ProvidersError) Unwrap() error {
	return e.PrimaryErr
}

// Fallback tries the primary embedder and, on failure, the secondary.
// Both failing yields a *ProvidersError.
type Fallback struct {
	Primary   TextEmbedder
	Secondary TextEmbedder
	Logger    *slog.Logger
}

func NewFallback(primary, secondary TextEmbedder, logger *slog.Logger) *Fallback {
	return &Fallback{Primary: primary, Secondary: secondary, Logger: logger}
}

func (f *Fallback) Name() string {
	if f.Primary != nil {
		return f.Primary.Name()
	}
	if f.Secondary != nil {
		return f.Secondary.Name()
	}
	return "none"
}

func (f *Fallback) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.Primary == nil && f.Secondary == nil {
		return nil, &ProvidersError{PrimaryErr: fmt.Errorf("no embedding provider configured")}
	}
	if f.Primary == nil {
		return f.embedWith(ctx, f.Secondary, texts)
	}

	vectors, primaryErr := f.embedWith(ctx, f.Primary, texts)
	if primaryErr == nil {
		return vectors, nil
	}
	if f.Secondary == nil {
		return nil, &ProvidersError{PrimaryErr: primaryErr}
	}
	if f.Logger != nil {
		f.Logger.WarnContext(ctx, "primary embedder failed, trying secondary",
			slog.String("primary", f.Primary.Name()),
			slog.String("secondary", f.Secondary.Name()),
			slog.Any("error", primaryErr),
		)
	}
	vectors, secondaryErr := f.embedWith(ctx, f.Secondary, texts)
	if secondaryErr == nil {
		return vectors, nil
	}
	return nil, &ProvidersError{PrimaryErr: primaryErr, SecondaryErr: secondaryErr}
}

func (f *Fallback) embedWith(ctx context.Context, embedder TextEmbedder, texts []string) ([][]float32, error) {
	vectors, err := embedder.EmbedBatch(ctx, texts)
	observability.ObserveEmbeddingRequest(embedder.Name(), err == nil)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		observability.ObserveEmbeddingRequest(embedder.Name(), false)
		return nil, fmt.Errorf("embedder %s returned %d vectors for %d texts", embedder.Name(), len(vectors), len(texts))
	}
	return vectors, nil
}
