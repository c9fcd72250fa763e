package schema

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/querychat/querychat/internal/embedding"
	"github.com/querychat/querychat/internal/observability"
	"github.com/querychat/querychat/internal/vectorstore"
)

// Store populates the vector collection with schema documents and answers
// retrieval queries for the SQL synthesizer.
type Store struct {
	collection vectorstore.Collection
	embedder   embedding.TextEmbedder
	table      Table
	logger     *slog.Logger
}

func NewStore(collection vectorstore.Collection, embedder embedding.TextEmbedder, table Table, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		collection: collection,
		embedder:   embedder,
		table:      table,
		logger:     logger,
	}
}

// Initialize embeds the schema documents and loads them into the
// collection. A collection that already holds documents is left alone, so
// calling this on every startup is safe.
func (s *Store) Initialize(ctx context.Context) error {
	count, err := s.collection.Count(ctx)
	if err != nil {
		return fmt.Errorf("count schema documents: %w", err)
	}
	if count > 0 {
		s.logger.InfoContext(ctx, "schema collection already populated, skipping initialization", "documents", count)
		return nil
	}

	docs := s.table.Documents()
	if len(docs) == 0 {
		s.logger.WarnContext(ctx, "schema catalog produced no documents, collection stays empty")
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}

	s.logger.InfoContext(ctx, "embedding schema documents", "documents", len(docs))
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed schema documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("embedding count mismatch: got %d vectors for %d documents", len(vectors), len(docs))
	}
	for i := range docs {
		docs[i].Embedding = vectors[i]
	}

	if err := s.collection.Add(ctx, docs); err != nil {
		return fmt.Errorf("add schema documents: %w", err)
	}
	s.logger.InfoContext(ctx, "schema collection populated", "documents", len(docs))
	return nil
}

// Query returns the schema snippets most relevant to the question. Lookup
// failures are logged and degrade to an empty result rather than failing
// the chat turn.
func (s *Store) Query(ctx context.Context, question string, k int) []string {
	vectors, err := s.embedder.EmbedBatch(ctx, []string{question})
	if err != nil || len(vectors) == 0 {
		s.logger.ErrorContext(ctx, "failed to embed retrieval query", "error", err)
		observability.ObserveRetrieval(0)
		return nil
	}

	docs, err := s.collection.Search(ctx, vectors[0], k)
	if err != nil {
		s.logger.ErrorContext(ctx, "schema retrieval failed", "error", err)
		observability.ObserveRetrieval(0)
		return nil
	}

	snippets := make([]string, len(docs))
	for i, doc := range docs {
		snippets[i] = doc.Text
	}
	observability.ObserveRetrieval(len(snippets))
	s.logger.DebugContext(ctx, "retrieved schema context", "documents", len(snippets))
	return snippets
}
