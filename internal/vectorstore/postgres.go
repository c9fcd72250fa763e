package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

// OpenPostgres connects to the vector store database and verifies the
// connection before handing it back.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("vector store dsn is required")
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open vector store db: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping vector store db: %w", err)
	}

	return db, nil
}

// PostgresCollection stores schema documents in a single table and ranks
// candidates in process. The corpus is one row per table plus one per
// column, so fetching everything and scoring locally stays cheap.
type PostgresCollection struct {
	db *sql.DB
}

func NewPostgresCollection(db *sql.DB) *PostgresCollection {
	return &PostgresCollection{db: db}
}

// EnsureSchema creates the backing table when it does not exist yet.
func (c *PostgresCollection) EnsureSchema(ctx context.Context) error {
	query := `
CREATE TABLE IF NOT EXISTS schema_documents (
    doc_id     TEXT PRIMARY KEY,
    doc_text   TEXT NOT NULL,
    embedding  JSONB NOT NULL,
    metadata   JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure schema_documents table: %w", err)
	}
	return nil
}

func (c *PostgresCollection) HealthCheck(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping vector store db: %w", err)
	}
	return nil
}

func (c *PostgresCollection) Count(ctx context.Context) (int, error) {
	var count int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count schema documents: %w", err)
	}
	return count, nil
}

func (c *PostgresCollection) Add(ctx context.Context, docs []Document) error {
	query := `
INSERT INTO schema_documents (doc_id, doc_text, embedding, metadata)
VALUES ($1, $2, $3, $4)
ON CONFLICT (doc_id) DO UPDATE
SET doc_text = EXCLUDED.doc_text,
    embedding = EXCLUDED.embedding,
    metadata = EXCLUDED.metadata`

	for _, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("document id is required")
		}
		if len(doc.Embedding) == 0 {
			return fmt.Errorf("document %q has no embedding", doc.ID)
		}
		embedding, err := json.Marshal(doc.Embedding)
		if err != nil {
			return fmt.Errorf("encode embedding for %q: %w", doc.ID, err)
		}
		metadata := doc.Metadata
		if metadata == nil {
			metadata = map[string]string{}
		}
		meta, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for %q: %w", doc.ID, err)
		}
		if _, err := c.db.ExecContext(ctx, query, doc.ID, doc.Text, embedding, meta); err != nil {
			return fmt.Errorf("upsert schema document %q: %w", doc.ID, err)
		}
	}
	return nil
}

func (c *PostgresCollection) Search(ctx context.Context, embedding []float32, k int) ([]Document, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	rows, err := c.db.QueryContext(ctx, `
SELECT doc_id, doc_text, embedding, metadata
FROM schema_documents
ORDER BY doc_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query schema documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]Document, 0)
	for rows.Next() {
		var (
			doc           Document
			embeddingJSON []byte
			metadataJSON  []byte
		)
		if err := rows.Scan(&doc.ID, &doc.Text, &embeddingJSON, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scan schema document row: %w", err)
		}
		if err := json.Unmarshal(embeddingJSON, &doc.Embedding); err != nil {
			return nil, fmt.Errorf("decode embedding for %q: %w", doc.ID, err)
		}
		if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for %q: %w", doc.ID, err)
		}
		candidates = append(candidates, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema document rows: %w", err)
	}

	return rankByCosine(candidates, embedding, k), nil
}
