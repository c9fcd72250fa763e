package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestPostgresCollectionEnsureSchema(t *testing.T) {
	db, mock := newSQLMock(t)
	col := NewPostgresCollection(db)

	mock.ExpectExec(regexp.QuoteMeta(`
CREATE TABLE IF NOT EXISTS schema_documents (`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := col.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestPostgresCollectionCount(t *testing.T) {
	db, mock := newSQLMock(t)
	col := NewPostgresCollection(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM schema_documents`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(30))

	count, err := col.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 30 {
		t.Fatalf("Count() = %d, want 30", count)
	}
	assertSQLMock(t, mock)
}

func TestPostgresCollectionAddUpserts(t *testing.T) {
	db, mock := newSQLMock(t)
	col := NewPostgresCollection(db)

	embedding, _ := json.Marshal([]float32{0.25, 0.5})
	metadata, _ := json.Marshal(map[string]string{"kind": "column_info"})

	mock.ExpectExec(regexp.QuoteMeta(`
INSERT INTO schema_documents (doc_id, doc_text, embedding, metadata)
VALUES ($1, $2, $3, $4)
ON CONFLICT (doc_id) DO UPDATE`)).
		WithArgs("doc-1", "column detail", embedding, metadata).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := col.Add(context.Background(), []Document{{
		ID:        "doc-1",
		Text:      "column detail",
		Embedding: []float32{0.25, 0.5},
		Metadata:  map[string]string{"kind": "column_info"},
	}})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestPostgresCollectionSearchRanksInProcess(t *testing.T) {
	db, mock := newSQLMock(t)
	col := NewPostgresCollection(db)

	rows := sqlmock.NewRows([]string{"doc_id", "doc_text", "embedding", "metadata"}).
		AddRow("far", "far", `[0,1]`, `{}`).
		AddRow("near", "near", `[1,0.1]`, `{}`).
		AddRow("exact", "exact", `[1,0]`, `{}`)

	mock.ExpectQuery(regexp.QuoteMeta(`
SELECT doc_id, doc_text, embedding, metadata
FROM schema_documents
ORDER BY doc_id ASC`)).
		WillReturnRows(rows)

	results, err := col.Search(context.Background(), []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].ID != "exact" || results[1].ID != "near" {
		t.Fatalf("result order = %q, %q", results[0].ID, results[1].ID)
	}
	assertSQLMock(t, mock)
}

func TestPostgresCollectionSearchRejectsBadEmbedding(t *testing.T) {
	db, mock := newSQLMock(t)
	col := NewPostgresCollection(db)

	rows := sqlmock.NewRows([]string{"doc_id", "doc_text", "embedding", "metadata"}).
		AddRow("broken", "broken", `not-json`, `{}`)

	mock.ExpectQuery(regexp.QuoteMeta(`
SELECT doc_id, doc_text, embedding, metadata
FROM schema_documents`)).
		WillReturnRows(rows)

	if _, err := col.Search(context.Background(), []float32{1, 0}, 1); err == nil {
		t.Fatal("expected decode error")
	}
	assertSQLMock(t, mock)
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}
