package vectorstore

import (
	"context"
	"testing"
)

func TestMemoryCollectionAddAndCount(t *testing.T) {
	col := NewMemoryCollection()
	ctx := context.Background()

	count, err := col.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Fatalf("Count() = %d, want 0", count)
	}

	docs := []Document{
		{ID: "a", Text: "alpha", Embedding: []float32{1, 0}},
		{ID: "b", Text: "beta", Embedding: []float32{0, 1}},
	}
	if err := col.Add(ctx, docs); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	count, err = col.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("Count() = %d, want 2", count)
	}
}

func TestMemoryCollectionAddUpsertsByID(t *testing.T) {
	col := NewMemoryCollection()
	ctx := context.Background()

	if err := col.Add(ctx, []Document{{ID: "a", Text: "first", Embedding: []float32{1, 0}}}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := col.Add(ctx, []Document{{ID: "a", Text: "second", Embedding: []float32{1, 0}}}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	count, err := col.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("Count() = %d, want 1", count)
	}

	results, err := col.Search(ctx, []float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if results[0].Text != "second" {
		t.Fatalf("Text = %q, want %q", results[0].Text, "second")
	}
}

func TestMemoryCollectionRejectsInvalidDocuments(t *testing.T) {
	col := NewMemoryCollection()
	ctx := context.Background()

	if err := col.Add(ctx, []Document{{Text: "no id", Embedding: []float32{1}}}); err == nil {
		t.Fatal("expected error for missing id")
	}
	if err := col.Add(ctx, []Document{{ID: "x", Text: "no embedding"}}); err == nil {
		t.Fatal("expected error for missing embedding")
	}
}

func TestMemoryCollectionSearchRanksBySimilarity(t *testing.T) {
	col := NewMemoryCollection()
	ctx := context.Background()

	docs := []Document{
		{ID: "far", Text: "far", Embedding: []float32{0, 1}},
		{ID: "near", Text: "near", Embedding: []float32{1, 0.1}},
		{ID: "exact", Text: "exact", Embedding: []float32{1, 0}},
	}
	if err := col.Add(ctx, docs); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	results, err := col.Search(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].ID != "exact" {
		t.Fatalf("results[0].ID = %q, want %q", results[0].ID, "exact")
	}
	if results[1].ID != "near" {
		t.Fatalf("results[1].ID = %q, want %q", results[1].ID, "near")
	}
}

func TestMemoryCollectionSearchRejectsNonPositiveK(t *testing.T) {
	col := NewMemoryCollection()
	if _, err := col.Search(context.Background(), []float32{1}, 0); err == nil {
		t.Fatal("expected error for k = 0")
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Fatalf("identical vectors similarity = %v", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Fatalf("orthogonal vectors similarity = %v, want 0", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{1}); got != 0 {
		t.Fatalf("mismatched lengths similarity = %v, want 0", got)
	}
	if got := CosineSimilarity([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Fatalf("zero vector similarity = %v, want 0", got)
	}
}
