package vectorstore

import (
	"context"
	"math"
	"sort"
)

// Document is one embedded text with its similarity-search metadata.
type Document struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  map[string]string
}

// Collection stores embedded documents and answers nearest-neighbor lookups.
type Collection interface {
	Count(ctx context.Context) (int, error)
	Add(ctx context.Context, docs []Document) error
	Search(ctx context.Context, embedding []float32, k int) ([]Document, error)
}

// CosineSimilarity over two vectors; zero for mismatched or degenerate input.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// rankByCosine sorts candidates by similarity to the query embedding and
// keeps the top k. Ties break on document ID so results stay deterministic.
func rankByCosine(candidates []Document, embedding []float32, k int) []Document {
	type scored struct {
		doc   Document
		score float64
	}
	results := make([]scored, len(candidates))
	for i, doc := range candidates {
		results[i] = scored{doc: doc, score: CosineSimilarity(embedding, doc.Embedding)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].doc.ID < results[j].doc.ID
	})
	if len(results) > k {
		results = results[:k]
	}

	docs := make([]Document, len(results))
	for i, result := range results {
		docs[i] = result.doc
	}
	return docs
}
