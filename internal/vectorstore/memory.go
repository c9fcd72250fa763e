package vectorstore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryCollection keeps documents in process memory. Used by the dev
// profile and in tests; the schema corpus is small enough that a linear
// scan per lookup is fine.
type MemoryCollection struct {
	mu   sync.RWMutex
	docs map[string]Document
}

func NewMemoryCollection() *MemoryCollection {
	return &MemoryCollection{docs: map[string]Document{}}
}

func (c *MemoryCollection) Count(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs), nil
}

func (c *MemoryCollection) Add(_ context.Context, docs []Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("document id is required")
		}
		if len(doc.Embedding) == 0 {
			return fmt.Errorf("document %q has no embedding", doc.ID)
		}
		c.docs[doc.ID] = doc
	}
	return nil
}

func (c *MemoryCollection) Search(_ context.Context, embedding []float32, k int) ([]Document, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	candidates := make([]Document, 0, len(c.docs))
	for _, doc := range c.docs {
		candidates = append(candidates, doc)
	}
	return rankByCosine(candidates, embedding, k), nil
}
