// Package cache provides an in-process query-embedding cache so repeated
// searches for the same text skip the embedding provider round trip.
package cache

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// EmbeddingClient is the provider being wrapped.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingCache memoizes embeddings by exact input text.
type EmbeddingCache struct {
	client EmbeddingClient
	cache  *ristretto.Cache
}

// NewEmbeddingCache wraps client with a ristretto cache holding up to
// maxEntries embeddings. maxEntries <= 0 selects a default of 4096.
func NewEmbeddingCache(client EmbeddingClient, maxEntries int64) (*EmbeddingCache, error) {
	if maxEntries <= 0 {
		maxEntries = 4096
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return &EmbeddingCache{client: client, cache: cache}, nil
}

// GenerateEmbedding returns the cached embedding for text, or generates and
// caches one. Errors are never cached.
func (c *EmbeddingCache) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := c.cache.Get(text); ok {
		if embedding, ok := cached.([]float32); ok {
			return embedding, nil
		}
	}

	embedding, err := c.client.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}

	c.cache.Set(text, embedding, 1)
	return embedding, nil
}

// Wait blocks until pending writes are visible. Tests only.
func (c *EmbeddingCache) Wait() {
	c.cache.Wait()
}

// Close releases cache resources.
func (c *EmbeddingCache) Close() {
	c.cache.Close()
}
