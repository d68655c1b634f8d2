package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingClient struct {
	calls     int
	embedding []float32
	err       error
}

func (c *countingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.embedding, nil
}

func TestEmbeddingCache_Hit(t *testing.T) {
	client := &countingClient{embedding: []float32{0.1, 0.2, 0.3}}
	cache, err := NewEmbeddingCache(client, 16)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()

	first, err := cache.GenerateEmbedding(ctx, "how do I fix this")
	require.NoError(t, err)
	assert.Equal(t, client.embedding, first)
	cache.Wait()

	second, err := cache.GenerateEmbedding(ctx, "how do I fix this")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, client.calls)
}

func TestEmbeddingCache_DistinctKeys(t *testing.T) {
	client := &countingClient{embedding: []float32{0.5}}
	cache, err := NewEmbeddingCache(client, 16)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()

	_, err = cache.GenerateEmbedding(ctx, "query one")
	require.NoError(t, err)
	_, err = cache.GenerateEmbedding(ctx, "query two")
	require.NoError(t, err)

	assert.Equal(t, 2, client.calls)
}

func TestEmbeddingCache_ErrorNotCached(t *testing.T) {
	client := &countingClient{err: errors.New("provider down")}
	cache, err := NewEmbeddingCache(client, 16)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()

	_, err = cache.GenerateEmbedding(ctx, "query")
	assert.Error(t, err)

	client.err = nil
	client.embedding = []float32{1}

	embedding, err := cache.GenerateEmbedding(ctx, "query")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, embedding)
	assert.Equal(t, 2, client.calls)
}
