package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/planrag/backend/pkg/ai"
	"github.com/planrag/backend/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Embedder is the narrow contract to the external embedding service.
// ai.Client satisfies it.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error)
}

// Cache is a content-addressed store mapping text to its embedding vector,
// shared by ingestion and querying. The key is the sha256 of the exact input
// text. There is no eviction; callers may clear the cache wholesale.
//
// Concurrent callers for the same uncached text may each trigger a service
// call; the write is last-wins, so identical text always yields identical
// cached output afterwards.
type Cache struct {
	embedder  Embedder
	store     RecordStore
	normalize bool
	dimension int
	parallel  int
}

// NewCacheParams configures a Cache.
type NewCacheParams struct {
	Embedder  Embedder
	Store     RecordStore
	Normalize bool // L2-normalize vectors before caching
	Dimension int  // expected vector width, 0 to accept any
	Parallel  int  // batch concurrency bound, defaults to 8
}

// NewCache creates a Cache over the given embedder and record store.
func NewCache(params NewCacheParams) *Cache {
	parallel := params.Parallel
	if parallel <= 0 {
		parallel = 8
	}
	return &Cache{
		embedder:  params.Embedder,
		store:     params.Store,
		normalize: params.Normalize,
		dimension: params.Dimension,
		parallel:  parallel,
	}
}

// Key returns the content-address of text: the hex sha256 of its exact bytes.
func Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// GetOrCompute returns the cached vector for text, or invokes the embedding
// service once, stores the result, and returns it. A service failure caches
// nothing for the item.
func (c *Cache) GetOrCompute(ctx context.Context, text string) ([]float32, error) {
	key := Key(text)

	vec, ok, err := c.store.Load(key)
	if err != nil {
		return nil, fmt.Errorf("failed to load cached embedding: %w", err)
	}
	if ok {
		logger.Debug("embedding cache hit", "key", key[:8])
		return vec, nil
	}

	vec, err = c.embedder.GenerateEmbedding(ctx, []byte(text))
	if err != nil {
		return nil, ai.WrapEmbedding(err)
	}
	if c.dimension > 0 && len(vec) != c.dimension {
		return nil, ai.WrapEmbedding(fmt.Errorf("dimension mismatch: got %d want %d", len(vec), c.dimension))
	}
	if c.normalize {
		normalizeL2(vec)
	}

	if err := c.store.Save(key, vec); err != nil {
		return nil, fmt.Errorf("failed to cache embedding: %w", err)
	}
	logger.Debug("cached embedding", "key", key[:8], "dim", len(vec))

	return vec, nil
}

// Batch computes vectors for texts, filling missing cache entries with
// bounded concurrency. The output preserves input order. A service error for
// any item aborts the batch and caches nothing for the failed items.
func (c *Cache) Batch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.parallel)

	for i, text := range texts {
		eg.Go(func() error {
			vec, err := c.GetOrCompute(gCtx, text)
			if err != nil {
				return err
			}
			out[i] = vec
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Clear removes every cached record and returns how many were removed.
func (c *Cache) Clear() (int, error) {
	n, err := c.store.Clear()
	if err != nil {
		return n, err
	}
	logger.Info("cleared embedding cache", "records_removed", n)
	return n, nil
}

// Stats describes the cache contents.
type Stats struct {
	Records   int  `json:"records"`
	Dimension int  `json:"dimension"`
	Normalize bool `json:"normalize"`
}

// GetStats returns current cache statistics.
func (c *Cache) GetStats() (Stats, error) {
	n, err := c.store.Count()
	if err != nil {
		return Stats{}, err
	}
	return Stats{Records: n, Dimension: c.dimension, Normalize: c.normalize}, nil
}

func normalizeL2(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}
