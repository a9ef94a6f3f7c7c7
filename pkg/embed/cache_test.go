package embed

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/planrag/backend/pkg/ai"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  bool
	vec   []float32
}

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fail {
		return nil, errors.New("service unavailable")
	}
	if f.vec != nil {
		out := make([]float32, len(f.vec))
		copy(out, f.vec)
		return out, nil
	}
	// deterministic per-text vector
	out := make([]float32, 4)
	for i, b := range input {
		out[i%4] += float32(b)
	}
	return out, nil
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestGetOrComputeCachesSecondCall(t *testing.T) {
	emb := &fakeEmbedder{}
	cache := NewCache(NewCacheParams{Embedder: emb, Store: NewMemStore()})

	first, err := cache.GetOrCompute(context.Background(), "wall assembly WA-02")
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := cache.GetOrCompute(context.Background(), "wall assembly WA-02")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if emb.callCount() != 1 {
		t.Fatalf("expected exactly one service call, got %d", emb.callCount())
	}
	if len(first) != len(second) {
		t.Fatalf("vector length changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("cached vector not bit-identical at index %d", i)
		}
	}
}

func TestBatchPreservesOrder(t *testing.T) {
	emb := &fakeEmbedder{}
	cache := NewCache(NewCacheParams{Embedder: emb, Store: NewMemStore(), Parallel: 3})

	texts := []string{"alpha", "bravo", "charlie", "delta", "echo"}
	vecs, err := cache.Batch(context.Background(), texts)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vecs))
	}
	for i, text := range texts {
		want, err := cache.GetOrCompute(context.Background(), text)
		if err != nil {
			t.Fatal(err)
		}
		for j := range want {
			if vecs[i][j] != want[j] {
				t.Fatalf("vector for %q out of order", text)
			}
		}
	}
}

func TestServiceErrorCachesNothing(t *testing.T) {
	store := NewMemStore()
	emb := &fakeEmbedder{fail: true}
	cache := NewCache(NewCacheParams{Embedder: emb, Store: store})

	_, err := cache.GetOrCompute(context.Background(), "text")
	var svcErr *ai.EmbeddingServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected EmbeddingServiceError, got %v", err)
	}
	if n, _ := store.Count(); n != 0 {
		t.Fatalf("failed embedding must not be cached, found %d records", n)
	}
}

func TestDimensionMismatch(t *testing.T) {
	emb := &fakeEmbedder{vec: []float32{1, 2, 3}}
	cache := NewCache(NewCacheParams{Embedder: emb, Store: NewMemStore(), Dimension: 8})

	_, err := cache.GetOrCompute(context.Background(), "text")
	var svcErr *ai.EmbeddingServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("dimension mismatch must be an EmbeddingServiceError, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	emb := &fakeEmbedder{vec: []float32{3, 4}}
	cache := NewCache(NewCacheParams{Embedder: emb, Store: NewMemStore(), Normalize: true})

	vec, err := cache.GetOrCompute(context.Background(), "text")
	if err != nil {
		t.Fatal(err)
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1.0) > 1e-6 {
		t.Fatalf("expected unit vector, squared norm = %f", norm)
	}
}

func TestClearAndStats(t *testing.T) {
	emb := &fakeEmbedder{}
	cache := NewCache(NewCacheParams{Embedder: emb, Store: NewMemStore()})

	for _, text := range []string{"a", "b", "c"} {
		if _, err := cache.GetOrCompute(context.Background(), text); err != nil {
			t.Fatal(err)
		}
	}
	stats, err := cache.GetStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Records != 3 {
		t.Fatalf("expected 3 records, got %d", stats.Records)
	}

	n, err := cache.Clear()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("expected 3 removed, got %d", n)
	}
	stats, _ = cache.GetStats()
	if stats.Records != 0 {
		t.Fatalf("cache not empty after clear: %d", stats.Records)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	key := Key("some text")
	if _, ok, _ := store.Load(key); ok {
		t.Fatal("unexpected hit on empty store")
	}

	want := []float32{0.25, -1.5, 3.75}
	if err := store.Save(key, want); err != nil {
		t.Fatal(err)
	}
	got, ok, err := store.Load(key)
	if err != nil || !ok {
		t.Fatalf("load failed: ok=%v err=%v", ok, err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("round trip mismatch at %d: %f != %f", i, got[i], want[i])
		}
	}
}
