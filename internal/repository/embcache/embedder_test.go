package embcache

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/greyhollow/lorebase/internal/domain"
)

type countingEmbedder struct {
	vec    []float32
	tokens int
	err    error
	calls  int
}

func (e *countingEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	e.calls++
	if e.err != nil {
		return domain.EmbeddingResult{}, e.err
	}
	return domain.EmbeddingResult{Embedding: e.vec, TotalTokens: e.tokens}, nil
}

func newCached(t *testing.T, inner domain.Embedder) (*CachedEmbedder, *Cache) {
	t.Helper()
	cache, err := NewCache(10)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	return New(inner, cache, nil, zap.NewNop()), cache
}

func TestCachedEmbedder_MissDelegatesAndCaches(t *testing.T) {
	inner := &countingEmbedder{vec: []float32{0.1, 0.2}, tokens: 7}
	cached, cache := newCached(t, inner)

	res, err := cached.Embed(context.Background(), "dragon lair")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
	if res.TotalTokens != 7 {
		t.Errorf("tokens = %d, want 7", res.TotalTokens)
	}
	if _, ok := cache.Get("dragon lair"); !ok {
		t.Error("result was not cached")
	}
}

func TestCachedEmbedder_HitSkipsInner(t *testing.T) {
	inner := &countingEmbedder{vec: []float32{0.1, 0.2}, tokens: 7}
	cached, _ := newCached(t, inner)

	ctx := context.Background()
	if _, err := cached.Embed(ctx, "dragon lair"); err != nil {
		t.Fatalf("first Embed: %v", err)
	}

	res, err := cached.Embed(ctx, "dragon lair")
	if err != nil {
		t.Fatalf("second Embed: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1 (hit must not delegate)", inner.calls)
	}
	if res.TotalTokens != 0 {
		t.Errorf("hit tokens = %d, want 0", res.TotalTokens)
	}
	if len(res.Embedding) != 2 {
		t.Errorf("hit embedding = %v", res.Embedding)
	}
}

func TestCachedEmbedder_NormalizedKeyHits(t *testing.T) {
	inner := &countingEmbedder{vec: []float32{0.5}}
	cached, _ := newCached(t, inner)

	ctx := context.Background()
	cached.Embed(ctx, "Dragon Lair")
	cached.Embed(ctx, "  dragon lair  ")

	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
}

func TestCachedEmbedder_ProviderErrorNotCached(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("rate limited")}
	cached, cache := newCached(t, inner)

	if _, err := cached.Embed(context.Background(), "q"); err == nil {
		t.Fatal("expected error")
	}
	if cache.Metrics().Size != 0 {
		t.Error("failed result must not be cached")
	}
}

func TestCachedEmbedder_EmptyVectorIsError(t *testing.T) {
	inner := &countingEmbedder{vec: nil}
	cached, cache := newCached(t, inner)

	_, err := cached.Embed(context.Background(), "q")
	if !errors.Is(err, domain.ErrEmptyEmbedding) {
		t.Fatalf("err = %v, want ErrEmptyEmbedding", err)
	}
	if cache.Metrics().Size != 0 {
		t.Error("empty vector must not be cached")
	}

	// A retry goes back to the provider, not the cache.
	cached.Embed(context.Background(), "q")
	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2", inner.calls)
	}
}
