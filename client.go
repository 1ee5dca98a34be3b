// Package lorebase is the embedded entry point for the hybrid search engine.
// It wires the store, the embedder chain, and the ranking services into a
// single Client, without the HTTP surface.
package lorebase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/greyhollow/lorebase/internal/db"
	dbRedis "github.com/greyhollow/lorebase/internal/db/redis"
	dbValkey "github.com/greyhollow/lorebase/internal/db/valkey"
	"github.com/greyhollow/lorebase/internal/domain"
	assetrepo "github.com/greyhollow/lorebase/internal/repository/asset"
	"github.com/greyhollow/lorebase/internal/repository/candidates"
	"github.com/greyhollow/lorebase/internal/repository/embcache"
	"github.com/greyhollow/lorebase/internal/repository/searchlog"
	assetuc "github.com/greyhollow/lorebase/internal/usecase/asset"
	searchuc "github.com/greyhollow/lorebase/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the lorebase embedded entry point.
type Client struct {
	store     db.Store
	searchSvc *searchuc.Service
	assetSvc  *assetuc.Service
}

// New creates a lorebase Client and connects to the store.
func New(opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("lorebase: store address required (use WithValkey or WithRedis)")
	}
	if cfg.vectorDimensions <= 0 {
		return nil, errors.New("lorebase: vector dimensions required (use WithVectorDimensions)")
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("lorebase: store not ready: %w", err)
	}

	client, err := wireClient(ctx, store, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return client, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey":
		s, err := dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("lorebase: create valkey store: %w", err)
		}
		return s, nil
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("lorebase: create redis store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("lorebase: unknown driver %q", cfg.driver)
	}
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig) (*Client, error) {
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var base domain.Embedder = &noopEmbedder{}
	if cfg.embedder != nil {
		base = &embedderAdapter{inner: cfg.embedder}
	}

	cache, err := embcache.NewCache(cfg.cacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("lorebase: create embedding cache: %w", err)
	}
	cached := embcache.New(base, cache, nil, logger)

	// Instruction wraps the cache so the cache key includes the instruction.
	queryEmbedder := withInstruction(cached, cfg.queryInstruction)
	docEmbedder := withInstruction(base, cfg.documentInstruction)

	assetRepo := assetrepo.New(store, cfg.vectorDimensions)
	if cfg.hnswM > 0 || cfg.hnswEFConstruct > 0 {
		assetRepo = assetRepo.WithHNSW(assetrepo.HNSWConfig{
			M:           cfg.hnswM,
			EFConstruct: cfg.hnswEFConstruct,
		})
	}
	if err := assetRepo.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("lorebase: ensure asset index: %w", err)
	}

	candRepo := candidates.New(store)

	var sampler *searchuc.Sampler
	if cfg.sampleRate > 0 {
		logStore := searchlog.New(store, cfg.logRetention)
		sampler = searchuc.NewSampler(candRepo, queryEmbedder, logStore, cfg.sampleRate, logger)
	}

	searchSvc := searchuc.New(candRepo, queryEmbedder, sampler)
	if cfg.rrfK > 0 {
		searchSvc = searchSvc.WithRRFK(cfg.rrfK)
	}
	assetSvc := assetuc.New(assetRepo, docEmbedder, nil)

	return &Client{
		store:     store,
		searchSvc: searchSvc,
		assetSvc:  assetSvc,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks store connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func withInstruction(inner domain.Embedder, instruction string) domain.Embedder {
	if instruction == "" {
		return inner
	}
	return domain.NewInstructionEmbedder(inner, instruction)
}

// embedderAdapter wraps the public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// noopEmbedder fails on use; it stands in when no embedder is configured
// so keyword-only deployments still work.
type noopEmbedder struct{}

func (noopEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, errors.New(
		"lorebase: embedder not configured (use WithEmbedder for semantic search)",
	)
}
