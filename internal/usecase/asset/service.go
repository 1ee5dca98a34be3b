// Package asset implements campaign asset management: embedding on write,
// lookup, and removal.
package asset

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/greyhollow/lorebase/internal/domain"
	domasset "github.com/greyhollow/lorebase/internal/domain/asset"
	"github.com/greyhollow/lorebase/internal/logger"
)

// Service embeds assets on write so the search index is always current.
// There is no separate ingestion pipeline; an asset is searchable the moment
// Upsert returns.
type Service struct {
	repo  Repository
	embed Embedder
	batch BatchEmbedder
}

// New creates an asset service. batch may be nil; bulk imports then embed
// one asset at a time.
func New(repo Repository, embed Embedder, batch BatchEmbedder) *Service {
	return &Service{repo: repo, embed: embed, batch: batch}
}

// Upsert embeds and stores one asset, overwriting any previous version.
func (s *Service) Upsert(ctx context.Context, a *domasset.Asset) error {
	embRes, err := s.embed.Embed(ctx, a.EmbeddingText())
	if err != nil {
		return fmt.Errorf("embed asset %s: %w", a.ID(), err)
	}
	if len(embRes.Embedding) == 0 {
		return fmt.Errorf("embed asset %s: %w", a.ID(), domain.ErrEmptyEmbedding)
	}

	if err := s.repo.Put(ctx, a, embRes.Embedding); err != nil {
		return fmt.Errorf("store asset %s: %w", a.ID(), err)
	}
	return nil
}

// BulkImport embeds and stores a batch of assets. Embedding happens in a
// single provider call when a batch embedder is configured. Storage failures
// stop the import; assets stored before the failure remain stored.
func (s *Service) BulkImport(ctx context.Context, assets []domasset.Asset) (int, error) {
	if len(assets) == 0 {
		return 0, nil
	}
	if s.batch == nil {
		return s.importOneByOne(ctx, assets)
	}

	texts := make([]string, len(assets))
	for i := range assets {
		texts[i] = assets[i].EmbeddingText()
	}

	batchRes, err := s.batch.BatchEmbed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("batch embed %d assets: %w", len(assets), err)
	}
	if len(batchRes.Embeddings) != len(assets) {
		return 0, fmt.Errorf("batch embed returned %d vectors for %d assets: %w",
			len(batchRes.Embeddings), len(assets), domain.ErrEmbeddingProviderError)
	}

	logger.FromContext(ctx).Info("bulk import embedded",
		zap.Int("assets", len(assets)),
		zap.Int("total_tokens", batchRes.TotalTokens),
	)

	for i := range assets {
		if err := s.repo.Put(ctx, &assets[i], batchRes.Embeddings[i]); err != nil {
			return i, fmt.Errorf("store asset %s: %w", assets[i].ID(), err)
		}
	}
	return len(assets), nil
}

func (s *Service) importOneByOne(ctx context.Context, assets []domasset.Asset) (int, error) {
	for i := range assets {
		if err := s.Upsert(ctx, &assets[i]); err != nil {
			return i, err
		}
	}
	return len(assets), nil
}

// Get loads one asset.
func (s *Service) Get(ctx context.Context, campaignID, assetID string) (domasset.Asset, error) {
	a, err := s.repo.Get(ctx, campaignID, assetID)
	if err != nil {
		return domasset.Asset{}, fmt.Errorf("get asset %s: %w", assetID, err)
	}
	return a, nil
}

// Delete removes one asset from the store and the search index.
func (s *Service) Delete(ctx context.Context, campaignID, assetID string) error {
	if err := s.repo.Delete(ctx, campaignID, assetID); err != nil {
		return fmt.Errorf("delete asset %s: %w", assetID, err)
	}
	return nil
}
