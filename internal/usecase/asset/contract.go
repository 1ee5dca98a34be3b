package asset

import (
	"context"

	"github.com/greyhollow/lorebase/internal/domain"
	domasset "github.com/greyhollow/lorebase/internal/domain/asset"
)

// Repository is the persistence contract for campaign assets.
type Repository interface {
	Put(ctx context.Context, a *domasset.Asset, vector []float32) error
	Get(ctx context.Context, campaignID, assetID string) (domasset.Asset, error)
	Delete(ctx context.Context, campaignID, assetID string) error
}

// Embedder vectorizes asset text for indexing.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// BatchEmbedder vectorizes several assets in one provider call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
