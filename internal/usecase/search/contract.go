package search

import (
	"context"

	"github.com/greyhollow/lorebase/internal/domain"
	"github.com/greyhollow/lorebase/internal/domain/asset"
	"github.com/greyhollow/lorebase/internal/domain/search/result"
	"github.com/greyhollow/lorebase/internal/repository/searchlog"
)

// Retriever defines the retrieval contract for search operations.
// Each method returns candidates ordered by descending relevance; vector and
// text scores are already on a (0,1] scale, fused scores are opaque until
// normalized.
type Retriever interface {
	RetrieveVector(
		ctx context.Context, vector []float32,
		campaignID string, kind asset.Kind, limit int,
	) ([]result.Candidate, error)

	RetrieveText(
		ctx context.Context, keywords string,
		campaignID string, kind asset.Kind, limit int,
	) ([]result.Candidate, error)

	RetrieveFused(
		ctx context.Context, vector []float32, keywords string,
		campaignID string, kind asset.Kind, limit int,
	) ([]result.Candidate, error)

	CountInScope(ctx context.Context, campaignID string, kind asset.Kind) (int, error)

	SupportsNativeFusion(ctx context.Context) bool
}

// Embedder vectorizes query text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// MetricsSink appends search quality records, best-effort.
type MetricsSink interface {
	Append(ctx context.Context, rec *searchlog.Record) error
}
