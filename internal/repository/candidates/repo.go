// Package candidates adapts the store's search primitives into ordered
// candidate lists for the ranking engine.
package candidates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/greyhollow/lorebase/internal/db"
	"github.com/greyhollow/lorebase/internal/domain"
	"github.com/greyhollow/lorebase/internal/domain/asset"
	"github.com/greyhollow/lorebase/internal/domain/search/result"
)

// overqueryFactor requests more candidates than the caller's final limit so
// the fusion and min-score stages have enough material to work with.
const overqueryFactor = 5

// returnFields are the hash fields fetched per hit.
var returnFields = []string{"title", "kind", "detail"}

// store is the consumer interface for retrieval operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchHybrid(ctx context.Context, q *db.HybridQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
	SupportsNativeFusion(ctx context.Context) bool
}

// Repo implements the search usecase's Retriever contract.
type Repo struct {
	store store
}

// New creates a candidate retriever.
func New(s store) *Repo {
	return &Repo{store: s}
}

// SupportsNativeFusion proxies the capability check from the store.
func (r *Repo) SupportsNativeFusion(ctx context.Context) bool {
	return r.store.SupportsNativeFusion(ctx)
}

// RetrieveVector runs a KNN search and returns candidates ordered by
// descending similarity. Similarity scores arrive from the store in [0,1].
func (r *Repo) RetrieveVector(
	ctx context.Context, vector []float32, campaignID string, kind asset.Kind, limit int,
) ([]result.Candidate, error) {
	q := &db.KNNQuery{
		IndexName:    domain.AssetIndexName,
		Scope:        scope(campaignID, kind),
		Vector:       vector,
		K:            limit * overqueryFactor,
		ReturnFields: returnFields,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", campaignID, err)
	}

	return parseCandidates(sr, campaignID), nil
}

// RetrieveText runs a lexical search and returns candidates ordered by
// descending relevance. The unbounded BM25 score is mapped into (0,1) via
// the asymptotic transform s/(s+1), which preserves rank order.
func (r *Repo) RetrieveText(
	ctx context.Context, keywords, campaignID string, kind asset.Kind, limit int,
) ([]result.Candidate, error) {
	q := &db.TextQuery{
		IndexName:    domain.AssetIndexName,
		Query:        keywords,
		Scope:        scope(campaignID, kind),
		TopK:         limit * overqueryFactor,
		ReturnFields: returnFields,
	}

	sr, err := r.store.SearchText(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search text %s: %w", campaignID, err)
	}

	out := parseCandidates(sr, campaignID)
	for i := range out {
		s := out[i].Score()
		out[i] = out[i].WithScore(s / (s + 1))
	}
	return out, nil
}

// RetrieveFused runs retrieval and fusion store-side with an even weight
// split. Scores are opaque until the engine normalizes them.
func (r *Repo) RetrieveFused(
	ctx context.Context, vector []float32, keywords, campaignID string, kind asset.Kind, limit int,
) ([]result.Candidate, error) {
	q := &db.HybridQuery{
		IndexName:    domain.AssetIndexName,
		Vector:       vector,
		Query:        keywords,
		Scope:        scope(campaignID, kind),
		TopK:         limit * overqueryFactor,
		ReturnFields: returnFields,
	}

	sr, err := r.store.SearchHybrid(ctx, q)
	if err != nil {
		if errors.Is(err, db.ErrHybridNotSupported) {
			return nil, domain.ErrNativeFusionNotSupported
		}
		return nil, fmt.Errorf("search hybrid %s: %w", campaignID, err)
	}

	return parseCandidates(sr, campaignID), nil
}

// CountInScope returns the total number of assets visible to a search scope.
func (r *Repo) CountInScope(ctx context.Context, campaignID string, kind asset.Kind) (int, error) {
	query := db.ScopeFilter(scope(campaignID, kind))
	n, err := r.store.SearchCount(ctx, domain.AssetIndexName, query)
	if err != nil {
		return 0, fmt.Errorf("count in scope %s: %w", campaignID, err)
	}
	return n, nil
}

func scope(campaignID string, kind asset.Kind) db.Scope {
	return db.Scope{CampaignID: campaignID, Kind: string(kind)}
}

// parseCandidates converts db.SearchResult entries into ordered candidates.
func parseCandidates(sr *db.SearchResult, campaignID string) []result.Candidate {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}

	prefix := domain.AssetKeyPrefix + campaignID + ":"
	out := make([]result.Candidate, 0, len(sr.Entries))

	for _, entry := range sr.Entries {
		id := strings.TrimPrefix(entry.Key, prefix)
		out = append(out, result.NewCandidate(
			id,
			entry.Fields["title"],
			asset.Kind(entry.Fields["kind"]),
			entry.Fields["detail"],
			entry.Score,
		))
	}

	return out
}
