// Package asset persists campaign assets as indexed hashes.
package asset

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/greyhollow/lorebase/internal/db"
	"github.com/greyhollow/lorebase/internal/domain"
	domasset "github.com/greyhollow/lorebase/internal/domain/asset"
)

// titleWeight boosts title matches over detail matches in lexical scoring.
// This is index configuration, not a property of the ranking engine.
const titleWeight = 2.0

// store is the consumer interface for asset persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// HNSWConfig tunes the vector index build.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo implements asset persistence over the document store.
type Repo struct {
	store     store
	vectorDim int
	hnsw      HNSWConfig
}

// New creates an asset repository.
func New(s store, vectorDim int) *Repo {
	return &Repo{store: s, vectorDim: vectorDim}
}

// WithHNSW overrides HNSW build parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	r.hnsw = cfg
	return r
}

// EnsureIndex creates the shared asset FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, domain.AssetIndexName)
	if err != nil {
		return fmt.Errorf("check asset index: %w", err)
	}
	if exists {
		return nil
	}

	def := db.NewIndex(domain.AssetIndexName).
		Prefix(domain.AssetKeyPrefix).
		Tag("campaign_id").
		Tag("kind").
		TextWeighted("title", titleWeight).
		Text("detail").
		VectorHNSW("vector", r.vectorDim, db.DistanceCosine, r.hnsw.M, r.hnsw.EFConstruct).
		MustBuild()

	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create asset index: %w", err)
	}
	return nil
}

// Put stores an asset together with its embedding vector.
func (r *Repo) Put(ctx context.Context, a *domasset.Asset, vector []float32) error {
	if len(vector) != r.vectorDim {
		return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(vector), r.vectorDim)
	}

	fields := map[string]string{
		"campaign_id": a.CampaignID(),
		"kind":        string(a.Kind()),
		"title":       a.Title(),
		"detail":      a.Detail(),
		"vector":      vectorToBytes(vector),
	}
	if tags := a.Tags(); len(tags) > 0 {
		fields["tags"] = strings.Join(tags, ",")
	}

	key := domain.AssetKey(a.CampaignID(), a.ID())
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("put asset %s: %w", a.ID(), err)
	}
	return nil
}

// Get loads one asset by campaign and id.
func (r *Repo) Get(ctx context.Context, campaignID, assetID string) (domasset.Asset, error) {
	key := domain.AssetKey(campaignID, assetID)

	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domasset.Asset{}, fmt.Errorf("get asset %s: %w", assetID, err)
	}
	if len(fields) == 0 {
		return domasset.Asset{}, domain.ErrAssetNotFound
	}

	var tags []string
	if raw := fields["tags"]; raw != "" {
		tags = strings.Split(raw, ",")
	}

	return domasset.Reconstruct(
		assetID,
		campaignID,
		domasset.Kind(fields["kind"]),
		fields["title"],
		fields["detail"],
		tags,
	), nil
}

// Delete removes one asset. Missing assets report domain.ErrAssetNotFound.
func (r *Repo) Delete(ctx context.Context, campaignID, assetID string) error {
	key := domain.AssetKey(campaignID, assetID)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check asset %s: %w", assetID, err)
	}
	if !exists {
		return domain.ErrAssetNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("delete asset %s: %w", assetID, err)
	}
	return nil
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
