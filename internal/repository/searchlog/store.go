// Package searchlog persists search quality records as an append-only,
// best-effort log in the document store.
package searchlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/greyhollow/lorebase/internal/domain"
)

var keyPrefix = domain.KeyPrefix + "searchlog:"

// Record is one durable search quality observation. Written once, never
// mutated. Query text and expanded scores are present only for sampled
// requests.
type Record struct {
	ID          string    `json:"id"`
	RecordedAt  time.Time `json:"recorded_at"`
	CampaignID  string    `json:"campaign_id"`
	Mode        string    `json:"mode"`
	ResultCount int       `json:"result_count"`
	Scores      []float64 `json:"scores"`
	Limit       int       `json:"limit"`
	MinScore    float64   `json:"min_score"`

	TotalMS        float64 `json:"total_ms"`
	EmbeddingMS    float64 `json:"embedding_ms"`
	VectorSearchMS float64 `json:"vector_search_ms"`
	TextSearchMS   float64 `json:"text_search_ms"`
	FusionMS       float64 `json:"fusion_ms"`
	ConversionMS   float64 `json:"conversion_ms"`

	Sampled        bool      `json:"sampled"`
	Query          string    `json:"query,omitempty"`
	Keywords       string    `json:"keywords,omitempty"`
	ExpandedCount  int       `json:"expanded_count,omitempty"`
	ExpandedScores []float64 `json:"expanded_scores,omitempty"`
	ScopeTotal     int       `json:"scope_total,omitempty"`
}

// store is the consumer interface for the quality log (ISP).
type store interface {
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Store appends quality records with a retention TTL.
type Store struct {
	store     store
	retention time.Duration
}

// New creates a search log store. retention bounds how long records are kept.
func New(s store, retention time.Duration) *Store {
	return &Store{store: s, retention: retention}
}

// Append writes one record. The record's ID and timestamp are assigned here
// when unset.
func (s *Store) Append(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal search log record: %w", err)
	}

	if err := s.store.SetWithTTL(ctx, keyPrefix+rec.ID, data, s.retention); err != nil {
		return fmt.Errorf("append search log record: %w", err)
	}
	return nil
}
