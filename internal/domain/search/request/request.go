// Package request holds the validated search request value object.
package request

import (
	"fmt"
	"strings"

	"github.com/greyhollow/lorebase/internal/domain"
	"github.com/greyhollow/lorebase/internal/domain/asset"
)

// Search parameter limits.
const (
	MaxQueryLength  = 4096
	DefaultLimit    = 10
	MaxLimit        = 100
	DefaultMinScore = 0.7
)

// Request is a validated search request. At least one of the free-text
// query and the keyword query is always present.
type Request struct {
	query      string
	keywords   string
	campaignID string
	kind       asset.Kind
	limit      int
	minScore   float64
}

// New validates and normalizes search parameters.
// limit <= 0 takes the default; minScore < 0 takes the default.
func New(query, keywords, campaignID string, kind asset.Kind, limit int, minScore float64) (Request, error) {
	query = strings.TrimSpace(query)
	keywords = strings.TrimSpace(keywords)

	if query == "" && keywords == "" {
		return Request{}, fmt.Errorf("%w: either query or keywords is required", domain.ErrInvalidRequest)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidRequest, MaxQueryLength)
	}
	if len(keywords) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: keywords too long (max %d chars)", domain.ErrInvalidRequest, MaxQueryLength)
	}
	if campaignID == "" {
		return Request{}, fmt.Errorf("%w: campaign id is required", domain.ErrInvalidRequest)
	}
	if kind != "" && !kind.IsValid() {
		return Request{}, fmt.Errorf("%w: invalid asset kind %q", domain.ErrInvalidRequest, kind)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		return Request{}, fmt.Errorf("%w: limit must be at most %d", domain.ErrInvalidRequest, MaxLimit)
	}
	if minScore < 0 {
		minScore = DefaultMinScore
	}
	if minScore > 1 {
		return Request{}, fmt.Errorf("%w: min_score must be between 0 and 1", domain.ErrInvalidRequest)
	}

	return Request{
		query:      query,
		keywords:   keywords,
		campaignID: campaignID,
		kind:       kind,
		limit:      limit,
		minScore:   minScore,
	}, nil
}

// Query returns the free-text query.
func (r *Request) Query() string { return r.query }

// Keywords returns the keyword query.
func (r *Request) Keywords() string { return r.keywords }

// CampaignID returns the campaign scope.
func (r *Request) CampaignID() string { return r.campaignID }

// Kind returns the asset kind filter ("" means all kinds).
func (r *Request) Kind() asset.Kind { return r.kind }

// Limit returns the maximum results to return.
func (r *Request) Limit() int { return r.limit }

// MinScore returns the canonical-score threshold.
func (r *Request) MinScore() float64 { return r.minScore }

// HasQuery reports whether a free-text query is present.
func (r *Request) HasQuery() bool { return r.query != "" }

// HasKeywords reports whether a keyword query is present.
func (r *Request) HasKeywords() bool { return r.keywords != "" }
