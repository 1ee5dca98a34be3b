package lorebase

import (
	"context"
	"fmt"
	"time"

	"github.com/greyhollow/lorebase/internal/domain/asset"
	"github.com/greyhollow/lorebase/internal/domain/search/request"
)

// SearchQuery describes one search over a campaign's assets. At least one
// of Query and Keywords must be set; providing both runs hybrid retrieval.
type SearchQuery struct {
	// Query is free text for semantic (vector) retrieval.
	Query string
	// Keywords is lexical text for full-text retrieval.
	Keywords string
	// Kind restricts results to one asset kind. Empty means all kinds.
	Kind string
	// Limit caps the result count. Zero takes the default.
	Limit int
	// MinScore drops results below this canonical score. Negative takes
	// the default threshold; zero disables filtering.
	MinScore float64
}

// SearchResult is one ranked hit. Score is on the canonical [0,1] scale.
type SearchResult struct {
	ID     string
	Title  string
	Kind   string
	Detail string
	Score  float64
}

// SearchResponse is the outcome of one search.
type SearchResponse struct {
	Results []SearchResult
	// Mode is the retrieval strategy that served the request
	// (vector_only, text_only, manual_hybrid, native_hybrid).
	Mode string
	// Took is the total engine-side latency.
	Took time.Duration
}

// Search executes a hybrid search over one campaign.
func (c *Client) Search(ctx context.Context, campaignID string, q SearchQuery) (*SearchResponse, error) {
	req, err := request.New(
		q.Query, q.Keywords, campaignID, asset.Kind(q.Kind), q.Limit, q.MinScore,
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	resp, err := c.searchSvc.Search(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	out := make([]SearchResult, len(resp.Results))
	for i := range resp.Results {
		r := &resp.Results[i]
		out[i] = SearchResult{
			ID:     r.ID(),
			Title:  r.Title(),
			Kind:   string(r.Kind()),
			Detail: r.Detail(),
			Score:  r.Score(),
		}
	}

	return &SearchResponse{
		Results: out,
		Mode:    string(resp.Mode),
		Took:    resp.Timings.Total,
	}, nil
}
