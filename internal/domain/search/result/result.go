// Package result holds search hit value objects and timing telemetry.
package result

import (
	"time"

	"github.com/greyhollow/lorebase/internal/domain/asset"
	"github.com/greyhollow/lorebase/internal/domain/search/mode"
)

// Candidate is a single hit as returned by one retrieval primitive.
// The score scale is method-specific until normalized downstream.
type Candidate struct {
	id     string
	title  string
	kind   asset.Kind
	detail string
	score  float64
}

// NewCandidate creates a retrieval candidate.
func NewCandidate(id, title string, kind asset.Kind, detail string, score float64) Candidate {
	return Candidate{id: id, title: title, kind: kind, detail: detail, score: score}
}

// ID returns the asset identifier.
func (c *Candidate) ID() string { return c.id }

// Title returns the asset title.
func (c *Candidate) Title() string { return c.title }

// Kind returns the asset kind.
func (c *Candidate) Kind() asset.Kind { return c.kind }

// Detail returns the asset body text.
func (c *Candidate) Detail() string { return c.detail }

// Score returns the method-native relevance score.
func (c *Candidate) Score() float64 { return c.score }

// WithScore returns a copy of the candidate with a replaced score.
func (c Candidate) WithScore(score float64) Candidate {
	c.score = score
	return c
}

// Result is a candidate promoted to a caller-facing hit: its score is on
// the canonical [0,1] scale and it carries the mode that produced it.
type Result struct {
	Candidate
	searchMode mode.Mode
}

// NewResult creates a ranked result.
func NewResult(c Candidate, score float64, m mode.Mode) Result {
	c.score = score
	return Result{Candidate: c, searchMode: m}
}

// Mode returns the search mode that produced this result.
func (r *Result) Mode() mode.Mode { return r.searchMode }

// Timings is the per-stage latency breakdown of one search request.
type Timings struct {
	Total        time.Duration
	Embedding    time.Duration
	VectorSearch time.Duration
	TextSearch   time.Duration
	Fusion       time.Duration
	Conversion   time.Duration
}
