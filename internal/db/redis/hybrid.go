package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/greyhollow/lorebase/internal/db"
)

// SupportsNativeFusion reports true: Redis 8.2+ ships FT.HYBRID with
// server-side rank combination.
func (s *Store) SupportsNativeFusion(_ context.Context) bool {
	return true
}

// SearchHybrid runs retrieval and fusion in a single FT.HYBRID call.
// The combined score scale is treated as opaque by callers.
func (s *Store) SearchHybrid(ctx context.Context, q *db.HybridQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if q.TopK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}

	scope := db.ScopeFilter(q.Scope)

	args := []string{
		q.IndexName,
		"SEARCH", fmt.Sprintf("%s %s", scope, db.TextClause(q.Query)),
		"VSIM", "@vector", "$BLOB",
		"FILTER", scope,
	}

	// Even split unless the caller declared weights.
	vw, tw := q.VectorWeight, q.TextWeight
	if vw <= 0 && tw <= 0 {
		vw, tw = 0.5, 0.5
	}
	args = append(args,
		"COMBINE", "LINEAR", "4",
		"ALPHA", strconv.FormatFloat(vw, 'g', -1, 64),
		"BETA", strconv.FormatFloat(tw, 'g', -1, 64),
	)

	if len(q.ReturnFields) > 0 {
		args = append(args, "LOAD", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}

	args = append(args,
		"WITHSCORES",
		"LIMIT", "0", strconv.Itoa(q.TopK),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.HYBRID").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown command") {
			return nil, db.ErrHybridNotSupported
		}
		return nil, &db.Error{Op: db.OpHybrid, Err: err}
	}

	return parseScoredResult(raw)
}
