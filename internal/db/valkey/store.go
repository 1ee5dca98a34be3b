// Package valkey implements db.Store for Valkey with valkey-search: the
// separate-primitives tier. The FT.SEARCH dialect matches Redis for the
// commands Valkey supports, so the command plumbing is shared with the redis
// package; Valkey has no FT.HYBRID, so hybrid searches are fused client-side.
package valkey

import (
	"context"
	"fmt"

	"github.com/greyhollow/lorebase/internal/db"
	"github.com/greyhollow/lorebase/internal/db/redis"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config holds connection parameters for a Valkey store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
}

// Store implements db.Store via rueidis for Valkey.
type Store struct {
	*redis.Store
}

// NewStore creates a Valkey store.
func NewStore(cfg Config) (*Store, error) {
	inner, err := redis.NewStore(redis.Config(cfg))
	if err != nil {
		return nil, fmt.Errorf("valkey store: %w", err)
	}
	return &Store{Store: inner}, nil
}

// SupportsNativeFusion reports false: Valkey has no server-side rank fusion.
func (s *Store) SupportsNativeFusion(_ context.Context) bool {
	return false
}

// SearchHybrid always fails on Valkey; callers must fuse client-side.
func (s *Store) SearchHybrid(_ context.Context, _ *db.HybridQuery) (*db.SearchResult, error) {
	return nil, db.ErrHybridNotSupported
}
