package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAssetNotFound signals a missing asset.
	ErrAssetNotFound = errors.New("asset not found")
	// ErrInvalidRequest signals a malformed search request, rejected before any I/O.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmptyEmbedding signals that the provider returned no vector for a query.
	ErrEmptyEmbedding = errors.New("empty embedding")
	// ErrSearchFailed is the generic failure surfaced to callers.
	// Store and provider detail stays in server-side logs.
	ErrSearchFailed = errors.New("search failed")
	// ErrNativeFusionNotSupported signals that the backend lacks server-side rank fusion.
	ErrNativeFusionNotSupported = errors.New("native fusion not supported by backend")
)
