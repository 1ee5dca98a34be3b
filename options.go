package lorebase

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Embedder produces embedding vectors for text. Implement this to plug any
// provider into an embedded Client.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult is the outcome of one embedding call.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Option configures an embedded Client.
type Option func(*clientConfig)

type clientConfig struct {
	driver   string
	addrs    []string
	password string

	embedder            Embedder
	vectorDimensions    int
	queryInstruction    string
	documentInstruction string

	cacheCapacity   int
	rrfK            int
	hnswM           int
	hnswEFConstruct int

	sampleRate   float64
	logRetention time.Duration

	logger *zap.Logger
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		driver:        "valkey",
		cacheCapacity: 1000,
		logRetention:  30 * 24 * time.Hour,
	}
}

// WithValkey connects to a Valkey instance.
func WithValkey(addr, password string) Option {
	return func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithRedis connects to a Redis instance.
func WithRedis(addr, password string) Option {
	return func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithEmbedder sets the embedding provider. Without one, only keyword
// search is available.
func WithEmbedder(e Embedder) Option {
	return func(c *clientConfig) { c.embedder = e }
}

// WithVectorDimensions sets the embedding vector size. Required.
func WithVectorDimensions(dim int) Option {
	return func(c *clientConfig) { c.vectorDimensions = dim }
}

// WithQueryInstruction prepends instruction text to queries before embedding.
// Some models (bge, e5) score better with an asymmetric instruction prefix.
func WithQueryInstruction(instruction string) Option {
	return func(c *clientConfig) { c.queryInstruction = instruction }
}

// WithDocumentInstruction prepends instruction text to documents before embedding.
func WithDocumentInstruction(instruction string) Option {
	return func(c *clientConfig) { c.documentInstruction = instruction }
}

// WithCacheCapacity sets the embedding cache size in entries.
func WithCacheCapacity(n int) Option {
	return func(c *clientConfig) { c.cacheCapacity = n }
}

// WithRRFK overrides the reciprocal rank fusion smoothing constant.
func WithRRFK(k int) Option {
	return func(c *clientConfig) { c.rrfK = k }
}

// WithHNSW overrides HNSW vector index build parameters.
func WithHNSW(m, efConstruct int) Option {
	return func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	}
}

// WithQualitySampling enables the search quality log at the given sample
// rate. retention bounds how long records are kept; zero keeps the default.
func WithQualitySampling(rate float64, retention time.Duration) Option {
	return func(c *clientConfig) {
		c.sampleRate = rate
		if retention > 0 {
			c.logRetention = retention
		}
	}
}

// WithLogger sets the logger for internal diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}
