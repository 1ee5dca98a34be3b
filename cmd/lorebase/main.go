package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/greyhollow/lorebase/internal/config"
	"github.com/greyhollow/lorebase/internal/db"
	dbRedis "github.com/greyhollow/lorebase/internal/db/redis"
	dbValkey "github.com/greyhollow/lorebase/internal/db/valkey"
	"github.com/greyhollow/lorebase/internal/domain"
	logpkg "github.com/greyhollow/lorebase/internal/logger"
	"github.com/greyhollow/lorebase/internal/metrics"
	assetrepo "github.com/greyhollow/lorebase/internal/repository/asset"
	"github.com/greyhollow/lorebase/internal/repository/candidates"
	"github.com/greyhollow/lorebase/internal/repository/embcache"
	"github.com/greyhollow/lorebase/internal/repository/searchlog"
	chiTransport "github.com/greyhollow/lorebase/internal/transport/chi"
	openaiEmb "github.com/greyhollow/lorebase/internal/transport/openai"
	assetuc "github.com/greyhollow/lorebase/internal/usecase/asset"
	healthuc "github.com/greyhollow/lorebase/internal/usecase/health"
	searchuc "github.com/greyhollow/lorebase/internal/usecase/search"
	"github.com/greyhollow/lorebase/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting lorebase API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	var store db.Store
	switch cfg.Database.Driver {
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	case "valkey":
		store, err = dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Store not ready", zap.Error(err))
	}
	logger.Info("Connected to store",
		zap.Bool("native_fusion", store.SupportsNativeFusion(ctx)),
	)

	metrics.Register()

	// Embedder chain.
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	cache, err := embcache.NewCache(cfg.Search.CacheCapacity)
	if err != nil {
		logger.Fatal("Failed to create embedding cache", zap.Error(err))
	}
	cache.OnEvict(metrics.EmbeddingCacheEvictionsTotal.Inc)

	cached := embcache.New(base, cache, metrics.EmbeddingCacheTotal, logger)

	// Instruction wraps the cache so the cache key includes the instruction.
	queryEmbedder := withInstruction(cached, cfg.Embedding.QueryInstruction)
	docEmbedder := withInstruction(base, cfg.Embedding.DocumentInstruction)

	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Int("cache_capacity", cfg.Search.CacheCapacity),
	)

	// Repositories.
	assetRepo := assetrepo.New(store, cfg.Embedding.Dimensions).WithHNSW(assetrepo.HNSWConfig{
		M:           cfg.Search.HNSWM,
		EFConstruct: cfg.Search.HNSWEFConstruct,
	})
	if err := assetRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure asset index", zap.Error(err))
	}

	candRepo := candidates.New(store)
	logStore := searchlog.New(store, time.Duration(cfg.Search.LogRetentionDays)*24*time.Hour)

	// Use case services.
	sampler := searchuc.NewSampler(candRepo, queryEmbedder, logStore, cfg.Search.SampleRate, logger).
		WithExpandedLimit(cfg.Search.ExpandedLimit)
	searchSvc := searchuc.New(candRepo, queryEmbedder, sampler).WithRRFK(cfg.Search.RRFK)
	assetSvc := assetuc.New(assetRepo, docEmbedder, base)
	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(base))

	server := chiTransport.NewServer(searchSvc, assetSvc, healthSvc, logger)
	handler := server.Router(cfg.Auth.APIKeys)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func withInstruction(inner domain.Embedder, instruction string) domain.Embedder {
	if instruction == "" {
		return inner
	}
	return domain.NewInstructionEmbedder(inner, instruction)
}

// embeddingHealthChecker adapts domain.HealthChecker to health.EmbeddingChecker.
type embeddingHealthChecker struct {
	checker domain.HealthChecker
}

func newEmbeddingHealthChecker(checker domain.HealthChecker) *embeddingHealthChecker {
	return &embeddingHealthChecker{checker: checker}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if err := h.checker.HealthCheck(ctx); err != nil {
		return fmt.Errorf("embedding health check: %w", err)
	}
	return nil
}
