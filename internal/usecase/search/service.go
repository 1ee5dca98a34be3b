// Package search implements the hybrid search and ranking engine: mode
// selection, retrieval orchestration, rank fusion, score normalization, and
// quality sampling.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/greyhollow/lorebase/internal/domain"
	"github.com/greyhollow/lorebase/internal/domain/search/mode"
	"github.com/greyhollow/lorebase/internal/domain/search/request"
	"github.com/greyhollow/lorebase/internal/domain/search/result"
	"github.com/greyhollow/lorebase/internal/logger"
	"github.com/greyhollow/lorebase/internal/metrics"
)

// Response is the caller-facing search outcome. Mode always reflects what
// actually executed, including any capability-driven selection.
type Response struct {
	Results []result.Result
	Mode    mode.Mode
	Timings result.Timings
}

// Service orchestrates a search request through mode selection, embedding,
// retrieval, fusion, and final filtering.
type Service struct {
	retriever Retriever
	embed     Embedder
	sampler   *Sampler
	rrfK      int
}

// New creates a search service. sampler may be nil to disable quality
// sampling entirely.
func New(retriever Retriever, embed Embedder, sampler *Sampler) *Service {
	return &Service{
		retriever: retriever,
		embed:     embed,
		sampler:   sampler,
		rrfK:      DefaultRRFK,
	}
}

// WithRRFK overrides the fusion constant.
func (s *Service) WithRRFK(k int) *Service {
	if k > 0 {
		s.rrfK = k
	}
	return s
}

// Search executes one request: ModeSelect -> EmbedIfNeeded -> Retrieve ->
// [Fuse] -> FilterByMinScore -> Truncate. Quality sampling runs detached
// afterwards and never affects the returned response.
func (s *Service) Search(ctx context.Context, req *request.Request) (*Response, error) {
	started := time.Now()

	m := mode.Select(req.HasQuery(), req.HasKeywords(), s.retriever.SupportsNativeFusion(ctx))

	resp, err := s.execute(ctx, req, m)

	metrics.ObserveSearch(string(m), err, time.Since(started))
	if err != nil {
		logger.FromContext(ctx).Error("search failed",
			zap.String("mode", string(m)),
			zap.String("campaign_id", req.CampaignID()),
			zap.String("kind", string(req.Kind())),
			zap.Bool("has_query", req.HasQuery()),
			zap.Bool("has_keywords", req.HasKeywords()),
			zap.Error(err),
		)
		return nil, err
	}

	resp.Timings.Total = time.Since(started)
	metrics.SearchResultsReturned.WithLabelValues(string(m)).Observe(float64(len(resp.Results)))

	if s.sampler != nil {
		s.sampler.MaybeSample(req, resp)
	}

	return resp, nil
}

func (s *Service) execute(ctx context.Context, req *request.Request, m mode.Mode) (*Response, error) {
	var timings result.Timings

	// A mode that needs a vector treats an empty embedding as a hard
	// failure; the engine never silently degrades to text-only.
	var vector []float32
	if m.NeedsVector() {
		embedStart := time.Now()
		embRes, err := s.embed.Embed(ctx, req.Query())
		timings.Embedding = time.Since(embedStart)
		if err != nil {
			return nil, fmt.Errorf("vectorize query: %w", err)
		}
		if len(embRes.Embedding) == 0 {
			return nil, fmt.Errorf("vectorize query: %w", domain.ErrEmptyEmbedding)
		}
		vector = embRes.Embedding
	}

	var results []result.Result
	var err error

	switch m {
	case mode.VectorOnly:
		results, err = s.runVector(ctx, req, vector, &timings)
	case mode.TextOnly:
		results, err = s.runText(ctx, req, &timings)
	case mode.ManualHybrid:
		results, err = s.runManualHybrid(ctx, req, vector, &timings)
	case mode.NativeHybrid:
		results, err = s.runNativeHybrid(ctx, req, vector, &timings)
	default:
		return nil, fmt.Errorf("unsupported search mode: %s", m)
	}
	if err != nil {
		return nil, err
	}

	// Min-score filtering happens after fusion and normalization so the
	// threshold has the same meaning in every mode.
	filtered := results[:0]
	for _, r := range results {
		if r.Score() >= req.MinScore() {
			filtered = append(filtered, r)
		}
	}
	results = filtered

	if len(results) > req.Limit() {
		results = results[:req.Limit()]
	}

	return &Response{Results: results, Mode: m, Timings: timings}, nil
}

func (s *Service) runVector(
	ctx context.Context, req *request.Request, vector []float32, timings *result.Timings,
) ([]result.Result, error) {
	start := time.Now()
	cands, err := s.retriever.RetrieveVector(ctx, vector, req.CampaignID(), req.Kind(), req.Limit())
	timings.VectorSearch = time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("vector retrieval: %w", err)
	}

	convStart := time.Now()
	results := toResults(cands, mode.VectorOnly)
	timings.Conversion = time.Since(convStart)
	return results, nil
}

func (s *Service) runText(
	ctx context.Context, req *request.Request, timings *result.Timings,
) ([]result.Result, error) {
	start := time.Now()
	cands, err := s.retriever.RetrieveText(ctx, req.Keywords(), req.CampaignID(), req.Kind(), req.Limit())
	timings.TextSearch = time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("text retrieval: %w", err)
	}

	convStart := time.Now()
	results := toResults(cands, mode.TextOnly)
	timings.Conversion = time.Since(convStart)
	return results, nil
}

// runManualHybrid executes both retrievals concurrently, joins on both, and
// fuses client-side. A failure on either side fails the whole request;
// partial fusion is not a supported degraded mode.
func (s *Service) runManualHybrid(
	ctx context.Context, req *request.Request, vector []float32, timings *result.Timings,
) ([]result.Result, error) {
	var vectorList, textList []result.Candidate

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		start := time.Now()
		cands, err := s.retriever.RetrieveVector(gctx, vector, req.CampaignID(), req.Kind(), req.Limit())
		timings.VectorSearch = time.Since(start)
		if err != nil {
			return fmt.Errorf("vector retrieval: %w", err)
		}
		vectorList = cands
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		cands, err := s.retriever.RetrieveText(gctx, req.Keywords(), req.CampaignID(), req.Kind(), req.Limit())
		timings.TextSearch = time.Since(start)
		if err != nil {
			return fmt.Errorf("text retrieval: %w", err)
		}
		textList = cands
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	fuseStart := time.Now()
	entries := fuseRRF(vectorList, textList, s.rrfK)
	timings.Fusion = time.Since(fuseStart)

	convStart := time.Now()
	results := normalize(entries, mode.ManualHybrid)
	timings.Conversion = time.Since(convStart)
	return results, nil
}

// runNativeHybrid delegates retrieval and fusion to the store and only
// reshapes the opaque-scored result onto the canonical scale.
func (s *Service) runNativeHybrid(
	ctx context.Context, req *request.Request, vector []float32, timings *result.Timings,
) ([]result.Result, error) {
	start := time.Now()
	cands, err := s.retriever.RetrieveFused(
		ctx, vector, req.Keywords(), req.CampaignID(), req.Kind(), req.Limit(),
	)
	elapsed := time.Since(start)
	// One store call serves both sub-rankings; split the time evenly so
	// the timing schema stays consistent across modes.
	timings.VectorSearch = elapsed / 2
	timings.TextSearch = elapsed / 2
	if err != nil {
		return nil, fmt.Errorf("fused retrieval: %w", err)
	}

	convStart := time.Now()
	results := normalizeCandidates(cands, mode.NativeHybrid)
	timings.Conversion = time.Since(convStart)
	return results, nil
}

// toResults promotes single-retrieval candidates, whose scores are already
// canonical, into ranked results.
func toResults(cands []result.Candidate, m mode.Mode) []result.Result {
	out := make([]result.Result, len(cands))
	for i := range cands {
		out[i] = result.NewResult(cands[i], cands[i].Score(), m)
	}
	return out
}
