package search

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/greyhollow/lorebase/internal/domain/search/mode"
	"github.com/greyhollow/lorebase/internal/domain/search/request"
	"github.com/greyhollow/lorebase/internal/domain/search/result"
	"github.com/greyhollow/lorebase/internal/logger"
	"github.com/greyhollow/lorebase/internal/repository/searchlog"
)

// Sampling defaults.
const (
	DefaultSampleRate    = 0.05
	DefaultExpandedLimit = 200

	sampleTimeout = 10 * time.Second
)

// Sampler records search quality observations. Every request yields a base
// record; a Bernoulli draw decides whether the request is additionally
// deep-sampled with an expanded retrieval run. All of it happens on a
// detached goroutine and can never fail the search that triggered it.
type Sampler struct {
	retriever Retriever
	embed     Embedder
	sink      MetricsSink
	log       *zap.Logger

	rate          float64
	expandedLimit int
}

// NewSampler creates a quality sampler. rate is clamped to [0, 1];
// expandedLimit <= 0 takes the default.
func NewSampler(retriever Retriever, embed Embedder, sink MetricsSink, rate float64, log *zap.Logger) *Sampler {
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	return &Sampler{
		retriever:     retriever,
		embed:         embed,
		sink:          sink,
		log:           log,
		rate:          rate,
		expandedLimit: DefaultExpandedLimit,
	}
}

// WithExpandedLimit overrides how many candidates a deep sample retrieves.
func (s *Sampler) WithExpandedLimit(limit int) *Sampler {
	if limit > 0 {
		s.expandedLimit = limit
	}
	return s
}

// MaybeSample records the observation for one completed search. The draw
// happens synchronously so tests can pin rate 0 and 1; everything else runs
// detached from the request lifecycle.
func (s *Sampler) MaybeSample(req *request.Request, resp *Response) {
	rec := s.baseRecord(req, resp)
	sampled := rand.Float64() < s.rate

	go s.record(rec, req, resp.Mode, sampled)
}

func (s *Sampler) record(rec *searchlog.Record, req *request.Request, m mode.Mode, sampled bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("search sampling panicked", zap.Any("panic", r))
		}
	}()

	// The originating request context may already be cancelled; sampling
	// gets its own deadline.
	ctx, cancel := context.WithTimeout(context.Background(), sampleTimeout)
	defer cancel()
	ctx = logger.WithContext(ctx, s.log)

	if sampled {
		rec.Sampled = true
		rec.Query = req.Query()
		rec.Keywords = req.Keywords()
		s.deepSample(ctx, rec, req, m)
	}

	if err := s.sink.Append(ctx, rec); err != nil {
		s.log.Warn("search quality record dropped",
			zap.String("campaign_id", rec.CampaignID),
			zap.String("mode", rec.Mode),
			zap.Error(err),
		)
	}
}

// deepSample re-runs retrieval with an expanded limit to observe the score
// distribution beyond the caller's cut-off, plus the total scope size.
// Each probe is best-effort; a failed probe just leaves its fields zero.
func (s *Sampler) deepSample(ctx context.Context, rec *searchlog.Record, req *request.Request, m mode.Mode) {
	cands, err := s.expandedRetrieve(ctx, req, m)
	if err != nil {
		s.log.Warn("expanded sample retrieval failed",
			zap.String("campaign_id", req.CampaignID()),
			zap.String("mode", string(m)),
			zap.Error(err),
		)
	} else {
		rec.ExpandedCount = len(cands)
		rec.ExpandedScores = make([]float64, len(cands))
		for i := range cands {
			rec.ExpandedScores[i] = cands[i].Score()
		}
	}

	total, err := s.retriever.CountInScope(ctx, req.CampaignID(), req.Kind())
	if err != nil {
		s.log.Warn("scope count failed",
			zap.String("campaign_id", req.CampaignID()),
			zap.Error(err),
		)
		return
	}
	rec.ScopeTotal = total
}

func (s *Sampler) expandedRetrieve(
	ctx context.Context, req *request.Request, m mode.Mode,
) ([]result.Candidate, error) {
	if m == mode.TextOnly {
		return s.retriever.RetrieveText(ctx, req.Keywords(), req.CampaignID(), req.Kind(), s.expandedLimit)
	}

	// Vector modes re-embed through the caching embedder, so the query
	// vector is normally a cache hit here.
	embRes, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		return nil, err
	}

	switch m {
	case mode.NativeHybrid:
		return s.retriever.RetrieveFused(
			ctx, embRes.Embedding, req.Keywords(), req.CampaignID(), req.Kind(), s.expandedLimit,
		)
	case mode.ManualHybrid:
		// The expanded-window observation only needs one deep ranking;
		// the semantic side is the more informative one to widen.
		return s.retriever.RetrieveVector(ctx, embRes.Embedding, req.CampaignID(), req.Kind(), s.expandedLimit)
	default:
		return s.retriever.RetrieveVector(ctx, embRes.Embedding, req.CampaignID(), req.Kind(), s.expandedLimit)
	}
}

func (s *Sampler) baseRecord(req *request.Request, resp *Response) *searchlog.Record {
	scores := make([]float64, len(resp.Results))
	for i := range resp.Results {
		scores[i] = resp.Results[i].Score()
	}

	return &searchlog.Record{
		CampaignID:  req.CampaignID(),
		Mode:        string(resp.Mode),
		ResultCount: len(resp.Results),
		Scores:      scores,
		Limit:       req.Limit(),
		MinScore:    req.MinScore(),

		TotalMS:        durationMS(resp.Timings.Total),
		EmbeddingMS:    durationMS(resp.Timings.Embedding),
		VectorSearchMS: durationMS(resp.Timings.VectorSearch),
		TextSearchMS:   durationMS(resp.Timings.TextSearch),
		FusionMS:       durationMS(resp.Timings.Fusion),
		ConversionMS:   durationMS(resp.Timings.Conversion),
	}
}

func durationMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
