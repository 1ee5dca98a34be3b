// Package chi exposes the search engine over HTTP using the chi router.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/greyhollow/lorebase/internal/domain"
	domasset "github.com/greyhollow/lorebase/internal/domain/asset"
	"github.com/greyhollow/lorebase/internal/domain/search/request"
	"github.com/greyhollow/lorebase/internal/metrics"
	assetuc "github.com/greyhollow/lorebase/internal/usecase/asset"
	healthuc "github.com/greyhollow/lorebase/internal/usecase/health"
	searchuc "github.com/greyhollow/lorebase/internal/usecase/search"
)

const maxImportSize = 100

// Server wires the use cases into HTTP handlers.
type Server struct {
	search *searchuc.Service
	assets *assetuc.Service
	health *healthuc.Service
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	assets *assetuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	return &Server{search: search, assets: assets, health: health, logger: logger}
}

// Router builds the chi router with the full middleware chain.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(RequestLogger(s.logger))
	r.Use(Recoverer(s.logger))
	r.Use(metrics.Middleware())
	r.Use(BearerAuthMiddleware(apiKeys))

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1/campaigns/{campaignID}", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Post("/assets:import", s.handleBulkImport)
		r.Route("/assets/{assetID}", func(r chi.Router) {
			r.Put("/", s.handleUpsertAsset)
			r.Get("/", s.handleGetAsset)
			r.Delete("/", s.handleDeleteAsset)
		})
	})

	return r
}

// searchRequest is the POST /search body.
type searchRequest struct {
	Query    string  `json:"query,omitempty"`
	Keywords string  `json:"keywords,omitempty"`
	Kind     string  `json:"kind,omitempty"`
	Limit    int     `json:"limit,omitempty"`
	MinScore float64 `json:"min_score"`
}

type searchHit struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Kind   string  `json:"kind"`
	Detail string  `json:"detail,omitempty"`
	Score  float64 `json:"score"`
}

type searchResponse struct {
	Items   []searchHit    `json:"items"`
	Mode    string         `json:"mode"`
	Total   int            `json:"total"`
	Timings timingsPayload `json:"timings"`
}

type timingsPayload struct {
	TotalMS        float64 `json:"total_ms"`
	EmbeddingMS    float64 `json:"embedding_ms"`
	VectorSearchMS float64 `json:"vector_search_ms"`
	TextSearchMS   float64 `json:"text_search_ms"`
	FusionMS       float64 `json:"fusion_ms"`
}

// handleSearch handles POST /api/v1/campaigns/{campaignID}/search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")

	var body searchRequest
	body.MinScore = -1 // distinguish "absent" from an explicit 0
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	req, err := request.New(
		body.Query, body.Keywords, campaignID,
		domasset.Kind(body.Kind), body.Limit, body.MinScore,
	)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp, err := s.search.Search(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]searchHit, len(resp.Results))
	for i := range resp.Results {
		res := &resp.Results[i]
		items[i] = searchHit{
			ID:     res.ID(),
			Title:  res.Title(),
			Kind:   string(res.Kind()),
			Detail: res.Detail(),
			Score:  res.Score(),
		}
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Items: items,
		Mode:  string(resp.Mode),
		Total: len(items),
		Timings: timingsPayload{
			TotalMS:        ms(resp.Timings.Total),
			EmbeddingMS:    ms(resp.Timings.Embedding),
			VectorSearchMS: ms(resp.Timings.VectorSearch),
			TextSearchMS:   ms(resp.Timings.TextSearch),
			FusionMS:       ms(resp.Timings.Fusion),
		},
	})
}

// upsertAssetRequest is the PUT /assets/{assetID} body.
type upsertAssetRequest struct {
	Kind   string   `json:"kind"`
	Title  string   `json:"title"`
	Detail string   `json:"detail,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

type assetResponse struct {
	ID         string   `json:"id"`
	CampaignID string   `json:"campaign_id"`
	Kind       string   `json:"kind"`
	Title      string   `json:"title"`
	Detail     string   `json:"detail,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// handleUpsertAsset handles PUT /api/v1/campaigns/{campaignID}/assets/{assetID}.
func (s *Server) handleUpsertAsset(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	assetID := chi.URLParam(r, "assetID")

	var body upsertAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	a, err := domasset.New(assetID, campaignID, domasset.Kind(body.Kind), body.Title, body.Detail, body.Tags)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	if err := s.assets.Upsert(r.Context(), &a); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, assetToResponse(&a))
}

// handleGetAsset handles GET /api/v1/campaigns/{campaignID}/assets/{assetID}.
func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	assetID := chi.URLParam(r, "assetID")

	a, err := s.assets.Get(r.Context(), campaignID, assetID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, assetToResponse(&a))
}

// handleDeleteAsset handles DELETE /api/v1/campaigns/{campaignID}/assets/{assetID}.
func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	assetID := chi.URLParam(r, "assetID")

	if err := s.assets.Delete(r.Context(), campaignID, assetID); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// bulkImportRequest is the POST /assets:import body.
type bulkImportRequest struct {
	Assets []struct {
		ID     string   `json:"id"`
		Kind   string   `json:"kind"`
		Title  string   `json:"title"`
		Detail string   `json:"detail,omitempty"`
		Tags   []string `json:"tags,omitempty"`
	} `json:"assets"`
}

type bulkImportResponse struct {
	Imported int `json:"imported"`
}

// handleBulkImport handles POST /api/v1/campaigns/{campaignID}/assets:import.
func (s *Server) handleBulkImport(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")

	var body bulkImportRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}
	if len(body.Assets) == 0 || len(body.Assets) > maxImportSize {
		writeError(w, http.StatusBadRequest, "validation_failed",
			"assets count must be between 1 and 100")
		return
	}

	assets := make([]domasset.Asset, 0, len(body.Assets))
	for _, item := range body.Assets {
		a, err := domasset.New(item.ID, campaignID, domasset.Kind(item.Kind), item.Title, item.Detail, item.Tags)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		assets = append(assets, a)
	}

	n, err := s.assets.BulkImport(r.Context(), assets)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, bulkImportResponse{Imported: n})
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleDomainError maps sentinel errors to HTTP statuses. Validation
// failures surface their message; backend failures keep store and provider
// detail in server-side logs only.
func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrAssetNotFound), errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "asset not found")
	case errors.Is(err, domain.ErrEmbeddingProviderError),
		errors.Is(err, domain.ErrEmptyEmbedding):
		s.logger.Error("embedding failure", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusBadGateway, "embedding_failed", "embedding provider unavailable")
	default:
		s.logger.Error("search backend failure", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusBadGateway, "search_failed", domain.ErrSearchFailed.Error())
	}
}

func assetToResponse(a *domasset.Asset) assetResponse {
	return assetResponse{
		ID:         a.ID(),
		CampaignID: a.CampaignID(),
		Kind:       string(a.Kind()),
		Title:      a.Title(),
		Detail:     a.Detail(),
		Tags:       a.Tags(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
