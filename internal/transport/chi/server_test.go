package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/greyhollow/lorebase/internal/domain"
	domasset "github.com/greyhollow/lorebase/internal/domain/asset"
	"github.com/greyhollow/lorebase/internal/domain/search/result"
	assetuc "github.com/greyhollow/lorebase/internal/usecase/asset"
	healthuc "github.com/greyhollow/lorebase/internal/usecase/health"
	searchuc "github.com/greyhollow/lorebase/internal/usecase/search"
)

type stubRetriever struct {
	vector []result.Candidate
	text   []result.Candidate
	err    error
	native bool
}

func (s *stubRetriever) RetrieveVector(
	_ context.Context, _ []float32, _ string, _ domasset.Kind, _ int,
) ([]result.Candidate, error) {
	return s.vector, s.err
}

func (s *stubRetriever) RetrieveText(
	_ context.Context, _ string, _ string, _ domasset.Kind, _ int,
) ([]result.Candidate, error) {
	return s.text, s.err
}

func (s *stubRetriever) RetrieveFused(
	_ context.Context, _ []float32, _ string, _ string, _ domasset.Kind, _ int,
) ([]result.Candidate, error) {
	return s.vector, s.err
}

func (s *stubRetriever) CountInScope(_ context.Context, _ string, _ domasset.Kind) (int, error) {
	return len(s.vector), nil
}

func (s *stubRetriever) SupportsNativeFusion(_ context.Context) bool { return s.native }

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if s.err != nil {
		return domain.EmbeddingResult{}, s.err
	}
	return domain.EmbeddingResult{Embedding: s.vec}, nil
}

type stubAssetRepo struct {
	assets map[string]domasset.Asset
}

func newStubAssetRepo() *stubAssetRepo {
	return &stubAssetRepo{assets: make(map[string]domasset.Asset)}
}

func (s *stubAssetRepo) Put(_ context.Context, a *domasset.Asset, _ []float32) error {
	s.assets[a.ID()] = *a
	return nil
}

func (s *stubAssetRepo) Get(_ context.Context, _, assetID string) (domasset.Asset, error) {
	a, ok := s.assets[assetID]
	if !ok {
		return domasset.Asset{}, domain.ErrAssetNotFound
	}
	return a, nil
}

func (s *stubAssetRepo) Delete(_ context.Context, _, assetID string) error {
	if _, ok := s.assets[assetID]; !ok {
		return domain.ErrAssetNotFound
	}
	delete(s.assets, assetID)
	return nil
}

type stubPinger struct{ err error }

func (s *stubPinger) Ping(_ context.Context) error { return s.err }

func newTestRouter(t *testing.T, ret *stubRetriever, emb *stubEmbedder, repo *stubAssetRepo) http.Handler {
	t.Helper()
	if repo == nil {
		repo = newStubAssetRepo()
	}

	searchSvc := searchuc.New(ret, emb, nil)
	assetSvc := assetuc.New(repo, emb, nil)
	healthSvc := healthuc.New(&stubPinger{}, nil)

	srv := NewServer(searchSvc, assetSvc, healthSvc, zap.NewNop())
	return srv.Router(nil)
}

func cand(id string, score float64) result.Candidate {
	return result.NewCandidate(id, "title "+id, domasset.KindNote, "detail", score)
}

func TestHandleSearch_VectorOnly(t *testing.T) {
	ret := &stubRetriever{vector: []result.Candidate{cand("a1", 0.95), cand("a2", 0.81)}}
	router := newTestRouter(t, ret, &stubEmbedder{vec: []float32{0.1, 0.2}}, nil)

	body := `{"query": "ancient sword", "limit": 10, "min_score": 0.5}`
	req := httptest.NewRequest("POST", "/api/v1/campaigns/c1/search", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Mode != "vector_only" {
		t.Errorf("mode = %q, want vector_only", resp.Mode)
	}
	if resp.Total != 2 {
		t.Errorf("total = %d, want 2", resp.Total)
	}
	if resp.Items[0].ID != "a1" || resp.Items[0].Score != 0.95 {
		t.Errorf("first hit = %+v, want a1 @ 0.95", resp.Items[0])
	}
}

func TestHandleSearch_ValidationError(t *testing.T) {
	router := newTestRouter(t, &stubRetriever{}, &stubEmbedder{vec: []float32{0.1}}, nil)

	// Neither query nor keywords.
	body := `{"limit": 10}`
	req := httptest.NewRequest("POST", "/api/v1/campaigns/c1/search", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}

	var resp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if resp.Code != "invalid_request" {
		t.Errorf("code = %q, want invalid_request", resp.Code)
	}
	if !strings.Contains(resp.Message, "query or keywords") {
		t.Errorf("message should name the missing field, got %q", resp.Message)
	}
}

func TestHandleSearch_EmbeddingFailureIs502(t *testing.T) {
	router := newTestRouter(t, &stubRetriever{}, &stubEmbedder{err: domain.ErrEmbeddingProviderError}, nil)

	body := `{"query": "something"}`
	req := httptest.NewRequest("POST", "/api/v1/campaigns/c1/search", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rr.Code)
	}

	var resp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if resp.Code != "embedding_failed" {
		t.Errorf("code = %q, want embedding_failed", resp.Code)
	}
}

func TestHandleSearch_BackendFailureIsGeneric(t *testing.T) {
	ret := &stubRetriever{err: domain.ErrSearchFailed}
	router := newTestRouter(t, ret, &stubEmbedder{vec: []float32{0.1}}, nil)

	body := `{"query": "something"}`
	req := httptest.NewRequest("POST", "/api/v1/campaigns/c1/search", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rr.Code)
	}

	var resp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if resp.Message != "search failed" {
		t.Errorf("message = %q, want the generic search failure", resp.Message)
	}
}

func TestAssetLifecycle(t *testing.T) {
	repo := newStubAssetRepo()
	router := newTestRouter(t, &stubRetriever{}, &stubEmbedder{vec: []float32{0.1}}, repo)

	// Upsert.
	body := `{"kind": "character", "title": "Veyra", "detail": "keeper of the vault", "tags": ["npc"]}`
	req := httptest.NewRequest("PUT", "/api/v1/campaigns/c1/assets/a1", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("upsert status = %d, body = %s", rr.Code, rr.Body.String())
	}

	// Get.
	req = httptest.NewRequest("GET", "/api/v1/campaigns/c1/assets/a1", http.NoBody)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}
	var got assetResponse
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode asset: %v", err)
	}
	if got.Title != "Veyra" || got.Kind != "character" {
		t.Errorf("asset = %+v", got)
	}

	// Delete.
	req = httptest.NewRequest("DELETE", "/api/v1/campaigns/c1/assets/a1", http.NoBody)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}

	// Get after delete: 404.
	req = httptest.NewRequest("GET", "/api/v1/campaigns/c1/assets/a1", http.NoBody)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rr.Code)
	}
}

func TestUpsertAsset_InvalidKind(t *testing.T) {
	router := newTestRouter(t, &stubRetriever{}, &stubEmbedder{vec: []float32{0.1}}, nil)

	body := `{"kind": "spaceship", "title": "x"}`
	req := httptest.NewRequest("PUT", "/api/v1/campaigns/c1/assets/a1", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestBulkImport(t *testing.T) {
	repo := newStubAssetRepo()
	router := newTestRouter(t, &stubRetriever{}, &stubEmbedder{vec: []float32{0.1}}, repo)

	body := `{"assets": [
		{"id": "a1", "kind": "location", "title": "The Hollow"},
		{"id": "a2", "kind": "item", "title": "Grey Lantern"}
	]}`
	req := httptest.NewRequest("POST", "/api/v1/campaigns/c1/assets:import", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp bulkImportResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Imported != 2 {
		t.Errorf("imported = %d, want 2", resp.Imported)
	}
	if len(repo.assets) != 2 {
		t.Errorf("stored = %d, want 2", len(repo.assets))
	}
}

func TestBulkImport_Empty(t *testing.T) {
	router := newTestRouter(t, &stubRetriever{}, &stubEmbedder{vec: []float32{0.1}}, nil)

	req := httptest.NewRequest("POST", "/api/v1/campaigns/c1/assets:import", strings.NewReader(`{"assets": []}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, &stubRetriever{}, &stubEmbedder{vec: []float32{0.1}}, nil)

	req := httptest.NewRequest("GET", "/healthz", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body: %s", rr.Body.String())
	}
}
