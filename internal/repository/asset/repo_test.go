package asset

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/greyhollow/lorebase/internal/db"
	"github.com/greyhollow/lorebase/internal/domain"
	domasset "github.com/greyhollow/lorebase/internal/domain/asset"
)

type mockStore struct {
	hashes map[string]map[string]string

	indexExists bool
	indexDef    *db.IndexDefinition
	err         error
	createErr   error
}

func newMockStore() *mockStore {
	return &mockStore{hashes: make(map[string]map[string]string)}
}

func (m *mockStore) HSet(_ context.Context, key string, fields map[string]string) error {
	if m.err != nil {
		return m.err
	}
	m.hashes[key] = fields
	return nil
}

func (m *mockStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.hashes[key], nil
}

func (m *mockStore) Del(_ context.Context, key string) error {
	if m.err != nil {
		return m.err
	}
	delete(m.hashes, key)
	return nil
}

func (m *mockStore) Exists(_ context.Context, key string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.hashes[key]
	return ok, nil
}

func (m *mockStore) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	m.indexDef = def
	if m.createErr != nil {
		return m.createErr
	}
	return m.err
}

func (m *mockStore) IndexExists(_ context.Context, _ string) (bool, error) {
	return m.indexExists, m.err
}

func mustAsset(t *testing.T, id string) *domasset.Asset {
	t.Helper()
	a, err := domasset.New(id, "camp-1", domasset.KindCharacter, "Elara", "An elven ranger.", nil)
	if err != nil {
		t.Fatalf("New asset: %v", err)
	}
	return &a
}

func TestPut_StoresAllFields(t *testing.T) {
	store := newMockStore()
	repo := New(store, 2)
	a := mustAsset(t, "a1")

	if err := repo.Put(context.Background(), a, []float32{1.5, -0.5}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	key := domain.AssetKey("camp-1", "a1")
	fields, ok := store.hashes[key]
	if !ok {
		t.Fatalf("no hash stored at %q", key)
	}
	if fields["campaign_id"] != "camp-1" || fields["kind"] != "character" {
		t.Errorf("scope fields = %q %q", fields["campaign_id"], fields["kind"])
	}
	if fields["title"] != "Elara" || fields["detail"] != "An elven ranger." {
		t.Errorf("content fields = %q %q", fields["title"], fields["detail"])
	}

	raw := []byte(fields["vector"])
	if len(raw) != 8 {
		t.Fatalf("vector blob = %d bytes, want 8", len(raw))
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(raw[0:4])); got != 1.5 {
		t.Errorf("vector[0] = %v, want 1.5", got)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(raw[4:8])); got != -0.5 {
		t.Errorf("vector[1] = %v, want -0.5", got)
	}
}

func TestPut_RejectsDimensionMismatch(t *testing.T) {
	repo := New(newMockStore(), 1024)

	err := repo.Put(context.Background(), mustAsset(t, "a1"), []float32{0.1, 0.2})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestGet_RoundTrip(t *testing.T) {
	store := newMockStore()
	repo := New(store, 2)
	a, _ := domasset.New("a1", "camp-1", domasset.KindQuest, "Lost Mine", "Find the mine.", []string{"act1", "mine"})

	if err := repo.Put(context.Background(), &a, []float32{0.1, 0.2}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := repo.Get(context.Background(), "camp-1", "a1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID() != "a1" || got.CampaignID() != "camp-1" {
		t.Errorf("identity = %q %q", got.ID(), got.CampaignID())
	}
	if got.Kind() != domasset.KindQuest || got.Title() != "Lost Mine" {
		t.Errorf("content = %q %q", got.Kind(), got.Title())
	}
	if tags := got.Tags(); len(tags) != 2 || tags[0] != "act1" {
		t.Errorf("tags = %v", tags)
	}
}

func TestGet_MissingAsset(t *testing.T) {
	repo := New(newMockStore(), 2)

	_, err := repo.Get(context.Background(), "camp-1", "nope")
	if !errors.Is(err, domain.ErrAssetNotFound) {
		t.Fatalf("err = %v, want ErrAssetNotFound", err)
	}
}

func TestDelete_MissingAsset(t *testing.T) {
	repo := New(newMockStore(), 2)

	err := repo.Delete(context.Background(), "camp-1", "nope")
	if !errors.Is(err, domain.ErrAssetNotFound) {
		t.Fatalf("err = %v, want ErrAssetNotFound", err)
	}
}

func TestDelete_RemovesHash(t *testing.T) {
	store := newMockStore()
	repo := New(store, 2)
	if err := repo.Put(context.Background(), mustAsset(t, "a1"), []float32{0.1, 0.2}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := repo.Delete(context.Background(), "camp-1", "a1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(store.hashes) != 0 {
		t.Error("hash not removed")
	}
}

func TestEnsureIndex_SkipsExisting(t *testing.T) {
	store := newMockStore()
	store.indexExists = true
	repo := New(store, 2)

	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	if store.indexDef != nil {
		t.Error("CreateIndex must not be called when the index exists")
	}
}

func TestEnsureIndex_CreatesWhenMissing(t *testing.T) {
	store := newMockStore()
	repo := New(store, 1024).WithHNSW(HNSWConfig{M: 32, EFConstruct: 400})

	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	if store.indexDef == nil {
		t.Fatal("CreateIndex was not called")
	}
	if store.indexDef.Name != domain.AssetIndexName {
		t.Errorf("index name = %q", store.indexDef.Name)
	}
}

func TestEnsureIndex_ToleratesConcurrentCreate(t *testing.T) {
	store := newMockStore()
	store.createErr = db.ErrIndexExists
	repo := New(store, 2)

	// Another instance won the create race between our existence check and
	// FT.CREATE. That is not a failure.
	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
}
