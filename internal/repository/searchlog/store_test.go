package searchlog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

type mockStore struct {
	key   string
	value []byte
	ttl   time.Duration
	err   error
}

func (m *mockStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.key = key
	m.value = value
	m.ttl = ttl
	return m.err
}

func TestAppend_AssignsIDAndTimestamp(t *testing.T) {
	mock := &mockStore{}
	s := New(mock, 30*24*time.Hour)

	rec := &Record{CampaignID: "camp-1", Mode: "vector_only", ResultCount: 3}
	if err := s.Append(context.Background(), rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if rec.ID == "" {
		t.Error("ID not assigned")
	}
	if rec.RecordedAt.IsZero() {
		t.Error("RecordedAt not assigned")
	}
	if rec.RecordedAt.Location() != time.UTC {
		t.Errorf("RecordedAt zone = %v, want UTC", rec.RecordedAt.Location())
	}
}

func TestAppend_KeyAndTTL(t *testing.T) {
	mock := &mockStore{}
	retention := 7 * 24 * time.Hour
	s := New(mock, retention)

	rec := &Record{CampaignID: "camp-1", Mode: "text_only"}
	if err := s.Append(context.Background(), rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if !strings.HasPrefix(mock.key, keyPrefix) {
		t.Errorf("key = %q, want prefix %q", mock.key, keyPrefix)
	}
	if !strings.HasSuffix(mock.key, rec.ID) {
		t.Errorf("key = %q, want suffix %q", mock.key, rec.ID)
	}
	if mock.ttl != retention {
		t.Errorf("ttl = %v, want %v", mock.ttl, retention)
	}
}

func TestAppend_PreservesProvidedIdentity(t *testing.T) {
	mock := &mockStore{}
	s := New(mock, time.Hour)

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	rec := &Record{ID: "fixed-id", RecordedAt: at, Mode: "manual_hybrid"}
	if err := s.Append(context.Background(), rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if rec.ID != "fixed-id" || !rec.RecordedAt.Equal(at) {
		t.Errorf("identity overwritten: %q %v", rec.ID, rec.RecordedAt)
	}
}

func TestAppend_MarshalsFullRecord(t *testing.T) {
	mock := &mockStore{}
	s := New(mock, time.Hour)

	rec := &Record{
		CampaignID:     "camp-1",
		Mode:           "manual_hybrid",
		ResultCount:    2,
		Scores:         []float64{1.0, 0.4},
		Limit:          10,
		MinScore:       0.7,
		TotalMS:        12.5,
		Sampled:        true,
		Query:          "dragon lair",
		ExpandedCount:  42,
		ExpandedScores: []float64{1.0, 0.9},
		ScopeTotal:     120,
	}
	if err := s.Append(context.Background(), rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	var got Record
	if err := json.Unmarshal(mock.value, &got); err != nil {
		t.Fatalf("unmarshal stored value: %v", err)
	}
	if got.Query != "dragon lair" || got.ExpandedCount != 42 || got.ScopeTotal != 120 {
		t.Errorf("sampled fields = %q %d %d", got.Query, got.ExpandedCount, got.ScopeTotal)
	}
	if got.TotalMS != 12.5 || len(got.Scores) != 2 {
		t.Errorf("telemetry fields = %v %v", got.TotalMS, got.Scores)
	}
}

func TestAppend_UnsampledOmitsQueryText(t *testing.T) {
	mock := &mockStore{}
	s := New(mock, time.Hour)

	rec := &Record{CampaignID: "camp-1", Mode: "vector_only"}
	if err := s.Append(context.Background(), rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if strings.Contains(string(mock.value), `"query"`) {
		t.Errorf("unsampled record leaked query field: %s", mock.value)
	}
}

func TestAppend_StoreError(t *testing.T) {
	mock := &mockStore{err: errors.New("connection refused")}
	s := New(mock, time.Hour)

	if err := s.Append(context.Background(), &Record{}); err == nil {
		t.Fatal("expected error")
	}
}
