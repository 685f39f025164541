package store

import (
	"context"
	"testing"
	"time"

	"github.com/tripwatch/travel-safety-api/internal/travel"
)

func record(key, country, city string, createdAt time.Time) *travel.Record {
	return &travel.Record{
		UniqueKey: key,
		Location:  travel.Location{Country: country, City: city},
		CreatedAt: createdAt,
	}
}

func TestMemoryStoreUpsertIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first := record("sri lanka-colombo-2025-03-14-9", "Sri Lanka", "Colombo", time.Now().UTC())
	first.Weather.Temperature = 28
	if err := s.Upsert(ctx, first); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	second := record("sri lanka-colombo-2025-03-14-9", "Sri Lanka", "Colombo", time.Now().UTC())
	second.Weather.Temperature = 30
	if err := s.Upsert(ctx, second); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if got := s.CountRecords(); got != 1 {
		t.Fatalf("expected 1 record, got %d", got)
	}

	rec, err := s.FindByKey(ctx, "sri lanka-colombo-2025-03-14-9")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if rec == nil || rec.Weather.Temperature != 30 {
		t.Fatalf("expected last writer to win, got %+v", rec)
	}
}

func TestMemoryStoreFindByKeyMiss(t *testing.T) {
	s := NewMemoryStore()
	rec, err := s.FindByKey(context.Background(), "nowhere")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil on miss, got %+v", rec)
	}
}

func TestMemoryStoreDeleteOthers(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	s.Upsert(ctx, record("sri lanka-colombo-2025-03-14-8", "Sri Lanka", "Colombo", now))
	s.Upsert(ctx, record("sri lanka-colombo-2025-03-14-9", "Sri Lanka", "Colombo", now))
	s.Upsert(ctx, record("france-paris-2025-03-14-9", "France", "Paris", now))

	deleted, err := s.DeleteOthers(ctx, "Colombo", "Sri Lanka", "sri lanka-colombo-2025-03-14-9")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deletion, got %d", deleted)
	}

	if rec, _ := s.FindByKey(ctx, "sri lanka-colombo-2025-03-14-9"); rec == nil {
		t.Fatal("kept key must survive cleanup")
	}
	if rec, _ := s.FindByKey(ctx, "sri lanka-colombo-2025-03-14-8"); rec != nil {
		t.Fatal("superseded bucket must be removed")
	}
	if rec, _ := s.FindByKey(ctx, "france-paris-2025-03-14-9"); rec == nil {
		t.Fatal("other locations must be untouched")
	}
}

func TestMemoryStoreFindCountryPrefersCode(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.UpsertCountries(ctx, []travel.CountryInfo{
		{Name: "Sri Lanka", Alpha2Code: "LK"},
		{Name: "France", Alpha2Code: "FR"},
	})

	info, err := s.FindCountry(ctx, "", "lk")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if info == nil || info.Name != "Sri Lanka" {
		t.Fatalf("expected Sri Lanka by code, got %+v", info)
	}

	info, _ = s.FindCountry(ctx, "FRANCE", "")
	if info == nil || info.Alpha2Code != "FR" {
		t.Fatalf("expected France by name, got %+v", info)
	}

	info, _ = s.FindCountry(ctx, "Atlantis", "")
	if info != nil {
		t.Fatalf("expected nil on miss, got %+v", info)
	}
}

func TestMemoryStoreLatestCurrency(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.InsertCurrency(ctx, travel.CurrencyRates{Base: "USD", CreatedAt: time.Now().UTC().Add(-2 * time.Hour)})
	s.InsertCurrency(ctx, travel.CurrencyRates{Base: "USD", Rates: map[string]float64{"EUR": 0.92}, CreatedAt: time.Now().UTC()})

	latest, err := s.LatestCurrency(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.Rates["EUR"] != 0.92 {
		t.Fatalf("expected newest snapshot, got %+v", latest)
	}
}

func TestMemoryStoreReclaimExpired(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Upsert(ctx, record("old", "Sri Lanka", "Colombo", time.Now().UTC().Add(-2*time.Hour)))
	s.Upsert(ctx, record("fresh", "Sri Lanka", "Colombo", time.Now().UTC()))
	s.InsertCurrency(ctx, travel.CurrencyRates{Base: "USD", CreatedAt: time.Now().UTC().Add(-25 * time.Hour)})
	s.InsertCurrency(ctx, travel.CurrencyRates{Base: "USD", CreatedAt: time.Now().UTC()})

	reclaimed, err := s.ReclaimExpired(ctx)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if reclaimed != 2 {
		t.Fatalf("expected 2 reclaimed, got %d", reclaimed)
	}
	if rec, _ := s.FindByKey(ctx, "old"); rec != nil {
		t.Fatal("expired record must be gone")
	}
	if rec, _ := s.FindByKey(ctx, "fresh"); rec == nil {
		t.Fatal("fresh record must survive")
	}
	if latest, _ := s.LatestCurrency(ctx); latest == nil {
		t.Fatal("fresh currency snapshot must survive")
	}
}
