package refdata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tripwatch/travel-safety-api/internal/travel"
)

type fakeCountryStore struct {
	mu        sync.Mutex
	countries map[string]travel.CountryInfo
}

func newFakeCountryStore() *fakeCountryStore {
	return &fakeCountryStore{countries: make(map[string]travel.CountryInfo)}
}

func (s *fakeCountryStore) FindCountry(_ context.Context, name, code string) (*travel.CountryInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, info := range s.countries {
		if code != "" && info.Alpha2Code == code {
			return &info, nil
		}
		if code == "" && info.Name == name {
			return &info, nil
		}
	}
	return nil, nil
}

func (s *fakeCountryStore) UpsertCountries(_ context.Context, infos []travel.CountryInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, info := range infos {
		s.countries[info.Name] = info
	}
	return nil
}

type fakeCountryFetcher struct {
	infos []travel.CountryInfo
	err   error
	calls int
}

func (f *fakeCountryFetcher) FetchAll(context.Context) ([]travel.CountryInfo, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.infos, nil
}

func TestCountryCacheHitSkipsRefresh(t *testing.T) {
	store := newFakeCountryStore()
	store.countries["Sri Lanka"] = travel.CountryInfo{
		Name:       "Sri Lanka",
		Alpha2Code: "LK",
		UpdatedAt:  time.Now().UTC(),
	}
	fetcher := &fakeCountryFetcher{}

	c := NewCountryCache(store, fetcher)
	info, err := c.Get(context.Background(), "Sri Lanka", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info == nil || info.Alpha2Code != "LK" {
		t.Fatalf("expected cached entry, got %+v", info)
	}
	if fetcher.calls != 0 {
		t.Fatalf("expected no refresh on a fresh hit, got %d calls", fetcher.calls)
	}
}

func TestCountryCacheRefreshesStaleEntry(t *testing.T) {
	store := newFakeCountryStore()
	store.countries["Sri Lanka"] = travel.CountryInfo{
		Name:      "Sri Lanka",
		UpdatedAt: time.Now().UTC().Add(-25 * time.Hour),
	}
	fetcher := &fakeCountryFetcher{infos: []travel.CountryInfo{
		{Name: "Sri Lanka", Alpha2Code: "LK", UpdatedAt: time.Now().UTC()},
		{Name: "France", Alpha2Code: "FR", UpdatedAt: time.Now().UTC()},
	}}

	c := NewCountryCache(store, fetcher)
	info, err := c.Get(context.Background(), "Sri Lanka", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info == nil || info.Alpha2Code != "LK" {
		t.Fatalf("expected refreshed entry, got %+v", info)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected 1 refresh, got %d", fetcher.calls)
	}

	// The bulk refresh repopulates the entire dataset, not just the
	// requested key.
	if other, _ := store.FindCountry(context.Background(), "France", ""); other == nil {
		t.Fatal("expected bulk refresh to upsert all countries")
	}
}

func TestCountryCacheFailOpen(t *testing.T) {
	stale := travel.CountryInfo{
		Name:      "Sri Lanka",
		UpdatedAt: time.Now().UTC().Add(-48 * time.Hour),
	}
	store := newFakeCountryStore()
	store.countries["Sri Lanka"] = stale
	fetcher := &fakeCountryFetcher{err: errors.New("provider down")}

	c := NewCountryCache(store, fetcher)
	info, err := c.Get(context.Background(), "Sri Lanka", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info == nil || info.Name != "Sri Lanka" {
		t.Fatalf("expected stale entry to be served, got %+v", info)
	}
}

func TestCountryCacheFailClosed(t *testing.T) {
	store := newFakeCountryStore()
	fetcher := &fakeCountryFetcher{err: errors.New("provider down")}

	c := NewCountryCache(store, fetcher)
	info, err := c.Get(context.Background(), "Atlantis", "")
	if err != nil {
		t.Fatalf("expected not-found instead of error, got %v", err)
	}
	if info != nil {
		t.Fatalf("expected nil entry, got %+v", info)
	}
}

type fakeCurrencyStore struct {
	snapshots []travel.CurrencyRates
	insertErr error
}

func (s *fakeCurrencyStore) LatestCurrency(context.Context) (*travel.CurrencyRates, error) {
	if len(s.snapshots) == 0 {
		return nil, nil
	}
	latest := s.snapshots[len(s.snapshots)-1]
	return &latest, nil
}

func (s *fakeCurrencyStore) InsertCurrency(_ context.Context, rates travel.CurrencyRates) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.snapshots = append(s.snapshots, rates)
	return nil
}

type fakeCurrencyFetcher struct {
	rates travel.CurrencyRates
	err   error
	calls int
}

func (f *fakeCurrencyFetcher) FetchLatest(context.Context) (travel.CurrencyRates, error) {
	f.calls++
	if f.err != nil {
		return travel.CurrencyRates{}, f.err
	}
	return f.rates, nil
}

func TestCurrencyCacheRefreshesAfterHour(t *testing.T) {
	store := &fakeCurrencyStore{snapshots: []travel.CurrencyRates{
		{Base: "USD", Rates: map[string]float64{"EUR": 0.9}, CreatedAt: time.Now().UTC().Add(-2 * time.Hour)},
	}}
	fetcher := &fakeCurrencyFetcher{rates: travel.CurrencyRates{
		Base:      "USD",
		Rates:     map[string]float64{"EUR": 0.95},
		CreatedAt: time.Now().UTC(),
	}}

	c := NewCurrencyCache(store, fetcher)
	rates, err := c.Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rates == nil || rates.Rates["EUR"] != 0.95 {
		t.Fatalf("expected refreshed rates, got %+v", rates)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected 1 fetch, got %d", fetcher.calls)
	}
}

func TestCurrencyCacheFailOpenOnStale(t *testing.T) {
	store := &fakeCurrencyStore{snapshots: []travel.CurrencyRates{
		{Base: "USD", Rates: map[string]float64{"EUR": 0.9}, CreatedAt: time.Now().UTC().Add(-2 * time.Hour)},
	}}
	fetcher := &fakeCurrencyFetcher{err: errors.New("provider down")}

	c := NewCurrencyCache(store, fetcher)
	rates, err := c.Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rates == nil || rates.Rates["EUR"] != 0.9 {
		t.Fatalf("expected stale snapshot, got %+v", rates)
	}
}
