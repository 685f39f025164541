package travel

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeRecordStore is a minimal in-test RecordStore with upsert-by-key
// semantics, safe for concurrent use.
type fakeRecordStore struct {
	mu      sync.Mutex
	records map[string]Record

	upsertErr error
	deleteErr error
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: make(map[string]Record)}
}

func (s *fakeRecordStore) FindByKey(_ context.Context, key string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[key]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (s *fakeRecordStore) Upsert(_ context.Context, rec *Record) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.UniqueKey] = *rec
	return nil
}

func (s *fakeRecordStore) DeleteOthers(_ context.Context, city, country, keepKey string) (int64, error) {
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key, rec := range s.records {
		if key == keepKey {
			continue
		}
		if strings.EqualFold(rec.Location.City, city) && strings.EqualFold(rec.Location.Country, country) {
			delete(s.records, key)
			n++
		}
	}
	return n, nil
}

func (s *fakeRecordStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type fakeAggregator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (a *fakeAggregator) Aggregate(_ context.Context, q Query) (*Record, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	return &Record{
		Location: Location{
			City:      q.City,
			Country:   q.Country,
			Latitude:  q.Latitude,
			Longitude: q.Longitude,
		},
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (a *fakeAggregator) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func newTestSearchService(records RecordStore, agg RecordAggregator, now time.Time) *SearchService {
	s := NewSearchService(records, agg)
	s.now = func() time.Time { return now }
	return s
}

func TestSearchLiveThenCache(t *testing.T) {
	records := newFakeRecordStore()
	agg := &fakeAggregator{}
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.Local)
	svc := newTestSearchService(records, agg, now)

	q := testQuery()

	// Scenario A: empty store, live fetch, record persisted under the
	// bucket key.
	res, err := svc.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != SourceLive {
		t.Fatalf("expected source %q, got %q", SourceLive, res.Source)
	}
	wantKey := "sri lanka-colombo-2025-03-14-9"
	if res.Data.UniqueKey != wantKey {
		t.Fatalf("expected uniqueKey %q, got %q", wantKey, res.Data.UniqueKey)
	}
	if records.count() != 1 {
		t.Fatalf("expected 1 stored record, got %d", records.count())
	}

	// Scenario B: same call within the hour hits the cache with the same
	// key and no second live fetch.
	res2, err := svc.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res2.Source != SourceCache {
		t.Fatalf("expected source %q, got %q", SourceCache, res2.Source)
	}
	if res2.Data.UniqueKey != res.Data.UniqueKey {
		t.Fatalf("expected identical keys, got %q and %q", res.Data.UniqueKey, res2.Data.UniqueKey)
	}
	if agg.callCount() != 1 {
		t.Fatalf("expected 1 aggregator call, got %d", agg.callCount())
	}
}

func TestSearchCleansUpSupersededBuckets(t *testing.T) {
	records := newFakeRecordStore()
	agg := &fakeAggregator{}

	// Seed a record from the previous hour for the same place, with
	// different letter case.
	records.records["sri lanka-colombo-2025-03-14-8"] = Record{
		UniqueKey: "sri lanka-colombo-2025-03-14-8",
		Location:  Location{City: "COLOMBO", Country: "SRI LANKA"},
	}

	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.Local)
	svc := newTestSearchService(records, agg, now)

	if _, err := svc.Search(context.Background(), testQuery()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// At most one record for the place remains.
	if records.count() != 1 {
		t.Fatalf("expected 1 record after cleanup, got %d", records.count())
	}
	if _, ok := records.records["sri lanka-colombo-2025-03-14-8"]; ok {
		t.Fatal("expected superseded record to be deleted")
	}
}

func TestSearchConcurrentMissesConverge(t *testing.T) {
	// Scenario C: two concurrent identical searches on an empty store may
	// both fetch live, but exactly one record exists afterward.
	records := newFakeRecordStore()
	agg := &fakeAggregator{}
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.Local)
	svc := newTestSearchService(records, agg, now)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Search(context.Background(), testQuery())
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("search %d failed: %v", i, err)
		}
	}
	if records.count() != 1 {
		t.Fatalf("expected exactly 1 stored record, got %d", records.count())
	}
}

func TestSearchPropagatesAggregationFailure(t *testing.T) {
	records := newFakeRecordStore()
	agg := &fakeAggregator{err: &AggregationError{Failures: []error{errors.New("weather down")}}}
	svc := newTestSearchService(records, agg, time.Now())

	_, err := svc.Search(context.Background(), testQuery())
	var aggErr *AggregationError
	if !errors.As(err, &aggErr) {
		t.Fatalf("expected *AggregationError, got %v", err)
	}
	if records.count() != 0 {
		t.Fatalf("expected no partial record persisted, got %d", records.count())
	}
}

func TestSearchUpsertFailureIsFatal(t *testing.T) {
	records := newFakeRecordStore()
	records.upsertErr = errors.New("disk full")
	svc := newTestSearchService(records, &fakeAggregator{}, time.Now())

	_, err := svc.Search(context.Background(), testQuery())
	var pErr *PersistenceError
	if !errors.As(err, &pErr) {
		t.Fatalf("expected *PersistenceError, got %v", err)
	}
	if pErr.Op != "upsert" {
		t.Fatalf("expected upsert op, got %q", pErr.Op)
	}
}

func TestSearchCleanupFailureIsSwallowed(t *testing.T) {
	records := newFakeRecordStore()
	records.deleteErr = errors.New("transient")
	svc := newTestSearchService(records, &fakeAggregator{}, time.Now())

	res, err := svc.Search(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("expected cleanup failure to be swallowed, got %v", err)
	}
	if res.Source != SourceLive {
		t.Fatalf("expected live result, got %q", res.Source)
	}
}
