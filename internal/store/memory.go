package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tripwatch/travel-safety-api/internal/travel"
)

const (
	recordMaxAge   = time.Hour
	currencyMaxAge = 24 * time.Hour
)

// MemoryStore is a concurrency-safe in-memory implementation of all the
// persistence contracts. It backs tests and datastore-less development runs;
// expiry that mongo handles with TTL indexes is done here by ReclaimExpired.
type MemoryStore struct {
	mu sync.RWMutex

	// records by uniqueKey
	records map[string]travel.Record

	countries   []travel.CountryInfo
	emergencies []travel.EmergencyInfo
	currencies  []travel.CurrencyRates
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]travel.Record),
	}
}

// FindByKey returns the record for a bucket key, or nil on a miss.
func (s *MemoryStore) FindByKey(_ context.Context, uniqueKey string) (*travel.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[uniqueKey]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Upsert inserts or overwrites by UniqueKey. Last writer wins.
func (s *MemoryStore) Upsert(_ context.Context, rec *travel.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *rec
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.records[stored.UniqueKey] = stored
	return nil
}

// DeleteOthers removes records whose location matches (city, country)
// case-insensitively but whose key differs from keepKey.
func (s *MemoryStore) DeleteOthers(_ context.Context, city, country, keepKey string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for key, rec := range s.records {
		if key == keepKey {
			continue
		}
		if strings.EqualFold(rec.Location.City, city) && strings.EqualFold(rec.Location.Country, country) {
			delete(s.records, key)
			deleted++
		}
	}
	return deleted, nil
}

// CountRecords reports the number of stored travel records.
func (s *MemoryStore) CountRecords() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// FindCountry prefers an exact ISO code match and falls back to a
// case-insensitive exact name match. A miss is (nil, nil).
func (s *MemoryStore) FindCountry(_ context.Context, name, code string) (*travel.CountryInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if code != "" {
		code = strings.ToUpper(code)
		for i := range s.countries {
			if s.countries[i].Alpha2Code == code {
				info := s.countries[i]
				return &info, nil
			}
		}
		return nil, nil
	}
	for i := range s.countries {
		if strings.EqualFold(s.countries[i].Name, name) {
			info := s.countries[i]
			return &info, nil
		}
	}
	return nil, nil
}

// UpsertCountries bulk-upserts the full country dataset keyed by name.
func (s *MemoryStore) UpsertCountries(_ context.Context, infos []travel.CountryInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, info := range infos {
		replaced := false
		for i := range s.countries {
			if strings.EqualFold(s.countries[i].Name, info.Name) {
				s.countries[i] = info
				replaced = true
				break
			}
		}
		if !replaced {
			s.countries = append(s.countries, info)
		}
	}
	return nil
}

// FindEmergency mirrors FindCountry for emergency numbers.
func (s *MemoryStore) FindEmergency(_ context.Context, name, code string) (*travel.EmergencyInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if code != "" {
		code = strings.ToUpper(code)
		for i := range s.emergencies {
			if s.emergencies[i].ISOCode == code {
				info := s.emergencies[i]
				return &info, nil
			}
		}
		return nil, nil
	}
	for i := range s.emergencies {
		if strings.EqualFold(s.emergencies[i].CountryName, name) {
			info := s.emergencies[i]
			return &info, nil
		}
	}
	return nil, nil
}

// UpsertEmergencies bulk-upserts the full emergency dataset keyed by name.
func (s *MemoryStore) UpsertEmergencies(_ context.Context, infos []travel.EmergencyInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, info := range infos {
		replaced := false
		for i := range s.emergencies {
			if strings.EqualFold(s.emergencies[i].CountryName, info.CountryName) {
				s.emergencies[i] = info
				replaced = true
				break
			}
		}
		if !replaced {
			s.emergencies = append(s.emergencies, info)
		}
	}
	return nil
}

// LatestCurrency returns the newest rate snapshot, or nil when none exists.
func (s *MemoryStore) LatestCurrency(_ context.Context) (*travel.CurrencyRates, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.currencies) == 0 {
		return nil, nil
	}
	latest := s.currencies[0]
	for _, c := range s.currencies[1:] {
		if c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	return &latest, nil
}

// InsertCurrency appends one snapshot row.
func (s *MemoryStore) InsertCurrency(_ context.Context, rates travel.CurrencyRates) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rates.CreatedAt.IsZero() {
		rates.CreatedAt = time.Now().UTC()
	}
	s.currencies = append(s.currencies, rates)
	return nil
}

// ReclaimExpired drops travel records past their 1h lifetime and currency
// snapshots past 24h. Storage reclaim only; reads never depend on it.
func (s *MemoryStore) ReclaimExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	var reclaimed int64

	for key, rec := range s.records {
		if now.Sub(rec.CreatedAt) > recordMaxAge {
			delete(s.records, key)
			reclaimed++
		}
	}

	kept := s.currencies[:0]
	for _, c := range s.currencies {
		if now.Sub(c.CreatedAt) <= currencyMaxAge {
			kept = append(kept, c)
		} else {
			reclaimed++
		}
	}
	s.currencies = kept

	return reclaimed, nil
}
