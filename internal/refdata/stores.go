package refdata

import (
	"context"
	"time"

	"github.com/tripwatch/travel-safety-api/internal/travel"
)

const (
	countryHorizon   = 24 * time.Hour
	emergencyHorizon = 24 * time.Hour
	currencyHorizon  = time.Hour
)

// CountryPersistence is what the country cache needs from the datastore.
type CountryPersistence interface {
	FindCountry(ctx context.Context, name, code string) (*travel.CountryInfo, error)
	UpsertCountries(ctx context.Context, infos []travel.CountryInfo) error
}

// CountryFetcher is the bulk list-all provider behind the country cache.
type CountryFetcher interface {
	FetchAll(ctx context.Context) ([]travel.CountryInfo, error)
}

// CountryCache serves country metadata with a 24h freshness horizon.
type CountryCache struct {
	cache *cache[NaturalKey, travel.CountryInfo]
	store CountryPersistence
	fetch CountryFetcher
}

func NewCountryCache(store CountryPersistence, fetch CountryFetcher) *CountryCache {
	c := &CountryCache{store: store, fetch: fetch}
	c.cache = newCache("country", countryHorizon,
		func(ctx context.Context, key NaturalKey) (*travel.CountryInfo, time.Time, error) {
			info, err := store.FindCountry(ctx, key.Name, key.Code)
			if err != nil || info == nil {
				return nil, time.Time{}, err
			}
			return info, info.UpdatedAt, nil
		},
		c.Refresh,
	)
	return c
}

// Get returns the country entry, refreshing the whole dataset when stale.
func (c *CountryCache) Get(ctx context.Context, name, code string) (*travel.CountryInfo, error) {
	return c.cache.get(ctx, NaturalKey{Name: name, Code: code})
}

// Refresh repopulates the full country table from the provider.
func (c *CountryCache) Refresh(ctx context.Context) error {
	infos, err := c.fetch.FetchAll(ctx)
	if err != nil {
		return err
	}
	return c.store.UpsertCountries(ctx, infos)
}

func (c *CountryCache) Name() string { return "country" }

// EmergencyPersistence is what the emergency cache needs from the datastore.
type EmergencyPersistence interface {
	FindEmergency(ctx context.Context, name, code string) (*travel.EmergencyInfo, error)
	UpsertEmergencies(ctx context.Context, infos []travel.EmergencyInfo) error
}

// EmergencyFetcher is the bulk list-all provider behind the emergency cache.
type EmergencyFetcher interface {
	FetchAll(ctx context.Context) ([]travel.EmergencyInfo, error)
}

// EmergencyCache serves emergency numbers with a 24h freshness horizon.
type EmergencyCache struct {
	cache *cache[NaturalKey, travel.EmergencyInfo]
	store EmergencyPersistence
	fetch EmergencyFetcher
}

func NewEmergencyCache(store EmergencyPersistence, fetch EmergencyFetcher) *EmergencyCache {
	c := &EmergencyCache{store: store, fetch: fetch}
	c.cache = newCache("emergency", emergencyHorizon,
		func(ctx context.Context, key NaturalKey) (*travel.EmergencyInfo, time.Time, error) {
			info, err := store.FindEmergency(ctx, key.Name, key.Code)
			if err != nil || info == nil {
				return nil, time.Time{}, err
			}
			return info, info.UpdatedAt, nil
		},
		c.Refresh,
	)
	return c
}

func (c *EmergencyCache) Get(ctx context.Context, name, code string) (*travel.EmergencyInfo, error) {
	return c.cache.get(ctx, NaturalKey{Name: name, Code: code})
}

func (c *EmergencyCache) Refresh(ctx context.Context) error {
	infos, err := c.fetch.FetchAll(ctx)
	if err != nil {
		return err
	}
	return c.store.UpsertEmergencies(ctx, infos)
}

func (c *EmergencyCache) Name() string { return "emergency" }

// CurrencyPersistence is what the currency cache needs from the datastore.
// One global snapshot row per refresh; storage-level expiry (24h) is the
// store's concern, independent of the 1h read horizon here.
type CurrencyPersistence interface {
	LatestCurrency(ctx context.Context) (*travel.CurrencyRates, error)
	InsertCurrency(ctx context.Context, rates travel.CurrencyRates) error
}

// CurrencyFetcher fetches a fresh global rate snapshot.
type CurrencyFetcher interface {
	FetchLatest(ctx context.Context) (travel.CurrencyRates, error)
}

// CurrencyCache serves the global rate snapshot with a 1h freshness horizon.
type CurrencyCache struct {
	cache *cache[struct{}, travel.CurrencyRates]
	store CurrencyPersistence
	fetch CurrencyFetcher
}

func NewCurrencyCache(store CurrencyPersistence, fetch CurrencyFetcher) *CurrencyCache {
	c := &CurrencyCache{store: store, fetch: fetch}
	c.cache = newCache("currency", currencyHorizon,
		func(ctx context.Context, _ struct{}) (*travel.CurrencyRates, time.Time, error) {
			rates, err := store.LatestCurrency(ctx)
			if err != nil || rates == nil {
				return nil, time.Time{}, err
			}
			return rates, rates.CreatedAt, nil
		},
		c.Refresh,
	)
	return c
}

func (c *CurrencyCache) Get(ctx context.Context) (*travel.CurrencyRates, error) {
	return c.cache.get(ctx, struct{}{})
}

func (c *CurrencyCache) Refresh(ctx context.Context) error {
	rates, err := c.fetch.FetchLatest(ctx)
	if err != nil {
		return err
	}
	return c.store.InsertCurrency(ctx, rates)
}

func (c *CurrencyCache) Name() string { return "currency" }
