package travel

import (
	"time"

	"github.com/tripwatch/travel-safety-api/internal/advisory"
)

// Payload is an opaque third-party response shape that is stored and
// round-tripped without being interpreted field by field.
type Payload map[string]any

// Query identifies one location lookup. Transient; consumed to build a
// cache key and a Record, never persisted on its own.
type Query struct {
	Latitude    float64 `json:"latitude" validate:"required"`
	Longitude   float64 `json:"longitude" validate:"required"`
	Country     string  `json:"country" validate:"required"`
	City        string  `json:"city" validate:"required"`
	CountryCode string  `json:"countryCode,omitempty"`
	UserID      string  `json:"userId,omitempty"`
}

// Location is the resolved place embedded in a Record.
type Location struct {
	City        string  `json:"city" bson:"city"`
	Country     string  `json:"country" bson:"country"`
	CountryCode string  `json:"countryCode,omitempty" bson:"countryCode,omitempty"`
	Latitude    float64 `json:"latitude" bson:"latitude"`
	Longitude   float64 `json:"longitude" bson:"longitude"`
}

// CurrentWeather holds normalized current conditions. Temperatures and wind
// are already rounded for display; wind is km/h.
type CurrentWeather struct {
	Temperature  int    `json:"temperature" bson:"temperature"`
	FeelsLike    int    `json:"feelsLike" bson:"feelsLike"`
	Humidity     int    `json:"humidity" bson:"humidity"`
	Description  string `json:"description" bson:"description"`
	Icon         string `json:"icon" bson:"icon"`
	WindSpeedKmh int    `json:"windSpeed" bson:"windSpeed"`
	Pressure     int    `json:"pressure" bson:"pressure"`

	// TimezoneOffsetSeconds is the location's UTC offset reported by the
	// weather provider; it is lifted onto the Record during aggregation.
	TimezoneOffsetSeconds int `json:"timezone" bson:"timezone"`
}

// ForecastPoint is one 3-hour-interval forecast sample (~5 days of them).
type ForecastPoint struct {
	Date         time.Time `json:"date" bson:"date"`
	Temperature  int       `json:"temperature" bson:"temperature"`
	Description  string    `json:"description" bson:"description"`
	Humidity     int       `json:"humidity" bson:"humidity"`
	WindSpeedKmh float64   `json:"windSpeed" bson:"windSpeed"`
}

// AirComponents are pollutant concentrations rounded to integers.
type AirComponents struct {
	PM25 int `json:"pm2_5" bson:"pm2_5"`
	PM10 int `json:"pm10" bson:"pm10"`
	NO2  int `json:"no2" bson:"no2"`
	SO2  int `json:"so2" bson:"so2"`
	O3   int `json:"o3" bson:"o3"`
	CO   int `json:"co" bson:"co"`
}

// AirQuality is the current AQI reading on the provider's 1-5 ordinal scale.
type AirQuality struct {
	AQI        int           `json:"aqi" bson:"aqi"`
	Components AirComponents `json:"components" bson:"components"`
}

// AirQualityPoint is one ~12-hourly air-quality forecast sample. Components
// are kept raw since the consumer renders them as-is.
type AirQualityPoint struct {
	Date       time.Time          `json:"date" bson:"date"`
	AQI        int                `json:"aqi" bson:"aqi"`
	Components map[string]float64 `json:"components,omitempty" bson:"components,omitempty"`
}

// Advisory is the merged travel advisory embedded in a Record. Details
// carries both upstream feeds side by side; the consumer decides priority.
type Advisory struct {
	Level       string          `json:"level" bson:"level"`
	Score       int             `json:"score" bson:"score"`
	Description string          `json:"description" bson:"description"`
	Details     advisory.Result `json:"details" bson:"details"`
}

// CountryInfo is a reference snapshot of country metadata. Only the natural
// keys are typed; the remaining provider payload is kept opaque.
type CountryInfo struct {
	Name       string    `json:"name" bson:"name"`
	Alpha2Code string    `json:"alpha2Code,omitempty" bson:"alpha2Code,omitempty"`
	Alpha3Code string    `json:"alpha3Code,omitempty" bson:"alpha3Code,omitempty"`
	Data       Payload   `json:"data,omitempty" bson:"data,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt"`
}

// EmergencyInfo is a reference snapshot of a country's emergency numbers.
type EmergencyInfo struct {
	CountryName string    `json:"countryName" bson:"countryName"`
	ISOCode     string    `json:"isoCode,omitempty" bson:"isoCode,omitempty"`
	Fire        []string  `json:"fire" bson:"fire"`
	Ambulance   []string  `json:"ambulance" bson:"ambulance"`
	Police      []string  `json:"police" bson:"police"`
	Dispatch    []string  `json:"dispatch" bson:"dispatch"`
	Member112   bool      `json:"member_112" bson:"member_112"`
	LocalOnly   bool      `json:"localOnly" bson:"localOnly"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// CurrencyRates is one exchange-rate snapshot against a base currency.
type CurrencyRates struct {
	Base       string             `json:"base" bson:"base"`
	Rates      map[string]float64 `json:"rates" bson:"rates"`
	LastUpdate time.Time          `json:"lastUpdate" bson:"lastUpdate"`
	NextUpdate time.Time          `json:"nextUpdate" bson:"nextUpdate"`
	CreatedAt  time.Time          `json:"createdAt" bson:"createdAt"`
}

// Record is the unified travel-data aggregate for one place and one cache
// bucket. Owned exclusively by the SearchService; other components only
// construct the payload.
type Record struct {
	UniqueKey             string            `json:"uniqueKey" bson:"uniqueKey"`
	UserID                string            `json:"userId,omitempty" bson:"userId,omitempty"`
	Location              Location          `json:"location" bson:"location"`
	TimezoneOffsetSeconds int               `json:"timezone" bson:"timezone"`
	Weather               CurrentWeather    `json:"weather" bson:"weather"`
	Forecast              []ForecastPoint   `json:"forecast" bson:"forecast"`
	AirQuality            AirQuality        `json:"airQuality" bson:"airQuality"`
	AirQualityForecast    []AirQualityPoint `json:"airQualityForecast" bson:"airQualityForecast"`
	TravelAdvisory        Advisory          `json:"travelAdvisory" bson:"travelAdvisory"`
	CountryInfo           *CountryInfo      `json:"countryInfo" bson:"countryInfo"`
	EmergencyInfo         *EmergencyInfo    `json:"emergencyInfo" bson:"emergencyInfo"`
	CreatedAt             time.Time         `json:"createdAt" bson:"createdAt"`
}

// SearchResult is what a search returns: the record plus where it came from.
type SearchResult struct {
	Data   *Record `json:"data"`
	Source string  `json:"source"`
}

const (
	SourceCache = "cache"
	SourceLive  = "live"
)
