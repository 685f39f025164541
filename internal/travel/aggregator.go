package travel

import (
	"context"
	"regexp"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tripwatch/travel-safety-api/internal/advisory"
	"github.com/tripwatch/travel-safety-api/internal/logger"
)

// WeatherFetcher supplies current conditions and the multi-day forecast.
type WeatherFetcher interface {
	Current(ctx context.Context, lat, lon float64) (CurrentWeather, error)
	Forecast(ctx context.Context, lat, lon float64) ([]ForecastPoint, error)
}

// AirQualityFetcher supplies the current AQI and its forecast.
type AirQualityFetcher interface {
	Current(ctx context.Context, lat, lon float64) (AirQuality, error)
	Forecast(ctx context.Context, lat, lon float64) ([]AirQualityPoint, error)
}

// AdvisoryFetcher is the one sub-task designed to degrade instead of fail:
// it returns a result value unconditionally.
type AdvisoryFetcher interface {
	TravelAdvisory(ctx context.Context, country string) advisory.Result
}

// CountryReader reads the country reference cache.
type CountryReader interface {
	Get(ctx context.Context, name, code string) (*CountryInfo, error)
}

// EmergencyReader reads the emergency-numbers reference cache.
type EmergencyReader interface {
	Get(ctx context.Context, name, code string) (*EmergencyInfo, error)
}

// Aggregator fans out one location query across all data sources and
// assembles the unified record.
type Aggregator struct {
	weather   WeatherFetcher
	air       AirQualityFetcher
	advisory  AdvisoryFetcher
	country   CountryReader
	emergency EmergencyReader
	log       *zap.SugaredLogger
}

func NewAggregator(
	weather WeatherFetcher,
	air AirQualityFetcher,
	adv AdvisoryFetcher,
	country CountryReader,
	emergency EmergencyReader,
) *Aggregator {
	return &Aggregator{
		weather:   weather,
		air:       air,
		advisory:  adv,
		country:   country,
		emergency: emergency,
		log:       logger.GetLogger("aggregator"),
	}
}

// Aggregate issues the seven sub-fetches concurrently and waits for all of
// them to settle. Siblings are not cancelled when one fails: in-flight
// upstream calls run to their own completion or timeout even when the
// aggregate is already doomed. Any non-advisory failure fails the whole
// aggregate; no partial record is produced.
func (a *Aggregator) Aggregate(ctx context.Context, q Query) (*Record, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []error

		weather   CurrentWeather
		forecast  []ForecastPoint
		air       AirQuality
		airFc     []AirQualityPoint
		advResult advisory.Result
		country   *CountryInfo
		emergency *EmergencyInfo
	)

	fail := func(err error) {
		mu.Lock()
		failures = append(failures, err)
		mu.Unlock()
	}

	run := func(fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				fail(err)
			}
		}()
	}

	run(func() error {
		var err error
		weather, err = a.weather.Current(ctx, q.Latitude, q.Longitude)
		return err
	})
	run(func() error {
		var err error
		forecast, err = a.weather.Forecast(ctx, q.Latitude, q.Longitude)
		return err
	})
	run(func() error {
		var err error
		air, err = a.air.Current(ctx, q.Latitude, q.Longitude)
		return err
	})
	run(func() error {
		var err error
		airFc, err = a.air.Forecast(ctx, q.Latitude, q.Longitude)
		return err
	})
	run(func() error {
		// Self-degrading: never returns an error.
		advResult = a.advisory.TravelAdvisory(ctx, q.Country)
		return nil
	})
	run(func() error {
		var err error
		country, err = a.country.Get(ctx, q.Country, q.CountryCode)
		return err
	})
	run(func() error {
		var err error
		emergency, err = a.emergency.Get(ctx, q.Country, q.CountryCode)
		return err
	})

	wg.Wait()

	if len(failures) > 0 {
		a.log.Errorw("aggregation failed",
			"city", q.City, "country", q.Country, "failures", len(failures))
		return nil, &AggregationError{Failures: failures}
	}

	a.log.Infow("aggregated travel data",
		"city", q.City, "country", q.Country,
		"countryInfo", country != nil, "emergencyInfo", emergency != nil)

	return &Record{
		Location: Location{
			City:        q.City,
			Country:     q.Country,
			CountryCode: q.CountryCode,
			Latitude:    q.Latitude,
			Longitude:   q.Longitude,
		},
		TimezoneOffsetSeconds: weather.TimezoneOffsetSeconds,
		Weather:               weather,
		Forecast:              forecast,
		AirQuality:            air,
		AirQualityForecast:    airFc,
		TravelAdvisory:        buildAdvisory(advResult),
		CountryInfo:           country,
		EmergencyInfo:         emergency,
		CreatedAt:             time.Now().UTC(),
	}, nil
}

var firstInteger = regexp.MustCompile(`\d+`)

// buildAdvisory folds the merged advisory into the record's summary shape,
// deriving the numeric risk score from the level string when no explicit
// score exists.
func buildAdvisory(res advisory.Result) Advisory {
	score := 0
	if m := firstInteger.FindString(res.RiskLevel); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			score = n
		}
	}

	description := res.ArticleSummary
	if description == "" {
		description = res.RiskLevelDescription
	}
	if description == "" {
		description = "No advisory data available"
	}

	return Advisory{
		Level:       res.RiskLevel,
		Score:       score,
		Description: description,
		Details:     res,
	}
}
