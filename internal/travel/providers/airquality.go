package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tripwatch/travel-safety-api/internal/travel"
)

// AirQualityProvider fetches current AQI and its forecast from the
// OpenWeatherMap air-pollution endpoints. Same provider family as weather,
// but a separate adapter with its own key, budget, and breaker.
type AirQualityProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewAirQualityProvider(client *http.Client, apiKey string) *AirQualityProvider {
	return &AirQualityProvider{
		name:    "openweather-air",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/air_pollution",
		httpCfg: defaultHTTPConfig(client),
		circuit: newBreaker("openweather-air"),
	}
}

func (p *AirQualityProvider) Name() string { return p.name }

type airQualityItem struct {
	Dt   int64 `json:"dt"`
	Main struct {
		AQI int `json:"aqi"`
	} `json:"main"`
	Components map[string]float64 `json:"components"`
}

type airQualityPayload struct {
	List []airQualityItem `json:"list"`
}

// Current returns the present AQI reading with components rounded to ints.
func (p *AirQualityProvider) Current(ctx context.Context, lat, lon float64) (travel.AirQuality, error) {
	payload, err := p.fetch(ctx, p.baseURL, lat, lon)
	if err != nil {
		return travel.AirQuality{}, err
	}
	if len(payload.List) == 0 {
		return travel.AirQuality{}, &travel.ProviderError{
			Provider: p.name,
			Kind:     travel.ErrKindParse,
			Err:      fmt.Errorf("empty air quality list"),
		}
	}

	item := payload.List[0]
	return travel.AirQuality{
		AQI: item.Main.AQI,
		Components: travel.AirComponents{
			PM25: roundInt(item.Components["pm2_5"]),
			PM10: roundInt(item.Components["pm10"]),
			NO2:  roundInt(item.Components["no2"]),
			SO2:  roundInt(item.Components["so2"]),
			O3:   roundInt(item.Components["o3"]),
			CO:   roundInt(item.Components["co"]),
		},
	}, nil
}

// Forecast thins the provider's hourly forecast (96 points over 4 days) to
// one point per ~12 hours.
func (p *AirQualityProvider) Forecast(ctx context.Context, lat, lon float64) ([]travel.AirQualityPoint, error) {
	payload, err := p.fetch(ctx, p.baseURL+"/forecast", lat, lon)
	if err != nil {
		return nil, err
	}

	points := make([]travel.AirQualityPoint, 0, len(payload.List)/12+1)
	for i, item := range payload.List {
		if i%12 != 0 {
			continue
		}
		points = append(points, travel.AirQualityPoint{
			Date:       time.Unix(item.Dt, 0).UTC(),
			AQI:        item.Main.AQI,
			Components: item.Components,
		})
	}
	return points, nil
}

func (p *AirQualityProvider) fetch(ctx context.Context, base string, lat, lon float64) (*airQualityPayload, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("air quality api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", fmt.Sprintf("%f", lat))
		values.Set("lon", fmt.Sprintf("%f", lon))
		values.Set("appid", p.apiKey)
		return http.NewRequest(http.MethodGet, fmt.Sprintf("%s?%s", base, values.Encode()), nil)
	}

	var payload airQualityPayload
	if err := fetchJSON(ctx, p.httpCfg, p.circuit, p.name, buildRequest, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
