package providers

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tripwatch/travel-safety-api/internal/travel"
)

// OpenWeatherProvider fetches current conditions, the 3-hourly forecast, and
// reverse geocoding from the OpenWeatherMap API family.
type OpenWeatherProvider struct {
	name        string
	apiKey      string
	baseURL     string
	forecastURL string
	geoURL      string
	httpCfg     HTTPClientConfig
	circuit     *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:        "openweathermap",
		apiKey:      apiKey,
		baseURL:     "https://api.openweathermap.org/data/2.5/weather",
		forecastURL: "https://pro.openweathermap.org/data/2.5/forecast",
		geoURL:      "https://api.openweathermap.org/geo/1.0/reverse",
		httpCfg:     defaultHTTPConfig(client),
		circuit:     newBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string { return p.name }

type openWeatherPoint struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
		Pressure  float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Main string `json:"main"`
		Icon string `json:"icon"`
	} `json:"weather"`
}

// Current returns normalized current conditions for the coordinates.
// Temperatures round to the nearest integer; wind is converted m/s to km/h.
func (p *OpenWeatherProvider) Current(ctx context.Context, lat, lon float64) (travel.CurrentWeather, error) {
	if p.apiKey == "" {
		return travel.CurrentWeather{}, fmt.Errorf("openweather api key is not configured")
	}

	var payload struct {
		openWeatherPoint
		Timezone int `json:"timezone"`
	}

	buildRequest := p.coordRequest(p.baseURL, lat, lon, true)
	if err := fetchJSON(ctx, p.httpCfg, p.circuit, p.name, buildRequest, &payload); err != nil {
		return travel.CurrentWeather{}, err
	}

	description, icon := "", ""
	if len(payload.Weather) > 0 {
		description = payload.Weather[0].Main
		icon = payload.Weather[0].Icon
	}

	return travel.CurrentWeather{
		Temperature:           roundInt(payload.Main.Temp),
		FeelsLike:             roundInt(payload.Main.FeelsLike),
		Humidity:              payload.Main.Humidity,
		Description:           description,
		Icon:                  icon,
		WindSpeedKmh:          roundInt(payload.Wind.Speed * 3.6),
		Pressure:              roundInt(payload.Main.Pressure),
		TimezoneOffsetSeconds: payload.Timezone,
	}, nil
}

// Forecast returns the multi-day forecast as 3-hour-interval points.
func (p *OpenWeatherProvider) Forecast(ctx context.Context, lat, lon float64) ([]travel.ForecastPoint, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openweather api key is not configured")
	}

	var payload struct {
		List []openWeatherPoint `json:"list"`
	}

	buildRequest := p.coordRequest(p.forecastURL, lat, lon, true)
	if err := fetchJSON(ctx, p.httpCfg, p.circuit, p.name, buildRequest, &payload); err != nil {
		return nil, err
	}

	points := make([]travel.ForecastPoint, 0, len(payload.List))
	for _, item := range payload.List {
		description := ""
		if len(item.Weather) > 0 {
			description = item.Weather[0].Main
		}
		points = append(points, travel.ForecastPoint{
			Date:         time.Unix(item.Dt, 0).UTC(),
			Temperature:  roundInt(item.Main.Temp),
			Description:  description,
			Humidity:     item.Main.Humidity,
			WindSpeedKmh: round1(item.Wind.Speed * 3.6),
		})
	}
	return points, nil
}

// ReverseGeocode resolves coordinates to the nearest place name and its
// ISO country code.
func (p *OpenWeatherProvider) ReverseGeocode(ctx context.Context, lat, lon float64) (city, countryCode string, err error) {
	if p.apiKey == "" {
		return "", "", fmt.Errorf("openweather api key is not configured")
	}

	var payload []struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	}

	buildRequest := p.coordRequest(p.geoURL, lat, lon, false)
	if err := fetchJSON(ctx, p.httpCfg, p.circuit, p.name, buildRequest, &payload); err != nil {
		return "", "", err
	}
	if len(payload) == 0 {
		return "", "", fmt.Errorf("no place found for %f,%f", lat, lon)
	}
	return payload[0].Name, payload[0].Country, nil
}

func (p *OpenWeatherProvider) coordRequest(base string, lat, lon float64, metric bool) func() (*http.Request, error) {
	return func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", fmt.Sprintf("%f", lat))
		values.Set("lon", fmt.Sprintf("%f", lon))
		values.Set("appid", p.apiKey)
		if metric {
			values.Set("units", "metric")
		}
		return http.NewRequest(http.MethodGet, fmt.Sprintf("%s?%s", base, values.Encode()), nil)
	}
}

func roundInt(v float64) int {
	return int(math.Round(v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
