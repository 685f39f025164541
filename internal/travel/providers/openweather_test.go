package providers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newWeatherTestProvider(srvURL string) *OpenWeatherProvider {
	p := NewOpenWeatherProvider(http.DefaultClient, "test-key")
	p.baseURL = srvURL
	p.forecastURL = srvURL
	p.geoURL = srvURL
	p.httpCfg = fastConfig()
	return p
}

func TestCurrentNormalizesUnits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("units") != "metric" {
			t.Errorf("units = %q, want metric", q.Get("units"))
		}
		if q.Get("appid") != "test-key" {
			t.Errorf("appid = %q", q.Get("appid"))
		}
		io.WriteString(w, `{
			"main": {"temp": 27.6, "feels_like": 29.4, "humidity": 78, "pressure": 1011.2},
			"wind": {"speed": 3.4},
			"weather": [{"main": "Clouds", "icon": "04d"}],
			"timezone": 19800
		}`)
	}))
	defer srv.Close()

	p := newWeatherTestProvider(srv.URL)
	current, err := p.Current(context.Background(), 6.9271, 79.8612)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if current.Temperature != 28 {
		t.Errorf("temperature = %d, want 28", current.Temperature)
	}
	if current.FeelsLike != 29 {
		t.Errorf("feels like = %d, want 29", current.FeelsLike)
	}
	// 3.4 m/s is 12.24 km/h, rounded to the nearest whole number.
	if current.WindSpeedKmh != 12 {
		t.Errorf("wind = %d, want 12", current.WindSpeedKmh)
	}
	if current.Pressure != 1011 {
		t.Errorf("pressure = %d, want 1011", current.Pressure)
	}
	if current.Description != "Clouds" || current.Icon != "04d" {
		t.Errorf("description/icon = %q/%q", current.Description, current.Icon)
	}
	if current.TimezoneOffsetSeconds != 19800 {
		t.Errorf("timezone offset = %d", current.TimezoneOffsetSeconds)
	}
}

func TestForecastKeepsWindToOneDecimal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"list": [
			{"dt": 1752480000, "main": {"temp": 24.2, "humidity": 80}, "wind": {"speed": 2.57}, "weather": [{"main": "Rain"}]},
			{"dt": 1752490800, "main": {"temp": 25.8, "humidity": 70}, "wind": {"speed": 1.0}, "weather": []}
		]}`)
	}))
	defer srv.Close()

	p := newWeatherTestProvider(srv.URL)
	points, err := p.Forecast(context.Background(), 6.9271, 79.8612)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	// 2.57 m/s is 9.252 km/h, kept to one decimal.
	if points[0].WindSpeedKmh != 9.3 {
		t.Errorf("wind = %v, want 9.3", points[0].WindSpeedKmh)
	}
	if points[0].Temperature != 24 || points[1].Temperature != 26 {
		t.Errorf("temps = %d, %d", points[0].Temperature, points[1].Temperature)
	}
	if points[1].Description != "" {
		t.Errorf("missing weather block should give empty description, got %q", points[1].Description)
	}
}

func TestCurrentRequiresAPIKey(t *testing.T) {
	p := NewOpenWeatherProvider(http.DefaultClient, "")
	if _, err := p.Current(context.Background(), 0, 0); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestReverseGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `[{"name": "Colombo", "country": "LK"}]`)
	}))
	defer srv.Close()

	p := newWeatherTestProvider(srv.URL)
	city, code, err := p.ReverseGeocode(context.Background(), 6.9271, 79.8612)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if city != "Colombo" || code != "LK" {
		t.Fatalf("got %q/%q", city, code)
	}
}
