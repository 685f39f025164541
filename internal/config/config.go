package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	// API keys for the OpenWeather family. The air-quality endpoints accept
	// the same key as the weather ones, but deployments may issue separate
	// keys, so both names are honored.
	OpenWeatherAPIKey string
	AirQualityAPIKey  string

	// IP-based geolocation (ipgeolocation.io). Optional.
	IPGeolocationAPIKey string

	// Google geocoding key for reverse geocoding. Optional; the OpenWeather
	// reverse geocoder is used when absent.
	GeocoderAPIKey string

	// Reference datastore. When MongoURI is empty the service runs on the
	// in-memory store (useful for development and tests).
	MongoURI      string
	MongoDatabase string

	// HTTPTimeout bounds a single outbound provider call.
	HTTPTimeout time.Duration

	// RefreshInterval controls the background reference-data warm refresh.
	RefreshInterval time.Duration

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.AirQualityAPIKey = getenvDefault("OPENWEATHER_AQ_API_KEY", cfg.OpenWeatherAPIKey)
	cfg.IPGeolocationAPIKey = os.Getenv("IPGEOLOCATION_API_KEY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	cfg.MongoURI = os.Getenv("MONGODB_URI")
	cfg.MongoDatabase = getenvDefault("MONGODB_DATABASE", "travelsafety")

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	refreshStr := getenvDefault("REFRESH_INTERVAL", "6h")
	refresh, err := time.ParseDuration(refreshStr)
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	cfg.RefreshInterval = refresh

	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
