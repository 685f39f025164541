// Package geo resolves coordinates or client IPs to a place the travel
// search can consume.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"github.com/kelvins/geocoder"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/tripwatch/travel-safety-api/internal/logger"
)

// Place is a resolved location.
type Place struct {
	City        string  `json:"city"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Source      string  `json:"source"`
}

// ReverseGeocoder resolves coordinates to a place name and ISO country code.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (city, countryCode string, err error)
}

// Locator combines reverse geocoding with IP-based lookup.
type Locator struct {
	client       *http.Client
	ipAPIKey     string
	googleAPIKey string
	reverse      ReverseGeocoder
	ipLookupURL  string
	publicIPURL  string
	log          *zap.SugaredLogger
}

func NewLocator(client *http.Client, ipAPIKey, googleAPIKey string, reverse ReverseGeocoder) *Locator {
	return &Locator{
		client:       client,
		ipAPIKey:     ipAPIKey,
		googleAPIKey: googleAPIKey,
		reverse:      reverse,
		ipLookupURL:  "https://api.ipgeolocation.io/v2/ipgeo",
		publicIPURL:  "https://api64.ipify.org?format=json",
		log:          logger.GetLogger("geo"),
	}
}

// defaultPlace is served when nothing can be resolved, so a local or
// airgapped deployment still renders a dashboard.
func defaultPlace() *Place {
	return &Place{
		City:        "Colombo",
		Country:     "Sri Lanka",
		CountryCode: "LK",
		Latitude:    6.9271,
		Longitude:   79.8612,
		Source:      "fallback",
	}
}

// FromCoordinates reverse-geocodes a GPS fix. Google geocoding is used when
// a key is configured, otherwise the weather provider's reverse endpoint.
func (l *Locator) FromCoordinates(ctx context.Context, lat, lon float64) (*Place, error) {
	if l.googleAPIKey != "" {
		if place, err := l.googleReverse(lat, lon); err == nil {
			return place, nil
		} else {
			l.log.Warnw("google reverse geocoding failed", "error", err)
		}
	}

	city, countryCode, err := l.reverse.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	return &Place{
		City:        city,
		Country:     countryNameFromCode(countryCode),
		CountryCode: countryCode,
		Latitude:    lat,
		Longitude:   lon,
		Source:      "gps",
	}, nil
}

func (l *Locator) googleReverse(lat, lon float64) (*Place, error) {
	geocoder.ApiKey = l.googleAPIKey
	addresses, err := geocoder.GeocodingReverse(geocoder.Location{Latitude: lat, Longitude: lon})
	if err != nil {
		return nil, err
	}
	if len(addresses) == 0 {
		return nil, fmt.Errorf("no address for %f,%f", lat, lon)
	}

	addr := addresses[0]
	city := addr.City
	if city == "" {
		city = addr.County
	}
	return &Place{
		City:      city,
		Country:   addr.Country,
		Latitude:  lat,
		Longitude: lon,
		Source:    "gps",
	}, nil
}

// FromIP resolves a client IP. Private addresses are swapped for the
// caller's public IP first; failures degrade to the default place.
func (l *Locator) FromIP(ctx context.Context, ip string) (*Place, error) {
	if isPrivateIP(ip) {
		publicIP, err := l.publicIP(ctx)
		if err != nil {
			l.log.Warnw("public ip detection failed, using default place", "error", err)
			return defaultPlace(), nil
		}
		ip = publicIP
	}

	place, err := l.lookupIP(ctx, ip)
	if err != nil {
		l.log.Warnw("ip geolocation failed, using default place", "ip", ip, "error", err)
		return defaultPlace(), nil
	}
	return place, nil
}

func (l *Locator) publicIP(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.publicIPURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.IP == "" {
		return "", fmt.Errorf("empty ip in response")
	}
	return payload.IP, nil
}

func (l *Locator) lookupIP(ctx context.Context, ip string) (*Place, error) {
	if l.ipAPIKey == "" {
		return nil, fmt.Errorf("ip geolocation api key is not configured")
	}

	values := url.Values{}
	values.Set("apiKey", l.ipAPIKey)
	values.Set("ip", ip)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s?%s", l.ipLookupURL, values.Encode()), nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	// The v2 API nests the place under "location"; older responses kept it
	// at the top level. Both are accepted.
	var payload struct {
		City        string `json:"city"`
		CountryName string `json:"country_name"`
		CountryCode string `json:"country_code2"`
		Latitude    string `json:"latitude"`
		Longitude   string `json:"longitude"`
		Location    struct {
			City        string `json:"city"`
			CountryName string `json:"country_name"`
			CountryCode string `json:"country_code2"`
			Latitude    string `json:"latitude"`
			Longitude   string `json:"longitude"`
		} `json:"location"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	city, country, code := payload.City, payload.CountryName, payload.CountryCode
	latStr, lonStr := payload.Latitude, payload.Longitude
	if city == "" {
		city = payload.Location.City
		country = payload.Location.CountryName
		code = payload.Location.CountryCode
		latStr, lonStr = payload.Location.Latitude, payload.Location.Longitude
	}
	if city == "" || country == "" {
		return nil, fmt.Errorf("incomplete geolocation response for %s", ip)
	}

	lat, _ := strconv.ParseFloat(latStr, 64)
	lon, _ := strconv.ParseFloat(lonStr, 64)

	return &Place{
		City:        city,
		Country:     country,
		CountryCode: code,
		Latitude:    lat,
		Longitude:   lon,
		Source:      "ip",
	}, nil
}

var privateIPPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(::f{4}:)?127\.`),
	regexp.MustCompile(`^(::f{4}:)?10\.`),
	regexp.MustCompile(`^(::f{4}:)?172\.(1[6-9]|2\d|3[0-1])\.`),
	regexp.MustCompile(`^(::f{4}:)?192\.168\.`),
}

func isPrivateIP(ip string) bool {
	if ip == "" || ip == "::1" || ip == "localhost" {
		return true
	}
	for _, p := range privateIPPatterns {
		if p.MatchString(ip) {
			return true
		}
	}
	return false
}

// countryNameFromCode expands an ISO 3166-1 alpha-2 code to its English name.
func countryNameFromCode(code string) string {
	region, err := language.ParseRegion(code)
	if err != nil {
		return code
	}
	if name := display.English.Regions().Name(region); name != "" {
		return name
	}
	return code
}
