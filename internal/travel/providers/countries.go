package providers

import (
	"context"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tripwatch/travel-safety-api/internal/travel"
)

// CountriesProvider fetches country metadata. The upstream exposes only a
// list-all endpoint, so every refresh returns the entire dataset.
type CountriesProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewCountriesProvider(client *http.Client) *CountriesProvider {
	return &CountriesProvider{
		name:    "apicountries",
		baseURL: "https://www.apicountries.com/countries",
		httpCfg: defaultHTTPConfig(client),
		circuit: newBreaker("apicountries"),
	}
}

func (p *CountriesProvider) Name() string { return p.name }

// FetchAll returns metadata for every known country. The natural keys are
// lifted into typed fields; the rest of each payload stays opaque.
func (p *CountriesProvider) FetchAll(ctx context.Context) ([]travel.CountryInfo, error) {
	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, p.baseURL, nil)
	}

	var payload []map[string]any
	if err := fetchJSON(ctx, p.httpCfg, p.circuit, p.name, buildRequest, &payload); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	infos := make([]travel.CountryInfo, 0, len(payload))
	for _, raw := range payload {
		name, _ := raw["name"].(string)
		if name == "" {
			continue
		}
		alpha2, _ := raw["alpha2Code"].(string)
		alpha3, _ := raw["alpha3Code"].(string)
		infos = append(infos, travel.CountryInfo{
			Name:       name,
			Alpha2Code: alpha2,
			Alpha3Code: alpha3,
			Data:       travel.Payload(raw),
			UpdatedAt:  now,
		})
	}
	return infos, nil
}
