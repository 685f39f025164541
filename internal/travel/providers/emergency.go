package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tripwatch/travel-safety-api/internal/travel"
)

// EmergencyNumbersProvider fetches emergency contact numbers for all
// countries at once; like the country provider, the upstream only lists all.
type EmergencyNumbersProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewEmergencyNumbersProvider(client *http.Client) *EmergencyNumbersProvider {
	return &EmergencyNumbersProvider{
		name:    "emergencynumberapi",
		baseURL: "https://emergencynumberapi.com/api/data/all",
		httpCfg: defaultHTTPConfig(client),
		circuit: newBreaker("emergencynumberapi"),
	}
}

func (p *EmergencyNumbersProvider) Name() string { return p.name }

type emergencyEntry struct {
	Country struct {
		Name    string `json:"Name"`
		ISOCode string `json:"ISOCode"`
	} `json:"Country"`
	Fire      *emergencyNumbers `json:"Fire"`
	Ambulance *emergencyNumbers `json:"Ambulance"`
	Police    *emergencyNumbers `json:"Police"`
	Dispatch  *emergencyNumbers `json:"Dispatch"`
	Member112 bool              `json:"Member_112"`
	LocalOnly bool              `json:"LocalOnly"`
}

type emergencyNumbers struct {
	All []string `json:"All"`
}

// FetchAll returns normalized emergency numbers for every country the
// upstream knows about.
func (p *EmergencyNumbersProvider) FetchAll(ctx context.Context) ([]travel.EmergencyInfo, error) {
	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, p.baseURL, nil)
	}

	// The API has shipped both a bare array and a {data: [...]} envelope.
	var raw json.RawMessage
	if err := fetchJSON(ctx, p.httpCfg, p.circuit, p.name, buildRequest, &raw); err != nil {
		return nil, err
	}

	var entries []emergencyEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		var envelope struct {
			Data []emergencyEntry `json:"data"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, &travel.ProviderError{
				Provider: p.name,
				Kind:     travel.ErrKindParse,
				Err:      fmt.Errorf("unrecognized response shape: %w", err),
			}
		}
		entries = envelope.Data
	}

	now := time.Now().UTC()
	infos := make([]travel.EmergencyInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.Country.Name == "" {
			continue
		}
		infos = append(infos, travel.EmergencyInfo{
			CountryName: entry.Country.Name,
			ISOCode:     entry.Country.ISOCode,
			Fire:        cleanNumbers(entry.Fire),
			Ambulance:   cleanNumbers(entry.Ambulance),
			Police:      cleanNumbers(entry.Police),
			Dispatch:    cleanNumbers(entry.Dispatch),
			Member112:   entry.Member112,
			LocalOnly:   entry.LocalOnly,
			UpdatedAt:   now,
		})
	}
	return infos, nil
}

// cleanNumbers drops the literal "null" strings and empties the upstream
// pads its arrays with.
func cleanNumbers(nums *emergencyNumbers) []string {
	if nums == nil {
		return []string{}
	}
	out := make([]string, 0, len(nums.All))
	for _, n := range nums.All {
		if n != "" && n != "null" {
			out = append(out, n)
		}
	}
	return out
}
