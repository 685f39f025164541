package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tripwatch/travel-safety-api/internal/travel"
)

// CurrencyProvider fetches the global USD-based exchange-rate table.
type CurrencyProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewCurrencyProvider(client *http.Client) *CurrencyProvider {
	return &CurrencyProvider{
		name:    "er-api",
		baseURL: "https://open.er-api.com/v6/latest/USD",
		httpCfg: defaultHTTPConfig(client),
		circuit: newBreaker("er-api"),
	}
}

func (p *CurrencyProvider) Name() string { return p.name }

// FetchLatest returns one fresh rate snapshot.
func (p *CurrencyProvider) FetchLatest(ctx context.Context) (travel.CurrencyRates, error) {
	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, p.baseURL, nil)
	}

	var payload struct {
		Result             string             `json:"result"`
		BaseCode           string             `json:"base_code"`
		Rates              map[string]float64 `json:"rates"`
		TimeLastUpdateUnix int64              `json:"time_last_update_unix"`
		TimeNextUpdateUnix int64              `json:"time_next_update_unix"`
	}

	if err := fetchJSON(ctx, p.httpCfg, p.circuit, p.name, buildRequest, &payload); err != nil {
		return travel.CurrencyRates{}, err
	}

	if payload.Result != "success" {
		return travel.CurrencyRates{}, &travel.ProviderError{
			Provider: p.name,
			Kind:     travel.ErrKindParse,
			Err:      fmt.Errorf("api result %q", payload.Result),
		}
	}

	now := time.Now().UTC()
	lastUpdate := now
	if payload.TimeLastUpdateUnix > 0 {
		lastUpdate = time.Unix(payload.TimeLastUpdateUnix, 0).UTC()
	}
	nextUpdate := now.Add(time.Hour)
	if payload.TimeNextUpdateUnix > 0 {
		nextUpdate = time.Unix(payload.TimeNextUpdateUnix, 0).UTC()
	}

	return travel.CurrencyRates{
		Base:       payload.BaseCode,
		Rates:      payload.Rates,
		LastUpdate: lastUpdate,
		NextUpdate: nextUpdate,
		CreatedAt:  now,
	}, nil
}
