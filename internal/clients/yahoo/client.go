// Package yahoo provides equity quote fetching from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/actapp/backend/internal/domain"
)

// Client for the Yahoo Finance chart API.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new Yahoo Finance client. baseURL is overridable for
// tests; pass "" for the production endpoint.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("client", "yahoo").Logger(),
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetPrice fetches the current market price for a symbol. Each call is a
// fresh upstream round trip; failures surface as upstream errors.
func (c *Client) GetPrice(ctx context.Context, symbol string) (domain.Quote, error) {
	url := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", c.baseURL, symbol)
	c.log.Debug().Str("url", url).Msg("Fetching quote")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Quote{}, domain.Wrap(domain.KindUpstream, "quote provider request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Quote{}, domain.Wrap(domain.KindUpstream, "quote provider error",
			fmt.Errorf("yahoo returned status %d for %s", resp.StatusCode, symbol))
	}

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.Quote{}, domain.Wrap(domain.KindUpstream, "failed to parse quote response", err)
	}

	if result.Chart.Error != nil {
		return domain.Quote{}, domain.Wrap(domain.KindUpstream, "quote provider error",
			fmt.Errorf("yahoo error for %s: %s", symbol, result.Chart.Error.Description))
	}
	if len(result.Chart.Result) == 0 {
		return domain.Quote{}, domain.Wrap(domain.KindUpstream, "quote provider error",
			fmt.Errorf("no chart data for %s", symbol))
	}

	meta := result.Chart.Result[0].Meta
	asOf := time.Now().UTC()
	if meta.RegularMarketTime > 0 {
		asOf = time.Unix(meta.RegularMarketTime, 0).UTC()
	}
	currency := meta.Currency
	if currency == "" {
		currency = "USD"
	}

	c.log.Debug().Str("symbol", symbol).Float64("price", meta.RegularMarketPrice).Msg("Fetched quote")

	return domain.Quote{
		Symbol:   symbol,
		Price:    meta.RegularMarketPrice,
		Currency: currency,
		AsOf:     asOf,
	}, nil
}
