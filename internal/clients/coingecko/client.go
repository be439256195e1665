// Package coingecko provides crypto quote fetching from the CoinGecko simple-price API.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/actapp/backend/internal/domain"
)

// coinIDs maps supported symbols to CoinGecko coin ids.
var coinIDs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"USDT": "tether",
}

// Client for the CoinGecko API.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new CoinGecko client. baseURL is overridable for tests;
// pass "" for the production endpoint.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.coingecko.com"
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("client", "coingecko").Logger(),
	}
}

// GetPrice fetches the current USD price for a symbol. Each call is a fresh
// upstream round trip; failures surface as upstream errors.
func (c *Client) GetPrice(ctx context.Context, symbol string) (domain.Quote, error) {
	coinID, ok := coinIDs[symbol]
	if !ok {
		return domain.Quote{}, domain.E(domain.KindUnsupportedAsset, "unsupported cryptocurrency")
	}

	url := fmt.Sprintf("%s/api/v3/simple/price?ids=%s&vs_currencies=usd", c.baseURL, coinID)
	c.log.Debug().Str("url", url).Msg("Fetching quote")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Quote{}, domain.Wrap(domain.KindUpstream, "quote provider request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Quote{}, domain.Wrap(domain.KindUpstream, "quote provider error",
			fmt.Errorf("coingecko returned status %d for %s", resp.StatusCode, symbol))
	}

	var result map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.Quote{}, domain.Wrap(domain.KindUpstream, "failed to parse quote response", err)
	}

	price, ok := result[coinID]["usd"]
	if !ok {
		return domain.Quote{}, domain.Wrap(domain.KindUpstream, "quote provider error",
			fmt.Errorf("price not found in response for %s", coinID))
	}

	c.log.Debug().Str("symbol", symbol).Float64("price", price).Msg("Fetched quote")

	return domain.Quote{
		Symbol:   symbol,
		Price:    price,
		Currency: "USD",
		AsOf:     time.Now().UTC(),
	}, nil
}
