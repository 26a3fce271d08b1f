// Package oracle resolves informational reference prices for underlying
// symbols. Prices are display-only and never enter settlement math.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SymbolMapping maps underlying symbols to price-feed ids.
var SymbolMapping = map[string]string{
	"BTC/USD": "bitcoin",
	"ETH/USD": "ethereum",
	"SOL/USD": "solana",
}

// Client fetches USD reference prices from a CoinGecko-compatible API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	delay      time.Duration
	maxRetries int
}

// NewClient creates a new price-feed client.
func NewClient(baseURL string, delay time.Duration, maxRetries int) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		delay:      delay,
		maxRetries: maxRetries,
	}
}

// FetchPrices fetches USD prices for all configured symbols.
// Returns a map of symbol -> priceInUSD.
func (c *Client) FetchPrices(ctx context.Context) (map[string]float64, error) {
	uniqueIDs := make(map[string]bool)
	for _, id := range SymbolMapping {
		uniqueIDs[id] = true
	}

	ids := make([]string, 0, len(uniqueIDs))
	for id := range uniqueIDs {
		ids = append(ids, id)
	}

	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, strings.Join(ids, ","))

	body, err := c.fetchWithRetry(ctx, url)
	if err != nil {
		return nil, err
	}

	// Parse: {"bitcoin":{"usd":45000},"ethereum":{"usd":2500},...}
	var raw map[string]map[string]float64
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing price feed response: %w", err)
	}

	result := make(map[string]float64)
	for symbol, feedID := range SymbolMapping {
		prices, ok := raw[feedID]
		if !ok {
			continue
		}
		result[symbol] = prices["usd"]
	}

	return result, nil
}

func (c *Client) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := range c.maxRetries + 1 {
		if attempt > 0 {
			baseDelay := c.delay
			if baseDelay == 0 {
				baseDelay = 10 * time.Second
			}
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating price feed request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("price feed request failed: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading price feed response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("price feed rate limited (attempt %d/%d)", attempt+1, c.maxRetries+1)
			continue
		}

		return nil, fmt.Errorf("price feed HTTP %d: %s", resp.StatusCode, string(body))
	}

	return nil, lastErr
}
