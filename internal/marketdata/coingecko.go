package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cryptofolio/internal/httputil"
)

// Provider returns current USD prices for a set of uppercase ticker symbols.
// The result may cover only a subset of the requested symbols; a missing
// symbol is not an error. A failed call means no prices at all.
type Provider interface {
	GetCurrentPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
}

const defaultBaseURL = "https://api.coingecko.com"

type CoinGeckoClient struct {
	baseURL    string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

func NewCoinGeckoClient(baseURL string) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &CoinGeckoClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    10 * time.Second,
		},
	}
}

func (c *CoinGeckoClient) GetCurrentPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	ids := make([]string, 0, len(symbols))
	idToSymbol := make(map[string]string, len(symbols))
	for _, symbol := range symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		id, ok := coinGeckoIDs[symbol]
		if !ok {
			// Unknown tickers are simply not priced this cycle.
			continue
		}
		if _, dup := idToSymbol[id]; dup {
			continue
		}
		ids = append(ids, id)
		idToSymbol[id] = symbol
	}

	prices := make(map[string]decimal.Decimal, len(ids))
	if len(ids) == 0 {
		return prices, nil
	}

	values := url.Values{}
	values.Set("ids", strings.Join(ids, ","))
	values.Set("vs_currencies", "usd")
	endpoint := c.baseURL + "/api/v3/simple/price?" + values.Encode()

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("coingecko fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coingecko returned status %d", resp.StatusCode)
	}

	var payload map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode coingecko response: %w", err)
	}

	for id, entry := range payload {
		symbol, ok := idToSymbol[id]
		if !ok || entry.USD <= 0 {
			continue
		}
		prices[symbol] = decimal.NewFromFloat(entry.USD)
	}
	return prices, nil
}

// coinGeckoIDs maps ticker symbols onto CoinGecko coin ids for the
// /simple/price endpoint.
var coinGeckoIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"DOGE":  "dogecoin",
	"ADA":   "cardano",
	"XRP":   "ripple",
	"DOT":   "polkadot",
	"AVAX":  "avalanche-2",
	"MATIC": "matic-network",
	"LINK":  "chainlink",
	"LTC":   "litecoin",
	"BCH":   "bitcoin-cash",
	"UNI":   "uniswap",
	"ATOM":  "cosmos",
	"XLM":   "stellar",
}
