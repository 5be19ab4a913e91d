package pricer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/hodlbook/internal/domain"
	"github.com/vadiminshakov/hodlbook/pkg/retrier"
	"go.uber.org/zap"
)

const (
	// DefaultCoinGeckoURL is the public CoinGecko API root.
	DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

	coinGeckoTimeout   = 15 * time.Second
	coinGeckoKeyHeader = "x-cg-demo-api-key"
	maxErrorBodyBytes  = 512
)

// CoinGecko quotes assets by CoinGecko coin id (e.g. "bitcoin").
type CoinGecko struct {
	baseURL    string
	apiKey     string
	vsCurrency string
	client     *http.Client
	retrier    *retrier.Retrier
	l          *zap.Logger
}

// CoinGeckoOption configures the CoinGecko provider.
type CoinGeckoOption func(*CoinGecko)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) CoinGeckoOption {
	return func(c *CoinGecko) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithAPIKey sends a demo API key with every request.
func WithAPIKey(key string) CoinGeckoOption {
	return func(c *CoinGecko) { c.apiKey = key }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) CoinGeckoOption {
	return func(c *CoinGecko) { c.client = client }
}

// WithRetrier replaces the retry policy.
func WithRetrier(r *retrier.Retrier) CoinGeckoOption {
	return func(c *CoinGecko) { c.retrier = r }
}

// NewCoinGecko creates a CoinGecko provider quoting in vsCurrency (e.g. "usd").
func NewCoinGecko(l *zap.Logger, vsCurrency string, opts ...CoinGeckoOption) *CoinGecko {
	c := &CoinGecko{
		baseURL:    DefaultCoinGeckoURL,
		vsCurrency: strings.ToLower(vsCurrency),
		client:     &http.Client{Timeout: coinGeckoTimeout},
		l:          l,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retrier == nil {
		c.retrier = retrier.New(retrier.WithOnRetry(func(attempt int, err error) {
			c.l.Debug("retrying coingecko request", zap.Int("attempt", attempt), zap.Error(err))
		}))
	}
	return c
}

// GetPrices fetches spot prices for all assets in one request.
func (c *CoinGecko) GetPrices(ctx context.Context, assets []string) (map[string]float64, error) {
	ids := normalizeAssets(assets)
	prices := make(map[string]float64, len(ids))
	if len(ids) == 0 {
		return prices, nil
	}

	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", c.vsCurrency)

	payload, err := getJSON[map[string]map[string]float64](ctx, c, "/simple/price", query)
	if err != nil {
		return nil, errors.Wrap(err, "coingecko simple price")
	}

	for _, id := range ids {
		quotes, ok := payload[id]
		if !ok {
			continue
		}
		if price, ok := quotes[c.vsCurrency]; ok {
			prices[id] = price
		}
	}
	return prices, nil
}

// GetHistory fetches the market chart of one coin and keeps a point per day.
func (c *CoinGecko) GetHistory(ctx context.Context, asset string, days int) ([]domain.PricePoint, error) {
	id := domain.NormalizeAsset(asset)
	if id == "" {
		return nil, domain.ErrEmptyAsset
	}
	if days <= 0 {
		return nil, errors.Errorf("days must be positive, got %d", days)
	}

	query := url.Values{}
	query.Set("vs_currency", c.vsCurrency)
	query.Set("days", strconv.Itoa(days))

	payload, err := getJSON[marketChart](ctx, c, "/coins/"+url.PathEscape(id)+"/market_chart", query)
	if err != nil {
		return nil, errors.Wrapf(err, "coingecko market chart for %s", id)
	}
	if len(payload.Prices) == 0 {
		return nil, errors.Wrapf(ErrNoPrice, "coingecko returned no history for %s", id)
	}

	samples := make([]timedPrice, 0, len(payload.Prices))
	for _, p := range payload.Prices {
		samples = append(samples, timedPrice{at: time.UnixMilli(int64(p[0])), price: p[1]})
	}
	return dailyPoints(samples), nil
}

type marketChart struct {
	Prices [][2]float64 `json:"prices"`
}

// getJSON performs a retried GET and decodes the body of the successful attempt.
func getJSON[T any](ctx context.Context, c *CoinGecko, path string, query url.Values) (T, error) {
	endpoint := c.baseURL + path + "?" + query.Encode()

	return retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) (T, error) {
		var out T
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return out, retrier.Permanent(errors.Wrap(err, "build request"))
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "hodlbook/1.0")
		if c.apiKey != "" {
			req.Header.Set(coinGeckoKeyHeader, c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return out, errors.Wrap(err, "do request")
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
			statusErr := fmt.Errorf("coingecko http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
				return out, statusErr
			}
			return out, retrier.Permanent(statusErr)
		}

		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return out, retrier.Permanent(errors.Wrap(err, "decode response"))
		}
		return out, nil
	})
}
