package pricer

import (
	"context"
	"strconv"
	"time"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/hodlbook/internal/domain"
	"go.uber.org/zap"
)

// BybitPricer quotes assets against Bybit spot markets.
type BybitPricer struct {
	client  *bybit.Client
	symbols SymbolMap
	quote   string
	l       *zap.Logger
}

// NewBybitPricer creates a Bybit pricer.
func NewBybitPricer(l *zap.Logger, client *bybit.Client, symbols SymbolMap, quote string) *BybitPricer {
	return &BybitPricer{client: client, symbols: symbols, quote: quote, l: l}
}

// GetPrices fetches the last traded price of every asset. The Bybit client
// takes no context; ctx is only checked between requests.
func (p *BybitPricer) GetPrices(ctx context.Context, assets []string) (map[string]float64, error) {
	ids := normalizeAssets(assets)
	prices := make(map[string]float64, len(ids))

	var lastErr error
	for _, asset := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pair := p.symbols.Pair(asset, p.quote)
		symbol := bybit.SymbolV5(pair.Symbol())

		result, err := p.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
			Category: "spot",
			Symbol:   &symbol,
		})
		if err != nil {
			lastErr = errors.Wrapf(err, "bybit tickers for %s", pair.String())
			p.l.Debug("bybit price lookup failed", zap.String("asset", asset), zap.Error(err))
			continue
		}
		if len(result.Result.Spot.List) == 0 {
			lastErr = errors.Wrapf(ErrNoPrice, "bybit API returned empty prices for %s", pair.String())
			continue
		}

		price, err := parsePrice(result.Result.Spot.List[0].LastPrice)
		if err != nil {
			lastErr = err
			continue
		}
		prices[asset] = price
	}

	if len(prices) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return prices, nil
}

// GetHistory fetches daily spot klines. Bybit lists them newest first.
func (p *BybitPricer) GetHistory(ctx context.Context, asset string, days int) ([]domain.PricePoint, error) {
	if days <= 0 {
		return nil, errors.Errorf("days must be positive, got %d", days)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pair := p.symbols.Pair(asset, p.quote)
	limit := days

	result, err := p.client.V5().Market().GetKline(bybit.V5GetKlineParam{
		Category: "spot",
		Symbol:   bybit.SymbolV5(pair.Symbol()),
		Interval: bybit.Interval("D"),
		Limit:    &limit,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "bybit klines for %s", pair.String())
	}

	samples := make([]timedPrice, 0, len(result.Result.List))
	for i, k := range result.Result.List {
		startMs, err := strconv.ParseInt(k.StartTime, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse kline start time at index %d", i)
		}
		closePrice, err := parsePrice(k.Close)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse close price at index %d", i)
		}
		samples = append(samples, timedPrice{at: time.UnixMilli(startMs), price: closePrice})
	}

	if len(samples) == 0 {
		return nil, errors.Wrapf(ErrNoPrice, "bybit returned no klines for %s", pair.String())
	}
	return dailyPoints(samples), nil
}
