package pricer

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/hodlbook/internal/domain"
	"go.uber.org/zap"
)

const binanceDailyInterval = "1d"

// BinancePricer quotes assets against a Binance spot market (e.g. BTCUSDT).
type BinancePricer struct {
	client  *binance.Client
	symbols SymbolMap
	quote   string
	l       *zap.Logger
}

// NewBinancePricer creates a pricer on top of a (possibly unauthenticated) client.
func NewBinancePricer(l *zap.Logger, client *binance.Client, symbols SymbolMap, quote string) *BinancePricer {
	return &BinancePricer{client: client, symbols: symbols, quote: quote, l: l}
}

// GetPrices fetches the last price of every asset. Assets without a market
// are skipped; an error is returned only when nothing could be priced.
func (p *BinancePricer) GetPrices(ctx context.Context, assets []string) (map[string]float64, error) {
	ids := normalizeAssets(assets)
	prices := make(map[string]float64, len(ids))

	var lastErr error
	for _, asset := range ids {
		pair := p.symbols.Pair(asset, p.quote)

		list, err := p.client.NewListPricesService().Symbol(pair.Symbol()).Do(ctx)
		if err != nil {
			lastErr = errors.Wrapf(err, "binance price for %s", pair.String())
			p.l.Debug("binance price lookup failed", zap.String("asset", asset), zap.Error(err))
			continue
		}
		if len(list) == 0 {
			lastErr = errors.Wrapf(ErrNoPrice, "binance returned empty prices for %s", pair.String())
			continue
		}

		price, err := parsePrice(list[0].Price)
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

// GetHistory fetches daily klines and uses each day's close.
func (p *BinancePricer) GetHistory(ctx context.Context, asset string, days int) ([]domain.PricePoint, error) {
	if days <= 0 {
		return nil, errors.Errorf("days must be positive, got %d", days)
	}
	pair := p.symbols.Pair(asset, p.quote)

	klines, err := p.client.NewKlinesService().
		Symbol(pair.Symbol()).
		Interval(binanceDailyInterval).
		Limit(days).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch klines from Binance for %s", pair.String())
	}

	samples := make([]timedPrice, 0, len(klines))
	for i, k := range klines {
		closePrice, err := parsePrice(k.Close)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse close price at index %d", i)
		}
		samples = append(samples, timedPrice{
			at:    time.Unix(0, k.OpenTime*int64(time.Millisecond)),
			price: closePrice,
		})
	}

	if len(samples) == 0 {
		return nil, errors.Wrapf(ErrNoPrice, "binance returned no klines for %s", pair.String())
	}
	return dailyPoints(samples), nil
}
