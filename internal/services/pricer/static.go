package pricer

import (
	"context"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/hodlbook/internal/domain"
)

// StaticPricer serves fixed prices. History is flat at the current price.
// Used offline and in demos.
type StaticPricer struct {
	prices map[string]float64
	today  func() domain.Date
}

// NewStaticPricer copies prices, normalizing asset keys.
func NewStaticPricer(prices map[string]float64) *StaticPricer {
	normalized := make(map[string]float64, len(prices))
	for asset, price := range prices {
		normalized[domain.NormalizeAsset(asset)] = price
	}
	return &StaticPricer{prices: normalized, today: domain.Today}
}

func (p *StaticPricer) GetPrices(ctx context.Context, assets []string) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(assets))
	for _, asset := range normalizeAssets(assets) {
		if price, ok := p.prices[asset]; ok {
			out[asset] = price
		}
	}
	return out, nil
}

func (p *StaticPricer) GetHistory(ctx context.Context, asset string, days int) ([]domain.PricePoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if days <= 0 {
		return nil, errors.Errorf("days must be positive, got %d", days)
	}
	price, ok := p.prices[domain.NormalizeAsset(asset)]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedAsset, "no static price for %s", asset)
	}

	today := p.today()
	points := make([]domain.PricePoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		points = append(points, domain.PricePoint{Date: today.AddDays(-i), Price: price})
	}
	return points, nil
}
