// Package pricer provides price quotes for tracked assets: current spot
// prices and trailing daily history.
package pricer

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/hodlbook/internal/domain"
)

var (
	// ErrNoPrice is returned when the provider has no quote for the asset.
	ErrNoPrice = errors.New("no price available")
	// ErrUnsupportedAsset is returned when the asset cannot be mapped to a market on the provider.
	ErrUnsupportedAsset = errors.New("asset is not supported by the provider")
)

// Pricer is the price quote service consumed by the tracker.
type Pricer interface {
	// GetPrices returns spot prices keyed by normalized asset. Assets the
	// provider does not know are absent from the result.
	GetPrices(ctx context.Context, assets []string) (map[string]float64, error)
	// GetHistory returns one price per day over the trailing window, oldest first.
	GetHistory(ctx context.Context, asset string, days int) ([]domain.PricePoint, error)
}

// SymbolMap maps asset identifiers to exchange base symbols. Assets without
// an entry use their upper-cased identifier.
type SymbolMap map[string]string

// Pair returns the exchange market for asset quoted in quote.
func (m SymbolMap) Pair(asset, quote string) domain.Pair {
	asset = domain.NormalizeAsset(asset)
	base, ok := m[asset]
	if !ok || base == "" {
		base = asset
	}
	return domain.NewPair(base, quote)
}

// timedPrice is a raw provider sample.
type timedPrice struct {
	at    time.Time
	price float64
}

// dailyPoints keeps the first sample of every UTC day, oldest first.
func dailyPoints(samples []timedPrice) []domain.PricePoint {
	sorted := make([]timedPrice, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].at.Before(sorted[j].at)
	})

	points := make([]domain.PricePoint, 0, len(sorted))
	var last domain.Date
	for _, s := range sorted {
		day := domain.DateOf(s.at.UTC())
		if len(points) > 0 && day == last {
			continue
		}
		points = append(points, domain.PricePoint{Date: day, Price: s.price})
		last = day
	}
	return points
}

// parsePrice converts an exchange price string into a float.
func parsePrice(raw string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, errors.Wrapf(err, "parse price %q", raw)
	}
	if d.IsNegative() {
		return 0, errors.Errorf("negative price %q", raw)
	}
	f, _ := d.Float64()
	return f, nil
}

// normalizeAssets lower-cases, trims and de-duplicates assets, preserving order.
func normalizeAssets(assets []string) []string {
	seen := make(map[string]struct{}, len(assets))
	out := make([]string, 0, len(assets))
	for _, a := range assets {
		a = domain.NormalizeAsset(a)
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
