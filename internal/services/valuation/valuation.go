// Package valuation joins a portfolio snapshot with price quotes. It never
// fetches prices itself.
package valuation

import (
	"sort"

	"github.com/vadiminshakov/hodlbook/internal/domain"
)

// Value prices every asset of the snapshot. Assets missing from prices are
// valued at zero but keep their realized P&L.
func Value(snapshot domain.PortfolioSnapshot, prices map[string]float64) domain.ValuedPortfolio {
	valued := domain.ValuedPortfolio{
		Assets: make([]domain.ValuedAsset, 0, snapshot.Len()),
	}

	for _, asset := range snapshot.Assets() {
		p := snapshot.Positions[asset]
		price := prices[asset]

		va := domain.ValuedAsset{
			Asset:        asset,
			QuantityHeld: p.QuantityHeld,
			AverageCost:  p.AverageCost,
			CurrentPrice: price,
			CurrentValue: p.QuantityHeld * price,
			RealizedPnl:  p.RealizedPnl,
		}
		if p.QuantityHeld > 0 {
			va.UnrealizedPnl = (price - p.AverageCost) * p.QuantityHeld
		}

		valued.Assets = append(valued.Assets, va)
		valued.TotalValue += va.CurrentValue
		valued.TotalUnrealizedPnl += va.UnrealizedPnl
		valued.TotalRealizedPnl += va.RealizedPnl
	}

	return valued
}

// HistoricalSeries values the current holdings against past prices. Every
// date present in any series yields one point; an asset with no price on a
// date contributes zero to it. Holdings are today's quantities for the whole
// window: quantities at past dates are not reconstructed.
//
// When a series carries several points for one date the first one counts.
func HistoricalSeries(snapshot domain.PortfolioSnapshot, history map[string][]domain.PricePoint) []domain.HistoryPoint {
	assets := make([]string, 0, len(history))
	for asset := range history {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	totals := make(map[domain.Date]float64)
	for _, asset := range assets {
		points := history[asset]
		p, ok := snapshot.Position(asset)
		if !ok || !p.IsOpen() {
			continue
		}

		seen := make(map[domain.Date]struct{}, len(points))
		for _, point := range points {
			if _, dup := seen[point.Date]; dup {
				continue
			}
			seen[point.Date] = struct{}{}
			totals[point.Date] += point.Price * p.QuantityHeld
		}
	}

	series := make([]domain.HistoryPoint, 0, len(totals))
	for date, total := range totals {
		series = append(series, domain.HistoryPoint{Date: date, TotalValue: total})
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})

	return series
}
