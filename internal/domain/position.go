package domain

import "sort"

// Lot represents the unconsumed remainder of a past buy.
type Lot struct {
	// Quantity is what remains. It decreases as sells consume the lot.
	Quantity float64 `json:"quantity"`
	// UnitPrice is the price paid by the originating buy.
	UnitPrice float64 `json:"unitPrice"`
}

// Value returns the remaining quantity times the original price.
func (l Lot) Value() float64 {
	return l.Quantity * l.UnitPrice
}

// AssetPosition represents the derived state of one asset after replaying its transactions.
type AssetPosition struct {
	Asset string `json:"asset"`
	// QuantityHeld is buys minus sells. It goes negative when more was sold than
	// was ever bought.
	QuantityHeld float64 `json:"quantityHeld"`
	// OpenLots are ordered oldest first.
	OpenLots []Lot `json:"openLots"`
	// CostBasis is the sum of remaining lot values.
	CostBasis float64 `json:"costBasis"`
	// AverageCost is CostBasis / QuantityHeld, zero when nothing is held.
	AverageCost float64 `json:"averageCost"`
	RealizedPnl float64 `json:"realizedPnl"`
}

// IsOpen reports whether a positive quantity is held.
func (p AssetPosition) IsOpen() bool {
	return p.QuantityHeld > 0
}

// IsDormant reports a fully closed position that never realized anything.
func (p AssetPosition) IsDormant() bool {
	return p.QuantityHeld == 0 && p.RealizedPnl == 0
}

// PortfolioSnapshot holds per-asset positions recomputed from the full history.
type PortfolioSnapshot struct {
	Positions map[string]AssetPosition `json:"positions"`
}

// NewPortfolioSnapshot returns an empty snapshot.
func NewPortfolioSnapshot() PortfolioSnapshot {
	return PortfolioSnapshot{Positions: make(map[string]AssetPosition)}
}

// Position returns the position of a (normalized) asset.
func (s PortfolioSnapshot) Position(asset string) (AssetPosition, bool) {
	p, ok := s.Positions[NormalizeAsset(asset)]
	return p, ok
}

// Assets returns every asset seen in the history, sorted.
func (s PortfolioSnapshot) Assets() []string {
	assets := make([]string, 0, len(s.Positions))
	for asset := range s.Positions {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	return assets
}

// HeldAssets returns the sorted assets with a positive quantity.
func (s PortfolioSnapshot) HeldAssets() []string {
	assets := make([]string, 0, len(s.Positions))
	for asset, p := range s.Positions {
		if p.IsOpen() {
			assets = append(assets, asset)
		}
	}
	sort.Strings(assets)
	return assets
}

// Len returns the number of assets in the snapshot.
func (s PortfolioSnapshot) Len() int {
	return len(s.Positions)
}
