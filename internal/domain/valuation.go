package domain

// ValuedAsset is a position joined with a current price.
type ValuedAsset struct {
	Asset         string  `json:"asset"`
	QuantityHeld  float64 `json:"quantityHeld"`
	AverageCost   float64 `json:"averageCost"`
	CurrentPrice  float64 `json:"currentPrice"`
	CurrentValue  float64 `json:"currentValue"`
	UnrealizedPnl float64 `json:"unrealizedPnl"`
	RealizedPnl   float64 `json:"realizedPnl"`
}

// ValuedPortfolio holds valued assets sorted by asset, plus totals.
type ValuedPortfolio struct {
	Assets             []ValuedAsset `json:"assets"`
	TotalValue         float64       `json:"totalValue"`
	TotalUnrealizedPnl float64       `json:"totalUnrealizedPnl"`
	TotalRealizedPnl   float64       `json:"totalRealizedPnl"`
}

// Asset returns the valued entry for an asset.
func (v ValuedPortfolio) Asset(asset string) (ValuedAsset, bool) {
	asset = NormalizeAsset(asset)
	for _, a := range v.Assets {
		if a.Asset == asset {
			return a, true
		}
	}
	return ValuedAsset{}, false
}

// PricePoint is the historical price of one asset on one day.
type PricePoint struct {
	Date  Date    `json:"date"`
	Price float64 `json:"price"`
}

// HistoryPoint is the portfolio value on one day.
type HistoryPoint struct {
	Date       Date    `json:"date"`
	TotalValue float64 `json:"totalValue"`
}
