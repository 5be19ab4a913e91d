package valuation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/hodlbook/internal/domain"
	"github.com/vadiminshakov/hodlbook/internal/services/accounting"
)

func tx(asset string, action domain.Action, quantity, price float64) domain.Transaction {
	return domain.Transaction{Asset: asset, Action: action, Quantity: quantity, UnitPrice: price}
}

func d(day int) domain.Date {
	return domain.NewDate(2024, time.June, day)
}

func TestValue(t *testing.T) {
	snapshot := accounting.Compute([]domain.Transaction{
		tx("btc", domain.ActionBuy, 2, 100),
		tx("btc", domain.ActionSell, 1, 150),
		tx("eth", domain.ActionBuy, 1, 10),
		tx("eth", domain.ActionSell, 1, 12),
		tx("sol", domain.ActionBuy, 4, 5),
	})

	v := Value(snapshot, map[string]float64{"btc": 120, "eth": 20, "sol": 4})

	btc, ok := v.Asset("btc")
	require.True(t, ok)
	assert.Equal(t, domain.ValuedAsset{
		Asset:         "btc",
		QuantityHeld:  1,
		AverageCost:   100,
		CurrentPrice:  120,
		CurrentValue:  120,
		UnrealizedPnl: 20,
		RealizedPnl:   50,
	}, btc)

	eth, ok := v.Asset("eth")
	require.True(t, ok)
	assert.Equal(t, 0.0, eth.CurrentValue)
	assert.Equal(t, 0.0, eth.UnrealizedPnl)
	assert.Equal(t, 2.0, eth.RealizedPnl)

	sol, ok := v.Asset("sol")
	require.True(t, ok)
	assert.Equal(t, -4.0, sol.UnrealizedPnl)

	assert.Equal(t, []string{"btc", "eth", "sol"}, []string{v.Assets[0].Asset, v.Assets[1].Asset, v.Assets[2].Asset})
	assert.Equal(t, 120.0+0+16, v.TotalValue)
	assert.Equal(t, 20.0+0-4, v.TotalUnrealizedPnl)
	assert.Equal(t, 52.0, v.TotalRealizedPnl)
}

func TestValue_MissingPriceDefaultsToZero(t *testing.T) {
	snapshot := accounting.Compute([]domain.Transaction{
		tx("btc", domain.ActionBuy, 2, 100),
		tx("btc", domain.ActionSell, 1, 130),
	})

	v := Value(snapshot, nil)

	btc, ok := v.Asset("btc")
	require.True(t, ok)
	assert.Equal(t, 0.0, btc.CurrentPrice)
	assert.Equal(t, 0.0, btc.CurrentValue)
	assert.Equal(t, -100.0, btc.UnrealizedPnl)
	assert.Equal(t, 30.0, btc.RealizedPnl)
	assert.Equal(t, 30.0, v.TotalRealizedPnl)
}

func TestValue_PriceEqualToAverageCost(t *testing.T) {
	snapshot := accounting.Compute([]domain.Transaction{
		tx("ada", domain.ActionBuy, 3, 0.1),
		tx("ada", domain.ActionBuy, 7, 0.37),
		tx("ada", domain.ActionSell, 1.3, 0.2),
	})
	p, ok := snapshot.Position("ada")
	require.True(t, ok)

	v := Value(snapshot, map[string]float64{"ada": p.AverageCost})

	ada, ok := v.Asset("ada")
	require.True(t, ok)
	assert.Equal(t, 0.0, ada.UnrealizedPnl)
}

func TestValue_OversoldAsset(t *testing.T) {
	snapshot := accounting.Compute([]domain.Transaction{
		tx("xrp", domain.ActionBuy, 1, 1),
		tx("xrp", domain.ActionSell, 3, 2),
	})

	v := Value(snapshot, map[string]float64{"xrp": 5})

	xrp, ok := v.Asset("xrp")
	require.True(t, ok)
	assert.Equal(t, -10.0, xrp.CurrentValue)
	assert.Equal(t, 0.0, xrp.UnrealizedPnl)
	assert.Equal(t, 1.0, xrp.RealizedPnl)
}

func TestValue_EmptySnapshot(t *testing.T) {
	v := Value(domain.NewPortfolioSnapshot(), map[string]float64{"btc": 1})

	assert.Empty(t, v.Assets)
	assert.Equal(t, 0.0, v.TotalValue)
	assert.Equal(t, 0.0, v.TotalUnrealizedPnl)
	assert.Equal(t, 0.0, v.TotalRealizedPnl)
}

func TestHistoricalSeries_SingleAsset(t *testing.T) {
	snapshot := accounting.Compute([]domain.Transaction{
		tx("btc", domain.ActionBuy, 3, 10),
		tx("btc", domain.ActionSell, 0.5, 12),
	})
	history := map[string][]domain.PricePoint{
		"btc": {{Date: d(1), Price: 100}, {Date: d(2), Price: 110}, {Date: d(3), Price: 90.5}},
	}

	series := HistoricalSeries(snapshot, history)

	require.Len(t, series, 3)
	for i, point := range history["btc"] {
		assert.Equal(t, point.Date, series[i].Date)
		assert.Equal(t, point.Price*2.5, series[i].TotalValue)
	}
}

func TestHistoricalSeries_UnalignedDates(t *testing.T) {
	snapshot := accounting.Compute([]domain.Transaction{
		tx("btc", domain.ActionBuy, 1, 10),
		tx("eth", domain.ActionBuy, 2, 10),
	})
	history := map[string][]domain.PricePoint{
		"eth": {{Date: d(3), Price: 5}, {Date: d(2), Price: 4}},
		"btc": {{Date: d(1), Price: 100}, {Date: d(2), Price: 200}},
	}

	series := HistoricalSeries(snapshot, history)

	assert.Equal(t, []domain.HistoryPoint{
		{Date: d(1), TotalValue: 100},
		{Date: d(2), TotalValue: 200 + 8},
		{Date: d(3), TotalValue: 10},
	}, series)
}

func TestHistoricalSeries_SkipsClosedAndUnknownAssets(t *testing.T) {
	snapshot := accounting.Compute([]domain.Transaction{
		tx("btc", domain.ActionBuy, 1, 10),
		tx("eth", domain.ActionBuy, 1, 10),
		tx("eth", domain.ActionSell, 1, 10),
	})
	history := map[string][]domain.PricePoint{
		"btc":  {{Date: d(1), Price: 1}},
		"eth":  {{Date: d(1), Price: 1000}, {Date: d(5), Price: 1000}},
		"doge": {{Date: d(9), Price: 1}},
	}

	series := HistoricalSeries(snapshot, history)

	assert.Equal(t, []domain.HistoryPoint{{Date: d(1), TotalValue: 1}}, series)
}

func TestHistoricalSeries_FirstPointOfDayWins(t *testing.T) {
	snapshot := accounting.Compute([]domain.Transaction{tx("btc", domain.ActionBuy, 2, 1)})
	history := map[string][]domain.PricePoint{
		"btc": {{Date: d(1), Price: 10}, {Date: d(1), Price: 50}, {Date: d(2), Price: 20}},
	}

	series := HistoricalSeries(snapshot, history)

	assert.Equal(t, []domain.HistoryPoint{
		{Date: d(1), TotalValue: 20},
		{Date: d(2), TotalValue: 40},
	}, series)
}

func TestHistoricalSeries_Empty(t *testing.T) {
	assert.Empty(t, HistoricalSeries(domain.NewPortfolioSnapshot(), nil))
}
