package pricer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/hodlbook/internal/domain"
)

func TestSymbolMap_Pair(t *testing.T) {
	symbols := SymbolMap{"bitcoin": "BTC", "ethereum": "ETH"}

	assert.Equal(t, "BTCUSDT", symbols.Pair("Bitcoin", "usdt").Symbol())
	assert.Equal(t, "ETH_USDT", symbols.Pair("ethereum", "USDT").String())
	assert.Equal(t, "SOLUSDT", symbols.Pair("sol", "usdt").Symbol(), "unmapped asset falls back to its id")
}

func TestDailyPoints(t *testing.T) {
	day1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	samples := []timedPrice{
		{at: day1.Add(36 * time.Hour), price: 3},
		{at: day1.Add(12 * time.Hour), price: 2},
		{at: day1, price: 1},
		{at: day1.Add(24 * time.Hour), price: 4},
	}

	points := dailyPoints(samples)
	require.Len(t, points, 2)
	assert.Equal(t, domain.NewDate(2024, time.January, 1), points[0].Date)
	assert.Equal(t, 1.0, points[0].Price)
	assert.Equal(t, domain.NewDate(2024, time.January, 2), points[1].Date)
	assert.Equal(t, 4.0, points[1].Price)

	assert.Equal(t, 3.0, samples[0].price, "input must not be reordered")
}

func TestDailyPoints_Empty(t *testing.T) {
	assert.Empty(t, dailyPoints(nil))
}

func TestParsePrice(t *testing.T) {
	price, err := parsePrice(" 64250.10 ")
	require.NoError(t, err)
	assert.InDelta(t, 64250.10, price, 1e-9)

	_, err = parsePrice("abc")
	assert.Error(t, err)

	_, err = parsePrice("-1")
	assert.Error(t, err)
}

func TestNormalizeAssets(t *testing.T) {
	assert.Equal(t, []string{"bitcoin", "ethereum"}, normalizeAssets([]string{" Bitcoin", "ethereum", "BITCOIN", ""}))
}
