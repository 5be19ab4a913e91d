package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/hodlbook/internal/domain"
)

func series(prices ...float64) []domain.PricePoint {
	start := domain.NewDate(2024, time.January, 1)
	out := make([]domain.PricePoint, len(prices))
	for i, p := range prices {
		out[i] = domain.PricePoint{Date: start.AddDays(i), Price: p}
	}
	return out
}

func TestCalculateEMA_Constant(t *testing.T) {
	ema, err := CalculateEMA([]float64{5, 5, 5, 5, 5, 5}, 3)
	require.NoError(t, err)
	require.NotEmpty(t, ema)
	for _, v := range ema {
		assert.InDelta(t, 5, v, 1e-9)
	}
}

func TestCalculateEMA_NotEnoughData(t *testing.T) {
	_, err := CalculateEMA([]float64{1, 2}, 3)
	assert.Error(t, err)

	_, err = CalculateEMA([]float64{1, 2}, 0)
	assert.Error(t, err)
}

func TestCalculateRSI_NotEnoughData(t *testing.T) {
	_, err := CalculateRSI([]float64{1, 2, 3}, 3)
	assert.Error(t, err)
}

func TestOverlay_ShortSeries(t *testing.T) {
	chart := Overlay(series(1, 2), DefaultEMAPeriod, DefaultRSIPeriod)

	require.Len(t, chart, 2)
	for _, p := range chart {
		assert.Nil(t, p.EMA)
		assert.Nil(t, p.RSI)
	}
	assert.Equal(t, 2.0, chart[1].Price)
}

func TestOverlay_AlignsEMAWithTail(t *testing.T) {
	points := series(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	chart := Overlay(points, 3, 50)

	require.Len(t, chart, len(points))
	assert.Nil(t, chart[0].EMA, "warm-up days carry no EMA")
	require.NotNil(t, chart[len(chart)-1].EMA)
	for i, p := range chart {
		assert.Equal(t, points[i].Date, p.Date)
		if p.EMA != nil {
			assert.LessOrEqual(t, *p.EMA, p.Price, "EMA lags a rising series")
		}
		assert.Nil(t, p.RSI)
	}
}

func TestPercentChange(t *testing.T) {
	assert.InDelta(t, 50.0, PercentChange(series(100, 120, 150)), 1e-9)
	assert.InDelta(t, -25.0, PercentChange(series(100, 75)), 1e-9)
	assert.Zero(t, PercentChange(series(100)))
	assert.Zero(t, PercentChange(series(0, 10)))
}
