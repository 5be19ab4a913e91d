// Package indicators computes chart overlays for daily price series using
// the cinar/indicator library.
package indicators

import (
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/hodlbook/internal/domain"
)

const (
	// DefaultEMAPeriod is the period of the EMA drawn over coin charts.
	DefaultEMAPeriod = 7
	// DefaultRSIPeriod is the period of the RSI shown next to coin charts.
	DefaultRSIPeriod = 14
)

// ChartPoint represents a single day of a coin chart. EMA and RSI are nil during the
// warm-up period of the respective indicator.
type ChartPoint struct {
	Date  domain.Date `json:"date"`
	Price float64     `json:"price"`
	EMA   *float64    `json:"ema,omitempty"`
	RSI   *float64    `json:"rsi,omitempty"`
}

// CalculateEMA returns the EMA of values. The result is shorter than the
// input by the warm-up period.
func CalculateEMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.Errorf("period must be positive, got %d", period)
	}
	if len(values) < period {
		return nil, errors.Errorf("not enough data points: need %d, got %d", period, len(values))
	}

	ema := trend.NewEmaWithPeriod[float64](period)
	return helper.ChanToSlice(ema.Compute(helper.SliceToChan(values))), nil
}

// CalculateRSI returns the RSI of values.
func CalculateRSI(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.Errorf("period must be positive, got %d", period)
	}
	if len(values) < period+1 {
		return nil, errors.Errorf("not enough data points for RSI: need %d, got %d", period+1, len(values))
	}

	rsi := momentum.NewRsiWithPeriod[float64](period)
	return helper.ChanToSlice(rsi.Compute(helper.SliceToChan(values))), nil
}

// Overlay builds chart points for a price series. Indicators that cannot be
// computed for a short series are left empty instead of failing the chart.
func Overlay(points []domain.PricePoint, emaPeriod, rsiPeriod int) []ChartPoint {
	chart := make([]ChartPoint, len(points))
	closes := make([]float64, len(points))
	for i, p := range points {
		chart[i] = ChartPoint{Date: p.Date, Price: p.Price}
		closes[i] = p.Price
	}

	if ema, err := CalculateEMA(closes, emaPeriod); err == nil {
		attach(chart, ema, func(cp *ChartPoint, v *float64) { cp.EMA = v })
	}
	if rsi, err := CalculateRSI(closes, rsiPeriod); err == nil {
		attach(chart, rsi, func(cp *ChartPoint, v *float64) { cp.RSI = v })
	}

	return chart
}

// attach aligns values with the tail of chart.
func attach(chart []ChartPoint, values []float64, set func(*ChartPoint, *float64)) {
	offset := len(chart) - len(values)
	if offset < 0 {
		values = values[-offset:]
		offset = 0
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		v := v
		set(&chart[offset+i], &v)
	}
}

// PercentChange returns the change between the first and the last price of the series,
// in percent. Zero when the series is too short or starts at zero.
func PercentChange(points []domain.PricePoint) float64 {
	if len(points) < 2 || points[0].Price == 0 {
		return 0
	}
	first, last := points[0].Price, points[len(points)-1].Price
	return (last - first) / first * 100
}
