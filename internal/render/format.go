// Package render formats portfolio data for the terminal. Rounding happens
// here only; the accounting code works on unrounded values.
package render

import (
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const (
	quantityPlaces = 6
	percentPlaces  = 2
)

// Money formats v in the given currency (e.g. "usd" -> "$1,234.56").
func Money(v float64, currency string) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	cur := *money.New(0, strings.ToUpper(currency)).Currency()
	minor := decimal.NewFromFloat(v).Round(int32(cur.Fraction)).Shift(int32(cur.Fraction))
	return cur.Formatter().Format(minor.IntPart())
}

// SignedMoney is Money with an explicit sign; zero renders as "-".
func SignedMoney(v float64, currency string) string {
	s := Money(v, currency)
	switch {
	case Money(0, currency) == s:
		return "-"
	case v > 0:
		return "+" + s
	default:
		return s
	}
}

// Quantity rounds to six decimals and drops trailing zeros.
func Quantity(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).Round(quantityPlaces).String()
}

// Percent renders a signed percentage with two decimals.
func Percent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	d := decimal.NewFromFloat(v).Round(percentPlaces)
	s := d.StringFixed(percentPlaces) + "%"
	if d.IsPositive() {
		return "+" + s
	}
	return s
}

var sparkTicks = []rune("▁▂▃▄▅▆▇█")

// Sparkline draws values as a one-line bar chart.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	var b strings.Builder
	for _, v := range values {
		idx := 0
		if hi > lo {
			idx = int(math.Round((v - lo) / (hi - lo) * float64(len(sparkTicks)-1)))
		}
		b.WriteRune(sparkTicks[idx])
	}
	return b.String()
}
