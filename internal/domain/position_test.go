package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssetPosition_States(t *testing.T) {
	tests := []struct {
		name          string
		position      AssetPosition
		expectOpen    bool
		expectDormant bool
	}{
		{
			name:       "open position",
			position:   AssetPosition{QuantityHeld: 1.5},
			expectOpen: true,
		},
		{
			name:     "closed with profit",
			position: AssetPosition{QuantityHeld: 0, RealizedPnl: 12},
		},
		{
			name:          "closed flat",
			position:      AssetPosition{},
			expectDormant: true,
		},
		{
			name:     "oversold",
			position: AssetPosition{QuantityHeld: -2, RealizedPnl: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectOpen, tt.position.IsOpen())
			assert.Equal(t, tt.expectDormant, tt.position.IsDormant())
		})
	}
}

func TestPortfolioSnapshot_Assets(t *testing.T) {
	s := NewPortfolioSnapshot()
	s.Positions["eth"] = AssetPosition{Asset: "eth", QuantityHeld: 0, RealizedPnl: 5}
	s.Positions["btc"] = AssetPosition{Asset: "btc", QuantityHeld: 1}
	s.Positions["ada"] = AssetPosition{Asset: "ada", QuantityHeld: 3}

	assert.Equal(t, []string{"ada", "btc", "eth"}, s.Assets())
	assert.Equal(t, []string{"ada", "btc"}, s.HeldAssets())
	assert.Equal(t, 3, s.Len())

	p, ok := s.Position(" BTC ")
	assert.True(t, ok)
	assert.Equal(t, 1.0, p.QuantityHeld)
}

func TestLot_Value(t *testing.T) {
	assert.Equal(t, 15.0, Lot{Quantity: 3, UnitPrice: 5}.Value())
}
