package pricer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/hodlbook/internal/domain"
	"go.uber.org/zap"
)

type mockPricer struct {
	mock.Mock
}

func (m *mockPricer) GetPrices(ctx context.Context, assets []string) (map[string]float64, error) {
	args := m.Called(ctx, assets)
	prices, _ := args.Get(0).(map[string]float64)
	return prices, args.Error(1)
}

func (m *mockPricer) GetHistory(ctx context.Context, asset string, days int) ([]domain.PricePoint, error) {
	args := m.Called(ctx, asset, days)
	points, _ := args.Get(0).([]domain.PricePoint)
	return points, args.Error(1)
}

func TestCachedPricer_GetPrices(t *testing.T) {
	ctx := context.Background()
	next := &mockPricer{}
	next.On("GetPrices", ctx, []string{"bitcoin"}).Return(map[string]float64{"bitcoin": 100}, nil).Once()
	next.On("GetPrices", ctx, []string{"ethereum"}).Return(map[string]float64{"ethereum": 10}, nil).Once()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCachedPricer(zap.NewNop(), next, time.Minute, time.Hour)
	c.now = func() time.Time { return now }

	prices, err := c.GetPrices(ctx, []string{"bitcoin"})
	require.NoError(t, err)
	assert.Equal(t, 100.0, prices["bitcoin"])

	// bitcoin is served from cache, only ethereum goes upstream
	prices, err = c.GetPrices(ctx, []string{"bitcoin", "ethereum"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"bitcoin": 100, "ethereum": 10}, prices)

	next.AssertExpectations(t)
}

func TestCachedPricer_GetPrices_Expired(t *testing.T) {
	ctx := context.Background()
	next := &mockPricer{}
	next.On("GetPrices", ctx, []string{"bitcoin"}).Return(map[string]float64{"bitcoin": 100}, nil).Once()
	next.On("GetPrices", ctx, []string{"bitcoin"}).Return(map[string]float64{"bitcoin": 120}, nil).Once()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCachedPricer(zap.NewNop(), next, time.Minute, time.Hour)
	c.now = func() time.Time { return now }

	_, err := c.GetPrices(ctx, []string{"bitcoin"})
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	prices, err := c.GetPrices(ctx, []string{"bitcoin"})
	require.NoError(t, err)
	assert.Equal(t, 120.0, prices["bitcoin"])
	next.AssertExpectations(t)
}

func TestCachedPricer_GetPrices_UpstreamFailure(t *testing.T) {
	ctx := context.Background()
	next := &mockPricer{}
	next.On("GetPrices", ctx, []string{"bitcoin"}).Return(nil, errors.New("boom")).Once()

	c := NewCachedPricer(zap.NewNop(), next, time.Minute, time.Hour)

	_, err := c.GetPrices(ctx, []string{"bitcoin"})
	assert.Error(t, err)
}

func TestCachedPricer_GetHistory(t *testing.T) {
	ctx := context.Background()
	points := []domain.PricePoint{{Date: domain.NewDate(2024, time.January, 1), Price: 1}}
	next := &mockPricer{}
	next.On("GetHistory", ctx, "bitcoin", 7).Return(points, nil).Once()
	next.On("GetHistory", ctx, "bitcoin", 30).Return(points, nil).Once()

	c := NewCachedPricer(zap.NewNop(), next, 0, 0)

	for i := 0; i < 3; i++ {
		got, err := c.GetHistory(ctx, "bitcoin", 7)
		require.NoError(t, err)
		assert.Equal(t, points, got)
	}
	_, err := c.GetHistory(ctx, "bitcoin", 30)
	require.NoError(t, err)

	next.AssertExpectations(t)

	c.Invalidate()
	next.On("GetHistory", ctx, "bitcoin", 7).Return(points, nil).Once()
	_, err = c.GetHistory(ctx, "bitcoin", 7)
	require.NoError(t, err)
	next.AssertExpectations(t)
}
