package pricer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vadiminshakov/hodlbook/internal/domain"
	"go.uber.org/zap"
)

const (
	DefaultPriceTTL   = 30 * time.Second
	DefaultHistoryTTL = 15 * time.Minute
)

type cachedPrice struct {
	price     float64
	fetchedAt time.Time
}

type cachedHistory struct {
	points    []domain.PricePoint
	fetchedAt time.Time
}

// CachedPricer wraps a Pricer with per-asset TTL caches so that frequent
// refreshes do not hammer rate-limited providers.
type CachedPricer struct {
	next       Pricer
	priceTTL   time.Duration
	historyTTL time.Duration
	now        func() time.Time
	l          *zap.Logger

	mu      sync.Mutex
	prices  map[string]cachedPrice
	history map[string]cachedHistory
}

// NewCachedPricer wraps next. Non-positive TTLs fall back to defaults.
func NewCachedPricer(l *zap.Logger, next Pricer, priceTTL, historyTTL time.Duration) *CachedPricer {
	if priceTTL <= 0 {
		priceTTL = DefaultPriceTTL
	}
	if historyTTL <= 0 {
		historyTTL = DefaultHistoryTTL
	}
	return &CachedPricer{
		next:       next,
		priceTTL:   priceTTL,
		historyTTL: historyTTL,
		now:        time.Now,
		l:          l,
		prices:     make(map[string]cachedPrice),
		history:    make(map[string]cachedHistory),
	}
}

func (c *CachedPricer) GetPrices(ctx context.Context, assets []string) (map[string]float64, error) {
	ids := normalizeAssets(assets)
	out := make(map[string]float64, len(ids))
	var missing []string

	now := c.now()
	c.mu.Lock()
	for _, asset := range ids {
		if cached, ok := c.prices[asset]; ok && now.Sub(cached.fetchedAt) < c.priceTTL {
			out[asset] = cached.price
			continue
		}
		missing = append(missing, asset)
	}
	c.mu.Unlock()

	if len(missing) == 0 {
		return out, nil
	}

	fresh, err := c.next.GetPrices(ctx, missing)
	if err != nil {
		if len(out) > 0 {
			c.l.Warn("price refresh failed, serving cached prices only", zap.Error(err))
			return out, nil
		}
		return nil, err
	}

	c.mu.Lock()
	for asset, price := range fresh {
		c.prices[asset] = cachedPrice{price: price, fetchedAt: now}
		out[asset] = price
	}
	c.mu.Unlock()

	return out, nil
}

func (c *CachedPricer) GetHistory(ctx context.Context, asset string, days int) ([]domain.PricePoint, error) {
	key := fmt.Sprintf("%s:%d", domain.NormalizeAsset(asset), days)
	now := c.now()

	c.mu.Lock()
	if cached, ok := c.history[key]; ok && now.Sub(cached.fetchedAt) < c.historyTTL {
		c.mu.Unlock()
		return clonePoints(cached.points), nil
	}
	c.mu.Unlock()

	points, err := c.next.GetHistory(ctx, asset, days)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.history[key] = cachedHistory{points: clonePoints(points), fetchedAt: now}
	c.mu.Unlock()

	return points, nil
}

// Invalidate drops every cached entry.
func (c *CachedPricer) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices = make(map[string]cachedPrice)
	c.history = make(map[string]cachedHistory)
}

func clonePoints(points []domain.PricePoint) []domain.PricePoint {
	out := make([]domain.PricePoint, len(points))
	copy(out, points)
	return out
}
