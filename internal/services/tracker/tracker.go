// Package tracker runs the refresh cycle: it recomputes the portfolio from
// the stored transactions, prices it and builds the historical value series.
package tracker

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/hodlbook/internal/domain"
	"github.com/vadiminshakov/hodlbook/internal/services/accounting"
	"github.com/vadiminshakov/hodlbook/internal/services/market/indicators"
	"github.com/vadiminshakov/hodlbook/internal/services/pricer"
	"github.com/vadiminshakov/hodlbook/internal/services/valuation"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultHistoryDays = 30
	historyWorkers     = 4
	subscriberBuffer   = 1
)

// ErrSuperseded is returned when a newer refresh started while this one was in flight; its
// result was discarded.
var ErrSuperseded = errors.New("refresh superseded by a newer one")

// TransactionStore is the subset of the ledger the tracker needs.
type TransactionStore interface {
	Load() ([]domain.Transaction, error)
	Append(tx domain.Transaction) error
	Delete(id string) error
	Clear() error
}

// Report represents the result of one refresh cycle.
type Report struct {
	// Epoch identifies the tracker instance. Generations restart with every
	// instance, so a report is identified by the pair.
	Epoch       int64                    `json:"epoch"`
	Generation  uint64                   `json:"generation"`
	RefreshedAt time.Time                `json:"refreshedAt"`
	Snapshot    domain.PortfolioSnapshot `json:"snapshot"`
	Portfolio   domain.ValuedPortfolio   `json:"portfolio"`
	History     []domain.HistoryPoint    `json:"history"`
	// Warnings lists degraded lookups (prices or per-asset history) of this cycle.
	Warnings []string `json:"warnings,omitempty"`
}

// CoinChart represents the price history of a single asset with indicator overlays.
type CoinChart struct {
	Asset         string                  `json:"asset"`
	Days          int                     `json:"days"`
	Points        []indicators.ChartPoint `json:"points"`
	PercentChange float64                 `json:"percentChange"`
}

// Tracker owns the refresh cycle. It is safe for concurrent use.
type Tracker struct {
	store       TransactionStore
	pricer      pricer.Pricer
	historyDays int
	l           *zap.Logger
	now         func() time.Time
	epoch       int64

	generation atomic.Uint64

	mu     sync.RWMutex
	latest *Report
	subs   map[chan *Report]struct{}
}

// New creates a tracker. historyDays <= 0 falls back to DefaultHistoryDays.
func New(l *zap.Logger, store TransactionStore, p pricer.Pricer, historyDays int) *Tracker {
	if historyDays <= 0 {
		historyDays = DefaultHistoryDays
	}
	return &Tracker{
		store:       store,
		pricer:      p,
		historyDays: historyDays,
		l:           l,
		now:         time.Now,
		epoch:       time.Now().UnixNano(),
		subs:        make(map[chan *Report]struct{}),
	}
}

// Refresh runs a full cycle. The snapshot is recomputed from the complete
// transaction list before any price lookup. If another refresh starts before
// this one finishes, the result is dropped and ErrSuperseded is returned.
func (t *Tracker) Refresh(ctx context.Context) (*Report, error) {
	gen := t.generation.Add(1)

	txs, err := t.store.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load transactions")
	}

	snapshot := accounting.Compute(txs)
	report := &Report{Epoch: t.epoch, Generation: gen, Snapshot: snapshot}

	prices := map[string]float64{}
	if assets := snapshot.Assets(); len(assets) > 0 {
		fetched, err := t.pricer.GetPrices(ctx, assets)
		if err != nil {
			t.l.Warn("failed to fetch current prices", zap.Error(err))
			report.Warnings = append(report.Warnings, "current prices unavailable: "+err.Error())
		} else {
			prices = fetched
		}
	}
	report.Portfolio = valuation.Value(snapshot, prices)

	history, warnings := t.fetchHistory(ctx, snapshot.HeldAssets())
	report.Warnings = append(report.Warnings, warnings...)
	report.History = valuation.HistoricalSeries(snapshot, history)
	report.RefreshedAt = t.now()

	if !t.publish(report) {
		t.l.Debug("dropping superseded refresh", zap.Uint64("generation", gen))
		return nil, ErrSuperseded
	}

	t.l.Info("portfolio refreshed",
		zap.Uint64("generation", gen),
		zap.Int("transactions", len(txs)),
		zap.Int("assets", snapshot.Len()),
		zap.Float64("total_value", report.Portfolio.TotalValue))

	return report, nil
}

// fetchHistory fans out one history request per asset and joins them. A failed
// asset gets an empty series, so it contributes nothing to the total.
func (t *Tracker) fetchHistory(ctx context.Context, assets []string) (map[string][]domain.PricePoint, []string) {
	results := make([][]domain.PricePoint, len(assets))
	failures := make([]error, len(assets))

	var g errgroup.Group
	g.SetLimit(historyWorkers)
	for i, asset := range assets {
		g.Go(func() error {
			points, err := t.pricer.GetHistory(ctx, asset, t.historyDays)
			if err != nil {
				failures[i] = err
				return nil
			}
			results[i] = points
			return nil
		})
	}
	_ = g.Wait()

	history := make(map[string][]domain.PricePoint, len(assets))
	var warnings []string
	for i, asset := range assets {
		if failures[i] != nil {
			t.l.Warn("failed to fetch price history", zap.String("asset", asset), zap.Error(failures[i]))
			warnings = append(warnings, "history unavailable for "+asset+": "+failures[i].Error())
			history[asset] = nil
			continue
		}
		history[asset] = results[i]
	}
	return history, warnings
}

// publish installs report as the latest one unless a newer refresh started.
func (t *Tracker) publish(report *Report) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if report.Generation != t.generation.Load() {
		return false
	}
	if t.latest != nil && t.latest.Generation > report.Generation {
		return false
	}
	t.latest = report

	for ch := range t.subs {
		select {
		case ch <- report:
		default:
			// slow subscriber, replace the pending report with the newer one
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- report:
			default:
			}
		}
	}
	return true
}

// Latest returns the most recently published report, or nil before the
// first refresh completes.
func (t *Tracker) Latest() *Report {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest
}

// Subscribe returns a channel receiving every published report. The returned
// func unsubscribes and closes the channel.
func (t *Tracker) Subscribe() (<-chan *Report, func()) {
	ch := make(chan *Report, subscriberBuffer)

	t.mu.Lock()
	t.subs[ch] = struct{}{}
	t.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, ch)
			t.mu.Unlock()
			close(ch)
		})
	}
}

// CoinChart returns the price history of one asset with EMA and RSI overlays.
func (t *Tracker) CoinChart(ctx context.Context, asset string, days int) (CoinChart, error) {
	asset = domain.NormalizeAsset(asset)
	if asset == "" {
		return CoinChart{}, domain.ErrEmptyAsset
	}
	if days <= 0 {
		days = t.historyDays
	}

	points, err := t.pricer.GetHistory(ctx, asset, days)
	if err != nil {
		return CoinChart{}, errors.Wrapf(err, "price history for %s", asset)
	}

	return CoinChart{
		Asset:         asset,
		Days:          days,
		Points:        indicators.Overlay(points, indicators.DefaultEMAPeriod, indicators.DefaultRSIPeriod),
		PercentChange: indicators.PercentChange(points),
	}, nil
}

// Transactions returns the ledger sorted newest first. Records on the same
// date keep insertion order.
func (t *Tracker) Transactions() ([]domain.Transaction, error) {
	txs, err := t.store.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load transactions")
	}

	out := make([]domain.Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

// AddTransaction validates and persists tx. The next refresh picks it up.
func (t *Tracker) AddTransaction(tx domain.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if err := t.store.Append(tx); err != nil {
		return errors.Wrap(err, "append transaction")
	}
	t.l.Info("transaction added", zap.String("id", tx.ID), zap.Stringer("tx", tx))
	return nil
}

// DeleteTransaction removes a transaction by id.
func (t *Tracker) DeleteTransaction(id string) error {
	if err := t.store.Delete(id); err != nil {
		return errors.Wrapf(err, "delete transaction %s", id)
	}
	t.l.Info("transaction deleted", zap.String("id", id))
	return nil
}

// ClearTransactions removes every transaction.
func (t *Tracker) ClearTransactions() error {
	if err := t.store.Clear(); err != nil {
		return errors.Wrap(err, "clear transactions")
	}
	t.l.Info("all transactions cleared")
	return nil
}
