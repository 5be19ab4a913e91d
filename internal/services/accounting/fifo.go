// Package accounting replays a transaction history into per-asset positions
// using first-in-first-out lot matching.
package accounting

import (
	"github.com/vadiminshakov/hodlbook/internal/domain"
)

// lotQueue is the FIFO queue of open lots for one asset.
type lotQueue []domain.Lot

func (q *lotQueue) push(l domain.Lot) {
	*q = append(*q, l)
}

// consume matches quantity against the oldest lots and returns the realized
// profit of the matched part together with the quantity left unmatched.
func (q *lotQueue) consume(quantity, sellPrice float64) (pnl, unmatched float64) {
	remaining := quantity
	for remaining > 0 && len(*q) > 0 {
		lot := &(*q)[0]
		matched := min(remaining, lot.Quantity)

		pnl += matched * (sellPrice - lot.UnitPrice)
		lot.Quantity -= matched
		remaining -= matched

		if lot.Quantity == 0 {
			*q = (*q)[1:]
		}
	}
	return pnl, remaining
}

func (q lotQueue) costBasis() float64 {
	var total float64
	for _, l := range q {
		total += l.Value()
	}
	return total
}

// Compute replays transactions in the given order and returns the resulting
// snapshot. The input is not sorted and not validated: callers pass a
// chronological, well-formed history. Selling more than was bought is
// tolerated; the unmatched part realizes nothing and drives the held
// quantity negative.
//
// Compute keeps no state between calls.
func Compute(transactions []domain.Transaction) domain.PortfolioSnapshot {
	snapshot := domain.NewPortfolioSnapshot()
	queues := make(map[string]*lotQueue)

	for _, tx := range transactions {
		asset := domain.NormalizeAsset(tx.Asset)

		position, ok := snapshot.Positions[asset]
		if !ok {
			position = domain.AssetPosition{Asset: asset}
			queues[asset] = &lotQueue{}
		}
		queue := queues[asset]

		switch tx.Action {
		case domain.ActionBuy:
			queue.push(domain.Lot{Quantity: tx.Quantity, UnitPrice: tx.UnitPrice})
			position.QuantityHeld += tx.Quantity
		case domain.ActionSell:
			pnl, _ := queue.consume(tx.Quantity, tx.UnitPrice)
			position.RealizedPnl += pnl
			position.QuantityHeld -= tx.Quantity
		}

		snapshot.Positions[asset] = position
	}

	for asset, position := range snapshot.Positions {
		queue := *queues[asset]

		position.OpenLots = make([]domain.Lot, len(queue))
		copy(position.OpenLots, queue)
		position.CostBasis = queue.costBasis()
		position.AverageCost = 0
		if position.QuantityHeld > 0 {
			position.AverageCost = position.CostBasis / position.QuantityHeld
		}

		snapshot.Positions[asset] = position
	}

	return snapshot
}
