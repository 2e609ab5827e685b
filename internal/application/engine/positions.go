package engine

import (
	"time"

	"github.com/alejandrodnm/scalpbot/internal/domain"
)

// budgetCounter tracks per-market spend within the current window. Reset
// happens only through cleanup when the market leaves the active set.
type budgetCounter struct {
	spentUSDC   float64
	trades      int
	realizedPnL float64
}

// positionBook owns position and budget-counter state. No other component
// reads or writes these maps directly.
type positionBook struct {
	positions map[string]*domain.Position // keyed by token id
	budgets   map[string]*budgetCounter   // keyed by market slug

	maxSpendPerMarket  float64
	maxTradesPerMarket int
}

func newPositionBook(maxSpend float64, maxTrades int) *positionBook {
	return &positionBook{
		positions:          make(map[string]*domain.Position),
		budgets:            make(map[string]*budgetCounter),
		maxSpendPerMarket:  maxSpend,
		maxTradesPerMarket: maxTrades,
	}
}

// recordFill merges a fill into the existing position for the token (volume
// weighted average) or opens a new one.
func (pb *positionBook) recordFill(tokenID, marketSlug string, d domain.Direction, price, size float64, at time.Time) *domain.Position {
	pos, ok := pb.positions[tokenID]
	if !ok {
		pos = &domain.Position{
			TokenID:    tokenID,
			MarketSlug: marketSlug,
			Direction:  d,
		}
		pb.positions[tokenID] = pos
	}
	pos.AddFill(price, size, at)
	return pos
}

// openPositions returns the currently open positions.
func (pb *positionBook) openPositions() []*domain.Position {
	out := make([]*domain.Position, 0, len(pb.positions))
	for _, p := range pb.positions {
		if !p.Closed() {
			out = append(out, p)
		}
	}
	return out
}

func (pb *positionBook) openCount() int {
	return len(pb.openPositions())
}

// remove clears a position after a sale or a forced clear.
func (pb *positionBook) remove(tokenID string) {
	delete(pb.positions, tokenID)
}

// canOpen rejects when the market's cumulative committed spend would exceed
// its ceiling, or its trade count for the window is already at the cap.
func (pb *positionBook) canOpen(marketSlug string, additionalCost float64) bool {
	b := pb.budgets[marketSlug]
	if b == nil {
		return additionalCost <= pb.maxSpendPerMarket
	}
	if pb.maxTradesPerMarket > 0 && b.trades >= pb.maxTradesPerMarket {
		return false
	}
	return b.spentUSDC+additionalCost <= pb.maxSpendPerMarket
}

// commit registers spend and bumps the trade count after a submission
// succeeds.
func (pb *positionBook) commit(marketSlug string, cost float64) {
	b := pb.budgets[marketSlug]
	if b == nil {
		b = &budgetCounter{}
		pb.budgets[marketSlug] = b
	}
	b.spentUSDC += cost
	b.trades++
}

// recordPnL acumula el resultado realizado de la ronda.
func (pb *positionBook) recordPnL(marketSlug string, pnl float64) {
	b := pb.budgets[marketSlug]
	if b == nil {
		b = &budgetCounter{}
		pb.budgets[marketSlug] = b
	}
	b.realizedPnL += pnl
}

// budget returns a copy of the market's counters (zero value if none).
func (pb *positionBook) budget(marketSlug string) budgetCounter {
	if b := pb.budgets[marketSlug]; b != nil {
		return *b
	}
	return budgetCounter{}
}

// cleanup purges positions and budget counters for markets no longer in the
// active set. This is the only sanctioned way this state disappears outside
// of a sell, and it is idempotent: a second call with the same active set
// changes nothing.
func (pb *positionBook) cleanup(active map[string]bool) (purged int) {
	for tokenID, pos := range pb.positions {
		if !active[pos.MarketSlug] {
			delete(pb.positions, tokenID)
			purged++
		}
	}
	for slug := range pb.budgets {
		if !active[slug] {
			delete(pb.budgets, slug)
			purged++
		}
	}
	return purged
}
