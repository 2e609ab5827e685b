package domain

import "time"

// SizeEpsilon: a position whose remaining size falls below this is treated
// as fully closed, never negative.
const SizeEpsilon = 1e-6

// Position is the (at most one per token) open holding.
// Owned exclusively by the position tracker.
type Position struct {
	TokenID    string
	MarketSlug string
	Direction  Direction
	Size       float64
	CostBasis  float64 // cumulative USDC spent across fills
	AvgPrice   float64 // CostBasis / total filled size
	EntryTime  time.Time // first fill
}

// AddFill merges an additional fill into the position, recomputing the
// volume-weighted average entry price.
func (p *Position) AddFill(price, size float64, at time.Time) {
	if size <= 0 {
		return
	}
	if p.Size <= SizeEpsilon {
		p.EntryTime = at
	}
	p.CostBasis += price * size
	p.Size += size
	p.AvgPrice = p.CostBasis / p.Size
}

// Closed devuelve true si no queda tamaño abierto.
func (p *Position) Closed() bool {
	return p.Size < SizeEpsilon
}

// HeldFor returns how long the position has been open.
func (p *Position) HeldFor(now time.Time) time.Duration {
	if p.EntryTime.IsZero() {
		return 0
	}
	return now.Sub(p.EntryTime)
}

// ExitReason labels why an exit signal fired. Time stops keep the P&L sign
// in the label so a late winner is distinguishable from a late loser.
type ExitReason string

const (
	ExitTakeProfit  ExitReason = "take_profit"
	ExitStopLoss    ExitReason = "stop_loss"
	ExitTimeProfit  ExitReason = "time_stop_profit"
	ExitTimeLoss    ExitReason = "time_stop_loss"
	ExitForcedClear ExitReason = "forced_clear"
)

// ExitSignal is emitted by the position tracker when an exit rule matches.
type ExitSignal struct {
	TokenID    string
	MarketSlug string
	Direction  Direction
	Price      float64 // best bid to sell into
	Size       float64
	Reason     ExitReason
	PnLPerUnit float64
}

// ExitRules are the per-position exit thresholds.
type ExitRules struct {
	ProfitTarget float64       // per-unit gain that takes profit
	StopLoss     float64       // per-unit loss that stops out (positive number)
	MaxHold      time.Duration // time stop regardless of P&L
}

// EvaluateExit checks the exit rules against a fresh best bid. Priority is
// fixed: take-profit, then stop-loss, then time stop — a position matching
// several reports only the first. A bid with less than MinTradableSize
// resting defers the exit to the next cycle.
func (p *Position) EvaluateExit(bid, bidSize float64, rules ExitRules, now time.Time) (ExitSignal, bool) {
	if p.Closed() || bid <= 0 || bidSize < MinTradableSize {
		return ExitSignal{}, false
	}

	pnl := bid - p.AvgPrice
	var reason ExitReason
	switch {
	case pnl >= rules.ProfitTarget:
		reason = ExitTakeProfit
	case pnl <= -rules.StopLoss:
		reason = ExitStopLoss
	case rules.MaxHold > 0 && p.HeldFor(now) >= rules.MaxHold:
		reason = ExitTimeProfit
		if pnl < 0 {
			reason = ExitTimeLoss
		}
	default:
		return ExitSignal{}, false
	}

	return ExitSignal{
		TokenID:    p.TokenID,
		MarketSlug: p.MarketSlug,
		Direction:  p.Direction,
		Price:      bid,
		Size:       p.Size,
		Reason:     reason,
		PnLPerUnit: pnl,
	}, true
}
