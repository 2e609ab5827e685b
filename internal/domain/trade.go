package domain

import "time"

// TradeAction is the kind of trade event the engine emits for observability
// collaborators (console, storage, metrics).
type TradeAction string

const (
	ActionEntry       TradeAction = "entry"
	ActionFill        TradeAction = "fill"
	ActionExit        TradeAction = "exit"
	ActionCancel      TradeAction = "cancel"
	ActionForcedClear TradeAction = "forced_clear"
)

// TradeEvent es el registro de una acción del engine sobre un mercado.
// Se especifica como dato — el formato de persistencia es cosa del adapter.
type TradeEvent struct {
	ID         string // local UUID
	Action     TradeAction
	MarketSlug string
	Instrument string
	Direction  Direction
	Price      float64
	Size       float64
	Reason     string // exit reason, cancel reason, veto, ...
	At         time.Time
}

// RoundSettlement is the end-of-window snapshot for one market.
type RoundSettlement struct {
	MarketSlug  string
	Instrument  string
	PriceToBeat float64
	FinalPrice  float64 // last reference price seen before expiry
	Trades      int
	SpentUSDC   float64
	RealizedPnL float64
	SettledAt   time.Time
}
