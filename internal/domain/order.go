package domain

import "time"

// OrderKind selects the venue order semantics.
type OrderKind string

const (
	// OrderKindGTC rests in the book until filled or cancelled.
	OrderKindGTC OrderKind = "GTC"
	// OrderKindFAK fills whatever crosses immediately and cancels the rest.
	// Used as the last-resort exit semantics to avoid resting orders into
	// settlement.
	OrderKindFAK OrderKind = "FAK"
)

// Side of an order relative to the outcome token.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderIntent is the zero-side-effect output of the entry evaluator: at most
// one per market per cycle. Submission belongs to the execution gateway.
type OrderIntent struct {
	MarketSlug string
	TokenID    string
	Direction  Direction
	Price      float64
	Size       float64
}

// Notional devuelve price × size en USDC.
func (i OrderIntent) Notional() float64 {
	return i.Price * i.Size
}

// PendingOrder is an order submitted to the venue but not yet confirmed
// filled. Owned exclusively by the pending-order registry.
type PendingOrder struct {
	ID          string // local UUID
	CLOBOrderID string // venue order hash
	MarketSlug  string
	TokenID     string
	Direction   Direction
	Price       float64
	Size        float64
	PlacedAt    time.Time
	ExpiresAt   time.Time // the market's expiry, not the order's
}

// FillOutcome classifies a reconciliation pass over a pending order.
type FillOutcome int

const (
	// FillNone: nothing actionable matched yet, leave the order pending.
	FillNone FillOutcome = iota
	// FillPartialTradable: enough matched to promote, remainder gets cancelled.
	FillPartialTradable
	// FillFull: matched size reached the requested size (within tolerance).
	FillFull
)

func (f FillOutcome) String() string {
	switch f {
	case FillPartialTradable:
		return "partial_tradable"
	case FillFull:
		return "full"
	default:
		return "none"
	}
}

const (
	// fullFillRatio: matched ≥ 99% of requested counts as a full fill.
	fullFillRatio = 0.99
	// MinTradableSize is the smallest matched quantity worth promoting into a
	// position (and the smallest quote size worth exiting against).
	MinTradableSize = 5.0
)

// ClassifyFill maps venue-reported matched size onto a FillOutcome.
func ClassifyFill(matched, requested float64) FillOutcome {
	if requested <= 0 || matched <= 0 {
		return FillNone
	}
	if matched >= requested*fullFillRatio {
		return FillFull
	}
	if matched >= MinTradableSize {
		return FillPartialTradable
	}
	return FillNone
}

// PlaceOrderRequest is sent to the execution gateway.
type PlaceOrderRequest struct {
	TokenID string
	Price   float64
	Size    float64
	Side    Side
	Kind    OrderKind
	NegRisk bool
}

// PlacedOrder is the gateway's response to a submission.
type PlacedOrder struct {
	CLOBOrderID string
	Status      string
	MatchedSize float64 // taker portion filled immediately
}

// OrderStatusReport is the venue's view of an in-flight order.
type OrderStatusReport struct {
	MatchedSize   float64
	RequestedSize float64
}
