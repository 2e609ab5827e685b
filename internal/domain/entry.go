package domain

// entry.go — acceptance price bands and order-intent construction.

// PriceBand accepts a top-of-book ask inside [Min, Max] and quotes Quote.
// Bands must not overlap; boundaries are inclusive on both ends, so an ask
// of exactly 0.985 belongs to a [0.985, 0.9999] band and not to a band
// ending at 0.984.
type PriceBand struct {
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
	Quote float64 `yaml:"quote"`
}

// Contains devuelve true si el precio cae dentro de la banda (inclusivo).
func (b PriceBand) Contains(price float64) bool {
	return price >= b.Min && price <= b.Max
}

// MatchBand returns the first band containing the ask.
func MatchBand(bands []PriceBand, ask float64) (PriceBand, bool) {
	if ask <= 0 {
		return PriceBand{}, false
	}
	for _, b := range bands {
		if b.Contains(ask) {
			return b, true
		}
	}
	return PriceBand{}, false
}

// SizingRules clamp the candidate order size.
type SizingRules struct {
	MinSize     float64 // venue minimum tradable size
	MaxSize     float64 // configured per-order cap
	MinNotional float64 // price × size must clear this or the candidate dies
}

// BuildIntent matches the book's best ask against the bands and produces at
// most one order intent for the given side. Returns ok=false when no band
// matches, available size is below the venue minimum, or the notional is
// too small to bother the venue with.
func BuildIntent(m Market, d Direction, book OrderBook, bands []PriceBand, rules SizingRules) (OrderIntent, bool) {
	ask := book.BestAsk()
	band, ok := MatchBand(bands, ask)
	if !ok {
		return OrderIntent{}, false
	}

	size := book.BestAskSize()
	if size > rules.MaxSize {
		size = rules.MaxSize
	}
	if size < rules.MinSize {
		return OrderIntent{}, false
	}

	intent := OrderIntent{
		MarketSlug: m.Slug,
		TokenID:    m.TokenID(d),
		Direction:  d,
		Price:      band.Quote,
		Size:       size,
	}
	if intent.Notional() < rules.MinNotional {
		return OrderIntent{}, false
	}
	return intent, true
}
