package ports

import (
	"context"
	"time"
)

// PriceProvider is a reference spot price source for an instrument.
// The engine consumes two independent implementations: the primary feeds
// the history tracker and gap checks, the secondary exists only for the
// cross-source divergence veto.
type PriceProvider interface {
	// CurrentPrice returns the latest spot price, 0 with an error when the
	// source has nothing fresh.
	CurrentPrice(ctx context.Context, instrument string) (float64, error)
}

// HistoricalPriceProvider extends a price source with point-in-time lookup,
// used to sample the price-to-beat at a market's opening instant.
type HistoricalPriceProvider interface {
	PriceProvider

	// PriceAt returns the open-like reference price at the given instant.
	PriceAt(ctx context.Context, instrument string, at time.Time) (float64, error)
}
