package ports

import (
	"context"

	"github.com/alejandrodnm/scalpbot/internal/domain"
)

// MarketProvider descubre las ventanas up/down actualmente operables.
type MarketProvider interface {
	// FetchActiveMarkets devuelve los mercados tradables ahora mismo.
	// Un mercado que desaparece de esta lista obliga al engine a purgar
	// todo su estado (pending orders, posición, contadores de gasto).
	FetchActiveMarkets(ctx context.Context) ([]domain.Market, error)
}
