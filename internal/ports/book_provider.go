package ports

import (
	"context"

	"github.com/alejandrodnm/scalpbot/internal/domain"
)

// BookProvider obtiene orderbooks del CLOB usando el endpoint batch.
type BookProvider interface {
	// FetchOrderBooks devuelve los orderbooks para los token_ids dados
	// (bids de mayor a menor, asks de menor a mayor). El set completo se
	// consume atómicamente antes de cualquier decisión del ciclo.
	FetchOrderBooks(ctx context.Context, tokenIDs []string) (map[string]domain.OrderBook, error)
}
