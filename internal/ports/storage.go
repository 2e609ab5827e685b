package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/scalpbot/internal/domain"
)

// Storage persiste los eventos de trading y los cierres de ronda.
type Storage interface {
	SaveTradeEvent(ctx context.Context, ev domain.TradeEvent) error
	SaveSettlement(ctx context.Context, s domain.RoundSettlement) error

	// GetSettlements devuelve los cierres registrados en el rango dado.
	GetSettlements(ctx context.Context, from, to time.Time) ([]domain.RoundSettlement, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
