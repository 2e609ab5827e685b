package ports

import (
	"context"

	"github.com/alejandrodnm/scalpbot/internal/domain"
)

// Notifier presenta la actividad del engine al usuario.
type Notifier interface {
	// TradeEvent reports one engine action (entry, fill, exit, cancel,
	// forced clear).
	TradeEvent(ctx context.Context, ev domain.TradeEvent) error

	// RoundSettled reports the end-of-window snapshot for a market.
	RoundSettled(ctx context.Context, s domain.RoundSettlement) error
}
