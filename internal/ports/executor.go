package ports

import (
	"context"

	"github.com/alejandrodnm/scalpbot/internal/domain"
)

// OrderExecutor places, cancels, and monitors orders on the venue.
// Construction failure (missing credentials) is the only fatal startup
// error in the system; everything behind these methods is retried or
// tolerated per cycle.
type OrderExecutor interface {
	// SubmitOrder signs and submits an order to the CLOB.
	SubmitOrder(ctx context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error)

	// CancelOrder cancels a specific order by its CLOB order ID.
	CancelOrder(ctx context.Context, clobOrderID string) error

	// OrderStatus returns matched vs requested size for an in-flight order.
	OrderStatus(ctx context.Context, clobOrderID string) (domain.OrderStatusReport, error)

	// TokenBalance returns the settled outcome-token balance in shares.
	// Ground truth for the exit controller's settlement-latency wait.
	TokenBalance(ctx context.Context, tokenID string) (float64, error)

	// SyncAuthorization refreshes the sell authorization for a token after
	// a fresh credit. Returns an error when the venue still rejects it.
	SyncAuthorization(ctx context.Context, tokenID string) error
}

// InsufficientBalanceError is matched by the engine (errors.As) to trip the
// entry cooldown instead of retrying a known-bad state.
type InsufficientBalanceError struct {
	Msg string
}

func (e *InsufficientBalanceError) Error() string {
	if e.Msg == "" {
		return "insufficient balance"
	}
	return e.Msg
}
