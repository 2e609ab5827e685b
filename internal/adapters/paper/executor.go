// Package paper implements a dry-run ports.OrderExecutor: las órdenes nunca
// tocan el venue, se simulan fills inmediatos al precio pedido. Permite
// validar el engine completo (reconciliación, exits, budgets) sin capital.
package paper

import (
	"context"
	"sync"

	"github.com/alejandrodnm/scalpbot/internal/domain"
	"github.com/google/uuid"
)

type simOrder struct {
	tokenID   string
	requested float64
	matched   float64
	side      domain.Side
	cancelled bool
}

// Executor simula el CLOB en memoria.
type Executor struct {
	mu       sync.Mutex
	orders   map[string]*simOrder // por CLOB order id simulado
	balances map[string]float64   // shares por token id
}

// NewExecutor crea el executor simulado.
func NewExecutor() *Executor {
	return &Executor{
		orders:   make(map[string]*simOrder),
		balances: make(map[string]float64),
	}
}

// SubmitOrder simula una orden con fill completo inmediato.
func (e *Executor) SubmitOrder(_ context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := "paper-" + uuid.New().String()
	e.orders[id] = &simOrder{
		tokenID:   req.TokenID,
		requested: req.Size,
		matched:   req.Size,
		side:      req.Side,
	}

	if req.Side == domain.SideBuy {
		e.balances[req.TokenID] += req.Size
	} else {
		e.balances[req.TokenID] -= req.Size
		if e.balances[req.TokenID] < 0 {
			e.balances[req.TokenID] = 0
		}
	}

	return domain.PlacedOrder{
		CLOBOrderID: id,
		Status:      "matched",
		MatchedSize: req.Size,
	}, nil
}

// CancelOrder marca la orden como cancelada. Nunca falla.
func (e *Executor) CancelOrder(_ context.Context, clobOrderID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if o, ok := e.orders[clobOrderID]; ok {
		o.cancelled = true
	}
	return nil
}

// OrderStatus devuelve el estado simulado.
func (e *Executor) OrderStatus(_ context.Context, clobOrderID string) (domain.OrderStatusReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.orders[clobOrderID]
	if !ok {
		return domain.OrderStatusReport{}, nil
	}
	return domain.OrderStatusReport{
		MatchedSize:   o.matched,
		RequestedSize: o.requested,
	}, nil
}

// TokenBalance devuelve el balance simulado en shares.
func (e *Executor) TokenBalance(_ context.Context, tokenID string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balances[tokenID], nil
}

// SyncAuthorization es un no-op en papel.
func (e *Executor) SyncAuthorization(context.Context, string) error {
	return nil
}
