package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/scalpbot/internal/domain"
)

// pendingRegistry owns the in-flight order state. Nothing outside this file
// mutates the map; the rest of the engine goes through its methods.
type pendingRegistry struct {
	orders map[string]*domain.PendingOrder // keyed by local ID
}

func newPendingRegistry() *pendingRegistry {
	return &pendingRegistry{orders: make(map[string]*domain.PendingOrder)}
}

func (r *pendingRegistry) add(o *domain.PendingOrder) {
	r.orders[o.ID] = o
}

func (r *pendingRegistry) remove(localID string) {
	delete(r.orders, localID)
}

func (r *pendingRegistry) has(localID string) bool {
	_, ok := r.orders[localID]
	return ok
}

func (r *pendingRegistry) count() int {
	return len(r.orders)
}

// all devuelve un snapshot estable para iterar mientras se muta el registro.
func (r *pendingRegistry) all() []*domain.PendingOrder {
	out := make([]*domain.PendingOrder, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, o)
	}
	return out
}

// hasForMarket: un mercado con CUALQUIER orden pendiente se salta entero
// hasta que esa orden se resuelva.
func (r *pendingRegistry) hasForMarket(slug string) bool {
	for _, o := range r.orders {
		if o.MarketSlug == slug {
			return true
		}
	}
	return false
}

func (r *pendingRegistry) siblingsOf(o *domain.PendingOrder) []*domain.PendingOrder {
	var out []*domain.PendingOrder
	for _, other := range r.orders {
		if other.ID != o.ID && other.MarketSlug == o.MarketSlug {
			out = append(out, other)
		}
	}
	return out
}

// reconcilePending queries venue fill state for every pending order and
// applies the outcome: promote fills into the position book, cancel
// residuals and siblings, force-cancel orders whose market is about to
// settle, and discard orphans whose market left the active set.
func (e *Engine) reconcilePending(ctx context.Context, activeBySlug map[string]domain.Market, result *CycleResult) {
	now := time.Now().UTC()

	for _, order := range e.pending.all() {
		// El snapshot puede contener órdenes que un cancel de sibling ya
		// retiró en esta misma pasada.
		if !e.pending.has(order.ID) {
			continue
		}

		// Orphan cleanup: market left the active set.
		if _, active := activeBySlug[order.MarketSlug]; !active {
			e.cancelPending(ctx, order, "market left active set")
			result.Cancelled++
			continue
		}

		// Expiry safety valve: never hold an unfillable order into
		// settlement.
		if time.Until(order.ExpiresAt) < e.cfg.ExpiryCancelMargin {
			e.cancelPending(ctx, order, fmt.Sprintf("expiry safety valve (<%s left)", e.cfg.ExpiryCancelMargin))
			result.Cancelled++
			continue
		}

		status, err := e.exec.OrderStatus(ctx, order.CLOBOrderID)
		if err != nil {
			// Transient: leave pending, next cycle retries.
			slog.Warn("engine: order status failed", "clob_id", order.CLOBOrderID, "err", err)
			continue
		}

		outcome := domain.ClassifyFill(status.MatchedSize, order.Size)
		result.Reconciled++
		if outcome == domain.FillNone {
			continue
		}

		e.promoteFill(ctx, order, status.MatchedSize, outcome, now)
		result.Fills++

		// Only one directional fill per market window is honored even if
		// both bands were quoted concurrently.
		for _, sibling := range e.pending.siblingsOf(order) {
			e.cancelPending(ctx, sibling, "sibling filled")
			result.Cancelled++
		}
	}
}

// promoteFill converts the matched quantity into position state and retires
// the pending order, cancelling any unfilled remainder.
func (e *Engine) promoteFill(ctx context.Context, order *domain.PendingOrder, matched float64, outcome domain.FillOutcome, now time.Time) {
	size := matched
	if size > order.Size {
		size = order.Size
	}

	e.book.recordFill(order.TokenID, order.MarketSlug, order.Direction, order.Price, size, now)

	slog.Info("engine: fill promoted",
		"market", order.MarketSlug,
		"direction", order.Direction,
		"outcome", outcome.String(),
		"price", fmt.Sprintf("%.3f", order.Price),
		"size", fmt.Sprintf("%.2f", size),
	)
	e.emitTrade(ctx, domain.ActionFill, order.MarketSlug, order.Direction, order.Price, size, outcome.String())

	// Kill the resting remainder in both outcomes: un "full" admite hasta
	// un 1% sin matchear, y ese resto seguiría vivo en el venue después de
	// que el registro local lo olvide. Sobre una orden ya completada el
	// cancel es un no-op inofensivo.
	if err := e.cancelRetry.Do(ctx, func(int) error {
		return e.exec.CancelOrder(ctx, order.CLOBOrderID)
	}); err != nil {
		slog.Warn("engine: residual cancel failed", "clob_id", order.CLOBOrderID, "err", err)
	}
	e.pending.remove(order.ID)
}

// cancelPending cancels on the venue (bounded retries) and always drops the
// local record — a cancel that keeps failing means the order will die with
// the market anyway.
func (e *Engine) cancelPending(ctx context.Context, order *domain.PendingOrder, reason string) {
	if err := e.cancelRetry.Do(ctx, func(int) error {
		return e.exec.CancelOrder(ctx, order.CLOBOrderID)
	}); err != nil {
		slog.Warn("engine: cancel failed, dropping local record anyway",
			"clob_id", order.CLOBOrderID, "reason", reason, "err", err)
	}

	e.pending.remove(order.ID)
	slog.Info("engine: pending order cancelled",
		"market", order.MarketSlug,
		"direction", order.Direction,
		"reason", reason,
	)
	e.emitTrade(ctx, domain.ActionCancel, order.MarketSlug, order.Direction, order.Price, order.Size, reason)
}
