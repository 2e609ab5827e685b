package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/scalpbot/internal/domain"
	"github.com/alejandrodnm/scalpbot/internal/metrics"
)

const (
	// balanceWaitAttempts × balanceWaitInterval bounds the settlement-latency
	// tolerance before a sell attempt proceeds anyway.
	balanceWaitAttempts = 5
	balanceWaitInterval = 2 * time.Second

	sellAttempts = 3
	sellBackoff  = 500 * time.Millisecond
	sellStepDown = 0.01 // limit price concession per failed attempt
	balanceSlack = 0.99 // accept a settled balance within 1% of expected
)

// evaluateExits checks every open position against the cycle's book
// snapshot and hands matching signals to the exit controller.
func (e *Engine) evaluateExits(ctx context.Context, books map[string]domain.OrderBook, result *CycleResult) {
	now := time.Now().UTC()

	for _, pos := range e.book.openPositions() {
		book, ok := books[pos.TokenID]
		if !ok {
			// No fresh quote this cycle — defer.
			continue
		}

		sig, fire := pos.EvaluateExit(book.BestBid(), book.BestBidSize(), e.cfg.Exit, now)
		if !fire {
			continue
		}

		slog.Info("engine: exit signal",
			"market", sig.MarketSlug,
			"direction", sig.Direction,
			"reason", string(sig.Reason),
			"bid", fmt.Sprintf("%.3f", sig.Price),
			"pnl_unit", fmt.Sprintf("%+.3f", sig.PnLPerUnit),
		)

		sold := e.executeExit(ctx, sig)
		if sold {
			result.Exits++
		} else {
			result.ForcedClears++
		}
	}
}

// executeExit realizes an exit signal through the gateway:
// balance-verify → submit (retry loop with price step-down, FAK last) →
// resolved. Whatever happens, the position is cleared — a persistently
// failing sell must not leave the engine believing it still holds a
// sellable position.
func (e *Engine) executeExit(ctx context.Context, sig domain.ExitSignal) (sold bool) {
	defer e.book.remove(sig.TokenID)

	if err := e.awaitSettledBalance(ctx, sig.TokenID, sig.Size); err != nil {
		slog.Warn("engine: token balance never settled, attempting sell anyway",
			"token", sig.TokenID, "err", err)
	}

	sellPrice := sig.Price
	submit := RetryPolicy{Attempts: sellAttempts, Backoff: sellBackoff}
	err := submit.Do(ctx, func(attempt int) error {
		kind := domain.OrderKindGTC
		if attempt == sellAttempts {
			// Last try: immediate-or-cancel, never leave a resting order
			// into settlement risk.
			kind = domain.OrderKindFAK
		}

		price := sellPrice - float64(attempt-1)*sellStepDown
		if price <= 0 {
			price = 0.01
		}

		_, serr := e.exec.SubmitOrder(ctx, domain.PlaceOrderRequest{
			TokenID: sig.TokenID,
			Price:   price,
			Size:    sig.Size,
			Side:    domain.SideSell,
			Kind:    kind,
		})
		if serr != nil {
			slog.Warn("engine: sell attempt failed",
				"attempt", attempt, "price", fmt.Sprintf("%.3f", price), "err", serr)
			return serr
		}

		sellPrice = price
		return nil
	})

	if err != nil {
		// Fail open: clear locally, log the anomaly, resume scanning. The
		// forced-clear event keeps the mismatch distinguishable from a
		// genuine sale.
		slog.Error("engine: sell retries exhausted — forcing position clear",
			"market", sig.MarketSlug, "token", sig.TokenID, "err", err)
		metrics.ForcedClears.Inc()
		e.emitTrade(ctx, domain.ActionForcedClear, sig.MarketSlug, sig.Direction, sig.Price, sig.Size, string(sig.Reason))
		return false
	}

	pnl := (sellPrice - (sig.Price - sig.PnLPerUnit)) * sig.Size
	e.book.recordPnL(sig.MarketSlug, pnl)
	metrics.ExitsTotal.WithLabelValues(string(sig.Reason)).Inc()

	slog.Info("engine: position sold",
		"market", sig.MarketSlug,
		"direction", sig.Direction,
		"reason", string(sig.Reason),
		"price", fmt.Sprintf("%.3f", sellPrice),
		"size", fmt.Sprintf("%.2f", sig.Size),
		"pnl", fmt.Sprintf("$%+.2f", pnl),
	)
	e.emitTrade(ctx, domain.ActionExit, sig.MarketSlug, sig.Direction, sellPrice, sig.Size, string(sig.Reason))
	return true
}

// awaitSettledBalance tolerates the venue's settlement latency: a freshly
// filled token may take a few seconds to become spendable. Bounded
// fixed-interval retries, resyncing authorization between checks.
func (e *Engine) awaitSettledBalance(ctx context.Context, tokenID string, expected float64) error {
	wait := RetryPolicy{Attempts: balanceWaitAttempts, Backoff: balanceWaitInterval}
	return wait.Do(ctx, func(attempt int) error {
		bal, err := e.exec.TokenBalance(ctx, tokenID)
		if err != nil {
			return fmt.Errorf("token balance: %w", err)
		}
		if bal >= expected*balanceSlack {
			return nil
		}

		if serr := e.exec.SyncAuthorization(ctx, tokenID); serr != nil {
			slog.Debug("engine: authorization resync failed", "attempt", attempt, "err", serr)
		}
		return fmt.Errorf("balance %.2f below expected %.2f", bal, expected)
	})
}
