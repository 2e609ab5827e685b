package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/scalpbot/internal/domain"
	"github.com/alejandrodnm/scalpbot/internal/metrics"
	"github.com/alejandrodnm/scalpbot/internal/ports"
	"github.com/google/uuid"
)

type skipReason int

const (
	skipReasonPending skipReason = iota
	skipReasonLocked
	skipReasonBudget
	skipReasonCooldown
	skipReasonNoBand
	skipReasonVeto
	skipReasonExpiring
	skipReasonNoPrice
)

type pipelineStats struct {
	pending, locked, budget, cooldown, noBand, veto, expiring, noPrice int
}

func (s *pipelineStats) record(r skipReason) {
	switch r {
	case skipReasonPending:
		s.pending++
	case skipReasonLocked:
		s.locked++
	case skipReasonBudget:
		s.budget++
	case skipReasonCooldown:
		s.cooldown++
	case skipReasonNoBand:
		s.noBand++
	case skipReasonVeto:
		s.veto++
	case skipReasonExpiring:
		s.expiring++
	case skipReasonNoPrice:
		s.noPrice++
	}
}

func (s pipelineStats) log(markets, placed int) {
	slog.Debug("engine: entry pipeline",
		"markets", markets,
		"skip_pending", s.pending,
		"skip_locked", s.locked,
		"skip_budget", s.budget,
		"skip_cooldown", s.cooldown,
		"skip_no_band", s.noBand,
		"skip_veto", s.veto,
		"skip_expiring", s.expiring,
		"skip_no_price", s.noPrice,
		"placed", placed,
	)
}

// runEntryPipeline evaluates every active market for a new entry. At most
// one order per market per cycle; up is always evaluated before down.
func (e *Engine) runEntryPipeline(ctx context.Context, markets []domain.Market, books map[string]domain.OrderBook, result *CycleResult) {
	now := time.Now().UTC()
	var stats pipelineStats

	for _, m := range markets {
		if e.exposureCount() >= e.cfg.MaxPositions {
			break
		}

		skip, reason := e.entryGate(m, now)
		if skip {
			stats.record(reason)
			continue
		}

		placed := false
		// Tie-break policy: up before down, first match wins the cycle.
		for _, d := range []domain.Direction{domain.DirectionUp, domain.DirectionDown} {
			book, ok := books[m.TokenID(d)]
			if !ok {
				continue
			}

			intent, ok := domain.BuildIntent(m, d, book, e.cfg.Bands, e.cfg.Sizing)
			if !ok {
				continue
			}

			if !e.book.canOpen(m.Slug, intent.Notional()) {
				stats.record(skipReasonBudget)
				break
			}

			check := domain.EntryCheck{
				Proposed:        d,
				Current:         e.lastPrice[m.Instrument],
				Secondary:       e.secondaryPrice[m.Instrument],
				PriceToBeat:     e.priceToBeat[m.Slug],
				SecondsToExpiry: m.SecondsToExpiry(now),
				Book:            book,
				Cfg:             e.gateFor(m.Instrument),
			}
			permitted, veto := domain.EntryPermitted(check, e.history, m.Instrument)
			if !permitted {
				if veto == domain.VetoDivergence {
					metrics.DivergenceVetoes.Inc()
				}
				stats.record(skipReasonVeto)
				slog.Debug("engine: entry vetoed",
					"market", m.Slug, "direction", d, "veto", string(veto))
				break
			}

			if err := e.submitEntry(ctx, m, intent, now); err != nil {
				slog.Warn("engine: entry submission failed", "market", m.Slug, "err", err)

				var balErr *ports.InsufficientBalanceError
				if errors.As(err, &balErr) {
					e.cooldown.Trip("insufficient balance", now)
					slog.Warn("engine: entry cooldown tripped",
						"until", e.cooldown.Until.Format("15:04:05"))
				}
				break
			}

			placed = true
			result.NewOrders++
			break
		}

		if !placed {
			// Either nothing matched a band or the submission failed.
			if _, hasBand := bandCandidate(m, books, e.cfg.Bands); !hasBand {
				stats.record(skipReasonNoBand)
			}
		}
	}

	stats.log(len(markets), result.NewOrders)
	result.Skips = stats
}

// bandCandidate reports whether either side's ask matches any band.
func bandCandidate(m domain.Market, books map[string]domain.OrderBook, bands []domain.PriceBand) (domain.Direction, bool) {
	for _, d := range []domain.Direction{domain.DirectionUp, domain.DirectionDown} {
		if book, ok := books[m.TokenID(d)]; ok {
			if _, match := domain.MatchBand(bands, book.BestAsk()); match {
				return d, true
			}
		}
	}
	return "", false
}

// entryGate applies the cheap market-level filters before any book look.
func (e *Engine) entryGate(m domain.Market, now time.Time) (skip bool, reason skipReason) {
	if e.cooldown.Active(now) {
		return true, skipReasonCooldown
	}
	// A market with ANY pending order of either direction waits until that
	// order resolves.
	if e.pending.hasForMarket(m.Slug) {
		return true, skipReasonPending
	}
	if lockedAt, ok := e.entryLocks[m.Slug]; ok && now.Sub(lockedAt) < e.cfg.EntryLockTTL {
		return true, skipReasonLocked
	}
	if m.SecondsToExpiry(now) < e.cfg.ExpiryCancelMargin.Seconds() {
		return true, skipReasonExpiring
	}
	if e.priceToBeat[m.Slug] <= 0 || e.lastPrice[m.Instrument] <= 0 {
		return true, skipReasonNoPrice
	}
	return false, 0
}

// submitEntry takes the per-market lock, submits through the gateway, and
// registers the pending order. The lock exists purely to stop a doubled
// cycle from double-submitting; it is dropped as soon as submission
// completes or fails.
func (e *Engine) submitEntry(ctx context.Context, m domain.Market, intent domain.OrderIntent, now time.Time) error {
	e.entryLocks[m.Slug] = now
	defer delete(e.entryLocks, m.Slug)

	placed, err := e.exec.SubmitOrder(ctx, domain.PlaceOrderRequest{
		TokenID: intent.TokenID,
		Price:   intent.Price,
		Size:    intent.Size,
		Side:    domain.SideBuy,
		Kind:    domain.OrderKindGTC,
	})
	if err != nil {
		return fmt.Errorf("engine.submitEntry: %w", err)
	}

	e.pending.add(&domain.PendingOrder{
		ID:          uuid.New().String(),
		CLOBOrderID: placed.CLOBOrderID,
		MarketSlug:  m.Slug,
		TokenID:     intent.TokenID,
		Direction:   intent.Direction,
		Price:       intent.Price,
		Size:        intent.Size,
		PlacedAt:    now,
		ExpiresAt:   m.ExpiresAt,
	})
	e.book.commit(m.Slug, intent.Notional())
	metrics.OrdersPlaced.WithLabelValues(string(intent.Direction)).Inc()

	slog.Info("engine: entry placed",
		"market", m.Slug,
		"direction", intent.Direction,
		"price", fmt.Sprintf("%.3f", intent.Price),
		"size", fmt.Sprintf("%.2f", intent.Size),
		"notional", fmt.Sprintf("$%.2f", intent.Notional()),
	)
	e.emitTrade(ctx, domain.ActionEntry, m.Slug, intent.Direction, intent.Price, intent.Size, "band entry")
	return nil
}
