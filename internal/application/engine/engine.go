package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/scalpbot/internal/domain"
	"github.com/alejandrodnm/scalpbot/internal/metrics"
	"github.com/alejandrodnm/scalpbot/internal/ports"
	"github.com/google/uuid"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultIdleInterval = 10 * time.Second
	defaultExpiryMargin = 8 * time.Second
	defaultEntryLockTTL = 5 * time.Second
	defaultCooldown     = 2 * time.Minute
	defaultMaxSpend     = 250.0
	defaultMaxTrades    = 4
	cancelRetryAttempts = 3
	cancelRetryBackoff  = 300 * time.Millisecond
)

// Config holds the tuning knobs of the position/order lifecycle engine.
type Config struct {
	PollInterval time.Duration // cadence while a position or window is active
	IdleInterval time.Duration // cadence when there is nothing to watch

	MaxPositions int // at most this many concurrent positions (default 1)

	Bands  []domain.PriceBand
	Sizing domain.SizingRules
	Exit   domain.ExitRules

	// Gates are per-instrument risk thresholds; DefaultGate applies to
	// instruments without an entry.
	Gates       map[string]domain.GateConfig
	DefaultGate domain.GateConfig

	MaxSpendPerMarket  float64
	MaxTradesPerMarket int

	ExpiryCancelMargin time.Duration // force-cancel pending orders this close to settlement
	EntryLockTTL       time.Duration
	BalanceCooldown    time.Duration // entry pause after an insufficient-balance rejection

	HistoryCapacity int
}

// CycleResult contains everything produced by one evaluation cycle.
type CycleResult struct {
	Markets      int
	Reconciled   int
	Fills        int
	Exits        int
	ForcedClears int
	Cancelled    int
	NewOrders    int
	Settlements  int
	Skips        pipelineStats
}

// Engine is the position and order-lifecycle core. Single-threaded: one
// cycle runs to completion before the next begins, so none of its state
// needs locking beyond the per-market entry lock.
type Engine struct {
	markets   ports.MarketProvider
	books     ports.BookProvider
	prices    ports.HistoricalPriceProvider
	secondary ports.PriceProvider
	exec      ports.OrderExecutor
	notifier  ports.Notifier
	store     ports.Storage
	cfg       Config

	history *domain.PriceHistory
	pending *pendingRegistry
	book    *positionBook

	entryLocks     map[string]time.Time // market slug → lock taken at
	priceToBeat    map[string]float64   // market slug → opening reference price
	lastPrice      map[string]float64   // instrument → last primary price
	secondaryPrice map[string]float64   // instrument → last secondary price
	knownMarkets   map[string]domain.Market

	cooldown    domain.Cooldown
	cancelRetry RetryPolicy
}

// New wires the engine. notifier and store may be nil (no-op).
func New(
	markets ports.MarketProvider,
	books ports.BookProvider,
	prices ports.HistoricalPriceProvider,
	secondary ports.PriceProvider,
	exec ports.OrderExecutor,
	notifier ports.Notifier,
	store ports.Storage,
	cfg Config,
) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = defaultIdleInterval
	}
	if cfg.MaxPositions <= 0 {
		cfg.MaxPositions = 1
	}
	if cfg.ExpiryCancelMargin <= 0 {
		cfg.ExpiryCancelMargin = defaultExpiryMargin
	}
	if cfg.EntryLockTTL <= 0 {
		cfg.EntryLockTTL = defaultEntryLockTTL
	}
	if cfg.BalanceCooldown <= 0 {
		cfg.BalanceCooldown = defaultCooldown
	}
	if cfg.MaxSpendPerMarket <= 0 {
		cfg.MaxSpendPerMarket = defaultMaxSpend
	}
	if cfg.MaxTradesPerMarket <= 0 {
		cfg.MaxTradesPerMarket = defaultMaxTrades
	}

	return &Engine{
		markets:        markets,
		books:          books,
		prices:         prices,
		secondary:      secondary,
		exec:           exec,
		notifier:       notifier,
		store:          store,
		cfg:            cfg,
		history:        domain.NewPriceHistory(cfg.HistoryCapacity),
		pending:        newPendingRegistry(),
		book:           newPositionBook(cfg.MaxSpendPerMarket, cfg.MaxTradesPerMarket),
		entryLocks:     make(map[string]time.Time),
		priceToBeat:    make(map[string]float64),
		lastPrice:      make(map[string]float64),
		secondaryPrice: make(map[string]float64),
		knownMarkets:   make(map[string]domain.Market),
		cooldown:       domain.Cooldown{Duration: cfg.BalanceCooldown},
		cancelRetry:    RetryPolicy{Attempts: cancelRetryAttempts, Backoff: cancelRetryBackoff},
	}
}

// Run drives one evaluation pass per tick until the context is cancelled.
// The interval adapts: short while a position or pending order is live,
// long when idle. The stop signal is only honored at the top of a cycle —
// no mid-cycle abort.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine: starting",
		"poll", e.cfg.PollInterval,
		"idle", e.cfg.IdleInterval,
		"max_positions", e.cfg.MaxPositions,
	)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("engine: stopped")
			return nil
		case <-timer.C:
		}

		e.safeCycle(ctx)
		timer.Reset(e.nextInterval())
	}
}

// safeCycle runs one cycle catching programming-level panics at the cycle
// boundary: the process keeps polling no matter what one cycle did.
func (e *Engine) safeCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			metrics.CyclePanics.Inc()
			slog.Error("engine: cycle panicked — continuing next cycle", "panic", r)
		}
	}()

	start := time.Now()
	result, err := e.RunOnce(ctx)
	if err != nil {
		slog.Warn("engine: cycle failed", "err", err)
		return
	}
	slog.Debug("engine: cycle complete",
		"markets", result.Markets,
		"fills", result.Fills,
		"exits", result.Exits,
		"new_orders", result.NewOrders,
		"duration", time.Since(start).Round(time.Millisecond),
	)
}

// nextInterval picks the polling cadence for the next cycle.
func (e *Engine) nextInterval() time.Duration {
	if e.book.openCount() > 0 || e.pending.count() > 0 || len(e.knownMarkets) > 0 {
		return e.cfg.PollInterval
	}
	return e.cfg.IdleInterval
}

// RunOnce executes one evaluation cycle:
// discover → purge → snapshot → reconcile → exits → entries.
func (e *Engine) RunOnce(ctx context.Context) (*CycleResult, error) {
	result := &CycleResult{}
	metrics.CyclesTotal.Inc()

	markets, err := e.markets.FetchActiveMarkets(ctx)
	if err != nil {
		// Transient I/O: nothing this cycle, state untouched.
		return nil, fmt.Errorf("engine.RunOnce: fetch markets: %w", err)
	}
	result.Markets = len(markets)

	activeBySlug := make(map[string]domain.Market, len(markets))
	activeSet := make(map[string]bool, len(markets))
	for _, m := range markets {
		activeBySlug[m.Slug] = m
		activeSet[m.Slug] = true
	}

	e.settleDepartedMarkets(ctx, activeSet, result)
	e.book.cleanup(activeSet)
	for slug := range e.entryLocks {
		if !activeSet[slug] {
			delete(e.entryLocks, slug)
		}
	}
	e.knownMarkets = activeBySlug

	// One consistent snapshot per cycle: the whole response set lands
	// before any decision logic runs.
	books := e.fetchBooks(ctx, markets)
	e.refreshPrices(ctx, markets)

	e.reconcilePending(ctx, activeBySlug, result)
	e.evaluateExits(ctx, books, result)

	if e.exposureCount() < e.cfg.MaxPositions {
		e.runEntryPipeline(ctx, markets, books, result)
	}

	metrics.OpenPositions.Set(float64(e.book.openCount()))
	return result, nil
}

// exposureCount counts positions AND in-flight orders: a pending order is
// committed capital the moment it can fill, so it occupies a slot.
func (e *Engine) exposureCount() int {
	return e.book.openCount() + e.pending.count()
}

// fetchBooks grabs the cycle's order book snapshot. Failure is tolerated:
// decision logic simply sees empty books and defers.
func (e *Engine) fetchBooks(ctx context.Context, markets []domain.Market) map[string]domain.OrderBook {
	tokenIDs := make([]string, 0, len(markets)*2)
	for _, m := range markets {
		tokenIDs = append(tokenIDs, m.UpTokenID, m.DownTokenID)
	}

	books, err := e.books.FetchOrderBooks(ctx, tokenIDs)
	if err != nil {
		slog.Warn("engine: order book snapshot failed, proceeding without", "err", err)
		return map[string]domain.OrderBook{}
	}
	return books
}

// refreshPrices records the primary reference price per instrument into the
// history tracker, refreshes the secondary source, and samples the
// price-to-beat for newly seen markets.
func (e *Engine) refreshPrices(ctx context.Context, markets []domain.Market) {
	now := time.Now().UTC()
	seen := make(map[string]bool)

	for _, m := range markets {
		if !seen[m.Instrument] {
			seen[m.Instrument] = true

			if p, err := e.prices.CurrentPrice(ctx, m.Instrument); err == nil && p > 0 {
				e.history.Record(m.Instrument, p, now)
				e.lastPrice[m.Instrument] = p
			} else if err != nil {
				slog.Warn("engine: primary price unavailable", "instrument", m.Instrument, "err", err)
			}

			if e.secondary != nil {
				if p, err := e.secondary.CurrentPrice(ctx, m.Instrument); err == nil {
					e.secondaryPrice[m.Instrument] = p
				} else {
					// Missing secondary disables the divergence veto, it
					// never blocks the cycle.
					e.secondaryPrice[m.Instrument] = 0
				}
			}
		}

		if _, ok := e.priceToBeat[m.Slug]; !ok {
			p, err := e.prices.PriceAt(ctx, m.Instrument, m.OpenedAt)
			if err != nil || p <= 0 {
				slog.Warn("engine: price-to-beat unavailable", "market", m.Slug, "err", err)
				continue
			}
			e.priceToBeat[m.Slug] = p
			slog.Info("engine: price to beat",
				"market", m.Slug,
				"instrument", m.Instrument,
				"price", fmt.Sprintf("%.2f", p),
			)
		}
	}

	e.history.Purge(seen)
}

// settleDepartedMarkets emits a round-settlement snapshot for every market
// that left the active set, before its counters are purged.
func (e *Engine) settleDepartedMarkets(ctx context.Context, activeSet map[string]bool, result *CycleResult) {
	for slug, m := range e.knownMarkets {
		if activeSet[slug] {
			continue
		}

		b := e.book.budget(slug)
		settlement := domain.RoundSettlement{
			MarketSlug:  slug,
			Instrument:  m.Instrument,
			PriceToBeat: e.priceToBeat[slug],
			FinalPrice:  e.lastPrice[m.Instrument],
			Trades:      b.trades,
			SpentUSDC:   b.spentUSDC,
			RealizedPnL: b.realizedPnL,
			SettledAt:   time.Now().UTC(),
		}
		delete(e.priceToBeat, slug)
		result.Settlements++
		metrics.RoundsSettled.Inc()

		if e.notifier != nil {
			if err := e.notifier.RoundSettled(ctx, settlement); err != nil {
				slog.Warn("engine: notifier error", "err", err)
			}
		}
		if e.store != nil {
			if err := e.store.SaveSettlement(ctx, settlement); err != nil {
				slog.Warn("engine: storage error", "err", err)
			}
		}
	}
}

// gateFor devuelve los umbrales de riesgo del instrumento.
func (e *Engine) gateFor(instrument string) domain.GateConfig {
	if g, ok := e.cfg.Gates[instrument]; ok {
		return g
	}
	return e.cfg.DefaultGate
}

// emitTrade reports one engine action to the observability collaborators.
// Their failures are logged and never affect the cycle.
func (e *Engine) emitTrade(ctx context.Context, action domain.TradeAction, marketSlug string, d domain.Direction, price, size float64, reason string) {
	instrument := ""
	if m, ok := e.knownMarkets[marketSlug]; ok {
		instrument = m.Instrument
	}

	ev := domain.TradeEvent{
		ID:         uuid.New().String(),
		Action:     action,
		MarketSlug: marketSlug,
		Instrument: instrument,
		Direction:  d,
		Price:      price,
		Size:       size,
		Reason:     reason,
		At:         time.Now().UTC(),
	}

	metrics.TradeEvents.WithLabelValues(string(action), string(d)).Inc()

	if e.notifier != nil {
		if err := e.notifier.TradeEvent(ctx, ev); err != nil {
			slog.Warn("engine: notifier error", "err", err)
		}
	}
	if e.store != nil {
		if err := e.store.SaveTradeEvent(ctx, ev); err != nil {
			slog.Warn("engine: storage error", "err", err)
		}
	}
}
