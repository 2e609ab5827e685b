// Package metrics exposes the engine's Prometheus instrumentation.
//
// Served at /metrics (text exposition format) when a listen address is
// configured; all collectors are registered in init() and safe to touch
// from the single-threaded engine loop.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scalpbot_cycles_total",
		Help: "Evaluation cycles executed",
	})

	CyclePanics = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scalpbot_cycle_panics_total",
		Help: "Cycles aborted by a recovered panic",
	})

	OrdersPlaced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scalpbot_orders_placed_total",
		Help: "Entry orders submitted to the venue",
	}, []string{"direction"})

	TradeEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scalpbot_trade_events_total",
		Help: "Trade events emitted by the engine",
	}, []string{"action", "direction"})

	ExitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scalpbot_exits_total",
		Help: "Positions sold, split by exit reason",
	}, []string{"reason"})

	ForcedClears = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scalpbot_forced_clears_total",
		Help: "Positions cleared locally after exhausted sell retries",
	})

	DivergenceVetoes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scalpbot_divergence_vetoes_total",
		Help: "Entries suppressed by the cross-source price divergence gate",
	})

	RoundsSettled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scalpbot_rounds_settled_total",
		Help: "Market windows that left the active set",
	})

	OpenPositions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scalpbot_open_positions",
		Help: "Currently open positions",
	})
)

func init() {
	prometheus.MustRegister(
		CyclesTotal, CyclePanics, OrdersPlaced, TradeEvents,
		ExitsTotal, ForcedClears, DivergenceVetoes, RoundsSettled,
		OpenPositions,
	)
}

// Serve starts the /metrics endpoint and blocks until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics: serving", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
