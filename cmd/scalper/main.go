package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/scalpbot/config"
	"github.com/alejandrodnm/scalpbot/internal/adapters/notify"
	"github.com/alejandrodnm/scalpbot/internal/adapters/paper"
	"github.com/alejandrodnm/scalpbot/internal/adapters/polymarket"
	"github.com/alejandrodnm/scalpbot/internal/adapters/pricefeed"
	"github.com/alejandrodnm/scalpbot/internal/adapters/storage"
	"github.com/alejandrodnm/scalpbot/internal/application/engine"
	"github.com/alejandrodnm/scalpbot/internal/domain"
	"github.com/alejandrodnm/scalpbot/internal/metrics"
	"github.com/alejandrodnm/scalpbot/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one evaluation cycle and exit")
	dryRun := flag.Bool("dry-run", false, "paper executor: orders never reach the venue")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print settlement tables (default: compact 1-line)")
	reportDays := flag.Int("report", 0, "print the settlement report for the last N days and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("scalpbot starting",
		"config", *configPath,
		"poll", cfg.PollInterval(),
		"idle", cfg.IdleInterval(),
		"instruments", cfg.Engine.Instruments,
		"dry_run", *dryRun,
		"once", *once,
	)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	notifier := notify.NewConsole(*table)

	if *reportDays > 0 {
		runReport(store, notifier, *reportDays)
		return
	}

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)

	var exec ports.OrderExecutor
	if *dryRun {
		exec = paper.NewExecutor()
	} else {
		exec, err = polymarket.NewTradingClient(client, polymarket.Credentials{
			APIKey:     cfg.API.APIKey,
			Secret:     cfg.API.APISecret,
			Passphrase: cfg.API.APIPassphrase,
		})
		if err != nil {
			// The only fatal startup error: without credentials nothing
			// downstream can work.
			slog.Error("failed to build trading client", "err", err)
			os.Exit(1)
		}
	}

	primary := pricefeed.NewBinance(cfg.API.BinanceBase, cfg.API.BinanceWS, cfg.Engine.Instruments)
	secondary := pricefeed.NewCoinbase(cfg.API.CoinbaseBase)

	eng := engine.New(client, client, primary, secondary, exec, notifier, store, engineConfig(cfg))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go primary.Run(ctx)

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
				slog.Warn("metrics endpoint failed", "err", err)
			}
		}()
	}

	if *once {
		result, err := eng.RunOnce(ctx)
		if err != nil {
			slog.Error("cycle failed", "err", err)
			os.Exit(1)
		}
		slog.Info("cycle complete",
			"markets", result.Markets,
			"new_orders", result.NewOrders,
			"fills", result.Fills,
			"exits", result.Exits,
		)
		return
	}

	if err := eng.Run(ctx); err != nil {
		slog.Error("engine exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("scalpbot stopped cleanly")
}

// engineConfig traduce la config YAML a la config del engine.
func engineConfig(cfg *config.Config) engine.Config {
	bands := make([]domain.PriceBand, len(cfg.Engine.Bands))
	for i, b := range cfg.Engine.Bands {
		bands[i] = domain.PriceBand{Min: b.Min, Max: b.Max, Quote: b.Quote}
	}

	gates := make(map[string]domain.GateConfig, len(cfg.Engine.Gates))
	var defaultGate domain.GateConfig
	for name, g := range cfg.Engine.Gates {
		dg := domain.GateConfig{
			BaseGap:           g.BaseGap,
			GapFloor:          g.GapFloor,
			OverextensionPct:  g.OverextensionPct,
			MomentumThreshold: g.MomentumThreshold,
			MaxAskNotional:    g.MaxAskNotional,
			DivergencePct:     g.DivergencePct,
		}
		if name == "default" {
			defaultGate = dg
			continue
		}
		gates[name] = dg
	}

	return engine.Config{
		PollInterval: cfg.PollInterval(),
		IdleInterval: cfg.IdleInterval(),
		MaxPositions: cfg.Engine.MaxPositions,
		Bands:        bands,
		Sizing: domain.SizingRules{
			MinSize:     cfg.Engine.MinOrderSize,
			MaxSize:     cfg.Engine.OrderMaxSize,
			MinNotional: cfg.Engine.MinNotional,
		},
		Exit: domain.ExitRules{
			ProfitTarget: cfg.Engine.ProfitTarget,
			StopLoss:     cfg.Engine.StopLoss,
			MaxHold:      cfg.MaxHold(),
		},
		Gates:              gates,
		DefaultGate:        defaultGate,
		MaxSpendPerMarket:  cfg.Engine.MaxSpendPerMarket,
		MaxTradesPerMarket: cfg.Engine.MaxTradesPerMarket,
		ExpiryCancelMargin: time.Duration(cfg.Engine.ExpiryCancelSeconds) * time.Second,
		BalanceCooldown:    time.Duration(cfg.Engine.BalanceCooldownSeconds) * time.Second,
		HistoryCapacity:    cfg.Engine.HistoryCapacity,
	}
}

func runReport(store *storage.SQLiteStorage, notifier *notify.Console, days int) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)

	settlements, err := store.GetSettlements(context.Background(), from, to)
	if err != nil {
		slog.Error("failed to read settlements", "err", err)
		os.Exit(1)
	}
	notifier.PrintSettlementReport(settlements, from, to)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
