package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// EngineConfig controla el comportamiento del engine de posiciones.
type EngineConfig struct {
	PollSeconds int `yaml:"poll_seconds"` // cadencia con posición/ventana activa
	IdleSeconds int `yaml:"idle_seconds"` // cadencia sin nada que vigilar

	// Instruments son los símbolos de referencia a seguir ("BTC", "ETH", ...).
	Instruments []string `yaml:"instruments"`

	MaxPositions int `yaml:"max_positions"`

	Bands []BandConfig `yaml:"bands"`

	OrderMaxSize float64 `yaml:"order_max_size"`
	MinOrderSize float64 `yaml:"min_order_size"`
	MinNotional  float64 `yaml:"min_notional"`

	ProfitTarget   float64 `yaml:"profit_target"`    // per-unit take profit
	StopLoss       float64 `yaml:"stop_loss"`        // per-unit stop (positive)
	MaxHoldSeconds int     `yaml:"max_hold_seconds"` // time stop

	MaxSpendPerMarket  float64 `yaml:"max_spend_per_market"`
	MaxTradesPerMarket int     `yaml:"max_trades_per_market"`

	ExpiryCancelSeconds    int `yaml:"expiry_cancel_seconds"`
	BalanceCooldownSeconds int `yaml:"balance_cooldown_seconds"`

	HistoryCapacity int `yaml:"history_capacity"`

	// Gates son los umbrales de riesgo por instrumento; "default" aplica al resto.
	Gates map[string]GateConfig `yaml:"gates"`
}

// BandConfig is one acceptance price band: asks inside [min, max] quote the
// given price.
type BandConfig struct {
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
	Quote float64 `yaml:"quote"`
}

// GateConfig mirrors domain.GateConfig for YAML loading.
type GateConfig struct {
	BaseGap           float64 `yaml:"base_gap"`
	GapFloor          float64 `yaml:"gap_floor"`
	OverextensionPct  float64 `yaml:"overextension_pct"`
	MomentumThreshold float64 `yaml:"momentum_threshold"`
	MaxAskNotional    float64 `yaml:"max_ask_notional"`
	DivergencePct     float64 `yaml:"divergence_pct"`
}

// APIConfig contiene los base URLs y credenciales de las APIs.
type APIConfig struct {
	CLOBBase      string `yaml:"clob_base"`
	GammaBase     string `yaml:"gamma_base"`
	BinanceBase   string `yaml:"binance_base"`
	BinanceWS     string `yaml:"binance_ws"`
	CoinbaseBase  string `yaml:"coinbase_base"`
	APIKey        string `yaml:"-"` // from env only
	APISecret     string `yaml:"-"`
	APIPassphrase string `yaml:"-"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the endpoint
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si
// existe. Las credenciales solo se leen del entorno, nunca del YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// PollInterval devuelve la cadencia activa como time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Engine.PollSeconds) * time.Second
}

// IdleInterval devuelve la cadencia idle como time.Duration.
func (c *Config) IdleInterval() time.Duration {
	return time.Duration(c.Engine.IdleSeconds) * time.Second
}

// MaxHold devuelve el time stop como time.Duration.
func (c *Config) MaxHold() time.Duration {
	return time.Duration(c.Engine.MaxHoldSeconds) * time.Second
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("CLOB_API_KEY"); v != "" {
		cfg.API.APIKey = v
	}
	if v := os.Getenv("CLOB_API_SECRET"); v != "" {
		cfg.API.APISecret = v
	}
	if v := os.Getenv("CLOB_API_PASSPHRASE"); v != "" {
		cfg.API.APIPassphrase = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Engine.PollSeconds <= 0 {
		cfg.Engine.PollSeconds = 2
	}
	if cfg.Engine.IdleSeconds <= 0 {
		cfg.Engine.IdleSeconds = 10
	}
	if cfg.Engine.MaxPositions <= 0 {
		cfg.Engine.MaxPositions = 1
	}
	if len(cfg.Engine.Instruments) == 0 {
		cfg.Engine.Instruments = []string{"BTC", "ETH"}
	}
	if len(cfg.Engine.Bands) == 0 {
		cfg.Engine.Bands = []BandConfig{
			{Min: 0.978, Max: 0.984, Quote: 0.98},
			{Min: 0.985, Max: 0.9999, Quote: 0.99},
		}
	}
	if cfg.Engine.OrderMaxSize <= 0 {
		cfg.Engine.OrderMaxSize = 100
	}
	if cfg.Engine.MinOrderSize <= 0 {
		cfg.Engine.MinOrderSize = 5
	}
	if cfg.Engine.MinNotional <= 0 {
		cfg.Engine.MinNotional = 1.0
	}
	if cfg.Engine.ProfitTarget <= 0 {
		cfg.Engine.ProfitTarget = 0.01
	}
	if cfg.Engine.StopLoss <= 0 {
		cfg.Engine.StopLoss = 0.06
	}
	if cfg.Engine.MaxHoldSeconds <= 0 {
		cfg.Engine.MaxHoldSeconds = 90
	}
	if cfg.Engine.MaxSpendPerMarket <= 0 {
		cfg.Engine.MaxSpendPerMarket = 250
	}
	if cfg.Engine.MaxTradesPerMarket <= 0 {
		cfg.Engine.MaxTradesPerMarket = 4
	}
	if cfg.Engine.ExpiryCancelSeconds <= 0 {
		cfg.Engine.ExpiryCancelSeconds = 8
	}
	if cfg.Engine.BalanceCooldownSeconds <= 0 {
		cfg.Engine.BalanceCooldownSeconds = 120
	}
	if cfg.Engine.HistoryCapacity <= 0 {
		cfg.Engine.HistoryCapacity = 30
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.API.BinanceBase == "" {
		cfg.API.BinanceBase = "https://api.binance.com"
	}
	if cfg.API.BinanceWS == "" {
		cfg.API.BinanceWS = "wss://stream.binance.com:9443/ws"
	}
	if cfg.API.CoinbaseBase == "" {
		cfg.API.CoinbaseBase = "https://api.coinbase.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "scalpbot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func validate(cfg *Config) error {
	for i, b := range cfg.Engine.Bands {
		if b.Min >= b.Max {
			return fmt.Errorf("band %d: min %.4f >= max %.4f", i, b.Min, b.Max)
		}
		if b.Quote <= 0 || b.Quote >= 1 {
			return fmt.Errorf("band %d: quote %.4f out of (0,1)", i, b.Quote)
		}
	}
	if cfg.Engine.StopLoss <= 0 {
		return fmt.Errorf("stop_loss must be > 0")
	}
	return nil
}
