// Package pricefeed provides the reference spot price sources the engine
// consumes: Binance as primary (websocket stream plus REST fallback) and
// Coinbase as the independent secondary used by the divergence gate.
package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultBinanceBase = "https://api.binance.com"
	defaultBinanceWS   = "wss://stream.binance.com:9443/ws"

	// staleAfter: si el stream no trae nada fresco, CurrentPrice cae al REST.
	staleAfter = 10 * time.Second

	reconnectBase = time.Second
	reconnectMax  = 30 * time.Second
	readTimeout   = 60 * time.Second
	pingInterval  = 30 * time.Second
)

// connState is the websocket connection state machine. Transitions are
// explicit and logged; there is no implicit auto-reconnect inside reads.
type connState int

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
)

func (s connState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

type tick struct {
	price float64
	at    time.Time
}

// Binance es el price feed primario. El stream websocket alimenta un cache
// de últimos precios que el engine lee por pull; si el stream está caído o
// stale, CurrentPrice consulta el REST directamente.
type Binance struct {
	baseURL string
	wsURL   string
	http    *http.Client

	symbols []string // lowercase, ej: "btcusdt"

	mu     sync.RWMutex
	state  connState
	latest map[string]tick // keyed by instrument ("BTC")
}

// NewBinance crea el feed para los instrumentos dados ("BTC", "ETH", ...).
func NewBinance(baseURL, wsURL string, instruments []string) *Binance {
	if baseURL == "" {
		baseURL = defaultBinanceBase
	}
	if wsURL == "" {
		wsURL = defaultBinanceWS
	}
	symbols := make([]string, len(instruments))
	for i, ins := range instruments {
		symbols[i] = strings.ToLower(symbolFor(ins))
	}
	return &Binance{
		baseURL: baseURL,
		wsURL:   wsURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		symbols: symbols,
		latest:  make(map[string]tick),
	}
}

// symbolFor mapea instrumento a par de Binance.
func symbolFor(instrument string) string {
	return strings.ToUpper(instrument) + "USDT"
}

// instrumentFor deshace symbolFor: "BTCUSDT" → "BTC".
func instrumentFor(symbol string) string {
	return strings.TrimSuffix(strings.ToUpper(symbol), "USDT")
}

// CurrentPrice devuelve el último precio del stream si está fresco, o cae
// al endpoint REST /ticker/price.
func (b *Binance) CurrentPrice(ctx context.Context, instrument string) (float64, error) {
	b.mu.RLock()
	t, ok := b.latest[strings.ToUpper(instrument)]
	b.mu.RUnlock()

	if ok && time.Since(t.at) < staleAfter {
		return t.price, nil
	}

	return b.restPrice(ctx, instrument)
}

// PriceAt devuelve el precio de apertura de la vela de 1m que contiene el
// instante dado. Es la fuente del price-to-beat de cada ventana.
func (b *Binance) PriceAt(ctx context.Context, instrument string, at time.Time) (float64, error) {
	url := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=1m&startTime=%d&limit=1",
		b.baseURL, symbolFor(instrument), at.UnixMilli())

	var klines [][]any
	if err := b.getJSON(ctx, url, &klines); err != nil {
		return 0, fmt.Errorf("pricefeed.PriceAt: %w", err)
	}
	if len(klines) == 0 || len(klines[0]) < 2 {
		return 0, fmt.Errorf("pricefeed.PriceAt: no kline at %s for %s", at.Format(time.RFC3339), instrument)
	}

	openStr, ok := klines[0][1].(string)
	if !ok {
		return 0, fmt.Errorf("pricefeed.PriceAt: unexpected kline shape")
	}
	open, err := strconv.ParseFloat(openStr, 64)
	if err != nil || open <= 0 {
		return 0, fmt.Errorf("pricefeed.PriceAt: bad open price %q", openStr)
	}
	return open, nil
}

func (b *Binance) restPrice(ctx context.Context, instrument string) (float64, error) {
	url := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", b.baseURL, symbolFor(instrument))

	var resp struct {
		Price string `json:"price"`
	}
	if err := b.getJSON(ctx, url, &resp); err != nil {
		return 0, fmt.Errorf("pricefeed.CurrentPrice: %w", err)
	}

	price, err := strconv.ParseFloat(resp.Price, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("pricefeed.CurrentPrice: bad price %q", resp.Price)
	}
	return price, nil
}

func (b *Binance) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Run mantiene el stream websocket hasta que el contexto se cancele.
// Reconexión con backoff exponencial; cada transición de estado se loguea.
func (b *Binance) Run(ctx context.Context) {
	backoff := reconnectBase

	for {
		if ctx.Err() != nil {
			return
		}

		b.setState(stateConnecting)
		conn, err := b.dial(ctx)
		if err != nil {
			b.setState(stateDisconnected)
			slog.Warn("pricefeed: binance dial failed", "err", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > reconnectMax {
				backoff = reconnectMax
			}
			continue
		}

		b.setState(stateConnected)
		backoff = reconnectBase

		b.readLoop(ctx, conn)
		conn.Close()
		b.setState(stateDisconnected)
	}
}

func (b *Binance) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, b.wsURL, nil)
	if err != nil {
		return nil, err
	}

	streams := make([]string, len(b.symbols))
	for i, s := range b.symbols {
		streams[i] = s + "@trade"
	}
	sub := map[string]any{"method": "SUBSCRIBE", "params": streams, "id": 1}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	slog.Info("pricefeed: binance stream connected", "streams", len(streams))
	return conn, nil
}

// readLoop consume el stream hasta error de lectura o cancelación.
func (b *Binance) readLoop(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			}
		}
	}()

	var msg struct {
		Event  string `json:"e"`
		Symbol string `json:"s"`
		Price  string `json:"p"`
		TimeMS int64  `json:"T"`
	}

	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() == nil {
				slog.Warn("pricefeed: binance stream read failed", "err", err)
			}
			return
		}

		if msg.Event != "trade" || msg.Symbol == "" {
			continue
		}
		price, err := strconv.ParseFloat(msg.Price, 64)
		if err != nil || price <= 0 {
			continue
		}

		b.mu.Lock()
		b.latest[instrumentFor(msg.Symbol)] = tick{price: price, at: time.Now()}
		b.mu.Unlock()
	}
}

func (b *Binance) setState(s connState) {
	b.mu.Lock()
	prev := b.state
	b.state = s
	b.mu.Unlock()
	if prev != s {
		slog.Debug("pricefeed: binance stream state", "from", prev.String(), "to", s.String())
	}
}

// State devuelve el estado actual de la conexión (para tests y diagnóstico).
func (b *Binance) State() connState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}
