package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const defaultCoinbaseBase = "https://api.coinbase.com"

// Coinbase es la fuente secundaria de precios. Solo existe para el gate de
// divergencia: el engine nunca decide precios con ella, solo la compara
// contra la primaria. Por eso es REST puro, sin stream.
type Coinbase struct {
	baseURL string
	http    *http.Client
}

// NewCoinbase crea el feed secundario.
func NewCoinbase(baseURL string) *Coinbase {
	if baseURL == "" {
		baseURL = defaultCoinbaseBase
	}
	return &Coinbase{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// CurrentPrice devuelve el precio spot USD del instrumento.
func (c *Coinbase) CurrentPrice(ctx context.Context, instrument string) (float64, error) {
	url := fmt.Sprintf("%s/v2/prices/%s-USD/spot", c.baseURL, strings.ToUpper(instrument))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("pricefeed.Coinbase: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("pricefeed.Coinbase: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("pricefeed.Coinbase: status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		Data struct {
			Amount string `json:"amount"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("pricefeed.Coinbase: decode: %w", err)
	}

	price, err := strconv.ParseFloat(payload.Data.Amount, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("pricefeed.Coinbase: bad amount %q", payload.Data.Amount)
	}
	return price, nil
}
