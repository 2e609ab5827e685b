package pricefeed_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alejandrodnm/scalpbot/internal/adapters/pricefeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinance_CurrentPrice_RESTFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbol": "BTCUSDT", "price": "50123.45"}`))
	}))
	defer srv.Close()

	b := pricefeed.NewBinance(srv.URL, "ws://unused", []string{"BTC"})
	price, err := b.CurrentPrice(context.Background(), "BTC")
	require.NoError(t, err)
	assert.InDelta(t, 50123.45, price, 1e-6)
}

func TestBinance_CurrentPrice_BadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"price": "not-a-number"}`))
	}))
	defer srv.Close()

	b := pricefeed.NewBinance(srv.URL, "ws://unused", []string{"BTC"})
	_, err := b.CurrentPrice(context.Background(), "BTC")
	assert.Error(t, err)
}

func TestBinance_PriceAt_ReadsKlineOpen(t *testing.T) {
	at := time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "1m", r.URL.Query().Get("interval"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		// [openTime, open, high, low, close, volume, ...]
		w.Write([]byte(`[[1767106800000, "50000.10", "50100", "49990", "50050", "12.3"]]`))
	}))
	defer srv.Close()

	b := pricefeed.NewBinance(srv.URL, "ws://unused", []string{"BTC"})
	price, err := b.PriceAt(context.Background(), "BTC", at)
	require.NoError(t, err)
	assert.InDelta(t, 50000.10, price, 1e-6)
}

func TestBinance_PriceAt_NoKline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	b := pricefeed.NewBinance(srv.URL, "ws://unused", []string{"BTC"})
	_, err := b.PriceAt(context.Background(), "BTC", time.Now())
	assert.Error(t, err)
}

func TestCoinbase_CurrentPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/prices/BTC-USD/spot", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"amount": "50110.22", "currency": "USD"}}`))
	}))
	defer srv.Close()

	c := pricefeed.NewCoinbase(srv.URL)
	price, err := c.CurrentPrice(context.Background(), "BTC")
	require.NoError(t, err)
	assert.InDelta(t, 50110.22, price, 1e-6)
}

func TestCoinbase_CurrentPrice_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := pricefeed.NewCoinbase(srv.URL)
	_, err := c.CurrentPrice(context.Background(), "BTC")
	assert.Error(t, err)
}
