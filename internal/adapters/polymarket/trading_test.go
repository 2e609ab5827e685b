package polymarket_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alejandrodnm/scalpbot/internal/adapters/polymarket"
	"github.com/alejandrodnm/scalpbot/internal/domain"
	"github.com/alejandrodnm/scalpbot/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCreds() polymarket.Credentials {
	return polymarket.Credentials{
		APIKey:     "test-key",
		Secret:     base64.URLEncoding.EncodeToString([]byte("test-secret")),
		Passphrase: "test-pass",
	}
}

func newTradingClient(t *testing.T, srv *httptest.Server) *polymarket.TradingClient {
	t.Helper()
	tc, err := polymarket.NewTradingClient(newTestClient(srv, nil), testCreds())
	require.NoError(t, err)
	return tc
}

func TestNewTradingClient_RejectsMissingCreds(t *testing.T) {
	_, err := polymarket.NewTradingClient(polymarket.NewClient("", ""), polymarket.Credentials{})
	assert.Error(t, err)
}

func TestNewTradingClient_RejectsBadSecret(t *testing.T) {
	creds := testCreds()
	creds.Secret = "not base64!!"
	_, err := polymarket.NewTradingClient(polymarket.NewClient("", ""), creds)
	assert.Error(t, err)
}

func TestSubmitOrder_SignsAndParses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/order", r.URL.Path)

		// Headers L2 presentes en cada request autenticado
		assert.Equal(t, "test-key", r.Header.Get("POLY_API_KEY"))
		assert.Equal(t, "test-pass", r.Header.Get("POLY_PASSPHRASE"))
		assert.NotEmpty(t, r.Header.Get("POLY_SIGNATURE"))
		assert.NotEmpty(t, r.Header.Get("POLY_TIMESTAMP"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "GTC", body["orderType"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "orderID": "0xabc", "status": "live", "makingAmount": "0"}`))
	}))
	defer srv.Close()

	tc := newTradingClient(t, srv)
	placed, err := tc.SubmitOrder(context.Background(), domain.PlaceOrderRequest{
		TokenID: "tok-up",
		Price:   0.98,
		Size:    100,
		Side:    domain.SideBuy,
		Kind:    domain.OrderKindGTC,
	})

	require.NoError(t, err)
	assert.Equal(t, "0xabc", placed.CLOBOrderID)
	assert.Equal(t, "live", placed.Status)
}

func TestSubmitOrder_InsufficientBalanceIsTyped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": false, "errorMsg": "not enough balance / allowance"}`))
	}))
	defer srv.Close()

	tc := newTradingClient(t, srv)
	_, err := tc.SubmitOrder(context.Background(), domain.PlaceOrderRequest{
		TokenID: "tok-up", Price: 0.98, Size: 100, Side: domain.SideBuy, Kind: domain.OrderKindGTC,
	})

	require.Error(t, err)
	var balErr *ports.InsufficientBalanceError
	assert.True(t, errors.As(err, &balErr))
}

func TestSubmitOrder_FAKOrderType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "FAK", body["orderType"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "orderID": "0xdef", "status": "matched"}`))
	}))
	defer srv.Close()

	tc := newTradingClient(t, srv)
	_, err := tc.SubmitOrder(context.Background(), domain.PlaceOrderRequest{
		TokenID: "tok-up", Price: 0.97, Size: 50, Side: domain.SideSell, Kind: domain.OrderKindFAK,
	})
	require.NoError(t, err)
}

func TestOrderStatus_ParsesSizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/data/order/0xabc", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "0xabc", "original_size": "100", "size_matched": "40", "status": "live"}`))
	}))
	defer srv.Close()

	tc := newTradingClient(t, srv)
	report, err := tc.OrderStatus(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.InDelta(t, 40.0, report.MatchedSize, 1e-9)
	assert.InDelta(t, 100.0, report.RequestedSize, 1e-9)
}

func TestTokenBalance_ParsesShares(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "CONDITIONAL", r.URL.Query().Get("asset_type"))
		assert.Equal(t, "tok-up", r.URL.Query().Get("token_id"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"balance": "13.51"}`))
	}))
	defer srv.Close()

	tc := newTradingClient(t, srv)
	bal, err := tc.TokenBalance(context.Background(), "tok-up")
	require.NoError(t, err)
	assert.InDelta(t, 13.51, bal, 1e-9)
}

func TestCancelOrder_UsesDelete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/order/0xabc", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tc := newTradingClient(t, srv)
	assert.NoError(t, tc.CancelOrder(context.Background(), "0xabc"))
}
