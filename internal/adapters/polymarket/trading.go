package polymarket

// trading.go — ejecución real de órdenes vía CLOB API.
//
// Implementa ports.OrderExecutor con auth L2: cada request autenticado lleva
// una firma HMAC-SHA256 sobre timestamp+method+path+body, usando credenciales
// API pre-provisionadas (key/secret/passphrase del entorno). Las firmas se
// regeneran en cada intento para que el timestamp no caduque entre retries.

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/scalpbot/internal/domain"
	"github.com/alejandrodnm/scalpbot/internal/ports"
)

// Credentials son las credenciales L2 del CLOB. Solo llegan del entorno.
type Credentials struct {
	APIKey     string
	Secret     string
	Passphrase string
}

// TradingClient implements ports.OrderExecutor.
type TradingClient struct {
	*Client
	creds Credentials
}

// NewTradingClient valida las credenciales y devuelve el executor. Este es
// el único constructor del sistema cuyo fallo es fatal en el arranque.
func NewTradingClient(client *Client, creds Credentials) (*TradingClient, error) {
	if creds.APIKey == "" || creds.Secret == "" || creds.Passphrase == "" {
		return nil, fmt.Errorf("polymarket.NewTradingClient: missing API credentials")
	}
	if _, err := base64.URLEncoding.DecodeString(creds.Secret); err != nil {
		return nil, fmt.Errorf("polymarket.NewTradingClient: secret is not base64: %w", err)
	}
	return &TradingClient{Client: client, creds: creds}, nil
}

// SubmitOrder envía una orden firmada al CLOB.
func (tc *TradingClient) SubmitOrder(ctx context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error) {
	orderType := "GTC"
	if req.Kind == domain.OrderKindFAK {
		orderType = "FAK"
	}

	body := clobOrderRequest{
		Order: clobOrderBody{
			TokenID: req.TokenID,
			Price:   strconv.FormatFloat(req.Price, 'f', 3, 64),
			Size:    strconv.FormatFloat(req.Size, 'f', 2, 64),
			Side:    string(req.Side),
			NegRisk: req.NegRisk,
		},
		Owner:     tc.creds.APIKey,
		OrderType: orderType,
	}

	var resp clobOrderResponse
	if err := tc.doL2(ctx, http.MethodPost, "/order", body, &resp); err != nil {
		return domain.PlacedOrder{}, fmt.Errorf("polymarket.SubmitOrder: %w", err)
	}

	if !resp.Success || resp.ErrorMsg != "" {
		if isBalanceError(resp.ErrorMsg) {
			return domain.PlacedOrder{}, &ports.InsufficientBalanceError{Msg: resp.ErrorMsg}
		}
		return domain.PlacedOrder{}, fmt.Errorf("polymarket.SubmitOrder: clob error: %s", resp.ErrorMsg)
	}

	return domain.PlacedOrder{
		CLOBOrderID: resp.OrderID,
		Status:      resp.Status,
		MatchedSize: parseShares(resp.MakingAmount),
	}, nil
}

// CancelOrder cancels a single order by its CLOB order ID.
func (tc *TradingClient) CancelOrder(ctx context.Context, clobOrderID string) error {
	path := "/order/" + clobOrderID
	if err := tc.doL2(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("polymarket.CancelOrder %s: %w", clobOrderID, err)
	}
	return nil
}

// OrderStatus returns matched vs requested size for an in-flight order.
func (tc *TradingClient) OrderStatus(ctx context.Context, clobOrderID string) (domain.OrderStatusReport, error) {
	var resp clobOrderStatus
	path := "/data/order/" + clobOrderID
	if err := tc.doL2(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return domain.OrderStatusReport{}, fmt.Errorf("polymarket.OrderStatus %s: %w", clobOrderID, err)
	}

	return domain.OrderStatusReport{
		MatchedSize:   parseShares(resp.SizeMatched),
		RequestedSize: parseShares(resp.OriginalSize),
	}, nil
}

// TokenBalance devuelve el balance settled del outcome token en shares.
func (tc *TradingClient) TokenBalance(ctx context.Context, tokenID string) (float64, error) {
	var resp clobBalanceResponse
	path := "/balance-allowance?asset_type=CONDITIONAL&token_id=" + tokenID
	if err := tc.doL2(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return 0, fmt.Errorf("polymarket.TokenBalance: %w", err)
	}
	return parseShares(resp.Balance), nil
}

// SyncAuthorization refresca la autorización de venta del token tras un
// crédito fresco. El CLOB cachea balances server-side; este endpoint fuerza
// el refresh.
func (tc *TradingClient) SyncAuthorization(ctx context.Context, tokenID string) error {
	path := "/balance-allowance/update?asset_type=CONDITIONAL&token_id=" + tokenID
	if err := tc.doL2(ctx, http.MethodGet, path, nil, nil); err != nil {
		return fmt.Errorf("polymarket.SyncAuthorization: %w", err)
	}
	return nil
}

// l2Headers devuelve los headers autenticados para un request L2.
func (tc *TradingClient) l2Headers(method, path, body string) (map[string]string, error) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	msg := ts + strings.ToUpper(method) + path + body

	secretBytes, err := base64.URLEncoding.DecodeString(tc.creds.Secret)
	if err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}

	mac := hmac.New(sha256.New, secretBytes)
	mac.Write([]byte(msg))
	sig := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	return map[string]string{
		"POLY_SIGNATURE":  sig,
		"POLY_TIMESTAMP":  ts,
		"POLY_API_KEY":    tc.creds.APIKey,
		"POLY_PASSPHRASE": tc.creds.Passphrase,
	}, nil
}

// doL2 ejecuta un request autenticado con rate limiting y retries.
// Los headers HMAC se regeneran en cada intento.
func (tc *TradingClient) doL2(ctx context.Context, method, path string, reqBody, out any) error {
	var bodyStr string
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		bodyStr = string(b)
	}

	fullURL := tc.clobBase + path

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := tc.clobLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		headers, err := tc.l2Headers(method, path, bodyStr)
		if err != nil {
			return err
		}

		var bodyReader io.Reader
		if bodyStr != "" {
			bodyReader = strings.NewReader(bodyStr)
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return fmt.Errorf("new request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := tc.http.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			tc.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("status %d after %d retries", resp.StatusCode, maxRetries)
			}
			tc.sleep(ctx, attempt)
			continue
		}

		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("read response: %w", readErr)
		}

		if resp.StatusCode != http.StatusOK {
			// Los rechazos 4xx no se reintentan; el body lleva el motivo.
			msg := string(respBody)
			if isBalanceError(msg) {
				return &ports.InsufficientBalanceError{Msg: strings.TrimSpace(msg)}
			}
			return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unreachable")
}

// isBalanceError detecta los rechazos por balance/allowance del CLOB.
func isBalanceError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "not enough balance") ||
		strings.Contains(lower, "insufficient balance") ||
		strings.Contains(lower, "allowance")
}

// parseShares convierte un string decimal de la API a float64 shares.
func parseShares(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
