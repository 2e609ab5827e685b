package domain

import "time"

// Direction is the side of a binary up/down market.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// Opposite devuelve la dirección contraria.
func (d Direction) Opposite() Direction {
	if d == DirectionUp {
		return DirectionDown
	}
	return DirectionUp
}

// Market representa una ventana de trading binaria up/down (ej: "btc-up-or-down-5m").
type Market struct {
	Slug        string
	ConditionID string
	Instrument  string // reference symbol: "BTC", "ETH", ...
	Question    string
	UpTokenID   string
	DownTokenID string
	OpenedAt    time.Time // window open — the price-to-beat is sampled here
	ExpiresAt   time.Time
	Active      bool
	Closed      bool
}

// TokenID devuelve el token id del lado pedido.
func (m Market) TokenID(d Direction) string {
	if d == DirectionUp {
		return m.UpTokenID
	}
	return m.DownTokenID
}

// DirectionOf returns the direction a token id belongs to, or "" if it is
// not one of the market's two outcome tokens.
func (m Market) DirectionOf(tokenID string) Direction {
	switch tokenID {
	case m.UpTokenID:
		return DirectionUp
	case m.DownTokenID:
		return DirectionDown
	}
	return ""
}

// SecondsToExpiry returns the seconds until the market settles.
// Negative once the window has expired.
func (m Market) SecondsToExpiry(now time.Time) float64 {
	return m.ExpiresAt.Sub(now).Seconds()
}

// Tradable devuelve true si el mercado sigue aceptando órdenes.
func (m Market) Tradable(now time.Time) bool {
	return m.Active && !m.Closed && now.Before(m.ExpiresAt)
}
