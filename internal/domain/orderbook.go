package domain

import "strconv"

// OrderBook representa el libro de órdenes de un outcome token.
// Cada ciclo recibe un snapshot completo — nunca se mergea incrementalmente.
type OrderBook struct {
	TokenID string
	Bids    []BookEntry // ordenados mayor a menor precio
	Asks    []BookEntry // ordenados menor a mayor precio
}

// BookEntry es un nivel de precio en el orderbook.
type BookEntry struct {
	Price float64
	Size  float64
}

// BestBid devuelve el mejor precio de compra (mayor bid).
// Devuelve 0 si el book está vacío.
func (ob OrderBook) BestBid() float64 {
	if len(ob.Bids) == 0 {
		return 0
	}
	return ob.Bids[0].Price
}

// BestBidSize returns the size resting at the best bid.
func (ob OrderBook) BestBidSize() float64 {
	if len(ob.Bids) == 0 {
		return 0
	}
	return ob.Bids[0].Size
}

// BestAsk devuelve el mejor precio de venta (menor ask).
// Devuelve 0 si el book está vacío.
func (ob OrderBook) BestAsk() float64 {
	if len(ob.Asks) == 0 {
		return 0
	}
	return ob.Asks[0].Price
}

// BestAskSize returns the size resting at the best ask.
func (ob OrderBook) BestAskSize() float64 {
	if len(ob.Asks) == 0 {
		return 0
	}
	return ob.Asks[0].Size
}

// BestAskNotional returns price × size of the top-of-book ask in USDC.
// A very large notional parked at the ask is usually someone baiting
// late buyers, so the risk gates treat it as a veto signal.
func (ob OrderBook) BestAskNotional() float64 {
	if len(ob.Asks) == 0 {
		return 0
	}
	return ob.Asks[0].Price * ob.Asks[0].Size
}

// Spread devuelve el spread del book (ask - bid), 0 si algún lado está vacío.
func (ob OrderBook) Spread() float64 {
	bid := ob.BestBid()
	ask := ob.BestAsk()
	if bid == 0 || ask == 0 {
		return 0
	}
	return ask - bid
}

// Midpoint devuelve el punto medio entre best bid y best ask.
func (ob OrderBook) Midpoint() float64 {
	bid := ob.BestBid()
	ask := ob.BestAsk()
	if bid == 0 || ask == 0 {
		return 0
	}
	return (bid + ask) / 2
}

// ParsePrice convierte un string de precio a float64.
// Usado en el mapping de la API.
func ParsePrice(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
