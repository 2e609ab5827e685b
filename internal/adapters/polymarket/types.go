package polymarket

import "encoding/json"

// DTOs raw de la API de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// --- Gamma API ---

// gammaMarketsResponse es la respuesta de GET /markets de Gamma.
type gammaMarketsResponse []gammaMarket

// gammaMarket es un mercado up/down crudo de Gamma. Los token ids y outcomes
// llegan como strings JSON anidados ("[\"...\",\"...\"]").
type gammaMarket struct {
	ConditionID  string      `json:"conditionId"`
	Question     string      `json:"question"`
	Slug         string      `json:"slug"`
	StartDateISO string      `json:"startDate"`
	EndDateISO   string      `json:"endDateIso"`
	ClobTokenIDs string      `json:"clobTokenIds"`
	Outcomes     string      `json:"outcomes"`
	Volume24h    json.Number `json:"volume24hr"`
	Active       bool        `json:"active"`
	Closed       bool        `json:"closed"`
}

// --- CLOB API ---

// orderBookRequest es un item del body del POST /books batch.
type orderBookRequest struct {
	TokenID string `json:"token_id"`
}

// orderBookResponse es la respuesta de un item en POST /books.
type orderBookResponse struct {
	AssetID string         `json:"asset_id"`
	Bids    []bookEntryRaw `json:"bids"`
	Asks    []bookEntryRaw `json:"asks"`
}

// bookEntryRaw es un nivel de precio raw de la API (strings para mayor precisión).
type bookEntryRaw struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// clobOrderRequest is the JSON body sent to POST /order.
type clobOrderRequest struct {
	Order     clobOrderBody `json:"order"`
	Owner     string        `json:"owner"`
	OrderType string        `json:"orderType"`
}

type clobOrderBody struct {
	TokenID string `json:"tokenId"`
	Price   string `json:"price"`
	Size    string `json:"size"`
	Side    string `json:"side"`
	NegRisk bool   `json:"negRisk"`
}

type clobOrderResponse struct {
	ErrorMsg     string `json:"errorMsg"`
	OrderID      string `json:"orderID"`
	TakingAmount string `json:"takingAmount"`
	MakingAmount string `json:"makingAmount"`
	Status       string `json:"status"`
	Success      bool   `json:"success"`
}

// clobOrderStatus es la respuesta de GET /data/order/{id}.
type clobOrderStatus struct {
	ID           string `json:"id"`
	AssetID      string `json:"asset_id"`
	OriginalSize string `json:"original_size"`
	SizeMatched  string `json:"size_matched"`
	Status       string `json:"status"`
}

type clobBalanceResponse struct {
	Balance string `json:"balance"`
}
