package polymarket

// markets.go — descubrimiento de ventanas up/down vía Gamma.
//
// Las ventanas de 5 minutos rotan constantemente, así que cada ciclo
// re-pregunta a Gamma por los mercados activos ordenados por expiración y
// filtra localmente por el patrón de slug. Un registro malformado se
// descarta con log, nunca aborta el fetch completo.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/scalpbot/internal/domain"
)

const (
	gammaMarketsPath = "/markets"
	gammaPageSize    = 100
	gammaMaxPages    = 5

	// defaultWindowLength reconstruye OpenedAt cuando Gamma no trae startDate.
	defaultWindowLength = 5 * time.Minute
)

// FetchActiveMarkets devuelve las ventanas up/down actualmente operables,
// ordenadas por expiración ascendente (Gamma order=endDate).
func (c *Client) FetchActiveMarkets(ctx context.Context) ([]domain.Market, error) {
	now := time.Now().UTC()
	var markets []domain.Market
	discarded := 0

	for page := 0; page < gammaMaxPages; page++ {
		url := fmt.Sprintf("%s%s?active=true&closed=false&order=endDate&ascending=true&limit=%d&offset=%d",
			c.gammaBase, gammaMarketsPath, gammaPageSize, page*gammaPageSize)

		var resp gammaMarketsResponse
		if err := c.get(ctx, c.gammaLimiter, url, &resp); err != nil {
			return nil, fmt.Errorf("polymarket.FetchActiveMarkets: page %d: %w", page, err)
		}

		for _, gm := range resp {
			m, err := mapGammaMarket(gm)
			if err != nil {
				// Los mercados que no son ventanas up/down caen aquí también;
				// solo son ruido del catálogo, no un error.
				discarded++
				continue
			}
			if m.OpenedAt.IsZero() {
				m.OpenedAt = m.ExpiresAt.Add(-defaultWindowLength)
			}
			if !m.Tradable(now) {
				continue
			}
			markets = append(markets, m)
		}

		if len(resp) < gammaPageSize {
			break
		}
	}

	slog.Debug("polymarket: active windows fetched",
		"markets", len(markets),
		"discarded", discarded,
	)
	return markets, nil
}
