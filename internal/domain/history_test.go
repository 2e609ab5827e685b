package domain_test

import (
	"testing"
	"time"

	"github.com/alejandrodnm/scalpbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordN(h *domain.PriceHistory, instrument string, prices []float64) {
	now := time.Now().UTC()
	for i, p := range prices {
		h.Record(instrument, p, now.Add(time.Duration(i)*time.Second))
	}
}

func TestPriceHistory_BoundedFIFO(t *testing.T) {
	h := domain.NewPriceHistory(5)
	recordN(h, "BTC", []float64{1, 2, 3, 4, 5, 6, 7})

	assert.Equal(t, 5, h.Len("BTC"))
	latest, ok := h.Latest("BTC")
	require.True(t, ok)
	assert.InDelta(t, 7.0, latest.Value, 1e-9)
	// Los más antiguos se desalojaron: media de 3..7
	assert.InDelta(t, 5.0, h.Average("BTC"), 1e-9)
}

func TestPriceHistory_IgnoresNonPositive(t *testing.T) {
	h := domain.NewPriceHistory(5)
	h.Record("BTC", 0, time.Now())
	h.Record("BTC", -1, time.Now())
	assert.Equal(t, 0, h.Len("BTC"))
}

func TestPriceHistory_PermissiveBelowMinSamples(t *testing.T) {
	h := domain.NewPriceHistory(30)
	// Solo 5 muestras — por debajo del mínimo, todo responde permisivo
	recordN(h, "BTC", []float64{50000, 48000, 52000, 47000, 53000})

	assert.False(t, h.Overextended("BTC", 60000, 0.003))
	assert.False(t, h.MomentumDangerous("BTC", domain.DirectionUp, 0.001))
}

func TestPriceHistory_Overextended(t *testing.T) {
	h := domain.NewPriceHistory(30)
	prices := make([]float64, 12)
	for i := range prices {
		prices[i] = 50000
	}
	recordN(h, "BTC", prices)

	// 1% por encima de la media con umbral 0.3% → veta
	assert.True(t, h.Overextended("BTC", 50500, 0.003))
	// Dentro del umbral → no
	assert.False(t, h.Overextended("BTC", 50100, 0.003))
}

func TestPriceHistory_MomentumDirectional(t *testing.T) {
	h := domain.NewPriceHistory(30)
	// 12 muestras subiendo 100 por tick
	prices := make([]float64, 12)
	for i := range prices {
		prices[i] = 50000 + float64(i)*100
	}
	recordN(h, "BTC", prices)

	// Subiendo fuerte: UP es seguro, DOWN es peligroso
	assert.False(t, h.MomentumDangerous("BTC", domain.DirectionUp, 500))
	assert.True(t, h.MomentumDangerous("BTC", domain.DirectionDown, 500))
}

func TestPriceHistory_RangeAndPurge(t *testing.T) {
	h := domain.NewPriceHistory(30)
	recordN(h, "BTC", []float64{50000, 49000, 51000})
	recordN(h, "ETH", []float64{3000, 3100})

	assert.InDelta(t, 2000.0, h.Range("BTC"), 1e-9)

	h.Purge(map[string]bool{"ETH": true})
	assert.Equal(t, 0, h.Len("BTC"))
	assert.Equal(t, 2, h.Len("ETH"))
}
