package domain_test

import (
	"testing"
	"time"

	"github.com/alejandrodnm/scalpbot/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestRequiredGap_MonotoneSteps(t *testing.T) {
	buffer := 40.0
	floor := 10.0

	g300 := domain.RequiredGap(300, buffer, floor)
	g180 := domain.RequiredGap(180, buffer, floor)
	g90 := domain.RequiredGap(90, buffer, floor)
	g40 := domain.RequiredGap(40, buffer, floor)
	g10 := domain.RequiredGap(10, buffer, floor)

	assert.InDelta(t, 80.0, g300, 1e-9)
	assert.InDelta(t, 60.0, g180, 1e-9)
	assert.InDelta(t, 40.0, g90, 1e-9)
	assert.InDelta(t, 30.0, g40, 1e-9)
	assert.InDelta(t, 20.0, g10, 1e-9)

	// Nunca crece al acercarse la expiración
	assert.GreaterOrEqual(t, g300, g180)
	assert.GreaterOrEqual(t, g180, g90)
	assert.GreaterOrEqual(t, g90, g40)
	assert.GreaterOrEqual(t, g40, g10)
}

func TestRequiredGap_FloorApplies(t *testing.T) {
	// 0.5 × 2.5 = 1.25 < floor 1.5
	gap := domain.RequiredGap(10, 2.5, 1.5)
	assert.InDelta(t, 1.5, gap, 1e-9)
}

func TestDynamicBuffer_WidensWithRange(t *testing.T) {
	calm := domain.DynamicBuffer(40, 0)
	volatile := domain.DynamicBuffer(40, 100)

	assert.InDelta(t, 40.0, calm, 1e-9)
	assert.InDelta(t, 100.0, volatile, 1e-9)
}

func TestGapSatisfied_Directional(t *testing.T) {
	// UP: current debe superar priceToBeat por el gap
	assert.True(t, domain.GapSatisfied(domain.DirectionUp, 50100, 50000, 80))
	assert.False(t, domain.GapSatisfied(domain.DirectionUp, 50050, 50000, 80))

	// DOWN: al revés
	assert.True(t, domain.GapSatisfied(domain.DirectionDown, 49900, 50000, 80))
	assert.False(t, domain.GapSatisfied(domain.DirectionDown, 49950, 50000, 80))

	// Sin precios no hay entrada
	assert.False(t, domain.GapSatisfied(domain.DirectionUp, 0, 50000, 80))
	assert.False(t, domain.GapSatisfied(domain.DirectionUp, 50100, 0, 80))
}

func TestDiverged(t *testing.T) {
	// 0.2% de desviación con umbral 0.12% → diverge
	assert.True(t, domain.Diverged(50000, 50100, 0.0012))
	// misma desviación con umbral 0.5% → no
	assert.False(t, domain.Diverged(50000, 50100, 0.005))
	// Secundaria ausente = acuerdo
	assert.False(t, domain.Diverged(50000, 0, 0.0012))
	assert.False(t, domain.Diverged(0, 50100, 0.0012))
}

func TestDepthSuspicious(t *testing.T) {
	book := domain.OrderBook{
		Asks: []domain.BookEntry{{Price: 0.98, Size: 10000}},
	}
	assert.True(t, domain.DepthSuspicious(book, 5000))
	assert.False(t, domain.DepthSuspicious(book, 50000))
	// Sin límite configurado nunca veta
	assert.False(t, domain.DepthSuspicious(book, 0))
}

func TestEntryPermitted_DivergenceChecksFirst(t *testing.T) {
	history := domain.NewPriceHistory(30)

	check := domain.EntryCheck{
		Proposed:        domain.DirectionUp,
		Current:         50000,
		Secondary:       50200, // 0.4% de desviación
		PriceToBeat:     40000, // el gap pasaría de sobra
		SecondsToExpiry: 200,
		Cfg: domain.GateConfig{
			BaseGap:       40,
			GapFloor:      25,
			DivergencePct: 0.0012,
		},
	}

	ok, veto := domain.EntryPermitted(check, history, "BTC")
	assert.False(t, ok)
	assert.Equal(t, domain.VetoDivergence, veto)
}

func TestEntryPermitted_GapVeto(t *testing.T) {
	history := domain.NewPriceHistory(30)

	check := domain.EntryCheck{
		Proposed:        domain.DirectionUp,
		Current:         50010,
		PriceToBeat:     50000,
		SecondsToExpiry: 200,
		Cfg:             domain.GateConfig{BaseGap: 40, GapFloor: 25},
	}

	ok, veto := domain.EntryPermitted(check, history, "BTC")
	assert.False(t, ok)
	assert.Equal(t, domain.VetoGap, veto)
}

func TestEntryPermitted_AllClear(t *testing.T) {
	history := domain.NewPriceHistory(30)

	check := domain.EntryCheck{
		Proposed:        domain.DirectionUp,
		Current:         50200,
		Secondary:       50210,
		PriceToBeat:     50000,
		SecondsToExpiry: 200,
		Book: domain.OrderBook{
			Asks: []domain.BookEntry{{Price: 0.98, Size: 100}},
		},
		Cfg: domain.GateConfig{
			BaseGap:           40,
			GapFloor:          25,
			OverextensionPct:  0.003,
			MomentumThreshold: 0.002,
			MaxAskNotional:    5000,
			DivergencePct:     0.0012,
		},
	}

	ok, veto := domain.EntryPermitted(check, history, "BTC")
	assert.True(t, ok)
	assert.Equal(t, domain.VetoNone, veto)
}

func TestEntryPermitted_MomentumVeto(t *testing.T) {
	history := domain.NewPriceHistory(30)
	now := time.Now().UTC()
	// 12 muestras cayendo fuerte: proponer UP debe vetarse
	for i := 0; i < 12; i++ {
		history.Record("BTC", 51000-float64(i)*200, now.Add(time.Duration(i)*time.Second))
	}

	check := domain.EntryCheck{
		Proposed:        domain.DirectionUp,
		Current:         48800,
		PriceToBeat:     40000, // el gap pasa
		SecondsToExpiry: 200,
		Cfg: domain.GateConfig{
			BaseGap:           10,
			GapFloor:          5,
			MomentumThreshold: 100,
		},
	}

	ok, veto := domain.EntryPermitted(check, history, "BTC")
	assert.False(t, ok)
	assert.Equal(t, domain.VetoMomentum, veto)
}
