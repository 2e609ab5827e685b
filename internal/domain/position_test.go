package domain_test

import (
	"testing"
	"time"

	"github.com/alejandrodnm/scalpbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPosition_AddFill_WeightedAverage(t *testing.T) {
	now := time.Now().UTC()
	p := &domain.Position{TokenID: "tok", MarketSlug: "btc-up-or-down-x", Direction: domain.DirectionUp}

	p.AddFill(0.98, 50, now)
	p.AddFill(0.99, 100, now.Add(2*time.Second))

	// avg = (0.98*50 + 0.99*100) / 150
	assert.InDelta(t, 150.0, p.Size, 1e-9)
	assert.InDelta(t, (0.98*50+0.99*100)/150, p.AvgPrice, 1e-9)
	assert.InDelta(t, 0.98*50+0.99*100, p.CostBasis, 1e-9)
	// EntryTime es la del PRIMER fill
	assert.Equal(t, now, p.EntryTime)
}

func TestPosition_AddFill_IgnoresNonPositiveSize(t *testing.T) {
	p := &domain.Position{}
	p.AddFill(0.98, 0, time.Now())
	p.AddFill(0.98, -5, time.Now())
	assert.True(t, p.Closed())
}

func TestPosition_EvaluateExit_TakeProfitWinsOverTimeStop(t *testing.T) {
	now := time.Now().UTC()
	rules := domain.ExitRules{ProfitTarget: 0.10, StopLoss: 0.06, MaxHold: 90 * time.Second}

	p := &domain.Position{TokenID: "tok", Size: 50, AvgPrice: 0.80}
	p.EntryTime = now.Add(-5 * time.Minute) // time stop también aplicaría

	sig, fire := p.EvaluateExit(0.90, 100, rules, now)
	require.True(t, fire)
	assert.Equal(t, domain.ExitTakeProfit, sig.Reason)
	assert.InDelta(t, 0.10, sig.PnLPerUnit, 1e-9)
}

func TestPosition_EvaluateExit_StopLoss(t *testing.T) {
	now := time.Now().UTC()
	rules := domain.ExitRules{ProfitTarget: 0.01, StopLoss: 0.06, MaxHold: 90 * time.Second}

	p := &domain.Position{TokenID: "tok", Size: 50, AvgPrice: 0.98, EntryTime: now}

	sig, fire := p.EvaluateExit(0.90, 100, rules, now)
	require.True(t, fire)
	assert.Equal(t, domain.ExitStopLoss, sig.Reason)
}

func TestPosition_EvaluateExit_TimeStopLabelsPnLSign(t *testing.T) {
	now := time.Now().UTC()
	rules := domain.ExitRules{ProfitTarget: 0.05, StopLoss: 0.06, MaxHold: 90 * time.Second}

	winner := &domain.Position{TokenID: "a", Size: 50, AvgPrice: 0.97, EntryTime: now.Add(-2 * time.Minute)}
	sig, fire := winner.EvaluateExit(0.98, 100, rules, now)
	require.True(t, fire)
	assert.Equal(t, domain.ExitTimeProfit, sig.Reason)

	loser := &domain.Position{TokenID: "b", Size: 50, AvgPrice: 0.99, EntryTime: now.Add(-2 * time.Minute)}
	sig, fire = loser.EvaluateExit(0.98, 100, rules, now)
	require.True(t, fire)
	assert.Equal(t, domain.ExitTimeLoss, sig.Reason)
}

func TestPosition_EvaluateExit_ThinBidDefers(t *testing.T) {
	now := time.Now().UTC()
	rules := domain.ExitRules{ProfitTarget: 0.01, StopLoss: 0.06, MaxHold: 90 * time.Second}

	p := &domain.Position{TokenID: "tok", Size: 50, AvgPrice: 0.90, EntryTime: now}

	// Bid por encima del target pero con menos de MinTradableSize apoyado
	_, fire := p.EvaluateExit(0.95, 2, rules, now)
	assert.False(t, fire)
}

func TestPosition_EvaluateExit_NoSignalInsideThresholds(t *testing.T) {
	now := time.Now().UTC()
	rules := domain.ExitRules{ProfitTarget: 0.05, StopLoss: 0.06, MaxHold: time.Hour}

	p := &domain.Position{TokenID: "tok", Size: 50, AvgPrice: 0.98, EntryTime: now}

	_, fire := p.EvaluateExit(0.985, 100, rules, now)
	assert.False(t, fire)
}
