package domain

// risk.go — pure entry risk gates.
//
// Every check here is side-effect-free so each can be unit-tested alone.
// The engine composes them through EntryPermitted; the reasons feed the
// skip counters in the placement pipeline.

// GateConfig holds the per-instrument risk thresholds.
type GateConfig struct {
	// BaseGap is the base safety margin between reference price and the
	// price-to-beat, in instrument price units.
	BaseGap float64 `yaml:"base_gap"`
	// GapFloor is an absolute-dollar floor under the scaled gap. Low-priced
	// instruments need it to avoid false precision near zero.
	GapFloor float64 `yaml:"gap_floor"`
	// OverextensionPct vetoes entries when price stretched this fraction
	// away from the long-window average.
	OverextensionPct float64 `yaml:"overextension_pct"`
	// MomentumThreshold vetoes entries when price moved this much against
	// the proposed direction over the momentum lookback.
	MomentumThreshold float64 `yaml:"momentum_threshold"`
	// MaxAskNotional vetoes entries when the best ask carries more USDC
	// than this — big size at the top of book suggests a trap.
	MaxAskNotional float64 `yaml:"max_ask_notional"`
	// DivergencePct suppresses all entries for the instrument while the two
	// reference sources disagree by more than this fraction.
	DivergencePct float64 `yaml:"divergence_pct"`
}

// DynamicBuffer es el gap de seguridad adaptativo: base por instrumento más
// el 60% del rango high-low reciente. Se ensancha solo en condiciones volátiles.
func DynamicBuffer(baseGap, recentRange float64) float64 {
	return baseGap + 0.6*recentRange
}

// RequiredGap is a monotone step function: the safety margin between the
// reference price and the price-to-beat shrinks as expiry approaches, never
// below the instrument's absolute floor.
func RequiredGap(secondsToExpiry, buffer, floor float64) float64 {
	var gap float64
	switch {
	case secondsToExpiry > 240:
		gap = 2.0 * buffer
	case secondsToExpiry > 120:
		gap = 1.5 * buffer
	case secondsToExpiry > 60:
		gap = 1.0 * buffer
	case secondsToExpiry > 30:
		gap = 0.75 * buffer
	default:
		gap = 0.5 * buffer
	}
	if gap < floor {
		gap = floor
	}
	return gap
}

// GapSatisfied checks that the reference price beats the target by at least
// the required gap in the proposed direction.
func GapSatisfied(proposed Direction, current, priceToBeat, requiredGap float64) bool {
	if current <= 0 || priceToBeat <= 0 {
		return false
	}
	if proposed == DirectionUp {
		return current-priceToBeat >= requiredGap
	}
	return priceToBeat-current >= requiredGap
}

// DepthSuspicious vetoes when the top-of-book ask notional exceeds the
// per-instrument ceiling.
func DepthSuspicious(book OrderBook, maxAskNotional float64) bool {
	if maxAskNotional <= 0 {
		return false
	}
	return book.BestAskNotional() > maxAskNotional
}

// Diverged is the cross-source sanity check: true while two independent
// reference prices disagree beyond thresholdPct of the primary. A missing
// secondary (<= 0) is treated as agreement — the veto only acts on real
// disagreement, not on data gaps.
func Diverged(primary, secondary, thresholdPct float64) bool {
	if primary <= 0 || secondary <= 0 || thresholdPct <= 0 {
		return false
	}
	dev := primary - secondary
	if dev < 0 {
		dev = -dev
	}
	return dev/primary > thresholdPct
}

// VetoReason identifies which gate rejected an entry.
type VetoReason string

const (
	VetoNone         VetoReason = ""
	VetoGap          VetoReason = "gap"
	VetoOverextended VetoReason = "overextended"
	VetoMomentum     VetoReason = "momentum"
	VetoDepth        VetoReason = "ask_depth"
	VetoDivergence   VetoReason = "divergence"
)

// EntryCheck bundles the inputs of one gate evaluation.
type EntryCheck struct {
	Proposed        Direction
	Current         float64 // primary reference price
	Secondary       float64 // secondary reference price, 0 if unavailable
	PriceToBeat     float64
	SecondsToExpiry float64
	Book            OrderBook
	Cfg             GateConfig
}

// EntryPermitted is the conjunction of all gates. History-based checks are
// answered by the tracker and passed in so this stays pure.
func EntryPermitted(c EntryCheck, history *PriceHistory, instrument string) (bool, VetoReason) {
	if Diverged(c.Current, c.Secondary, c.Cfg.DivergencePct) {
		return false, VetoDivergence
	}

	buffer := DynamicBuffer(c.Cfg.BaseGap, history.Range(instrument))
	gap := RequiredGap(c.SecondsToExpiry, buffer, c.Cfg.GapFloor)
	if !GapSatisfied(c.Proposed, c.Current, c.PriceToBeat, gap) {
		return false, VetoGap
	}

	if history.Overextended(instrument, c.Current, c.Cfg.OverextensionPct) {
		return false, VetoOverextended
	}
	if history.MomentumDangerous(instrument, c.Proposed, c.Cfg.MomentumThreshold) {
		return false, VetoMomentum
	}
	if DepthSuspicious(c.Book, c.Cfg.MaxAskNotional) {
		return false, VetoDepth
	}
	return true, VetoNone
}
