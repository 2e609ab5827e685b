package domain

import "time"

// PriceSample is one reference-price observation.
type PriceSample struct {
	Value float64
	At    time.Time
}

const (
	// momentumLookback: cuántos ticks hacia atrás se mide el delta de momentum.
	momentumLookback = 8
	// minSamples: below this count every check answers permissively —
	// the gates only activate once enough data exists.
	minSamples = 10
)

// PriceHistory keeps a bounded FIFO buffer of recent reference prices per
// instrument. Owned exclusively by the engine; nothing else mutates it.
type PriceHistory struct {
	capacity int
	samples  map[string][]PriceSample
}

// NewPriceHistory creates a tracker holding up to capacity samples per
// instrument (capacity <= 0 falls back to 30).
func NewPriceHistory(capacity int) *PriceHistory {
	if capacity <= 0 {
		capacity = 30
	}
	return &PriceHistory{
		capacity: capacity,
		samples:  make(map[string][]PriceSample),
	}
}

// Record appends a sample, evicting the oldest beyond capacity.
func (h *PriceHistory) Record(instrument string, price float64, at time.Time) {
	if price <= 0 {
		return
	}
	buf := append(h.samples[instrument], PriceSample{Value: price, At: at})
	if len(buf) > h.capacity {
		buf = buf[len(buf)-h.capacity:]
	}
	h.samples[instrument] = buf
}

// Len devuelve cuántas muestras hay para el instrumento.
func (h *PriceHistory) Len(instrument string) int {
	return len(h.samples[instrument])
}

// Latest returns the most recent sample, ok=false if none exists.
func (h *PriceHistory) Latest(instrument string) (PriceSample, bool) {
	buf := h.samples[instrument]
	if len(buf) == 0 {
		return PriceSample{}, false
	}
	return buf[len(buf)-1], true
}

// Average devuelve la media de todo el buffer (ventana larga).
func (h *PriceHistory) Average(instrument string) float64 {
	buf := h.samples[instrument]
	if len(buf) == 0 {
		return 0
	}
	var sum float64
	for _, s := range buf {
		sum += s.Value
	}
	return sum / float64(len(buf))
}

// Range returns high - low across the buffer. Used to widen the dynamic
// safety buffer in volatile conditions.
func (h *PriceHistory) Range(instrument string) float64 {
	buf := h.samples[instrument]
	if len(buf) == 0 {
		return 0
	}
	lo, hi := buf[0].Value, buf[0].Value
	for _, s := range buf[1:] {
		if s.Value < lo {
			lo = s.Value
		}
		if s.Value > hi {
			hi = s.Value
		}
	}
	return hi - lo
}

// Overextended is true when the current price has stretched more than
// thresholdPct away from the long-window average — a sharp, possibly
// reversing spike. Permissive with insufficient history.
func (h *PriceHistory) Overextended(instrument string, price, thresholdPct float64) bool {
	if len(h.samples[instrument]) < minSamples || thresholdPct <= 0 {
		return false
	}
	avg := h.Average(instrument)
	if avg <= 0 {
		return false
	}
	dev := price - avg
	if dev < 0 {
		dev = -dev
	}
	return dev/avg > thresholdPct
}

// MomentumDangerous is true when price moved more than threshold against the
// proposed direction over the last momentumLookback ticks — e.g. proposing
// "up" while price is falling fast. Permissive with insufficient history.
func (h *PriceHistory) MomentumDangerous(instrument string, proposed Direction, threshold float64) bool {
	buf := h.samples[instrument]
	if len(buf) < minSamples || len(buf) <= momentumLookback || threshold <= 0 {
		return false
	}
	latest := buf[len(buf)-1].Value
	earlier := buf[len(buf)-1-momentumLookback].Value
	delta := latest - earlier

	if proposed == DirectionUp {
		return delta < -threshold
	}
	return delta > threshold
}

// Purge drops buffers for instruments not in the keep set.
func (h *PriceHistory) Purge(keep map[string]bool) {
	for instrument := range h.samples {
		if !keep[instrument] {
			delete(h.samples, instrument)
		}
	}
}
