package domain

import "time"

// Cooldown pauses new entries after a venue-reported bad state (typically
// insufficient balance) instead of hammering it every cycle.
type Cooldown struct {
	Duration time.Duration
	Until    time.Time
	Reason   string
	Trips    int
}

// Trip starts (or restarts) the cooldown window.
func (c *Cooldown) Trip(reason string, now time.Time) {
	c.Until = now.Add(c.Duration)
	c.Reason = reason
	c.Trips++
}

// Active devuelve true mientras la ventana de cooldown siga abierta.
func (c *Cooldown) Active(now time.Time) bool {
	return now.Before(c.Until)
}

// Remaining returns how long until entries are allowed again.
func (c *Cooldown) Remaining(now time.Time) time.Duration {
	if !c.Active(now) {
		return 0
	}
	return c.Until.Sub(now)
}
