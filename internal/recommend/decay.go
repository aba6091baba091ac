package recommend

import (
	"math"
	"time"
)

// Decay returns the exponential time-decay factor for a signal daysAgo
// days old with the given half-life in days. The weight halves every
// halfLife days; non-positive ages return 1.0.
func Decay(daysAgo, halfLife float64) float64 {
	if daysAgo <= 0 {
		return 1.0
	}
	return math.Pow(0.5, daysAgo/halfLife)
}

// DaysSince returns the age of ts in fractional days relative to now,
// floored at zero so clock skew never inflates a signal.
func DaysSince(ts, now time.Time) float64 {
	if ts.IsZero() {
		return 0
	}
	d := now.Sub(ts).Seconds() / 86400
	if d < 0 {
		return 0
	}
	return d
}
