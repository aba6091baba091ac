package recommend

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecay(t *testing.T) {
	tests := []struct {
		name     string
		daysAgo  float64
		halfLife float64
		want     float64
	}{
		{"today", 0, 14, 1.0},
		{"negative clamps to full weight", -3, 14, 1.0},
		{"one half-life", 14, 14, 0.5},
		{"two half-lives", 28, 14, 0.25},
		{"purchases half-life", 30, 30, 0.5},
		{"views half-life", 7, 7, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Decay(tt.daysAgo, tt.halfLife), 1e-9)
		})
	}
}

func TestDecayMonotonic(t *testing.T) {
	prev := math.Inf(1)
	for d := 0.0; d <= 120; d += 0.5 {
		got := Decay(d, 14)
		assert.Less(t, got, prev, "decay must strictly decrease at %v days", d)
		assert.Greater(t, got, 0.0)
		prev = got
	}
}

func TestDaysSince(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	assert.InDelta(t, 7, DaysSince(now.AddDate(0, 0, -7), now), 1e-9)
	assert.InDelta(t, 0.5, DaysSince(now.Add(-12*time.Hour), now), 1e-9)
	assert.Zero(t, DaysSince(now.Add(time.Hour), now), "future timestamps clamp to zero")
	assert.Zero(t, DaysSince(now, now))
}
