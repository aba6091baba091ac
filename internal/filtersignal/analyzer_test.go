package filtersignal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/config"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
)

func testAnalyzer() *Analyzer {
	return New(config.RecommendConfig{
		FilterSignalWeight:           0.3,
		FilterMinSamples:             3,
		FilterCategoryMaxWeight:      5,
		FilterCategoryAffinityWeight: 1.5,
	})
}

func filterEvent(fc map[string]any) model.InteractionEvent {
	return model.InteractionEvent{
		UserID:    1,
		Type:      model.InteractionClick,
		Timestamp: time.Now(),
		Metadata:  map[string]any{"filter_context": fc},
	}
}

func TestPriceSignalsBelowMinSamples(t *testing.T) {
	a := testAnalyzer()

	events := []model.InteractionEvent{
		filterEvent(map[string]any{"min_price": 10.0}),
		filterEvent(map[string]any{"min_price": 20.0}),
	}
	pr := a.PriceSignals(events)
	assert.Nil(t, pr.Min, "two filter events are below the sample floor")
	assert.Nil(t, pr.Max)
}

func TestPriceSignalsAveragesSetBounds(t *testing.T) {
	a := testAnalyzer()

	events := []model.InteractionEvent{
		filterEvent(map[string]any{"min_price": 10.0, "max_price": 100.0}),
		filterEvent(map[string]any{"min_price": 20.0}),
		filterEvent(map[string]any{"max_price": 50.0}),
	}
	pr := a.PriceSignals(events)
	require.NotNil(t, pr.Min)
	require.NotNil(t, pr.Max)
	assert.InDelta(t, 15.0, *pr.Min, 1e-9, "average of the two events that set a minimum")
	assert.InDelta(t, 75.0, *pr.Max, 1e-9, "average of the two events that set a maximum")
}

func TestPriceSensitivitySignal(t *testing.T) {
	a := testAnalyzer()

	tests := []struct {
		name   string
		events []model.InteractionEvent
		want   float64
	}{
		{
			name: "narrow range reads as sensitive",
			events: []model.InteractionEvent{
				filterEvent(map[string]any{"min_price": 10.0, "max_price": 60.0}),
				filterEvent(map[string]any{"min_price": 10.0, "max_price": 60.0}),
				filterEvent(map[string]any{"min_price": 10.0, "max_price": 60.0}),
			},
			want: 0.9, // 1 - 50/500
		},
		{
			name: "low cap reads as sensitive but capped at 0.8",
			events: []model.InteractionEvent{
				filterEvent(map[string]any{"max_price": 50.0}),
				filterEvent(map[string]any{"max_price": 50.0}),
				filterEvent(map[string]any{"max_price": 50.0}),
			},
			want: 0.8, // min(0.8, 1-0.1+0.2)
		},
		{
			name: "min-only reads as quality seeking",
			events: []model.InteractionEvent{
				filterEvent(map[string]any{"min_price": 100.0}),
				filterEvent(map[string]any{"min_price": 100.0}),
				filterEvent(map[string]any{"min_price": 100.0}),
			},
			want: 0.3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.PriceSensitivitySignal(tt.events)
			require.NotNil(t, got)
			assert.InDelta(t, tt.want, *got, 1e-9)
		})
	}
}

func TestPriceSensitivitySignalNoSamples(t *testing.T) {
	a := testAnalyzer()

	assert.Nil(t, a.PriceSensitivitySignal(nil))
	assert.Nil(t, a.PriceSensitivitySignal([]model.InteractionEvent{
		{UserID: 1, Type: model.InteractionView, Timestamp: time.Now()},
		{UserID: 1, Type: model.InteractionView, Timestamp: time.Now()},
		{UserID: 1, Type: model.InteractionView, Timestamp: time.Now()},
	}), "events without filter context never count as samples")
}

func TestCategoryAffinityCapsRepeatedUse(t *testing.T) {
	a := testAnalyzer()

	var events []model.InteractionEvent
	for i := 0; i < 8; i++ {
		events = append(events, filterEvent(map[string]any{"category_id": float64(7)}))
	}
	events = append(events, filterEvent(map[string]any{"category_id": float64(9)}))

	affinity := a.CategoryAffinity(events)
	require.Len(t, affinity, 2)
	assert.InDelta(t, 1.0, affinity[7], 1e-9, "count capped at 5 before normalizing")
	assert.InDelta(t, 0.2, affinity[9], 1e-9, "1/5 after the cap")
}

func TestCategoryAffinityNoCategories(t *testing.T) {
	a := testAnalyzer()

	events := []model.InteractionEvent{
		filterEvent(map[string]any{"min_price": 10.0}),
		filterEvent(map[string]any{"min_price": 10.0}),
		filterEvent(map[string]any{"min_price": 10.0}),
	}
	assert.Nil(t, a.CategoryAffinity(events))
}

func TestBlendPriceRange(t *testing.T) {
	a := testAnalyzer()

	fmin, fmax := 10.0, 40.0

	min, max := a.BlendPriceRange(20, 60, PriceRange{Min: &fmin, Max: &fmax})
	assert.InDelta(t, 0.7*20+0.3*10, min, 1e-9)
	assert.InDelta(t, 0.7*60+0.3*40, max, 1e-9)

	min, max = a.BlendPriceRange(20, 60, PriceRange{Max: &fmax})
	assert.InDelta(t, 20.0, min, 1e-9, "missing filter bound leaves the purchase bound alone")
	assert.InDelta(t, 0.7*60+0.3*40, max, 1e-9)

	min, max = a.BlendPriceRange(20, 60, PriceRange{})
	assert.Equal(t, 20.0, min)
	assert.Equal(t, 60.0, max)
}
