package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/tradescope/internal/model"
)

func TestClassify_Tiers(t *testing.T) {
	tests := []struct {
		name      string
		valueUSD  float64
		shipments int64
		months    int
		want      string
	}{
		{"whale", 25_000_000, 400, 24, ClassWhale},
		{"whale boundary", 10_000_000, 10, 1, ClassWhale},
		{"institutional", 3_500_000, 80, 10, ClassInstitutional},
		{"established", 600_000, 40, 8, ClassEstablished},
		{"big but too new for established", 600_000, 40, 2, ClassEmerging},
		{"emerging", 50_000, 5, 2, ClassEmerging},
		{"occasional", 10_000, 2, 1, ClassOccasional},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.valueUSD, tt.shipments, tt.months))
		})
	}
}

func TestStability_SaturatesAtFullTenure(t *testing.T) {
	assert.InDelta(t, 100.0, Stability(12, 4), 1e-9)
	assert.InDelta(t, 100.0, Stability(36, 10), 1e-9)
}

func TestStability_PartialTenure(t *testing.T) {
	// 6 months + 2*1 year = 8 of 20.
	assert.InDelta(t, 40.0, Stability(6, 1), 1e-9)
	assert.InDelta(t, 0.0, Stability(0, 0), 1e-9)
}

func TestOnboarding_Completeness(t *testing.T) {
	suppliers := []model.RankedItem{{Key: "abc", ValueUSD: 100}}

	assert.InDelta(t, 100.0, Onboarding(1_000_000, 5000, 6, suppliers), 1e-9)
	assert.InDelta(t, 0.0, Onboarding(0, 0, 0, nil), 1e-9)
	// Value known but no quantity, suppliers, or tenure.
	assert.InDelta(t, 25.0, Onboarding(1_000_000, 0, 1, nil), 1e-9)
}
