package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/tradescope/internal/config"
	"github.com/sells-group/tradescope/internal/model"
)

func testRiskCfg() config.RiskConfig {
	return config.RiskConfig{
		EngineVersion:     "v1",
		ZMedium:           2,
		ZHigh:             3,
		ZCritical:         5,
		GhostMinValueUSD:  500_000,
		GhostTier2USD:     1_000_000,
		GhostTier3USD:     5_000_000,
		SpikeMinPeriods:   3,
		SpikeZThreshold:   2,
		SpikePctThreshold: 2,
		MinCorridorSample: 5,
	}
}

func TestPriceZ(t *testing.T) {
	z, ok := PriceZ(4, 10, 2)
	assert.True(t, ok)
	assert.InDelta(t, -3.0, z, 1e-9)

	_, ok = PriceZ(4, 10, 0)
	assert.False(t, ok)
}

func TestEvaluatePriceZ_DeepUnderInvoiceIsCritical(t *testing.T) {
	score, reason, ok := EvaluatePriceZ(-6, testRiskCfg())
	assert.True(t, ok)
	assert.Equal(t, ReasonUnderInvoiceCritical, reason)
	assert.GreaterOrEqual(t, score, 80.0)
	assert.Equal(t, model.RiskCritical, model.LevelForScore(score))
}

func TestEvaluatePriceZ_Bands(t *testing.T) {
	cfg := testRiskCfg()
	tests := []struct {
		name   string
		z      float64
		reason string
		level  model.RiskLevel
	}{
		{"under critical", -5, ReasonUnderInvoiceCritical, model.RiskCritical},
		{"under high", -3.5, ReasonUnderInvoiceHigh, model.RiskHigh},
		{"under medium", -2.2, ReasonUnderInvoiceMedium, model.RiskMedium},
		{"over critical", 5.1, ReasonOverInvoiceCritical, model.RiskCritical},
		{"over high", 3, ReasonOverInvoiceHigh, model.RiskHigh},
		{"over medium", 2, ReasonOverInvoiceMedium, model.RiskMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, reason, ok := EvaluatePriceZ(tt.z, cfg)
			assert.True(t, ok)
			assert.Equal(t, tt.reason, reason)
			assert.Equal(t, tt.level, model.LevelForScore(score))
		})
	}
}

func TestEvaluatePriceZ_InsideCorridor(t *testing.T) {
	for _, z := range []float64{0, 1.5, -1.99} {
		_, _, ok := EvaluatePriceZ(z, testRiskCfg())
		assert.False(t, ok, "z=%v should produce no opinion", z)
	}
}

func TestCorridorKey_ScopeKey(t *testing.T) {
	key := CorridorKey{
		HSCode6: "690721", DestCountry: "US",
		Year: 2025, Month: 3,
		Direction: "IMPORT", ReportingCountry: "US",
	}
	assert.Equal(t, "690721:US:2025-03:IMPORT:US", key.ScopeKey())
}
