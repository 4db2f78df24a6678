package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateSpike_InsufficientHistorySkipped(t *testing.T) {
	_, stats, ok := EvaluateSpike([]float64{100_000, 900_000}, false, testRiskCfg())
	assert.False(t, ok)
	assert.Zero(t, stats.Periods)
}

func TestEvaluateSpike_FlagsLargeJump(t *testing.T) {
	// Baseline ~100K/month, latest 600K: pct change 5x, z well above 2.
	periods := []float64{95_000, 100_000, 105_000, 98_000, 102_000, 600_000}
	score, stats, ok := EvaluateSpike(periods, false, testRiskCfg())
	assert.True(t, ok)
	assert.GreaterOrEqual(t, score, 40.0)
	assert.Greater(t, stats.PctChange, 2.0)
	assert.Greater(t, stats.ZScore, 2.0)
	assert.Equal(t, 6, stats.Periods)
}

func TestEvaluateSpike_SteadyVolumeNotFlagged(t *testing.T) {
	periods := []float64{95_000, 100_000, 105_000, 98_000, 102_000, 101_000}
	_, stats, ok := EvaluateSpike(periods, false, testRiskCfg())
	assert.False(t, ok)
	assert.Equal(t, 6, stats.Periods)
}

func TestEvaluateSpike_WhaleDampening(t *testing.T) {
	periods := []float64{95_000, 100_000, 105_000, 98_000, 102_000, 600_000}

	raw, _, ok := EvaluateSpike(periods, false, testRiskCfg())
	assert.True(t, ok)

	damped, _, ok := EvaluateSpike(periods, true, testRiskCfg())
	assert.True(t, ok)
	assert.InDelta(t, raw-20, damped, 1e-9)
}

func TestEvaluateSpike_ZeroBaselineSkipped(t *testing.T) {
	_, _, ok := EvaluateSpike([]float64{0, 0, 0, 500_000}, false, testRiskCfg())
	assert.False(t, ok)
}
