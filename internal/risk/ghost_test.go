package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/tradescope/internal/model"
)

func TestEvaluateGhost_SmallBuyersNeverEvaluated(t *testing.T) {
	_, _, ok := EvaluateGhost(499_999, false, testRiskCfg())
	assert.False(t, ok)
}

func TestEvaluateGhost_TiersWithoutWebPresence(t *testing.T) {
	cfg := testRiskCfg()
	tests := []struct {
		name   string
		value  float64
		reason string
		level  model.RiskLevel
	}{
		{"tier1", 600_000, ReasonGhostTier1, model.RiskMedium},
		{"tier2", 2_000_000, ReasonGhostTier2, model.RiskHigh},
		{"tier3", 8_000_000, ReasonGhostTier3, model.RiskCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, reason, ok := EvaluateGhost(tt.value, false, cfg)
			assert.True(t, ok)
			assert.Equal(t, tt.reason, reason)
			assert.Equal(t, tt.level, model.LevelForScore(score))
		})
	}
}

func TestEvaluateGhost_WebPresenceSuppressesSmallerTiers(t *testing.T) {
	cfg := testRiskCfg()

	_, _, ok := EvaluateGhost(600_000, true, cfg)
	assert.False(t, ok, "tier1 with a website should not be flagged")

	_, _, ok = EvaluateGhost(2_000_000, true, cfg)
	assert.False(t, ok, "tier2 with a website should not be flagged")

	// Extreme volume stays flagged even with a website, at reduced severity.
	score, reason, ok := EvaluateGhost(8_000_000, true, cfg)
	assert.True(t, ok)
	assert.Equal(t, ReasonGhostTier3, reason)
	assert.Equal(t, model.RiskMedium, model.LevelForScore(score))
}
