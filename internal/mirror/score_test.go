package mirror

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/tradescope/internal/config"
)

func testCfg() config.MirrorConfig {
	return config.MirrorConfig{
		MaxTransitDays:    45,
		CenterTransitDays: 14,
		QtyTolerancePct:   0.15,
		QtyDisqualifyPct:  0.50,
		MinScore:          60,
		BatchSize:         5000,
	}
}

func day(d int) time.Time {
	return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

func TestDateScore_PeaksAtCenter(t *testing.T) {
	cfg := testCfg()
	score, ok := DateScore(day(0), day(14), cfg)
	assert.True(t, ok)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestDateScore_DecaysTowardEdges(t *testing.T) {
	cfg := testCfg()
	atCenter, _ := DateScore(day(0), day(14), cfg)
	near, _ := DateScore(day(0), day(20), cfg)
	far, _ := DateScore(day(0), day(40), cfg)
	assert.Greater(t, atCenter, near)
	assert.Greater(t, near, far)
}

func TestDateScore_OutsideWindow(t *testing.T) {
	cfg := testCfg()

	// Import before the export: goods cannot arrive before they ship.
	_, ok := DateScore(day(10), day(5), cfg)
	assert.False(t, ok)

	// Beyond the maximum transit window.
	_, ok = DateScore(day(0), day(46), cfg)
	assert.False(t, ok)
}

func TestQtyScore_WithinTolerance(t *testing.T) {
	cfg := testCfg()
	score, ok := QtyScore(1000, 1100, cfg) // 9.1% diff
	assert.True(t, ok)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestQtyScore_LinearDecay(t *testing.T) {
	cfg := testCfg()
	mid, ok := QtyScore(1000, 1400, cfg) // 28.6% diff, between 15% and 50%
	assert.True(t, ok)
	assert.Greater(t, mid, 0.0)
	assert.Less(t, mid, 1.0)
}

func TestQtyScore_Disqualifies(t *testing.T) {
	cfg := testCfg()
	_, ok := QtyScore(1000, 2500, cfg) // 60% diff
	assert.False(t, ok)

	_, ok = QtyScore(0, 1000, cfg)
	assert.False(t, ok)
}

func TestComposite_PerfectMatch(t *testing.T) {
	cfg := testCfg()
	qty := 1000.0
	score, criteria, ok := Composite(day(0), day(14), &qty, &qty, cfg)
	assert.True(t, ok)
	assert.InDelta(t, 100.0, score, 1e-9)
	assert.ElementsMatch(t, []string{CriterionHSCode, CriterionCountryPair, CriterionDateWindow, CriterionQuantity}, criteria)
}

func TestComposite_MissingQtyCapsScore(t *testing.T) {
	cfg := testCfg()
	score, criteria, ok := Composite(day(0), day(14), nil, nil, cfg)
	assert.True(t, ok)
	// Neutral quantity component: even a perfect date lands at 75.
	assert.InDelta(t, 75.0, score, 1e-9)
	assert.NotContains(t, criteria, CriterionQuantity)
}

func TestComposite_QtyDivergenceDisqualifies(t *testing.T) {
	cfg := testCfg()
	e, i := 1000.0, 3000.0
	_, _, ok := Composite(day(0), day(14), &e, &i, cfg)
	assert.False(t, ok)
}

func TestComposite_Bounds(t *testing.T) {
	cfg := testCfg()
	for d := 0; d <= 45; d++ {
		for _, q := range []float64{850, 1000, 1200, 1490} {
			e := 1000.0
			qv := q
			score, _, ok := Composite(day(0), day(d), &e, &qv, cfg)
			if ok {
				assert.GreaterOrEqual(t, score, 0.0)
				assert.LessOrEqual(t, score, 100.0)
			}
		}
	}
}

func TestPickBest_HighestScoreWins(t *testing.T) {
	m := NewMatcher(nil, testCfg())
	qty := 1000.0
	exp := pendingExport{ShipmentDate: day(0), QtyKg: &qty}

	offQty := 1400.0
	cands := []importCandidate{
		{ShipmentDate: day(14), QtyKg: &offQty}, // perfect date, off quantity
		{ShipmentDate: day(14), QtyKg: &qty},    // perfect date, perfect quantity
	}
	best, score, _ := m.pickBest(exp, cands)
	assert.Same(t, &cands[1], best)
	assert.InDelta(t, 100.0, score, 1e-9)
}

func TestPickBest_TieGoesToEarliestImport(t *testing.T) {
	m := NewMatcher(nil, testCfg())
	qty := 1000.0
	exp := pendingExport{ShipmentDate: day(0), QtyKg: &qty}

	// Symmetric around the window center: identical date scores, identical
	// quantities. Candidates arrive date-ordered; the earlier one must win.
	cands := []importCandidate{
		{ShipmentDate: day(10), QtyKg: &qty},
		{ShipmentDate: day(18), QtyKg: &qty},
	}
	best, _, _ := m.pickBest(exp, cands)
	assert.Same(t, &cands[0], best)
}

func TestPickBest_AllDisqualified(t *testing.T) {
	m := NewMatcher(nil, testCfg())
	qty := 1000.0
	far := 9000.0
	exp := pendingExport{ShipmentDate: day(0), QtyKg: &qty}

	cands := []importCandidate{{ShipmentDate: day(14), QtyKg: &far}}
	best, _, _ := m.pickBest(exp, cands)
	assert.Nil(t, best)
}
