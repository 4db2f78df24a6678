package risk

import (
	"math"

	"github.com/sells-group/tradescope/internal/config"
)

// ReasonVolumeSpike flags a statistically unusual jump in a buyer's most
// recent period volume.
const ReasonVolumeSpike = "volume_spike"

// whaleDampen is subtracted for buyers already classified as Whales: their
// volume is naturally lumpy and a raw spike reading over-fires on them.
const whaleDampen = 20.0

// SpikeStats carries the intermediate readings, recorded in the opinion's
// reasons for auditability.
type SpikeStats struct {
	Baseline  float64 `json:"baseline_mean"`
	Latest    float64 `json:"latest"`
	PctChange float64 `json:"pct_change"`
	ZScore    float64 `json:"z_score"`
	Periods   int     `json:"periods"`
}

// EvaluateSpike compares the latest period's volume to the trailing
// baseline. periods is ordered oldest to newest; the last element is the
// period under test. Buyers with fewer than the minimum number of periods
// are skipped entirely — absence of an opinion, not a LOW one.
func EvaluateSpike(periods []float64, isWhale bool, cfg config.RiskConfig) (score float64, stats SpikeStats, ok bool) {
	if len(periods) < cfg.SpikeMinPeriods {
		return 0, SpikeStats{}, false
	}

	baseline := periods[:len(periods)-1]
	latest := periods[len(periods)-1]

	var sum float64
	for _, v := range baseline {
		sum += v
	}
	mean := sum / float64(len(baseline))

	var sqSum float64
	for _, v := range baseline {
		d := v - mean
		sqSum += d * d
	}
	stddev := math.Sqrt(sqSum / float64(len(baseline)))

	stats = SpikeStats{Baseline: mean, Latest: latest, Periods: len(periods)}
	if mean <= 0 || stddev <= 0 {
		return 0, stats, false
	}
	stats.PctChange = (latest - mean) / mean
	stats.ZScore = (latest - mean) / stddev

	if stats.PctChange < cfg.SpikePctThreshold || stats.ZScore < cfg.SpikeZThreshold {
		return 0, stats, false
	}

	score = 40 + 10*math.Min(stats.ZScore, 5)
	if isWhale {
		score -= whaleDampen
	}
	if score < ghostFlagFloor {
		return 0, stats, false
	}
	return score, stats, true
}
