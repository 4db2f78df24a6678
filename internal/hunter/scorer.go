package hunter

import (
	"sort"

	"github.com/google/uuid"

	"github.com/sells-group/tradescope/internal/config"
	"github.com/sells-group/tradescope/internal/model"
	"github.com/sells-group/tradescope/internal/profile"
)

// Component maxima. The five components sum to 100; the classification
// bump is a tie-breaker on top and the total is clamped back to 100.
const (
	maxVolume    = 40.0
	maxStability = 20.0
	maxFocus     = 15.0
	maxRisk      = 15.0
	maxQuality   = 10.0
)

// riskPoints is the fixed risk component lookup. UNKNOWN sits strictly
// between MEDIUM and HIGH: an unscored buyer is less attractive than one
// vetted MEDIUM but more than a known HIGH.
var riskPoints = map[model.RiskLevel]float64{
	model.RiskLow:      15,
	model.RiskMedium:   8,
	model.RiskUnknown:  6,
	model.RiskHigh:     2,
	model.RiskCritical: 0,
}

// Breakdown itemizes one buyer's score.
type Breakdown struct {
	Volume    float64 `json:"volume"`
	Stability float64 `json:"stability"`
	Focus     float64 `json:"focus"`
	Risk      float64 `json:"risk"`
	Quality   float64 `json:"quality"`
	Bump      float64 `json:"bump"`
}

// ScoredBuyer is one ranked hunt result.
type ScoredBuyer struct {
	BuyerUUID      uuid.UUID       `json:"buyer_uuid"`
	Name           string          `json:"name"`
	Country        string          `json:"country"`
	Classification string          `json:"classification,omitempty"`
	RiskLevel      model.RiskLevel `json:"risk_level"`
	LaneValueUSD   float64         `json:"lane_value_usd"`
	GlobalValueUSD float64         `json:"global_value_usd"`
	LaneShipments  int64           `json:"lane_shipments"`
	Breakdown      Breakdown       `json:"breakdown"`
	Total          float64         `json:"total"`
}

// Score filters the snapshot by the request's risk ceiling and minimum
// value, scores the surviving cohort, and returns it in ranked order.
// Pure: identical snapshots and requests yield identical output.
func Score(snap *Snapshot, req Request, cfg config.HunterConfig) []ScoredBuyer {
	var cohort []CohortRow
	for _, row := range snap.Rows {
		if row.LaneValueUSD < req.MinValueUSD {
			continue
		}
		if !Allowed(snap.RiskOf(row.BuyerUUID), req.MaxRiskLevel) {
			continue
		}
		cohort = append(cohort, row)
	}
	if len(cohort) == 0 {
		return nil
	}

	laneValues := make([]float64, len(cohort))
	for i, row := range cohort {
		laneValues[i] = row.LaneValueUSD
	}

	results := make([]ScoredBuyer, 0, len(cohort))
	for _, row := range cohort {
		level := snap.RiskOf(row.BuyerUUID)
		bd := Breakdown{
			Volume:    volumeScore(row.LaneValueUSD, laneValues, cfg),
			Stability: stabilityScore(row.MonthsActive, row.YearsActive),
			Focus:     focusScore(row.LaneValueUSD, row.GlobalValueUSD),
			Risk:      riskPoints[level],
			Quality:   qualityScore(row),
			Bump:      classificationBump(row.Classification),
		}
		total := bd.Volume + bd.Stability + bd.Focus + bd.Risk + bd.Quality + bd.Bump
		if total > 100 {
			total = 100
		}
		results = append(results, ScoredBuyer{
			BuyerUUID:      row.BuyerUUID,
			Name:           row.Name,
			Country:        row.Country,
			Classification: row.Classification,
			RiskLevel:      level,
			LaneValueUSD:   row.LaneValueUSD,
			GlobalValueUSD: row.GlobalValueUSD,
			LaneShipments:  row.LaneShipments,
			Breakdown:      bd,
			Total:          total,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		if a.Breakdown.Bump != b.Breakdown.Bump {
			return a.Breakdown.Bump > b.Breakdown.Bump
		}
		if a.LaneValueUSD != b.LaneValueUSD {
			return a.LaneValueUSD > b.LaneValueUSD
		}
		return a.BuyerUUID.String() < b.BuyerUUID.String()
	})
	return results
}

// volumeScore ranks lane value inside the cohort. Small cohorts get a
// proportional scale against the cohort maximum instead of a percentile
// rank, which is statistically meaningless on a handful of buyers.
func volumeScore(value float64, cohort []float64, cfg config.HunterConfig) float64 {
	if len(cohort) < cfg.MinCohortForPercentile {
		var maxVal float64
		for _, v := range cohort {
			if v > maxVal {
				maxVal = v
			}
		}
		if maxVal <= 0 {
			return 0
		}
		return value / maxVal * maxVolume
	}

	below := 0
	for _, v := range cohort {
		if v < value {
			below++
		}
	}
	return float64(below) / float64(len(cohort)-1) * maxVolume
}

func stabilityScore(months, years int) float64 {
	return float64(min(months, 12) + 2*min(years, 4))
}

// focusScore measures how much of the buyer's entire book the requested
// lane represents; 50% share earns the full component.
func focusScore(laneValue, globalValue float64) float64 {
	if globalValue <= 0 {
		return 0
	}
	sharePct := laneValue / globalValue * 100
	frac := sharePct / 50
	if frac > 1 {
		frac = 1
	}
	return frac * maxFocus
}

func qualityScore(row CohortRow) float64 {
	var score float64
	if row.Classification != "" {
		score += 4
	}
	if row.MonthsActive >= 3 {
		score += 3
	}
	if row.YearsActive >= 2 {
		score += 3
	}
	return score
}

// classificationBump favors the top persona tiers on ties.
func classificationBump(classification string) float64 {
	switch classification {
	case profile.ClassWhale:
		return 3
	case profile.ClassInstitutional:
		return 1
	default:
		return 0
	}
}
