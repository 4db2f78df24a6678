// Package profile rebuilds per-entity rollups from the transaction ledger.
// Profiles are derived data: the builders may be re-run at any time and
// overwrite the previous rollup wholesale.
package profile

import "github.com/sells-group/tradescope/internal/model"

// Persona labels, ordered from largest to smallest. Downstream scoring
// treats Whale and Institutional as the top two tiers.
const (
	ClassWhale         = "Whale"
	ClassInstitutional = "Institutional"
	ClassEstablished   = "Established"
	ClassEmerging      = "Emerging"
	ClassOccasional    = "Occasional"
)

// Classification value tiers in USD.
const (
	whaleMinValueUSD         = 10_000_000.0
	institutionalMinValueUSD = 2_000_000.0
	establishedMinValueUSD   = 250_000.0
)

// Classify derives the persona label from an entity's aggregate trade.
// Pure function of the rollup, so re-running the builder over unchanged
// data reproduces the same label.
func Classify(totalValueUSD float64, totalShipments int64, monthsActive int) string {
	switch {
	case totalValueUSD >= whaleMinValueUSD:
		return ClassWhale
	case totalValueUSD >= institutionalMinValueUSD:
		return ClassInstitutional
	case totalValueUSD >= establishedMinValueUSD && monthsActive >= 6:
		return ClassEstablished
	case totalShipments >= 3:
		return ClassEmerging
	default:
		return ClassOccasional
	}
}

// Stability maps activity tenure to a 0-100 score. Twelve active months
// and four active years saturate it.
func Stability(monthsActive, yearsActive int) float64 {
	months := min(monthsActive, 12)
	years := min(yearsActive, 4)
	return float64(months+2*years) / 20 * 100
}

// Onboarding scores how ready a rollup is for outreach, 0-100, based on
// data completeness rather than trade size.
func Onboarding(totalValueUSD, totalQtyKg float64, monthsActive int, suppliers []model.RankedItem) float64 {
	var score float64
	if len(suppliers) > 0 {
		score += 30
	}
	if totalQtyKg > 0 {
		score += 20
	}
	if monthsActive >= 3 {
		score += 25
	}
	if totalValueUSD > 0 {
		score += 25
	}
	return score
}
