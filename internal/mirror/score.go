// Package mirror infers obscured buyers on export transactions by matching
// them against partner-country import records of the same goods lane.
package mirror

import (
	"math"
	"time"

	"github.com/sells-group/tradescope/internal/config"
)

// Candidate match criteria, recorded on the audit row. HS code and country
// pair always hold — the candidate query enforces them — date and quantity
// are listed only when the component contributed.
const (
	CriterionHSCode      = "hs_code"
	CriterionCountryPair = "country_pair"
	CriterionDateWindow  = "date_window"
	CriterionQuantity    = "quantity"
)

// DateScore scores import-arrival proximity to the expected transit time.
// The importer's shipment date must fall within [0, MaxTransitDays] after
// the exporter's; the score peaks at CenterTransitDays and decays linearly
// toward both window edges. Outside the window the candidate is out.
func DateScore(exportDate, importDate time.Time, cfg config.MirrorConfig) (float64, bool) {
	days := importDate.Sub(exportDate).Hours() / 24
	if days < 0 || days > float64(cfg.MaxTransitDays) {
		return 0, false
	}

	center := float64(cfg.CenterTransitDays)
	denom := math.Max(center, float64(cfg.MaxTransitDays)-center)
	if denom == 0 {
		return 1, true
	}

	score := 1 - math.Abs(days-center)/denom
	if score < 0 {
		score = 0
	}
	return score, true
}

// QtyScore scores quantity proximity between the two declarations. Within
// the tolerance the score is full; beyond the disqualify bound the candidate
// is out; in between it decays linearly.
func QtyScore(exportKg, importKg float64, cfg config.MirrorConfig) (float64, bool) {
	if exportKg <= 0 || importKg <= 0 {
		return 0, false
	}

	relDiff := math.Abs(exportKg-importKg) / math.Max(exportKg, importKg)
	switch {
	case relDiff >= cfg.QtyDisqualifyPct:
		return 0, false
	case relDiff <= cfg.QtyTolerancePct:
		return 1, true
	default:
		return 1 - (relDiff-cfg.QtyTolerancePct)/(cfg.QtyDisqualifyPct-cfg.QtyTolerancePct), true
	}
}

// neutralQtyScore stands in when either side lacks a quantity. It caps the
// composite low enough that only tight date proximity can clear the commit
// threshold.
const neutralQtyScore = 0.5

// Composite combines the components into a 0-100 match score plus the list
// of criteria that contributed. ok=false means the candidate is disqualified
// outright (outside the transit window, or quantities irreconcilable).
func Composite(exportDate, importDate time.Time, exportKg, importKg *float64, cfg config.MirrorConfig) (score float64, criteria []string, ok bool) {
	dateScore, dateOK := DateScore(exportDate, importDate, cfg)
	if !dateOK {
		return 0, nil, false
	}

	criteria = []string{CriterionHSCode, CriterionCountryPair, CriterionDateWindow}

	qtyScore := neutralQtyScore
	if exportKg != nil && importKg != nil {
		var qtyOK bool
		qtyScore, qtyOK = QtyScore(*exportKg, *importKg, cfg)
		if !qtyOK {
			return 0, nil, false
		}
		criteria = append(criteria, CriterionQuantity)
	}

	score = 100 * (0.5*dateScore + 0.5*qtyScore)
	return score, criteria, true
}
