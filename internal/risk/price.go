// Package risk scores shipments and buyers against statistical baselines:
// price corridors for invoice anomalies, value tiers for ghost entities,
// and trailing volume for spikes. Opinions are versioned and stored apart
// from ledger facts.
package risk

import (
	"fmt"
	"math"

	"github.com/sells-group/tradescope/internal/config"
)

// Price anomaly reasons. Under- and over-invoicing use symmetric z cutoffs.
const (
	ReasonUnderInvoiceCritical = "under_invoice_critical"
	ReasonUnderInvoiceHigh     = "under_invoice_high"
	ReasonUnderInvoiceMedium   = "under_invoice_medium"
	ReasonOverInvoiceCritical  = "over_invoice_critical"
	ReasonOverInvoiceHigh      = "over_invoice_high"
	ReasonOverInvoiceMedium    = "over_invoice_medium"
)

// Scores assigned per severity tier. Critical lands in the CRITICAL band
// (>=80), high in HIGH (>=60), medium in MEDIUM (>=40).
const (
	priceScoreCritical = 90.0
	priceScoreHigh     = 70.0
	priceScoreMedium   = 50.0
)

// PriceZ computes the z-score of a unit price against its corridor. The
// second return is false when the corridor cannot support a z-score at all
// (zero or negative spread).
func PriceZ(price, mean, stddev float64) (float64, bool) {
	if stddev <= 0 {
		return 0, false
	}
	return (price - mean) / stddev, true
}

// EvaluatePriceZ maps a z-score to an anomaly score and reason. ok=false
// means the price sits inside the corridor and produces no opinion.
func EvaluatePriceZ(z float64, cfg config.RiskConfig) (score float64, reason string, ok bool) {
	abs := math.Abs(z)
	under := z < 0

	switch {
	case abs >= cfg.ZCritical:
		score = priceScoreCritical
	case abs >= cfg.ZHigh:
		score = priceScoreHigh
	case abs >= cfg.ZMedium:
		score = priceScoreMedium
	default:
		return 0, "", false
	}

	switch {
	case under && score == priceScoreCritical:
		reason = ReasonUnderInvoiceCritical
	case under && score == priceScoreHigh:
		reason = ReasonUnderInvoiceHigh
	case under:
		reason = ReasonUnderInvoiceMedium
	case score == priceScoreCritical:
		reason = ReasonOverInvoiceCritical
	case score == priceScoreHigh:
		reason = ReasonOverInvoiceHigh
	default:
		reason = ReasonOverInvoiceMedium
	}
	return score, reason, true
}

// CorridorKey is the bucket a shipment's price is judged against.
type CorridorKey struct {
	HSCode6          string
	DestCountry      string
	Year             int
	Month            int
	Direction        string
	ReportingCountry string
}

// ScopeKey renders the bucket as the scope_key of a shipment price opinion.
func (k CorridorKey) ScopeKey() string {
	return fmt.Sprintf("%s:%s:%04d-%02d:%s:%s", k.HSCode6, k.DestCountry, k.Year, k.Month, k.Direction, k.ReportingCountry)
}
