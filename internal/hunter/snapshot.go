// Package hunter ranks buyers for a target HS code and market with a
// deterministic, fully explainable 0-100 opportunity score. Scoring is a
// pure function over an explicit snapshot of ledger and risk state, so a
// given snapshot always produces the same ranking.
package hunter

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/tradescope/internal/db"
	"github.com/sells-group/tradescope/internal/model"
)

// Request selects the lane and filters for one hunt.
type Request struct {
	HSCode6        string   `json:"hs_code_6"`
	DestCountries  []string `json:"dest_countries,omitempty"`
	MonthsLookback int      `json:"months_lookback,omitempty"`
	MinValueUSD    float64  `json:"min_value_usd,omitempty"`
	MaxRiskLevel   string   `json:"max_risk_level,omitempty"` // LOW | MEDIUM | HIGH | ALL
	Limit          int      `json:"limit,omitempty"`
}

// CohortRow is one buyer's aggregated activity inside the hunt window.
// LaneValueUSD is scoped to the requested HS code and markets;
// GlobalValueUSD spans all of the buyer's trade in the window and is the
// denominator for product focus.
type CohortRow struct {
	BuyerUUID      uuid.UUID
	Name           string
	Country        string
	LaneValueUSD   float64
	GlobalValueUSD float64
	LaneShipments  int64
	MonthsActive   int
	YearsActive    int
	Classification string
}

// Snapshot is the immutable input to one scoring pass: the cohort plus the
// current risk opinion of every buyer in it.
type Snapshot struct {
	Rows       []CohortRow
	RiskLevels map[uuid.UUID]model.RiskLevel
}

// Loader assembles snapshots from the ledger and risk sidecar.
type Loader struct {
	pool db.Pool
}

func NewLoader(pool db.Pool) *Loader {
	return &Loader{pool: pool}
}

// The lane CTE aggregates the requested lane; globals spans all HS codes so
// focus is measured against the buyer's entire book. An empty country list
// matches every destination.
const cohortSQL = `
WITH lane AS (
    SELECT t.buyer_uuid,
           COALESCE(SUM(t.value_usd), 0)::float8 AS lane_value,
           COUNT(*)::bigint AS lane_shipments
    FROM trade.transactions t
    WHERE t.buyer_uuid IS NOT NULL
      AND t.hs_code_6 = $1
      AND (cardinality($2::text[]) = 0 OR t.dest_country = ANY($2))
      AND t.shipment_date >= (CURRENT_DATE - make_interval(months => $3))
    GROUP BY t.buyer_uuid
),
globals AS (
    SELECT t.buyer_uuid,
           COALESCE(SUM(t.value_usd), 0)::float8 AS global_value,
           COUNT(DISTINCT date_trunc('month', t.shipment_date))::int AS months_active,
           COUNT(DISTINCT date_trunc('year', t.shipment_date))::int AS years_active
    FROM trade.transactions t
    WHERE t.buyer_uuid IS NOT NULL
      AND t.shipment_date >= (CURRENT_DATE - make_interval(months => $3))
    GROUP BY t.buyer_uuid
)
SELECT l.buyer_uuid,
       COALESCE(o.normalized_name, ''),
       COALESCE(o.country, ''),
       l.lane_value, g.global_value, l.lane_shipments,
       g.months_active, g.years_active,
       COALESCE(p.classification, '')
FROM lane l
JOIN globals g ON g.buyer_uuid = l.buyer_uuid
LEFT JOIN trade.organizations o ON o.org_uuid = l.buyer_uuid
LEFT JOIN LATERAL (
    SELECT bp.classification
    FROM trade.buyer_profiles bp
    WHERE bp.buyer_uuid = l.buyer_uuid
    ORDER BY bp.total_value_usd DESC, bp.jurisdiction
    LIMIT 1
) p ON true
ORDER BY l.buyer_uuid`

const cohortRiskSQL = `
SELECT entity_id, level
FROM trade.risk_scores
WHERE entity_type = 'BUYER' AND entity_id = ANY($1)`

// Load builds the snapshot for a request. Risk levels are reduced to the
// worst current opinion per buyer; buyers with no opinion are absent from
// the map and read as UNKNOWN.
func (l *Loader) Load(ctx context.Context, req Request) (*Snapshot, error) {
	countries := req.DestCountries
	if countries == nil {
		countries = []string{}
	}

	rows, err := l.pool.Query(ctx, cohortSQL, req.HSCode6, countries, req.MonthsLookback)
	if err != nil {
		return nil, eris.Wrap(err, "hunter: load cohort")
	}
	defer rows.Close()

	snap := &Snapshot{RiskLevels: make(map[uuid.UUID]model.RiskLevel)}
	for rows.Next() {
		var r CohortRow
		if err := rows.Scan(&r.BuyerUUID, &r.Name, &r.Country,
			&r.LaneValueUSD, &r.GlobalValueUSD, &r.LaneShipments,
			&r.MonthsActive, &r.YearsActive, &r.Classification); err != nil {
			return nil, eris.Wrap(err, "hunter: scan cohort row")
		}
		snap.Rows = append(snap.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "hunter: iterate cohort")
	}
	rows.Close()

	if len(snap.Rows) == 0 {
		return snap, nil
	}

	ids := make([]string, len(snap.Rows))
	for i, r := range snap.Rows {
		ids[i] = r.BuyerUUID.String()
	}

	riskRows, err := l.pool.Query(ctx, cohortRiskSQL, ids)
	if err != nil {
		return nil, eris.Wrap(err, "hunter: load cohort risk")
	}
	defer riskRows.Close()

	for riskRows.Next() {
		var (
			id    string
			level model.RiskLevel
		)
		if err := riskRows.Scan(&id, &level); err != nil {
			return nil, eris.Wrap(err, "hunter: scan risk level")
		}
		buyerID, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		// Keep the worst opinion when a buyer carries several.
		current, seen := snap.RiskLevels[buyerID]
		if !seen {
			snap.RiskLevels[buyerID] = level
			continue
		}
		curRank, _ := current.Rank()
		newRank, ok := level.Rank()
		if ok && newRank > curRank {
			snap.RiskLevels[buyerID] = level
		}
	}
	return snap, riskRows.Err()
}

// RiskOf returns the snapshot's level for a buyer, UNKNOWN when absent.
func (s *Snapshot) RiskOf(buyerID uuid.UUID) model.RiskLevel {
	if level, ok := s.RiskLevels[buyerID]; ok {
		return level
	}
	return model.RiskUnknown
}
