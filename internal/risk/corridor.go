package risk

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tradescope/internal/config"
	"github.com/sells-group/tradescope/internal/db"
)

// CorridorBuilder precomputes per-bucket price-per-kg distributions from
// the ledger. A bucket is (hs6, destination, year, month, direction,
// reporting country); shipments without a positive price and quantity are
// excluded from the statistics but counted for audit.
type CorridorBuilder struct {
	pool db.Pool
	cfg  config.RiskConfig
}

func NewCorridorBuilder(pool db.Pool, cfg config.RiskConfig) *CorridorBuilder {
	return &CorridorBuilder{pool: pool, cfg: cfg}
}

// CorridorResult summarizes one corridor build.
type CorridorResult struct {
	Built    int64 // buckets written or refreshed
	Excluded int64 // ledger rows unusable for baselines
}

const buildCorridorsSQL = `
INSERT INTO trade.price_corridors (
    hs_code_6, dest_country, year, month, direction, reporting_country,
    sample_count, min_price, p25_price, median_price, p75_price, max_price,
    mean_price, stddev_price, computed_at
)
SELECT hs_code_6, dest_country,
       EXTRACT(YEAR FROM shipment_date)::int,
       EXTRACT(MONTH FROM shipment_date)::int,
       direction, reporting_country,
       COUNT(*),
       MIN(unit_price),
       percentile_cont(0.25) WITHIN GROUP (ORDER BY unit_price),
       percentile_cont(0.5)  WITHIN GROUP (ORDER BY unit_price),
       percentile_cont(0.75) WITHIN GROUP (ORDER BY unit_price),
       MAX(unit_price),
       AVG(unit_price),
       COALESCE(stddev_pop(unit_price), 0),
       now()
FROM trade.transactions
WHERE hs_code_6 IS NOT NULL
  AND unit_price > 0
  AND qty_kg > 0
GROUP BY hs_code_6, dest_country,
         EXTRACT(YEAR FROM shipment_date)::int,
         EXTRACT(MONTH FROM shipment_date)::int,
         direction, reporting_country
HAVING COUNT(*) >= $1
ON CONFLICT (hs_code_6, dest_country, year, month, direction, reporting_country)
DO UPDATE SET
    sample_count = EXCLUDED.sample_count,
    min_price    = EXCLUDED.min_price,
    p25_price    = EXCLUDED.p25_price,
    median_price = EXCLUDED.median_price,
    p75_price    = EXCLUDED.p75_price,
    max_price    = EXCLUDED.max_price,
    mean_price   = EXCLUDED.mean_price,
    stddev_price = EXCLUDED.stddev_price,
    computed_at  = EXCLUDED.computed_at`

const countExcludedSQL = `
SELECT COUNT(*) FROM trade.transactions
WHERE hs_code_6 IS NOT NULL
  AND (unit_price IS NULL OR unit_price <= 0 OR qty_kg IS NULL OR qty_kg <= 0)`

// Run rebuilds every corridor bucket meeting the minimum sample size.
func (b *CorridorBuilder) Run(ctx context.Context) (*CorridorResult, error) {
	log := zap.L().With(zap.String("component", "risk.corridor"))
	res := &CorridorResult{}

	tag, err := b.pool.Exec(ctx, buildCorridorsSQL, b.cfg.MinCorridorSample)
	if err != nil {
		return res, eris.Wrap(err, "risk: build corridors")
	}
	res.Built = tag.RowsAffected()

	if err := b.pool.QueryRow(ctx, countExcludedSQL).Scan(&res.Excluded); err != nil {
		return res, eris.Wrap(err, "risk: count excluded rows")
	}

	log.Info("price corridors rebuilt",
		zap.Int64("buckets", res.Built),
		zap.Int64("excluded_rows", res.Excluded),
	)
	return res, nil
}
