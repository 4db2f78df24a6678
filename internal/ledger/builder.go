// Package ledger builds and queries the append-only trade transaction
// ledger, the single source of truth for all downstream analytics.
package ledger

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tradescope/internal/db"
)

// Builder copies identity-resolved standardized shipments into the ledger
// 1:1, no aggregation. std_id is the natural key: the ON CONFLICT DO NOTHING
// makes incremental loads idempotent, and a concurrent duplicate load is a
// silent skip, not a failure.
type Builder struct {
	pool db.Pool
}

// NewBuilder creates a new ledger Builder.
func NewBuilder(pool db.Pool) *Builder {
	return &Builder{pool: pool}
}

// LoadResult summarizes one ledger load.
type LoadResult struct {
	Processed int64 // resolved standardized rows eligible for loading
	Created   int64 // new ledger rows
	Skipped   int64 // natural-key conflicts (already loaded)
}

// loadSQL materializes one ledger row per standardized row. The shipment
// date falls back through export date, import date, and finally the
// processing timestamp, in that order.
const loadSQL = `
INSERT INTO trade.transactions (
    txn_id, std_id, reporting_country, direction, origin_country, dest_country,
    hs_code_6, shipment_date, qty_kg, value_usd, unit_price,
    buyer_uuid, supplier_uuid, hidden_buyer
)
SELECT
    gen_random_uuid(),
    s.std_id,
    s.reporting_country,
    s.direction,
    s.origin_country,
    s.dest_country,
    s.hs_code_6,
    COALESCE(s.shipment_date, s.export_date, s.import_date, s.processed_at::date),
    s.qty_kg,
    s.value_usd,
    CASE
        WHEN s.qty_kg IS NOT NULL AND s.qty_kg > 0 THEN s.value_usd / s.qty_kg
        ELSE s.price_per_kg
    END,
    s.buyer_uuid,
    s.supplier_uuid,
    s.hidden_buyer
FROM trade.std_shipments s
WHERE s.resolved_at IS NOT NULL
ON CONFLICT (std_id) DO NOTHING`

// Load appends all resolved standardized rows not yet in the ledger.
func (b *Builder) Load(ctx context.Context) (*LoadResult, error) {
	log := zap.L().With(zap.String("component", "ledger.builder"))

	var eligible int64
	if err := b.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM trade.std_shipments WHERE resolved_at IS NOT NULL`,
	).Scan(&eligible); err != nil {
		return nil, eris.Wrap(err, "ledger: count eligible rows")
	}

	tag, err := b.pool.Exec(ctx, loadSQL)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: load transactions")
	}

	res := &LoadResult{
		Processed: eligible,
		Created:   tag.RowsAffected(),
		Skipped:   eligible - tag.RowsAffected(),
	}

	log.Info("ledger load complete",
		zap.Int64("processed", res.Processed),
		zap.Int64("created", res.Created),
		zap.Int64("skipped", res.Skipped),
	)
	return res, nil
}

// VerifyCounts returns the resolved standardized row count and the ledger
// row count. The two must be equal after a load: the ledger never
// aggregates or silently drops rows.
func (b *Builder) VerifyCounts(ctx context.Context) (stdRows, ledgerRows int64, err error) {
	if err := b.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM trade.std_shipments WHERE resolved_at IS NOT NULL`,
	).Scan(&stdRows); err != nil {
		return 0, 0, eris.Wrap(err, "ledger: count standardized rows")
	}
	if err := b.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM trade.transactions`,
	).Scan(&ledgerRows); err != nil {
		return 0, 0, eris.Wrap(err, "ledger: count ledger rows")
	}
	return stdRows, ledgerRows, nil
}
