package profile

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tradescope/internal/config"
	"github.com/sells-group/tradescope/internal/db"
	"github.com/sells-group/tradescope/internal/model"
)

// Builder recomputes buyer and exporter rollups from the ledger. Profiles
// are sidecar tables keyed by (entity uuid, jurisdiction); the builder is
// their only writer.
type Builder struct {
	pool db.Pool
	cfg  config.ProfileConfig
}

func NewBuilder(pool db.Pool, cfg config.ProfileConfig) *Builder {
	return &Builder{pool: pool, cfg: cfg}
}

// Result counts the rollups written by one run.
type Result struct {
	Buyers    int64
	Exporters int64
}

// Run rebuilds both profile tables.
func (b *Builder) Run(ctx context.Context) (*Result, error) {
	log := zap.L().With(zap.String("component", "profile.builder"))
	res := &Result{}

	buyers, err := b.BuildBuyers(ctx)
	if err != nil {
		return res, err
	}
	res.Buyers = buyers

	exporters, err := b.BuildExporters(ctx)
	if err != nil {
		return res, err
	}
	res.Exporters = exporters

	log.Info("profiles rebuilt", zap.Int64("buyers", buyers), zap.Int64("exporters", exporters))
	return res, nil
}

type profileKey struct {
	UUID         uuid.UUID
	Jurisdiction string
}

// aggregate is the common rollup shape for either side of a transaction.
type aggregate struct {
	Key            profileKey
	PeriodStart    time.Time
	PeriodEnd      time.Time
	TotalShipments int64
	TotalValueUSD  float64
	TotalQtyKg     float64
	DistinctHS6    int
	MonthsActive   int
	YearsActive    int
}

const buyerTotalsSQL = `
SELECT buyer_uuid, dest_country,
       MIN(shipment_date), MAX(shipment_date),
       COUNT(*)::bigint,
       COALESCE(SUM(value_usd), 0)::float8,
       COALESCE(SUM(qty_kg), 0)::float8,
       COUNT(DISTINCT hs_code_6)::int,
       COUNT(DISTINCT date_trunc('month', shipment_date))::int,
       COUNT(DISTINCT date_trunc('year', shipment_date))::int
FROM trade.transactions
WHERE buyer_uuid IS NOT NULL
GROUP BY buyer_uuid, dest_country`

const exporterTotalsSQL = `
SELECT supplier_uuid, origin_country,
       MIN(shipment_date), MAX(shipment_date),
       COUNT(*)::bigint,
       COALESCE(SUM(value_usd), 0)::float8,
       COALESCE(SUM(qty_kg), 0)::float8,
       COUNT(DISTINCT hs_code_6)::int,
       COUNT(DISTINCT date_trunc('month', shipment_date))::int,
       COUNT(DISTINCT date_trunc('year', shipment_date))::int
FROM trade.transactions
WHERE supplier_uuid IS NOT NULL
GROUP BY supplier_uuid, origin_country`

// Counterparty rankings carry the organization's normalized name as the
// display label. Ties on value fall back to uuid order so re-runs produce
// identical lists.
const buyerTopSuppliersSQL = `
WITH ranked AS (
    SELECT t.buyer_uuid AS entity_uuid, t.dest_country AS jurisdiction, t.supplier_uuid AS cp,
           COALESCE(SUM(t.value_usd), 0) AS value_usd, COUNT(*)::bigint AS shipments,
           ROW_NUMBER() OVER (PARTITION BY t.buyer_uuid, t.dest_country
                              ORDER BY COALESCE(SUM(t.value_usd), 0) DESC, t.supplier_uuid) AS rn
    FROM trade.transactions t
    WHERE t.buyer_uuid IS NOT NULL AND t.supplier_uuid IS NOT NULL
    GROUP BY t.buyer_uuid, t.dest_country, t.supplier_uuid
)
SELECT r.entity_uuid, r.jurisdiction,
       jsonb_agg(jsonb_build_object(
           'key', r.cp::text, 'label', COALESCE(o.normalized_name, ''),
           'value_usd', r.value_usd, 'count', r.shipments) ORDER BY r.rn)
FROM ranked r
LEFT JOIN trade.organizations o ON o.org_uuid = r.cp
WHERE r.rn <= $1
GROUP BY r.entity_uuid, r.jurisdiction`

const exporterTopBuyersSQL = `
WITH ranked AS (
    SELECT t.supplier_uuid AS entity_uuid, t.origin_country AS jurisdiction, t.buyer_uuid AS cp,
           COALESCE(SUM(t.value_usd), 0) AS value_usd, COUNT(*)::bigint AS shipments,
           ROW_NUMBER() OVER (PARTITION BY t.supplier_uuid, t.origin_country
                              ORDER BY COALESCE(SUM(t.value_usd), 0) DESC, t.buyer_uuid) AS rn
    FROM trade.transactions t
    WHERE t.supplier_uuid IS NOT NULL AND t.buyer_uuid IS NOT NULL
    GROUP BY t.supplier_uuid, t.origin_country, t.buyer_uuid
)
SELECT r.entity_uuid, r.jurisdiction,
       jsonb_agg(jsonb_build_object(
           'key', r.cp::text, 'label', COALESCE(o.normalized_name, ''),
           'value_usd', r.value_usd, 'count', r.shipments) ORDER BY r.rn)
FROM ranked r
LEFT JOIN trade.organizations o ON o.org_uuid = r.cp
WHERE r.rn <= $1
GROUP BY r.entity_uuid, r.jurisdiction`

const buyerTopProductsSQL = `
WITH ranked AS (
    SELECT t.buyer_uuid AS entity_uuid, t.dest_country AS jurisdiction, t.hs_code_6 AS hs,
           COALESCE(SUM(t.value_usd), 0) AS value_usd, COUNT(*)::bigint AS shipments,
           ROW_NUMBER() OVER (PARTITION BY t.buyer_uuid, t.dest_country
                              ORDER BY COALESCE(SUM(t.value_usd), 0) DESC, t.hs_code_6) AS rn
    FROM trade.transactions t
    WHERE t.buyer_uuid IS NOT NULL AND t.hs_code_6 IS NOT NULL
    GROUP BY t.buyer_uuid, t.dest_country, t.hs_code_6
)
SELECT entity_uuid, jurisdiction,
       jsonb_agg(jsonb_build_object(
           'key', hs, 'value_usd', value_usd, 'count', shipments) ORDER BY rn)
FROM ranked
WHERE rn <= $1
GROUP BY entity_uuid, jurisdiction`

const exporterTopProductsSQL = `
WITH ranked AS (
    SELECT t.supplier_uuid AS entity_uuid, t.origin_country AS jurisdiction, t.hs_code_6 AS hs,
           COALESCE(SUM(t.value_usd), 0) AS value_usd, COUNT(*)::bigint AS shipments,
           ROW_NUMBER() OVER (PARTITION BY t.supplier_uuid, t.origin_country
                              ORDER BY COALESCE(SUM(t.value_usd), 0) DESC, t.hs_code_6) AS rn
    FROM trade.transactions t
    WHERE t.supplier_uuid IS NOT NULL AND t.hs_code_6 IS NOT NULL
    GROUP BY t.supplier_uuid, t.origin_country, t.hs_code_6
)
SELECT entity_uuid, jurisdiction,
       jsonb_agg(jsonb_build_object(
           'key', hs, 'value_usd', value_usd, 'count', shipments) ORDER BY rn)
FROM ranked
WHERE rn <= $1
GROUP BY entity_uuid, jurisdiction`

// BuildBuyers recomputes trade.buyer_profiles and returns the number of
// rollups written.
func (b *Builder) BuildBuyers(ctx context.Context) (int64, error) {
	aggs, err := b.totals(ctx, buyerTotalsSQL)
	if err != nil {
		return 0, eris.Wrap(err, "profile: buyer totals")
	}
	if len(aggs) == 0 {
		return 0, nil
	}

	suppliers, err := b.topLists(ctx, buyerTopSuppliersSQL)
	if err != nil {
		return 0, eris.Wrap(err, "profile: buyer top suppliers")
	}
	products, err := b.topLists(ctx, buyerTopProductsSQL)
	if err != nil {
		return 0, eris.Wrap(err, "profile: buyer top products")
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(aggs))
	for _, a := range aggs {
		topSuppliers := suppliers[a.Key]
		classification := Classify(a.TotalValueUSD, a.TotalShipments, a.MonthsActive)

		supJSON, err := marshalRanked(topSuppliers)
		if err != nil {
			return 0, err
		}
		prodJSON, err := marshalRanked(products[a.Key])
		if err != nil {
			return 0, err
		}

		rows = append(rows, []any{
			a.Key.UUID, a.Key.Jurisdiction,
			a.PeriodStart, a.PeriodEnd,
			a.TotalShipments, a.TotalValueUSD, a.TotalQtyKg,
			a.DistinctHS6, a.MonthsActive, a.YearsActive,
			supJSON, prodJSON,
			classification,
			Stability(a.MonthsActive, a.YearsActive),
			Onboarding(a.TotalValueUSD, a.TotalQtyKg, a.MonthsActive, topSuppliers),
			now,
		})
	}

	return db.BulkUpsert(ctx, b.pool, db.UpsertConfig{
		Table: "trade.buyer_profiles",
		Columns: []string{
			"buyer_uuid", "jurisdiction", "period_start", "period_end",
			"total_shipments", "total_value_usd", "total_qty_kg",
			"distinct_hs6", "months_active", "years_active",
			"top_suppliers", "top_products", "classification",
			"stability_score", "onboarding_score", "updated_at",
		},
		ConflictKeys: []string{"buyer_uuid", "jurisdiction"},
	}, rows)
}

// BuildExporters recomputes trade.exporter_profiles.
func (b *Builder) BuildExporters(ctx context.Context) (int64, error) {
	aggs, err := b.totals(ctx, exporterTotalsSQL)
	if err != nil {
		return 0, eris.Wrap(err, "profile: exporter totals")
	}
	if len(aggs) == 0 {
		return 0, nil
	}

	buyers, err := b.topLists(ctx, exporterTopBuyersSQL)
	if err != nil {
		return 0, eris.Wrap(err, "profile: exporter top buyers")
	}
	products, err := b.topLists(ctx, exporterTopProductsSQL)
	if err != nil {
		return 0, eris.Wrap(err, "profile: exporter top products")
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(aggs))
	for _, a := range aggs {
		buyerJSON, err := marshalRanked(buyers[a.Key])
		if err != nil {
			return 0, err
		}
		prodJSON, err := marshalRanked(products[a.Key])
		if err != nil {
			return 0, err
		}

		rows = append(rows, []any{
			a.Key.UUID, a.Key.Jurisdiction,
			a.PeriodStart, a.PeriodEnd,
			a.TotalShipments, a.TotalValueUSD, a.TotalQtyKg,
			a.DistinctHS6, a.MonthsActive, a.YearsActive,
			buyerJSON, prodJSON,
			Classify(a.TotalValueUSD, a.TotalShipments, a.MonthsActive),
			Stability(a.MonthsActive, a.YearsActive),
			now,
		})
	}

	return db.BulkUpsert(ctx, b.pool, db.UpsertConfig{
		Table: "trade.exporter_profiles",
		Columns: []string{
			"exporter_uuid", "jurisdiction", "period_start", "period_end",
			"total_shipments", "total_value_usd", "total_qty_kg",
			"distinct_hs6", "months_active", "years_active",
			"top_buyers", "top_products", "classification",
			"stability_score", "updated_at",
		},
		ConflictKeys: []string{"exporter_uuid", "jurisdiction"},
	}, rows)
}

func (b *Builder) totals(ctx context.Context, sql string) ([]aggregate, error) {
	rows, err := b.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aggs []aggregate
	for rows.Next() {
		var a aggregate
		if err := rows.Scan(
			&a.Key.UUID, &a.Key.Jurisdiction,
			&a.PeriodStart, &a.PeriodEnd,
			&a.TotalShipments, &a.TotalValueUSD, &a.TotalQtyKg,
			&a.DistinctHS6, &a.MonthsActive, &a.YearsActive,
		); err != nil {
			return nil, eris.Wrap(err, "profile: scan totals")
		}
		aggs = append(aggs, a)
	}
	return aggs, rows.Err()
}

func (b *Builder) topLists(ctx context.Context, sql string) (map[profileKey][]model.RankedItem, error) {
	rows, err := b.pool.Query(ctx, sql, b.cfg.TopN)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lists := make(map[profileKey][]model.RankedItem)
	for rows.Next() {
		var (
			key     profileKey
			rawJSON []byte
		)
		if err := rows.Scan(&key.UUID, &key.Jurisdiction, &rawJSON); err != nil {
			return nil, eris.Wrap(err, "profile: scan top list")
		}
		var items []model.RankedItem
		if err := json.Unmarshal(rawJSON, &items); err != nil {
			return nil, eris.Wrap(err, "profile: unmarshal top list")
		}
		lists[key] = items
	}
	return lists, rows.Err()
}

// marshalRanked serializes a ranked list for the jsonb profile column,
// writing [] rather than null for empty lists.
func marshalRanked(items []model.RankedItem) ([]byte, error) {
	if items == nil {
		items = []model.RankedItem{}
	}
	out, err := json.Marshal(items)
	if err != nil {
		return nil, eris.Wrap(err, "profile: marshal ranked list")
	}
	return out, nil
}
