package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/tradescope/internal/db"
	"github.com/sells-group/tradescope/internal/model"
)

// Filter narrows a ledger query. All criteria are ANDed; zero values are
// ignored. Every predicate is parameterized — business data never reaches
// query text.
type Filter struct {
	BuyerUUID    *uuid.UUID
	SupplierUUID *uuid.UUID
	HSCode6      string
	DestCountry  string
	Direction    model.Direction
	DateFrom     *time.Time
	DateTo       *time.Time
	Limit        int
	Offset       int
}

// Query returns ledger transactions matching the filter, newest first.
func Query(ctx context.Context, pool db.Pool, f Filter) ([]model.TradeTransaction, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.BuyerUUID != nil {
		add("buyer_uuid = $%d", *f.BuyerUUID)
	}
	if f.SupplierUUID != nil {
		add("supplier_uuid = $%d", *f.SupplierUUID)
	}
	if f.HSCode6 != "" {
		add("hs_code_6 = $%d", f.HSCode6)
	}
	if f.DestCountry != "" {
		add("dest_country = $%d", f.DestCountry)
	}
	if f.Direction != "" {
		add("direction = $%d", f.Direction)
	}
	if f.DateFrom != nil {
		add("shipment_date >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		add("shipment_date <= $%d", *f.DateTo)
	}

	sql := `SELECT txn_id, std_id, reporting_country, direction, origin_country, dest_country,
       hs_code_6, shipment_date, qty_kg, value_usd, unit_price,
       buyer_uuid, supplier_uuid, hidden_buyer, mirror_matched_at, created_at
FROM trade.transactions`
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}
	sql += " ORDER BY shipment_date DESC, txn_id"

	limit := f.Limit
	if limit <= 0 || limit > 10000 {
		limit = 10000
	}
	args = append(args, limit)
	sql += fmt.Sprintf(" LIMIT $%d", len(args))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		sql += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: query transactions")
	}
	defer rows.Close()

	var txns []model.TradeTransaction
	for rows.Next() {
		var t model.TradeTransaction
		if err := rows.Scan(
			&t.TxnID, &t.StdID, &t.ReportingCountry, &t.Direction, &t.OriginCountry, &t.DestCountry,
			&t.HSCode6, &t.ShipmentDate, &t.QtyKg, &t.ValueUSD, &t.UnitPrice,
			&t.BuyerUUID, &t.SupplierUUID, &t.HiddenBuyer, &t.MirrorMatchedAt, &t.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "ledger: scan transaction")
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// Aggregate holds the ledger rollup for one buyer on one lane.
type Aggregate struct {
	Shipments     int64   `json:"shipments"`
	TotalValueUSD float64 `json:"total_value_usd"`
	TotalQtyKg    float64 `json:"total_qty_kg"`
}

// AggregateBuyerLane sums a buyer's ledger rows for an HS code and
// destination market. Used by regression checks to prove no value or row
// drift through standardization and loading.
func AggregateBuyerLane(ctx context.Context, pool db.Pool, buyer uuid.UUID, hs6, destCountry string) (*Aggregate, error) {
	var agg Aggregate
	err := pool.QueryRow(ctx, `
SELECT COUNT(*), COALESCE(SUM(value_usd), 0), COALESCE(SUM(qty_kg), 0)
FROM trade.transactions
WHERE buyer_uuid = $1 AND hs_code_6 = $2 AND dest_country = $3`,
		buyer, hs6, destCountry,
	).Scan(&agg.Shipments, &agg.TotalValueUSD, &agg.TotalQtyKg)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: aggregate buyer lane")
	}
	return &agg, nil
}
