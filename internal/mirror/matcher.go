package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tradescope/internal/config"
	"github.com/sells-group/tradescope/internal/db"
	"github.com/sells-group/tradescope/internal/model"
)

// Matcher searches partner-country import records for exports whose declared
// buyer is an obscured placeholder, and backfills the inferred buyer.
type Matcher struct {
	pool db.Pool
	cfg  config.MirrorConfig
}

// NewMatcher creates a new Matcher with the given matching policy.
func NewMatcher(pool db.Pool, cfg config.MirrorConfig) *Matcher {
	return &Matcher{pool: pool, cfg: cfg}
}

// Result summarizes one matcher run.
type Result struct {
	Processed      int64 // hidden-buyer exports examined
	Matched        int64
	NoCandidate    int64 // no import on the lane at all
	BelowThreshold int64 // best candidate under the commit threshold
	LostRace       int64 // another run matched the export first
}

// pendingExport is a hidden-buyer export row awaiting a counterparty.
type pendingExport struct {
	TxnID         uuid.UUID
	OriginCountry string
	DestCountry   string
	HSCode6       string
	ShipmentDate  time.Time
	QtyKg         *float64
}

// importCandidate is a same-lane import row with a known buyer.
type importCandidate struct {
	TxnID        uuid.UUID
	BuyerUUID    uuid.UUID
	ShipmentDate time.Time
	QtyKg        *float64
}

// Run examines pending hidden-buyer exports and commits at most one match
// per export. Already-matched exports are excluded up front, so a re-run
// with no new import data is a no-op; unmatched exports stay eligible for
// future runs as partner-country data arrives.
func (m *Matcher) Run(ctx context.Context) (*Result, error) {
	log := zap.L().With(zap.String("component", "mirror.matcher"))
	res := &Result{}

	exports, err := m.pendingExports(ctx)
	if err != nil {
		return res, err
	}
	log.Info("pending hidden-buyer exports", zap.Int("count", len(exports)))

	for _, exp := range exports {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Processed++

		candidates, err := m.candidates(ctx, exp)
		if err != nil {
			return res, err
		}
		if len(candidates) == 0 {
			res.NoCandidate++
			continue
		}

		best, bestScore, criteria := m.pickBest(exp, candidates)
		if best == nil || bestScore < m.cfg.MinScore {
			res.BelowThreshold++
			continue
		}

		committed, err := m.commit(ctx, exp.TxnID, *best, bestScore, criteria)
		if err != nil {
			return res, err
		}
		if committed {
			res.Matched++
		} else {
			res.LostRace++
		}
	}

	log.Info("mirror run complete",
		zap.Int64("processed", res.Processed),
		zap.Int64("matched", res.Matched),
		zap.Int64("no_candidate", res.NoCandidate),
		zap.Int64("below_threshold", res.BelowThreshold),
		zap.Int64("lost_race", res.LostRace),
	)
	return res, nil
}

// pendingExports loads hidden-buyer exports that have never been matched.
// The NOT EXISTS on the match log is what makes re-runs no-ops even if the
// mirror_matched_at stamp were ever to drift from the log.
func (m *Matcher) pendingExports(ctx context.Context) ([]pendingExport, error) {
	rows, err := m.pool.Query(ctx, `
SELECT t.txn_id, t.origin_country, t.dest_country, t.hs_code_6, t.shipment_date, t.qty_kg
FROM trade.transactions t
WHERE t.direction = 'EXPORT'
  AND t.hidden_buyer
  AND t.buyer_uuid IS NULL
  AND t.mirror_matched_at IS NULL
  AND t.hs_code_6 IS NOT NULL
  AND NOT EXISTS (
      SELECT 1 FROM trade.mirror_matches mm WHERE mm.export_txn_id = t.txn_id
  )
ORDER BY t.shipment_date
LIMIT $1`,
		m.cfg.BatchSize,
	)
	if err != nil {
		return nil, eris.Wrap(err, "mirror: load pending exports")
	}
	defer rows.Close()

	var exports []pendingExport
	for rows.Next() {
		var e pendingExport
		if err := rows.Scan(&e.TxnID, &e.OriginCountry, &e.DestCountry, &e.HSCode6, &e.ShipmentDate, &e.QtyKg); err != nil {
			return nil, eris.Wrap(err, "mirror: scan pending export")
		}
		exports = append(exports, e)
	}
	return exports, rows.Err()
}

// candidates loads partner-country imports on the export's exact lane: same
// HS6, same origin and destination, a known buyer, arrival inside the
// transit window. Date ordering feeds the earliest-arrival tie-break.
func (m *Matcher) candidates(ctx context.Context, exp pendingExport) ([]importCandidate, error) {
	windowEnd := exp.ShipmentDate.AddDate(0, 0, m.cfg.MaxTransitDays)

	rows, err := m.pool.Query(ctx, `
SELECT txn_id, buyer_uuid, shipment_date, qty_kg
FROM trade.transactions
WHERE direction = 'IMPORT'
  AND hs_code_6 = $1
  AND dest_country = $2
  AND origin_country = $3
  AND buyer_uuid IS NOT NULL
  AND shipment_date >= $4
  AND shipment_date <= $5
ORDER BY shipment_date, txn_id`,
		exp.HSCode6, exp.DestCountry, exp.OriginCountry, exp.ShipmentDate, windowEnd,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "mirror: load candidates for export %s", exp.TxnID)
	}
	defer rows.Close()

	var cands []importCandidate
	for rows.Next() {
		var c importCandidate
		if err := rows.Scan(&c.TxnID, &c.BuyerUUID, &c.ShipmentDate, &c.QtyKg); err != nil {
			return nil, eris.Wrap(err, "mirror: scan candidate")
		}
		cands = append(cands, c)
	}
	return cands, rows.Err()
}

// pickBest scores every candidate and returns the winner. Ties go to the
// earliest import date — the first plausible arrival — and candidates are
// already date-ordered, so a strictly-greater comparison implements that.
func (m *Matcher) pickBest(exp pendingExport, cands []importCandidate) (*importCandidate, float64, []string) {
	var (
		best      *importCandidate
		bestScore float64
		bestCrit  []string
	)
	for i := range cands {
		c := cands[i]
		score, criteria, ok := Composite(exp.ShipmentDate, c.ShipmentDate, exp.QtyKg, c.QtyKg, m.cfg)
		if !ok {
			continue
		}
		if best == nil || score > bestScore {
			best = &cands[i]
			bestScore = score
			bestCrit = criteria
		}
	}
	return best, bestScore, bestCrit
}

// commit records the match and backfills the export row in one transaction.
// The unique constraint on export_txn_id carries the at-most-once guarantee:
// if a concurrent run already inserted a match, the ON CONFLICT DO NOTHING
// reports zero rows and the export row is left untouched. The import side is
// never modified.
func (m *Matcher) commit(ctx context.Context, exportID uuid.UUID, imp importCandidate, score float64, criteria []string) (bool, error) {
	critJSON, err := json.Marshal(criteria)
	if err != nil {
		return false, eris.Wrap(err, "mirror: marshal criteria")
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return false, eris.Wrap(err, "mirror: begin commit tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `
INSERT INTO trade.mirror_matches (export_txn_id, import_txn_id, match_score, criteria)
VALUES ($1, $2, $3, $4)
ON CONFLICT (export_txn_id) DO NOTHING`,
		exportID, imp.TxnID, score, critJSON,
	)
	if err != nil {
		return false, eris.Wrapf(err, "mirror: insert match for export %s", exportID)
	}
	if tag.RowsAffected() == 0 {
		// Another run won the race; nothing to do.
		return false, tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx, `
UPDATE trade.transactions
SET buyer_uuid = $1, mirror_matched_at = now()
WHERE txn_id = $2 AND mirror_matched_at IS NULL`,
		imp.BuyerUUID, exportID,
	); err != nil {
		return false, eris.Wrapf(err, "mirror: backfill export %s", exportID)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, eris.Wrap(err, "mirror: commit match tx")
	}
	return true, nil
}

// AuditByExport returns the match record for an export transaction, or nil
// if it has never been matched.
func AuditByExport(ctx context.Context, pool db.Pool, exportID uuid.UUID) (*model.MirrorMatch, error) {
	var (
		match    model.MirrorMatch
		critJSON []byte
	)
	err := pool.QueryRow(ctx, `
SELECT export_txn_id, import_txn_id, match_score, criteria, created_at
FROM trade.mirror_matches WHERE export_txn_id = $1`,
		exportID,
	).Scan(&match.ExportTxnID, &match.ImportTxnID, &match.MatchScore, &critJSON, &match.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "mirror: audit lookup for export %s", exportID)
	}
	if err := json.Unmarshal(critJSON, &match.Criteria); err != nil {
		return nil, eris.Wrap(err, "mirror: unmarshal criteria")
	}
	return &match, nil
}
