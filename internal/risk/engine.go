package risk

import (
	"context"
	"math"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tradescope/internal/config"
	"github.com/sells-group/tradescope/internal/db"
	"github.com/sells-group/tradescope/internal/model"
	"github.com/sells-group/tradescope/internal/profile"
)

// Engine runs the full risk pass: corridor rebuild, shipment price
// anomalies, buyer ghost detection, buyer volume spikes. Every opinion is
// stamped with the configured engine version; re-running the same version
// over the same data reproduces the same opinions.
type Engine struct {
	pool  db.Pool
	store *Store
	cfg   config.RiskConfig
}

func NewEngine(pool db.Pool, cfg config.RiskConfig) *Engine {
	return &Engine{pool: pool, store: NewStore(pool), cfg: cfg}
}

// Result summarizes one engine run.
type Result struct {
	CorridorsBuilt int64
	ExcludedRows   int64
	PriceAnomalies int64
	Ghosts         int64
	Spikes         int64
	SpikesSkipped  int64 // buyers without enough history for a baseline
}

// Run executes all stages in dependency order.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	log := zap.L().With(zap.String("component", "risk.engine"))
	res := &Result{}

	corridors, err := NewCorridorBuilder(e.pool, e.cfg).Run(ctx)
	if err != nil {
		return res, err
	}
	res.CorridorsBuilt = corridors.Built
	res.ExcludedRows = corridors.Excluded

	if err := e.scorePrices(ctx, res); err != nil {
		return res, err
	}
	if err := e.scoreGhosts(ctx, res); err != nil {
		return res, err
	}
	if err := e.scoreSpikes(ctx, res); err != nil {
		return res, err
	}

	log.Info("risk engine run complete",
		zap.String("engine_version", e.cfg.EngineVersion),
		zap.Int64("corridors", res.CorridorsBuilt),
		zap.Int64("price_anomalies", res.PriceAnomalies),
		zap.Int64("ghosts", res.Ghosts),
		zap.Int64("spikes", res.Spikes),
		zap.Int64("spikes_skipped", res.SpikesSkipped),
	)
	return res, nil
}

// The corridor join pre-filters to shipments already beyond the MEDIUM
// cutoff; in-corridor prices never reach the application.
const priceAnomaliesSQL = `
SELECT t.txn_id, t.unit_price::float8, c.mean_price::float8, c.stddev_price::float8, c.sample_count,
       c.hs_code_6, c.dest_country, c.year, c.month, c.direction, c.reporting_country
FROM trade.transactions t
JOIN trade.price_corridors c
  ON c.hs_code_6 = t.hs_code_6
 AND c.dest_country = t.dest_country
 AND c.year  = EXTRACT(YEAR FROM t.shipment_date)::int
 AND c.month = EXTRACT(MONTH FROM t.shipment_date)::int
 AND c.direction = t.direction
 AND c.reporting_country = t.reporting_country
WHERE t.unit_price > 0
  AND t.qty_kg > 0
  AND c.stddev_price > 0
  AND c.sample_count >= $1
  AND abs((t.unit_price - c.mean_price) / c.stddev_price) >= $2`

func (e *Engine) scorePrices(ctx context.Context, res *Result) error {
	rows, err := e.pool.Query(ctx, priceAnomaliesSQL, e.cfg.MinCorridorSample, e.cfg.ZMedium)
	if err != nil {
		return eris.Wrap(err, "risk: load price anomalies")
	}
	defer rows.Close()

	type anomaly struct {
		txnID              uuid.UUID
		price, mean, stdev float64
		sample             int64
		key                CorridorKey
	}
	var anomalies []anomaly
	for rows.Next() {
		var a anomaly
		if err := rows.Scan(&a.txnID, &a.price, &a.mean, &a.stdev, &a.sample,
			&a.key.HSCode6, &a.key.DestCountry, &a.key.Year, &a.key.Month,
			&a.key.Direction, &a.key.ReportingCountry); err != nil {
			return eris.Wrap(err, "risk: scan price anomaly")
		}
		anomalies = append(anomalies, a)
	}
	if err := rows.Err(); err != nil {
		return eris.Wrap(err, "risk: iterate price anomalies")
	}
	rows.Close()

	for _, a := range anomalies {
		z, zOK := PriceZ(a.price, a.mean, a.stdev)
		if !zOK {
			continue
		}
		score, reason, ok := EvaluatePriceZ(z, e.cfg)
		if !ok {
			continue
		}

		if err := e.store.Upsert(ctx, model.RiskScore{
			EntityType:    model.EntityShipment,
			EntityID:      a.txnID.String(),
			ScopeKey:      a.key.ScopeKey(),
			EngineVersion: e.cfg.EngineVersion,
			Score:         score,
			Confidence:    sampleConfidence(a.sample),
			Level:         model.LevelForScore(score),
			MainReason:    reason,
			Reasons: map[string]any{
				"z_score":         z,
				"unit_price":      a.price,
				"corridor_mean":   a.mean,
				"corridor_stddev": a.stdev,
				"sample_count":    a.sample,
			},
		}); err != nil {
			return err
		}
		res.PriceAnomalies++
	}
	return nil
}

const ghostCandidatesSQL = `
SELECT t.buyer_uuid, COALESCE(SUM(t.value_usd), 0)::float8, (o.website IS NOT NULL)
FROM trade.transactions t
JOIN trade.organizations o ON o.org_uuid = t.buyer_uuid
WHERE t.buyer_uuid IS NOT NULL
GROUP BY t.buyer_uuid, o.website
HAVING COALESCE(SUM(t.value_usd), 0) >= $1`

func (e *Engine) scoreGhosts(ctx context.Context, res *Result) error {
	rows, err := e.pool.Query(ctx, ghostCandidatesSQL, e.cfg.GhostMinValueUSD)
	if err != nil {
		return eris.Wrap(err, "risk: load ghost candidates")
	}
	defer rows.Close()

	type candidate struct {
		buyerID  uuid.UUID
		totalUSD float64
		hasWeb   bool
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.buyerID, &c.totalUSD, &c.hasWeb); err != nil {
			return eris.Wrap(err, "risk: scan ghost candidate")
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return eris.Wrap(err, "risk: iterate ghost candidates")
	}
	rows.Close()

	for _, c := range candidates {
		score, reason, ok := EvaluateGhost(c.totalUSD, c.hasWeb, e.cfg)
		if !ok {
			continue
		}
		if err := e.store.Upsert(ctx, model.RiskScore{
			EntityType:    model.EntityBuyer,
			EntityID:      c.buyerID.String(),
			ScopeKey:      "GHOST:GLOBAL",
			EngineVersion: e.cfg.EngineVersion,
			Score:         score,
			Confidence:    0.7,
			Level:         model.LevelForScore(score),
			MainReason:    reason,
			Reasons: map[string]any{
				"total_value_usd": c.totalUSD,
				"web_presence":    c.hasWeb,
			},
		}); err != nil {
			return err
		}
		res.Ghosts++
	}
	return nil
}

const monthlyVolumesSQL = `
SELECT buyer_uuid, date_trunc('month', shipment_date) AS period,
       COALESCE(SUM(value_usd), 0)::float8
FROM trade.transactions
WHERE buyer_uuid IS NOT NULL
GROUP BY buyer_uuid, date_trunc('month', shipment_date)
ORDER BY buyer_uuid, period`

const whaleBuyersSQL = `
SELECT DISTINCT buyer_uuid FROM trade.buyer_profiles WHERE classification = $1`

func (e *Engine) scoreSpikes(ctx context.Context, res *Result) error {
	whales, err := e.whaleBuyers(ctx)
	if err != nil {
		return err
	}

	series, order, err := e.monthlySeries(ctx)
	if err != nil {
		return err
	}

	for _, buyerID := range order {
		periods := series[buyerID]
		score, stats, ok := EvaluateSpike(periods, whales[buyerID], e.cfg)
		if !ok {
			if stats.Periods == 0 {
				res.SpikesSkipped++
			}
			continue
		}
		if err := e.store.Upsert(ctx, model.RiskScore{
			EntityType:    model.EntityBuyer,
			EntityID:      buyerID.String(),
			ScopeKey:      "SPIKE:GLOBAL",
			EngineVersion: e.cfg.EngineVersion,
			Score:         score,
			Confidence:    math.Min(1, float64(stats.Periods)/12),
			Level:         model.LevelForScore(score),
			MainReason:    ReasonVolumeSpike,
			Reasons: map[string]any{
				"baseline_mean": stats.Baseline,
				"latest":        stats.Latest,
				"pct_change":    stats.PctChange,
				"z_score":       stats.ZScore,
				"periods":       stats.Periods,
				"whale_dampened": whales[buyerID],
			},
		}); err != nil {
			return err
		}
		res.Spikes++
	}
	return nil
}

func (e *Engine) whaleBuyers(ctx context.Context) (map[uuid.UUID]bool, error) {
	rows, err := e.pool.Query(ctx, whaleBuyersSQL, profile.ClassWhale)
	if err != nil {
		return nil, eris.Wrap(err, "risk: load whale buyers")
	}
	defer rows.Close()

	whales := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "risk: scan whale buyer")
		}
		whales[id] = true
	}
	return whales, rows.Err()
}

// monthlySeries returns each buyer's month-by-month volume, oldest first,
// plus a deterministic iteration order.
func (e *Engine) monthlySeries(ctx context.Context) (map[uuid.UUID][]float64, []uuid.UUID, error) {
	rows, err := e.pool.Query(ctx, monthlyVolumesSQL)
	if err != nil {
		return nil, nil, eris.Wrap(err, "risk: load monthly volumes")
	}
	defer rows.Close()

	series := make(map[uuid.UUID][]float64)
	var order []uuid.UUID
	for rows.Next() {
		var (
			buyerID uuid.UUID
			period  any
			volume  float64
		)
		if err := rows.Scan(&buyerID, &period, &volume); err != nil {
			return nil, nil, eris.Wrap(err, "risk: scan monthly volume")
		}
		if _, seen := series[buyerID]; !seen {
			order = append(order, buyerID)
		}
		series[buyerID] = append(series[buyerID], volume)
	}
	return series, order, rows.Err()
}

// sampleConfidence maps corridor sample size to a 0-1 confidence; fifty
// shipments saturate it.
func sampleConfidence(sample int64) float64 {
	return math.Min(1, float64(sample)/50)
}
