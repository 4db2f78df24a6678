// Package monitoring watches pipeline health: stage freshness, run failure
// rates, identity dedup quality, and the hidden-buyer backlog. Alerts go to
// a webhook; everything also lands in the structured log.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tradescope/internal/db"
	"github.com/sells-group/tradescope/internal/identity"
)

// StageStats summarizes one stage's runs inside the lookback window.
type StageStats struct {
	Stage       string     `json:"stage"`
	Total       int64      `json:"total"`
	Failed      int64      `json:"failed"`
	LastSuccess *time.Time `json:"last_success,omitempty"`
}

// Snapshot is a point-in-time view of pipeline health.
type Snapshot struct {
	Stages        []StageStats `json:"stages"`
	DuplicateOrgs int64        `json:"duplicate_orgs"`  // normalized-name collisions in organizations
	HiddenBacklog int64        `json:"hidden_backlog"`  // exports still awaiting a mirror match
	LookbackHours int          `json:"lookback_hours"`
	CollectedAt   time.Time    `json:"collected_at"`
}

// Collector gathers health metrics from the store.
type Collector struct {
	pool     db.Pool
	resolver *identity.Resolver
}

func NewCollector(pool db.Pool) *Collector {
	return &Collector{pool: pool, resolver: identity.NewResolver(pool)}
}

const stageStatsSQL = `
SELECT stage,
       COUNT(*),
       COUNT(*) FILTER (WHERE status = 'failed'),
       MAX(completed_at) FILTER (WHERE status = 'complete')
FROM trade.run_log
WHERE started_at >= now() - make_interval(hours => $1)
GROUP BY stage
ORDER BY stage`

const hiddenBacklogSQL = `
SELECT COUNT(*)
FROM trade.transactions
WHERE direction = 'EXPORT' AND hidden_buyer AND buyer_uuid IS NULL`

// Collect builds a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	snap := &Snapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}

	rows, err := c.pool.Query(ctx, stageStatsSQL, lookbackHours)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: stage stats")
	}
	defer rows.Close()
	for rows.Next() {
		var s StageStats
		if err := rows.Scan(&s.Stage, &s.Total, &s.Failed, &s.LastSuccess); err != nil {
			return nil, eris.Wrap(err, "monitoring: scan stage stats")
		}
		snap.Stages = append(snap.Stages, s)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "monitoring: stage stats rows")
	}

	if snap.DuplicateOrgs, err = c.resolver.DuplicateNameCount(ctx); err != nil {
		return nil, err
	}

	if err := c.pool.QueryRow(ctx, hiddenBacklogSQL).Scan(&snap.HiddenBacklog); err != nil {
		return nil, eris.Wrap(err, "monitoring: hidden backlog")
	}

	return snap, nil
}
