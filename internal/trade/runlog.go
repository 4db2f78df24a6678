package trade

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tradescope/internal/db"
)

// RunEntry represents a row in trade.run_log.
type RunEntry struct {
	ID          int64          `json:"id"`
	Stage       string         `json:"stage"`
	Status      string         `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Processed   int64          `json:"processed"`
	Created     int64          `json:"created"`
	Updated     int64          `json:"updated"`
	Skipped     int64          `json:"skipped"`
	Error       string         `json:"error,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// RunResult holds the outcome counters of a batch stage, passed to Complete().
type RunResult struct {
	Processed int64          `json:"processed"`
	Created   int64          `json:"created"`
	Updated   int64          `json:"updated"`
	Skipped   int64          `json:"skipped"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// RunLog provides read/write access to the trade.run_log table. Every batch
// stage records a start/complete/fail entry for operational audit.
type RunLog struct {
	pool db.Pool
}

// NewRunLog creates a new RunLog backed by the given connection pool.
func NewRunLog(pool db.Pool) *RunLog {
	return &RunLog{pool: pool}
}

// Start records the beginning of a batch run and returns its ID.
func (r *RunLog) Start(ctx context.Context, stage string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO trade.run_log (stage, status, started_at)
		 VALUES ($1, 'running', now()) RETURNING id`,
		stage,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "runlog: start %s", stage)
	}
	return id, nil
}

// Complete marks a batch run as successfully completed.
func (r *RunLog) Complete(ctx context.Context, runID int64, result *RunResult) error {
	var metaJSON []byte
	if result != nil && result.Metadata != nil {
		var err error
		metaJSON, err = json.Marshal(result.Metadata)
		if err != nil {
			return eris.Wrap(err, "runlog: marshal metadata")
		}
	}

	res := RunResult{}
	if result != nil {
		res = *result
	}

	_, err := r.pool.Exec(ctx,
		`UPDATE trade.run_log
		 SET status = 'complete', completed_at = now(),
		     processed = $1, created = $2, updated = $3, skipped = $4, metadata = $5
		 WHERE id = $6`,
		res.Processed, res.Created, res.Updated, res.Skipped, metaJSON, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: complete run %d", runID)
	}
	return nil
}

// Fail marks a batch run as failed with an error message.
func (r *RunLog) Fail(ctx context.Context, runID int64, errMsg string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE trade.run_log
		 SET status = 'failed', completed_at = now(), error = $1
		 WHERE id = $2`,
		errMsg, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: fail run %d", runID)
	}
	return nil
}

// LastSuccess returns the started_at time of the most recent successful run
// for a stage. Returns nil if the stage has never completed.
func (r *RunLog) LastSuccess(ctx context.Context, stage string) (*time.Time, error) {
	var t time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT started_at FROM trade.run_log
		 WHERE stage = $1 AND status = 'complete'
		 ORDER BY started_at DESC LIMIT 1`,
		stage,
	).Scan(&t)
	if err != nil {
		if err.Error() == "no rows in result set" {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "runlog: last success for %s", stage)
	}
	return &t, nil
}

// ListAll returns all run log entries ordered by most recent first.
func (r *RunLog) ListAll(ctx context.Context) ([]RunEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, stage, status, started_at, completed_at, processed, created, updated, skipped, error, metadata
		 FROM trade.run_log ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list all")
	}
	defer rows.Close()

	var entries []RunEntry
	for rows.Next() {
		var e RunEntry
		var completedAt *time.Time
		var errStr *string
		var metaJSON []byte
		if err := rows.Scan(&e.ID, &e.Stage, &e.Status, &e.StartedAt, &completedAt,
			&e.Processed, &e.Created, &e.Updated, &e.Skipped, &errStr, &metaJSON); err != nil {
			return nil, eris.Wrap(err, "runlog: scan entry")
		}
		e.CompletedAt = completedAt
		if errStr != nil {
			e.Error = *errStr
		}
		if metaJSON != nil {
			_ = json.Unmarshal(metaJSON, &e.Metadata)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
