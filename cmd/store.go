package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/tradescope/internal/db"
	"github.com/sells-group/tradescope/internal/trade"
)

func connect(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := db.Connect(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "connect store")
	}
	return pool, nil
}

// runStage wraps a batch stage in a run-log entry so every invocation is
// auditable, including failures.
func runStage(ctx context.Context, pool db.Pool, stage string, fn func(ctx context.Context) (*trade.RunResult, error)) error {
	log := trade.NewRunLog(pool)
	runID, err := log.Start(ctx, stage)
	if err != nil {
		return err
	}

	result, err := fn(ctx)
	if err != nil {
		if failErr := log.Fail(ctx, runID, err.Error()); failErr != nil {
			return eris.Wrapf(err, "record failure: %v", failErr)
		}
		return err
	}
	return log.Complete(ctx, runID, result)
}
