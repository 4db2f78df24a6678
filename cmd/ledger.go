package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tradescope/internal/ledger"
	"github.com/sells-group/tradescope/internal/trade"
)

var ledgerVerify bool

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Load resolved shipments into the immutable transaction ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		return runStage(ctx, pool, "ledger", func(ctx context.Context) (*trade.RunResult, error) {
			b := ledger.NewBuilder(pool)
			res, err := b.Load(ctx)
			if err != nil {
				return nil, err
			}

			out := &trade.RunResult{
				Processed: res.Processed,
				Created:   res.Created,
				Skipped:   res.Skipped,
			}
			if ledgerVerify {
				stdRows, ledgerRows, err := b.VerifyCounts(ctx)
				if err != nil {
					return nil, err
				}
				zap.L().Info("ledger count check",
					zap.Int64("std_rows", stdRows),
					zap.Int64("ledger_rows", ledgerRows),
				)
				out.Metadata = map[string]any{"std_rows": stdRows, "ledger_rows": ledgerRows}
			}
			return out, nil
		})
	},
}

func init() {
	ledgerCmd.Flags().BoolVar(&ledgerVerify, "verify", false, "compare source and ledger row counts after loading")
	rootCmd.AddCommand(ledgerCmd)
}
