package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sells-group/tradescope/internal/risk"
	"github.com/sells-group/tradescope/internal/trade"
)

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "Rebuild price corridors and score risk signals",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		return runStage(ctx, pool, "risk", func(ctx context.Context) (*trade.RunResult, error) {
			res, err := risk.NewEngine(pool, cfg.Risk).Run(ctx)
			if err != nil {
				return nil, err
			}
			return &trade.RunResult{
				Processed: res.PriceAnomalies + res.Ghosts + res.Spikes,
				Created:   res.CorridorsBuilt,
				Skipped:   res.SpikesSkipped,
				Metadata: map[string]any{
					"corridors":       res.CorridorsBuilt,
					"excluded_rows":   res.ExcludedRows,
					"price_anomalies": res.PriceAnomalies,
					"ghosts":          res.Ghosts,
					"spikes":          res.Spikes,
				},
			}, nil
		})
	},
}

func init() {
	rootCmd.AddCommand(riskCmd)
}
