package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sells-group/tradescope/internal/mirror"
	"github.com/sells-group/tradescope/internal/trade"
)

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Infer obscured buyers from partner-country import declarations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		return runStage(ctx, pool, "mirror", func(ctx context.Context) (*trade.RunResult, error) {
			res, err := mirror.NewMatcher(pool, cfg.Mirror).Run(ctx)
			if err != nil {
				return nil, err
			}
			return &trade.RunResult{
				Processed: res.Processed,
				Created:   res.Matched,
				Skipped:   res.NoCandidate + res.BelowThreshold + res.LostRace,
				Metadata: map[string]any{
					"no_candidate":    res.NoCandidate,
					"below_threshold": res.BelowThreshold,
					"lost_race":       res.LostRace,
				},
			}, nil
		})
	},
}

func init() {
	rootCmd.AddCommand(mirrorCmd)
}
