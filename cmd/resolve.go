package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sells-group/tradescope/internal/identity"
	"github.com/sells-group/tradescope/internal/trade"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve raw trader names into organizations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		return runStage(ctx, pool, "resolve", func(ctx context.Context) (*trade.RunResult, error) {
			res, err := identity.NewResolver(pool).Run(ctx)
			if err != nil {
				return nil, err
			}
			return &trade.RunResult{
				Processed: res.RowsResolved,
				Created:   res.OrgsCreated,
				Updated:   res.OrgsUpdated,
				Metadata:  map[string]any{"hidden_buyers": res.HiddenBuyers},
			}, nil
		})
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
