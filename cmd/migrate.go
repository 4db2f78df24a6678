package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/tradescope/internal/trade"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		return trade.Migrate(ctx, pool)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
