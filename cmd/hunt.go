package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/tradescope/internal/hunter"
)

var (
	huntMarkets  []string
	huntMonths   int
	huntMinValue float64
	huntMaxRisk  string
	huntLimit    int
)

var huntCmd = &cobra.Command{
	Use:   "hunt <hs-code-6>",
	Short: "Rank prospective buyers for a product lane",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		buyers, err := hunter.New(pool, cfg.Hunter).Hunt(ctx, hunter.Request{
			HSCode6:        args[0],
			DestCountries:  huntMarkets,
			MonthsLookback: huntMonths,
			MinValueUSD:    huntMinValue,
			MaxRiskLevel:   huntMaxRisk,
			Limit:          huntLimit,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(buyers)
	},
}

func init() {
	huntCmd.Flags().StringSliceVar(&huntMarkets, "market", nil, "destination countries to include (repeatable)")
	huntCmd.Flags().IntVar(&huntMonths, "months", 0, "lookback window in months (0 = configured default)")
	huntCmd.Flags().Float64Var(&huntMinValue, "min-value", 0, "minimum lane value in USD")
	huntCmd.Flags().StringVar(&huntMaxRisk, "max-risk", "", "risk ceiling: LOW, MEDIUM, HIGH, or ALL")
	huntCmd.Flags().IntVar(&huntLimit, "limit", 0, "result cap (0 = configured default)")
	rootCmd.AddCommand(huntCmd)
}
