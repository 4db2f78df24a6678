package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/tradescope/internal/trade"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show the batch run audit log",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		entries, err := trade.NewRunLog(pool).ListAll(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTAGE\tSTATUS\tSTARTED\tPROCESSED\tCREATED\tUPDATED\tSKIPPED\tERROR")
		for _, e := range entries {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
				e.ID, e.Stage, e.Status, e.StartedAt.Format("2006-01-02 15:04:05"),
				e.Processed, e.Created, e.Updated, e.Skipped, e.Error)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
}
