package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/tradescope/internal/ingest"
	"github.com/sells-group/tradescope/internal/trade"
)

var (
	ingestFile      string
	ingestCountry   string
	ingestDirection string
	ingestDir       string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Parse raw customs release files into standardized shipments",
	RunE: func(cmd *cobra.Command, args []string) error {
		if ingestFile == "" && ingestDir == "" {
			return eris.New("ingest: pass --file or --dir")
		}

		ctx := cmd.Context()
		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		reg, err := ingest.LoadRegistry(cfg.Ingest.MappingDir)
		if err != nil {
			return err
		}
		loader := ingest.NewLoader(pool, reg, cfg.Ingest)

		return runStage(ctx, pool, "ingest", func(ctx context.Context) (*trade.RunResult, error) {
			var results []*ingest.FileResult
			if ingestFile != "" {
				if ingestCountry == "" || ingestDirection == "" {
					return nil, eris.New("ingest: --file needs --country and --direction")
				}
				res, err := loader.IngestFile(ctx, ingestFile, ingestCountry, ingestDirection)
				if err != nil {
					return nil, err
				}
				results = append(results, res)
			} else {
				dirResults, err := loader.IngestDir(ctx, ingestDir)
				if err != nil {
					return nil, err
				}
				results = dirResults
			}

			out := &trade.RunResult{Metadata: map[string]any{"files": len(results)}}
			for _, r := range results {
				out.Processed += r.Rows
				out.Created += r.Inserted
				out.Skipped += r.Skipped + r.Rejected
			}
			return out, nil
		})
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "single release file to ingest")
	ingestCmd.Flags().StringVar(&ingestCountry, "country", "", "reporting country for --file")
	ingestCmd.Flags().StringVar(&ingestDirection, "direction", "", "IMPORT or EXPORT for --file")
	ingestCmd.Flags().StringVar(&ingestDir, "dir", "", "directory of release files named COUNTRY_DIRECTION_*")
	rootCmd.AddCommand(ingestCmd)
}
