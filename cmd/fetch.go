package main

import (
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tradescope/internal/fetcher"
)

var (
	fetchOut     string
	fetchExtract bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Download a customs release file over HTTP or FTP",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rawURL := args[0]

		out := fetchOut
		if out == "" {
			name := path.Base(rawURL)
			if name == "" || name == "/" || name == "." {
				return eris.New("fetch: cannot derive a file name, pass --out")
			}
			out = filepath.Join(cfg.Ingest.TempDir, name)
		}

		httpFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			RateLimiters: fetcher.DefaultRateLimiters(),
		})
		ftpFetcher := fetcher.NewFTPFetcher(fetcher.FTPOptions{
			Timeout: time.Duration(cfg.Ingest.FTPTimeout) * time.Second,
		})
		src, err := fetcher.ForURL(rawURL, httpFetcher, ftpFetcher)
		if err != nil {
			return err
		}

		n, err := src.DownloadToFile(ctx, rawURL, out)
		if err != nil {
			return err
		}
		zap.L().Info("release downloaded", zap.String("path", out), zap.Int64("bytes", n))

		if fetchExtract && strings.EqualFold(filepath.Ext(out), ".zip") {
			files, err := fetcher.ExtractZIP(out, filepath.Dir(out))
			if err != nil {
				return err
			}
			zap.L().Info("release extracted", zap.Strings("files", files))
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchOut, "out", "", "destination path (default: temp dir + URL basename)")
	fetchCmd.Flags().BoolVar(&fetchExtract, "extract", false, "extract zip archives after download")
	rootCmd.AddCommand(fetchCmd)
}
