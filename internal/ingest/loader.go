package ingest

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/tradescope/internal/config"
	"github.com/sells-group/tradescope/internal/db"
	"github.com/sells-group/tradescope/internal/fetcher"
	"github.com/sells-group/tradescope/internal/model"
)

const flushBatch = 5000

var stdShipmentCols = []string{
	"std_id", "reporting_country", "direction", "origin_country", "dest_country",
	"hs_code_raw", "hs_code_6", "buyer_name_raw", "supplier_name_raw",
	"shipment_date", "export_date", "import_date",
	"qty_kg", "value_usd", "price_per_kg", "source_file", "hidden_buyer", "processed_at",
}

// Loader parses raw release files and appends standardized shipments.
// Re-ingesting the same file is a no-op: std_id is a content hash and the
// insert skips conflicts.
type Loader struct {
	pool db.Pool
	reg  *Registry
	cfg  config.IngestConfig
}

// NewLoader wires a loader to a pool and a mapping registry.
func NewLoader(pool db.Pool, reg *Registry, cfg config.IngestConfig) *Loader {
	return &Loader{pool: pool, reg: reg, cfg: cfg}
}

// FileResult reports the outcome of one file parse.
type FileResult struct {
	Path     string
	Rows     int64 // rows standardized
	Inserted int64 // rows new to the store
	Skipped  int64 // blank lines, repeated headers
	Rejected int64 // rows the spec could not map
}

// IngestFile parses one file under the spec for country/direction and
// bulk-loads the results.
func (l *Loader) IngestFile(ctx context.Context, path, country, direction string) (*FileResult, error) {
	spec, err := l.reg.Lookup(country, direction)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(
		zap.String("component", "ingest.loader"),
		zap.String("file", filepath.Base(path)),
		zap.String("mapping", spec.Key()),
	)

	std := NewStandardizer(spec, filepath.Base(path))
	res := &FileResult{Path: path}
	batch := make([][]any, 0, flushBatch)

	flush := func() error {
		n, err := db.BulkUpsert(ctx, l.pool, db.UpsertConfig{
			Table:        "trade.std_shipments",
			Columns:      stdShipmentCols,
			ConflictKeys: []string{"std_id"},
			SkipConflict: true,
		}, batch)
		if err != nil {
			return eris.Wrapf(err, "ingest: load batch from %s", path)
		}
		res.Inserted += n
		batch = batch[:0]
		return nil
	}

	handle := func(raw []string) error {
		sh, err := std.Row(raw)
		if err != nil {
			res.Rejected++
			log.Debug("row rejected", zap.Error(err))
			return nil
		}
		if sh == nil {
			res.Skipped++
			return nil
		}
		res.Rows++
		batch = append(batch, shipmentRow(sh))
		if len(batch) >= flushBatch {
			return flush()
		}
		return nil
	}

	switch spec.Format {
	case "xlsx":
		rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{
			SheetName: spec.Sheet,
			SkipRows:  spec.SkipRows,
		})
		if err != nil {
			return nil, err
		}
		for _, raw := range rows {
			if err := handle(raw); err != nil {
				return nil, err
			}
		}
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: open %s", path)
		}
		defer f.Close()

		delim := ','
		if spec.Delimiter != "" {
			delim = rune(spec.Delimiter[0])
		}
		rowCh, errCh := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{
			Delimiter: delim,
			TrimSpace: true,
		})
		seen := 0
		for raw := range rowCh {
			seen++
			if seen <= spec.SkipRows {
				res.Skipped++
				continue
			}
			if err := handle(raw); err != nil {
				return nil, err
			}
		}
		if err := <-errCh; err != nil {
			return nil, err
		}
	}

	if len(batch) > 0 {
		if err := flush(); err != nil {
			return nil, err
		}
	}

	log.Info("file ingested",
		zap.Int64("rows", res.Rows),
		zap.Int64("inserted", res.Inserted),
		zap.Int64("skipped", res.Skipped),
		zap.Int64("rejected", res.Rejected),
	)
	return res, nil
}

// Release files are named <COUNTRY>_<DIRECTION>_<anything>.<ext>, e.g.
// BR_EXPORT_2025-06.csv. The prefix selects the mapping spec.
var fileNameRe = regexp.MustCompile(`^([A-Za-z]{2,3})_(IMPORT|EXPORT)_`)

// SplitFileName extracts mapping country and direction from a release
// file name.
func SplitFileName(name string) (country, direction string, ok bool) {
	m := fileNameRe.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return "", "", false
	}
	return strings.ToUpper(m[1]), m[2], true
}

// IngestDir ingests every recognized release file in dir, a few files at a
// time. Unrecognized names are logged and skipped, not errors: release
// directories accumulate readme and checksum files.
func (l *Loader) IngestDir(ctx context.Context, dir string) ([]*FileResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read dir %s", dir)
	}

	log := zap.L().With(zap.String("component", "ingest.loader"), zap.String("dir", dir))

	conc := l.cfg.Concurrency
	if conc <= 0 {
		conc = 4
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(conc)

	results := make([]*FileResult, len(entries))
	for i, entry := range entries {
		i, entry := i, entry
		if entry.IsDir() {
			continue
		}
		switch ext := strings.ToLower(filepath.Ext(entry.Name())); ext {
		case ".csv", ".txt", ".xlsx":
		default:
			continue
		}
		country, direction, ok := SplitFileName(entry.Name())
		if !ok {
			log.Warn("unrecognized release file name", zap.String("file", entry.Name()))
			continue
		}

		g.Go(func() error {
			res, err := l.IngestFile(gctx, filepath.Join(dir, entry.Name()), country, direction)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := results[:0]
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func shipmentRow(sh *model.StandardizedShipment) []any {
	return []any{
		sh.StdID, sh.ReportingCountry, string(sh.Direction), sh.OriginCountry, sh.DestCountry,
		sh.HSCodeRaw, sh.HSCode6, sh.BuyerNameRaw, sh.SupplierNameRaw,
		sh.ShipmentDate, sh.ExportDate, sh.ImportDate,
		sh.QtyKg, sh.ValueUSD, sh.PricePerKg, sh.SourceFile, sh.HiddenBuyer, sh.ProcessedAt,
	}
}
