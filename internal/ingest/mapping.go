// Package ingest turns raw customs release files into standardized
// shipment rows. Per-country column layouts are declarative YAML mapping
// specs, not code branches: adding a country means adding a file.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/tradescope/internal/model"
)

// Canonical field names a mapping spec may bind to a column index.
const (
	FieldHSCode        = "hs_code"
	FieldBuyerName     = "buyer_name"
	FieldSupplierName  = "supplier_name"
	FieldOriginCountry = "origin_country"
	FieldDestCountry   = "dest_country"
	FieldShipmentDate  = "shipment_date"
	FieldExportDate    = "export_date"
	FieldImportDate    = "import_date"
	FieldQuantity      = "quantity"
	FieldQuantityUnit  = "quantity_unit"
	FieldValueUSD      = "value_usd"
)

// MappingSpec describes one country/direction/format release layout.
type MappingSpec struct {
	Country     string         `yaml:"country"`
	Direction   string         `yaml:"direction"`
	Format      string         `yaml:"format"` // csv | xlsx
	Delimiter   string         `yaml:"delimiter,omitempty"`
	SkipRows    int            `yaml:"skip_rows,omitempty"`
	Sheet       string         `yaml:"sheet,omitempty"`
	DateFormats []string       `yaml:"date_formats"`
	DefaultUnit string         `yaml:"default_unit,omitempty"` // when the file carries no unit column
	Columns     map[string]int `yaml:"columns"`                // canonical field -> zero-based column
}

// Validate checks the spec binds the minimum set of fields.
func (s *MappingSpec) Validate() error {
	if s.Country == "" {
		return eris.New("ingest: mapping spec missing country")
	}
	switch model.Direction(s.Direction) {
	case model.DirectionImport, model.DirectionExport:
	default:
		return eris.Errorf("ingest: mapping spec %s has invalid direction %q", s.Country, s.Direction)
	}
	switch s.Format {
	case "csv", "xlsx":
	default:
		return eris.Errorf("ingest: mapping spec %s/%s has invalid format %q", s.Country, s.Direction, s.Format)
	}
	for _, required := range []string{FieldHSCode, FieldValueUSD} {
		if _, ok := s.Columns[required]; !ok {
			return eris.Errorf("ingest: mapping spec %s/%s missing column %q", s.Country, s.Direction, required)
		}
	}
	if len(s.DateFormats) == 0 {
		return eris.Errorf("ingest: mapping spec %s/%s has no date formats", s.Country, s.Direction)
	}
	return nil
}

// Key identifies a spec in the registry.
func (s *MappingSpec) Key() string {
	return specKey(s.Country, s.Direction)
}

func specKey(country, direction string) string {
	return strings.ToUpper(country) + ":" + strings.ToUpper(direction)
}

// Registry holds every loaded mapping spec keyed by country and direction.
type Registry struct {
	specs map[string]*MappingSpec
}

// LoadRegistry reads every .yaml file in dir as a mapping spec.
func LoadRegistry(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read mapping dir %s", dir)
	}

	reg := &Registry{specs: make(map[string]*MappingSpec)}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: read mapping %s", entry.Name())
		}

		var spec MappingSpec
		if err := yaml.Unmarshal(raw, &spec); err != nil {
			return nil, eris.Wrapf(err, "ingest: parse mapping %s", entry.Name())
		}
		if err := spec.Validate(); err != nil {
			return nil, eris.Wrapf(err, "ingest: invalid mapping %s", entry.Name())
		}

		key := spec.Key()
		if _, dup := reg.specs[key]; dup {
			return nil, eris.Errorf("ingest: duplicate mapping for %s in %s", key, entry.Name())
		}
		reg.specs[key] = &spec
	}
	return reg, nil
}

// Lookup returns the spec for a country and direction.
func (r *Registry) Lookup(country, direction string) (*MappingSpec, error) {
	spec, ok := r.specs[specKey(country, direction)]
	if !ok {
		return nil, eris.Errorf("ingest: no mapping for %s", specKey(country, direction))
	}
	return spec, nil
}

// Len reports the number of loaded specs.
func (r *Registry) Len() int {
	return len(r.specs)
}

// String lists the loaded keys, for startup logging.
func (r *Registry) String() string {
	keys := make([]string, 0, len(r.specs))
	for k := range r.specs {
		keys = append(keys, k)
	}
	return fmt.Sprintf("registry(%s)", strings.Join(keys, ","))
}
