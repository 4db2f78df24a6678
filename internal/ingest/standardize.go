package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tradescope/internal/identity"
	"github.com/sells-group/tradescope/internal/model"
)

// Kilograms per unit for the quantity units customs portals publish in.
var unitToKg = map[string]float64{
	"KG":  1,
	"KGS": 1,
	"G":   0.001,
	"MT":  1000,
	"TON": 1000,
	"T":   1000,
	"LB":  0.45359237,
	"LBS": 0.45359237,
}

// Standardizer maps raw file rows onto shipments using one mapping spec.
type Standardizer struct {
	spec       *MappingSpec
	sourceFile string
	now        func() time.Time
}

// NewStandardizer builds a standardizer for one file under one spec.
func NewStandardizer(spec *MappingSpec, sourceFile string) *Standardizer {
	return &Standardizer{spec: spec, sourceFile: sourceFile, now: time.Now}
}

// Row converts one raw row. A nil shipment with nil error means the row is
// skippable (blank line, repeated header).
func (s *Standardizer) Row(raw []string) (*model.StandardizedShipment, error) {
	if blankRow(raw) {
		return nil, nil
	}

	hsRaw := s.cell(raw, FieldHSCode)
	hs6 := HS6(hsRaw)
	if hs6 == "" {
		// Repeated headers and subtotal lines surface here.
		if looksLikeHeader(hsRaw) {
			return nil, nil
		}
		return nil, eris.Errorf("ingest: row has no usable hs code %q", hsRaw)
	}

	value, err := parseValue(s.cell(raw, FieldValueUSD))
	if err != nil {
		return nil, eris.Wrap(err, "ingest: parse value_usd")
	}

	sh := &model.StandardizedShipment{
		ReportingCountry: strings.ToUpper(s.spec.Country),
		Direction:        model.Direction(strings.ToUpper(s.spec.Direction)),
		OriginCountry:    strings.ToUpper(s.cell(raw, FieldOriginCountry)),
		DestCountry:      strings.ToUpper(s.cell(raw, FieldDestCountry)),
		HSCodeRaw:        hsRaw,
		HSCode6:          hs6,
		BuyerNameRaw:     s.cell(raw, FieldBuyerName),
		SupplierNameRaw:  s.cell(raw, FieldSupplierName),
		ValueUSD:         value,
		SourceFile:       s.sourceFile,
		ProcessedAt:      s.now().UTC(),
	}

	// Import releases report their own country as destination, export
	// releases as origin; fill whichever side the file leaves implicit.
	if sh.Direction == model.DirectionImport && sh.DestCountry == "" {
		sh.DestCountry = sh.ReportingCountry
	}
	if sh.Direction == model.DirectionExport && sh.OriginCountry == "" {
		sh.OriginCountry = sh.ReportingCountry
	}

	for field, dst := range map[string]**time.Time{
		FieldShipmentDate: &sh.ShipmentDate,
		FieldExportDate:   &sh.ExportDate,
		FieldImportDate:   &sh.ImportDate,
	} {
		if cell := s.cell(raw, field); cell != "" {
			t, err := s.parseDate(cell)
			if err != nil {
				return nil, eris.Wrapf(err, "ingest: parse %s", field)
			}
			*dst = &t
		}
	}
	if sh.ShipmentDate == nil {
		if sh.Direction == model.DirectionExport && sh.ExportDate != nil {
			sh.ShipmentDate = sh.ExportDate
		} else if sh.ImportDate != nil {
			sh.ShipmentDate = sh.ImportDate
		}
	}

	if qtyCell := s.cell(raw, FieldQuantity); qtyCell != "" {
		qty, err := parseValue(qtyCell)
		if err != nil {
			return nil, eris.Wrap(err, "ingest: parse quantity")
		}
		unit := strings.ToUpper(s.cell(raw, FieldQuantityUnit))
		if unit == "" {
			unit = strings.ToUpper(s.spec.DefaultUnit)
		}
		if factor, ok := unitToKg[unit]; ok && qty > 0 {
			kg := qty * factor
			sh.QtyKg = &kg
			if kg > 0 && value > 0 {
				ppk := value / kg
				sh.PricePerKg = &ppk
			}
		}
		// Unknown units (units, pairs, liters) keep the row but drop the
		// weight; price analysis needs kg, the ledger does not.
	}

	if sh.Direction == model.DirectionExport && identity.IsPlaceholder(sh.BuyerNameRaw) {
		sh.HiddenBuyer = true
	}

	sh.StdID = stdID(sh, raw)
	return sh, nil
}

func (s *Standardizer) cell(raw []string, field string) string {
	idx, ok := s.spec.Columns[field]
	if !ok || idx < 0 || idx >= len(raw) {
		return ""
	}
	return strings.TrimSpace(raw[idx])
}

func (s *Standardizer) parseDate(cell string) (time.Time, error) {
	for _, layout := range s.spec.DateFormats {
		if t, err := time.Parse(layout, cell); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, eris.Errorf("ingest: unparseable date %q", cell)
}

// HS6 truncates a raw HS code to its 6-digit heading, dropping punctuation.
// Codes shorter than 6 digits have no heading and are rejected as empty.
func HS6(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
			if digits.Len() == 6 {
				return digits.String()
			}
		}
	}
	return ""
}

// parseValue handles thousands separators and currency junk customs
// portals embed in numeric cells.
func parseValue(cell string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return -1
		}
	}, strings.ReplaceAll(cell, ",", ""))
	if cleaned == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "ingest: bad numeric cell %q", cell)
	}
	return v, nil
}

func blankRow(raw []string) bool {
	for _, c := range raw {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func looksLikeHeader(hsCell string) bool {
	upper := strings.ToUpper(strings.TrimSpace(hsCell))
	if upper == "" {
		return true
	}
	for _, marker := range []string{"HS", "CODE", "TOTAL"} {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

// stdID is the natural key for idempotent reloads: the same row in the same
// release file always produces the same id, so re-ingesting a file is a
// no-op at the ledger boundary.
func stdID(sh *model.StandardizedShipment, raw []string) string {
	h := sha256.New()
	h.Write([]byte(sh.ReportingCountry))
	h.Write([]byte{0})
	h.Write([]byte(sh.Direction))
	h.Write([]byte{0})
	h.Write([]byte(sh.SourceFile))
	for _, c := range raw {
		h.Write([]byte{0})
		h.Write([]byte(strings.TrimSpace(c)))
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}
