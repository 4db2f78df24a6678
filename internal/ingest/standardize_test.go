package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func brExportSpec() *MappingSpec {
	return &MappingSpec{
		Country:     "BR",
		Direction:   "EXPORT",
		Format:      "csv",
		DateFormats: []string{"2006-01-02", "02/01/2006"},
		DefaultUnit: "KG",
		Columns: map[string]int{
			FieldHSCode:       0,
			FieldSupplierName: 1,
			FieldBuyerName:    2,
			FieldDestCountry:  3,
			FieldExportDate:   4,
			FieldQuantity:     5,
			FieldValueUSD:     6,
		},
	}
}

func TestStandardizerRow(t *testing.T) {
	std := NewStandardizer(brExportSpec(), "BR_EXPORT_2025-06.csv")
	sh, err := std.Row([]string{
		"6907.21.00", "PORTO TILES SA", "PACIFIC IMPORTS LLC", "US",
		"2025-06-14", "24,500", "18,375.00",
	})
	require.NoError(t, err)
	require.NotNil(t, sh)

	assert.Equal(t, "690721", sh.HSCode6)
	assert.Equal(t, "6907.21.00", sh.HSCodeRaw)
	assert.Equal(t, "BR", sh.ReportingCountry)
	assert.Equal(t, "BR", sh.OriginCountry, "export release implies own country as origin")
	assert.Equal(t, "US", sh.DestCountry)
	assert.Equal(t, "PACIFIC IMPORTS LLC", sh.BuyerNameRaw)
	assert.False(t, sh.HiddenBuyer)

	require.NotNil(t, sh.ExportDate)
	assert.Equal(t, time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC), *sh.ExportDate)
	require.NotNil(t, sh.ShipmentDate, "export date backfills shipment date")
	assert.Equal(t, *sh.ExportDate, *sh.ShipmentDate)

	require.NotNil(t, sh.QtyKg)
	assert.InDelta(t, 24500.0, *sh.QtyKg, 1e-9)
	assert.InDelta(t, 18375.0, sh.ValueUSD, 1e-9)
	require.NotNil(t, sh.PricePerKg)
	assert.InDelta(t, 0.75, *sh.PricePerKg, 1e-9)
	assert.NotEmpty(t, sh.StdID)
}

func TestStandardizerRow_PlaceholderBuyerOnExport(t *testing.T) {
	std := NewStandardizer(brExportSpec(), "BR_EXPORT_2025-06.csv")
	sh, err := std.Row([]string{
		"690721", "PORTO TILES SA", "TO THE ORDER", "US",
		"2025-06-14", "100", "75",
	})
	require.NoError(t, err)
	require.NotNil(t, sh)
	assert.True(t, sh.HiddenBuyer)
}

func TestStandardizerRow_SkipsHeadersAndBlanks(t *testing.T) {
	std := NewStandardizer(brExportSpec(), "f.csv")

	sh, err := std.Row([]string{"HS CODE", "EXPORTER", "CONSIGNEE", "DEST", "DATE", "QTY", "FOB"})
	require.NoError(t, err)
	assert.Nil(t, sh)

	sh, err = std.Row([]string{"", "", "", "", "", "", ""})
	require.NoError(t, err)
	assert.Nil(t, sh)
}

func TestStandardizerRow_RejectsShortHS(t *testing.T) {
	std := NewStandardizer(brExportSpec(), "f.csv")
	_, err := std.Row([]string{"6907", "A", "B", "US", "2025-06-14", "1", "1"})
	assert.Error(t, err)
}

func TestStandardizerRow_UnitConversion(t *testing.T) {
	spec := brExportSpec()
	spec.Columns[FieldQuantityUnit] = 7
	std := NewStandardizer(spec, "f.csv")

	tests := []struct {
		unit string
		qty  string
		want float64
	}{
		{"MT", "2", 2000},
		{"LB", "1000", 453.59237},
		{"G", "500", 0.5},
		{"KGS", "7", 7},
	}
	for _, tt := range tests {
		sh, err := std.Row([]string{"690721", "A", "B", "US", "2025-06-14", tt.qty, "100", tt.unit})
		require.NoError(t, err, tt.unit)
		require.NotNil(t, sh.QtyKg, tt.unit)
		assert.InDelta(t, tt.want, *sh.QtyKg, 1e-6, tt.unit)
	}

	// Units without a kg conversion keep the row but drop the weight.
	sh, err := std.Row([]string{"690721", "A", "B", "US", "2025-06-14", "144", "100", "PCS"})
	require.NoError(t, err)
	assert.Nil(t, sh.QtyKg)
	assert.Nil(t, sh.PricePerKg)
}

func TestStandardizerRow_StableID(t *testing.T) {
	std := NewStandardizer(brExportSpec(), "BR_EXPORT_2025-06.csv")
	raw := []string{"690721", "A", "B", "US", "2025-06-14", "10", "100"}

	first, err := std.Row(raw)
	require.NoError(t, err)
	second, err := std.Row(raw)
	require.NoError(t, err)
	assert.Equal(t, first.StdID, second.StdID)

	other, err := std.Row([]string{"690721", "A", "B", "US", "2025-06-14", "10", "101"})
	require.NoError(t, err)
	assert.NotEqual(t, first.StdID, other.StdID)
}

func TestHS6(t *testing.T) {
	assert.Equal(t, "690721", HS6("6907.21.00"))
	assert.Equal(t, "690721", HS6("69072100"))
	assert.Equal(t, "690721", HS6(" 6907 21 "))
	assert.Equal(t, "", HS6("6907"))
	assert.Equal(t, "", HS6("ceramic tiles"))
}

func TestParseValue(t *testing.T) {
	for cell, want := range map[string]float64{
		"18,375.00":  18375,
		"$1,200":     1200,
		"-42.5":      -42.5,
		"":           0,
		"USD 99.10":  99.10,
	} {
		got, err := parseValue(cell)
		require.NoError(t, err, cell)
		assert.InDelta(t, want, got, 1e-9, cell)
	}
}
