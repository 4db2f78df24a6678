package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName_Empty(t *testing.T) {
	assert.Equal(t, "", NormalizeName(""))
	assert.Equal(t, "", NormalizeName("   "))
}

func TestNormalizeName_Uppercase(t *testing.T) {
	assert.Equal(t, "GUANGZHOU CERAMICS", NormalizeName("Guangzhou Ceramics"))
}

func TestNormalizeName_StripLegalSuffixes(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Foshan Tiles Ltd", "FOSHAN TILES"},
		{"Foshan Tiles Ltd.", "FOSHAN TILES"},
		{"Foshan Tiles Limited", "FOSHAN TILES"},
		{"Foshan Tiles LLC", "FOSHAN TILES"},
		{"Foshan Tiles Inc.", "FOSHAN TILES"},
		{"Foshan Tiles Incorporated", "FOSHAN TILES"},
		{"Ceramica del Sur S.A.", "CERAMICA DEL SUR"},
		{"Bau Keramik GmbH", "BAU KERAMIK"},
		{"Porselen Ticaret A.S.", "PORSELEN TICARET"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.raw))
		})
	}
}

func TestNormalizeName_MultiSuffix(t *testing.T) {
	// Compound tails shed one suffix per pass until none remain.
	assert.Equal(t, "FOSHAN TILES", NormalizeName("Foshan Tiles Co., Ltd."))
	assert.Equal(t, "FOSHAN TILES", NormalizeName("FOSHAN TILES CO LTD"))
}

func TestNormalizeName_Punctuation(t *testing.T) {
	assert.Equal(t, "SMITH AND SONS TRADING", NormalizeName("Smith & Sons Trading"))
	assert.Equal(t, "OBRIEN IMPORTS", NormalizeName("O'Brien Imports"))
	assert.Equal(t, "EURO ASIA FREIGHT", NormalizeName("Euro-Asia Freight"))
}

func TestNormalizeName_Diacritics(t *testing.T) {
	assert.Equal(t, NormalizeName("GUVEN GIDA"), NormalizeName("GÜVEN GIDA"))
	assert.Equal(t, "CERAMICA MERIDA", NormalizeName("Cerámica Mérida"))
}

func TestNormalizeName_CollapseSpaces(t *testing.T) {
	assert.Equal(t, "FOSHAN TILES", NormalizeName("  Foshan   Tiles  "))
}

func TestNormalizeName_VariantsConverge(t *testing.T) {
	// Distinct raw spellings of the same entity must normalize identically.
	variants := []string{
		"FOSHAN OCEANLAND CERAMICS CO., LTD.",
		"Foshan Oceanland Ceramics Co Ltd",
		"FOSHAN OCEANLAND CERAMICS CO,LTD",
		"Foshan  Oceanland Ceramics",
	}
	want := NormalizeName(variants[0])
	for _, v := range variants[1:] {
		assert.Equal(t, want, NormalizeName(v), v)
	}
}

func TestNormalizeName_PureFunction(t *testing.T) {
	// Same input, same output — resolution depends on this being stable.
	in := "Cerámica Mérida, S.A. de C.V."
	assert.Equal(t, NormalizeName(in), NormalizeName(in))
}

func TestNormalizeNameSQL_Shape(t *testing.T) {
	sql := NormalizeNameSQL("s.buyer_name_raw")
	assert.Contains(t, sql, "s.buyer_name_raw")
	assert.Contains(t, sql, "UPPER")
	assert.Contains(t, sql, "TRIM")
	assert.Contains(t, sql, "REGEXP_REPLACE")
	assert.Contains(t, sql, "LTD")
	assert.Contains(t, sql, "GMBH")
}

func TestNormalizeNameSQL_CollapsesBeforeSuffixStrip(t *testing.T) {
	// The Go twin collapses whitespace before stripping legal suffixes, so
	// "FOO  CO  LTD" reduces to "FOO". The SQL expression must apply its
	// passes in the same order or doubled spaces break the suffix anchor
	// and the two normalizations diverge on the same raw name.
	sql := NormalizeNameSQL("buyer_name_raw")
	collapse := strings.Index(sql, `'\s+', ' ', 'g'`)
	suffix := strings.Index(sql, `(LLC|INC|`)
	assert.GreaterOrEqual(t, collapse, 0)
	assert.GreaterOrEqual(t, suffix, 0)
	assert.Less(t, collapse, suffix, "whitespace collapse must be the inner pass")

	assert.Equal(t, "FOO", NormalizeName("FOO  CO  LTD"))
}
