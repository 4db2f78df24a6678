// Package identity resolves raw company name strings from customs
// declarations into stable organizations, merging spelling variants and
// tracking entities that trade in both roles.
package identity

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixes lists legal entity suffixes stripped during normalization.
// Customs data mixes jurisdictions, so the set is broader than any single
// country's registry.
var legalSuffixes = []string{
	" LLC", " L.L.C.", " L.L.C",
	" INC", " INC.", " INCORPORATED",
	" CORP", " CORP.", " CORPORATION",
	" LTD", " LTD.", " LIMITED",
	" PLC", " P.L.C.",
	" LP", " L.P.", " L.P",
	" LLP", " L.L.P.",
	" CO", " CO.", " COMPANY",
	" SA", " S.A.", " S.A",
	" SL", " S.L.", " SRL", " S.R.L.",
	" GMBH", " AG", " BV", " B.V.", " NV", " N.V.",
	" PTE", " PVT", " PTY",
	" JSC", " OOO", " LLP",
	" FZE", " FZCO", " DMCC",
	" AS", " A.S.", " A.S", " STI", " LTD STI",
}

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// asciiFold strips diacritics so "GÜVEN GIDA" and "GUVEN GIDA" normalize
// identically across source encodings.
var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName standardizes a raw company name for matching by:
//  1. Trimming whitespace and folding diacritics to ASCII
//  2. Converting to uppercase
//  3. Removing punctuation (commas, periods, quotes, dashes, ampersands)
//  4. Stripping legal entity suffixes, repeatedly (handles "CO LTD")
//  5. Collapsing multiple spaces into single spaces
//
// Two raw strings that normalize identically under the same country are
// treated as the same organization. The function is pure; deduplication
// quality is monitored, not enforced (see Resolver.DuplicateNameCount).
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	if folded, _, err := transform.String(asciiFold, name); err == nil {
		name = folded
	}

	name = strings.ToUpper(name)

	// Remove common punctuation.
	// Commas become spaces, not nothing: "CO,LTD" must split into two
	// suffix tokens, not fuse into "COLTD".
	name = strings.NewReplacer(
		",", " ",
		".", "",
		"'", "",
		"\"", "",
		"&", "AND",
		"-", " ",
		"(", " ",
		")", " ",
		"/", " ",
	).Replace(name)

	name = multiSpaceRe.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)

	// Strip legal suffixes until none remain; multi-part tails like
	// "IMPORT EXPORT CO LTD" shed one suffix per pass.
	for {
		stripped := false
		for _, suffix := range legalSuffixes {
			// Suffix list carries dotted variants for callers that skip
			// punctuation removal; after the replacer only the plain forms hit.
			if strings.HasSuffix(name, suffix) {
				name = strings.TrimSpace(strings.TrimSuffix(name, suffix))
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}

	name = multiSpaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// NormalizeNameSQL returns a SQL expression normalizing a name column the
// same way NormalizeName does, for use in set-based INSERT ... SELECT
// resolution passes. Whitespace is collapsed before suffixes are stripped,
// mirroring NormalizeName, so runs of spaces never shield a trailing suffix
// chain from the anchor. Diacritic folding is left to the database
// collation; customs providers deliver ASCII-transliterated names in
// practice.
func NormalizeNameSQL(col string) string {
	return `UPPER(TRIM(
    REGEXP_REPLACE(
        REGEXP_REPLACE(
            TRANSLATE(REPLACE(REPLACE(REPLACE(REPLACE(` + col + `,
                '&', 'AND'), '.', ''), '''', ''), '"', ''), ',-()/', '     '),
            '\s+', ' ', 'g'),
        '(\s(LLC|INC|INCORPORATED|CORP|CORPORATION|LTD|LIMITED|PLC|LP|LLP|CO|COMPANY|SA|SL|SRL|GMBH|AG|BV|NV|PTE|PVT|PTY|JSC|OOO|FZE|FZCO|DMCC|AS|STI))+\s*$',
        '', 'i')
    ))`
}
