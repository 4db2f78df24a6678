package identity

import (
	"regexp"
	"strings"
)

// placeholderExact lists buyer strings that name no real entity. Exporters
// shipping under letters of credit declare the consignee as an order clause
// or the issuing bank; several providers also emit their own null markers.
var placeholderExact = map[string]bool{
	"":                 true,
	"TO THE ORDER":     true,
	"TO ORDER":         true,
	"ORDER":            true,
	"TO THE ORDER OF":  true,
	"AS PER ORDER":     true,
	"SAME AS NOTIFY":   true,
	"UNKNOWN":          true,
	"N A":              true,
	"NA":               true,
	"NO DISPONIBLE":    true,
	"SIN DATOS":        true,
	"NOT AVAILABLE":    true,
	"CONFIDENTIAL":     true,
}

var (
	orderPrefixRe = regexp.MustCompile(`^(TO THE ORDER|TO ORDER)\b`)
	bankWordRe    = regexp.MustCompile(`\bBANK(ASI)?\b`)
)

// IsPlaceholder reports whether a raw buyer/supplier name is an obscured
// placeholder rather than a real entity name. The check runs on the
// normalized form, so punctuation and suffix noise never masks a match.
// Shipments whose buyer fails this check get a null buyer_uuid and, on the
// export side, hidden_buyer=true, making them mirror-match candidates.
func IsPlaceholder(rawName string) bool {
	n := NormalizeName(rawName)
	if placeholderExact[n] {
		return true
	}
	if orderPrefixRe.MatchString(n) {
		return true
	}
	// A bank declared as buyer is a letter-of-credit reference, not the
	// party receiving the goods.
	return bankWordRe.MatchString(n)
}

// PlaceholderSQL returns a boolean SQL expression equivalent to
// IsPlaceholder over a raw name column, for set-based resolution passes.
func PlaceholderSQL(col string) string {
	exacts := make([]string, 0, len(placeholderExact))
	for k := range placeholderExact {
		if k == "" {
			continue
		}
		exacts = append(exacts, "'"+k+"'")
	}
	norm := NormalizeNameSQL(col)
	return `(` + col + ` IS NULL
    OR BTRIM(` + col + `) = ''
    OR ` + norm + ` IN (` + strings.Join(sortedStrings(exacts), ", ") + `)
    OR ` + norm + ` ~ '^(TO THE ORDER|TO ORDER)\y'
    OR ` + norm + ` ~ '\yBANK(ASI)?\y')`
}

// sortedStrings keeps the generated SQL deterministic across runs.
func sortedStrings(in []string) []string {
	out := append([]string(nil), in...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
