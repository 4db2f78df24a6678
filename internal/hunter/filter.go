package hunter

import (
	"strings"

	"github.com/sells-group/tradescope/internal/model"
)

// CeilingAll disables risk filtering entirely, including UNKNOWN buyers.
const CeilingAll = "ALL"

// Allowed reports whether a buyer at the given risk level passes an
// inclusive max-risk ceiling. UNKNOWN is not on the LOW..CRITICAL scale:
// it is excluded by any ceiling below HIGH, because "never scored" is not
// the same claim as "scored LOW".
func Allowed(level model.RiskLevel, ceiling string) bool {
	ceiling = strings.ToUpper(strings.TrimSpace(ceiling))
	if ceiling == "" || ceiling == CeilingAll {
		return true
	}

	ceilingRank, ok := model.RiskLevel(ceiling).Rank()
	if !ok {
		return true
	}

	levelRank, onScale := level.Rank()
	if !onScale {
		highRank, _ := model.RiskHigh.Rank()
		return ceilingRank >= highRank
	}
	return levelRank <= ceilingRank
}

// ValidCeiling reports whether the string is a recognized ceiling value.
func ValidCeiling(ceiling string) bool {
	ceiling = strings.ToUpper(strings.TrimSpace(ceiling))
	if ceiling == "" || ceiling == CeilingAll {
		return true
	}
	_, ok := model.RiskLevel(ceiling).Rank()
	return ok
}
