package risk

import "github.com/sells-group/tradescope/internal/config"

// Ghost-entity reasons, one per value tier.
const (
	ReasonGhostTier1 = "ghost_entity_large"
	ReasonGhostTier2 = "ghost_entity_major"
	ReasonGhostTier3 = "ghost_entity_extreme"
)

const ghostFlagFloor = 40.0 // below MEDIUM the opinion is not worth recording

// EvaluateGhost scores the "large trade volume, no discoverable footprint"
// signal for a buyer. Buyers under the minimum value are never evaluated;
// the signal is about unusual size, and small buyers are invisible for
// ordinary reasons. A known web presence pulls the score down, usually
// below the recording floor.
func EvaluateGhost(totalValueUSD float64, hasWebPresence bool, cfg config.RiskConfig) (score float64, reason string, ok bool) {
	if totalValueUSD < cfg.GhostMinValueUSD {
		return 0, "", false
	}

	switch {
	case totalValueUSD >= cfg.GhostTier3USD:
		score, reason = 75, ReasonGhostTier3
	case totalValueUSD >= cfg.GhostTier2USD:
		score, reason = 60, ReasonGhostTier2
	default:
		score, reason = 45, ReasonGhostTier1
	}

	if hasWebPresence {
		score -= 30
	} else {
		score += 10
	}

	if score < ghostFlagFloor {
		return 0, "", false
	}
	if score > 100 {
		score = 100
	}
	return score, reason, true
}
