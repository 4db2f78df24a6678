package model

import "time"

// EntityType identifies what a risk opinion is about.
type EntityType string

const (
	EntityShipment EntityType = "SHIPMENT"
	EntityBuyer    EntityType = "BUYER"
	EntityExporter EntityType = "EXPORTER"
)

// RiskLevel is the banded severity of a risk opinion. Unknown means no
// current opinion exists for the entity, which is a distinct state from LOW.
type RiskLevel string

const (
	RiskUnknown  RiskLevel = "UNKNOWN"
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// riskRank orders the known levels for ceiling filters. Unknown is absent
// deliberately: it does not sit on the LOW..CRITICAL scale and is excluded
// from any ceiling below HIGH (see hunter.Filter).
var riskRank = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// Rank returns the position of a level on the ordered scale and whether the
// level participates in that scale at all.
func (l RiskLevel) Rank() (int, bool) {
	r, ok := riskRank[l]
	return r, ok
}

// LevelForScore maps a 0-100 risk score to a band.
func LevelForScore(score float64) RiskLevel {
	switch {
	case score >= 80:
		return RiskCritical
	case score >= 60:
		return RiskHigh
	case score >= 40:
		return RiskMedium
	default:
		return RiskLow
	}
}

// RiskScore is a versioned opinion about an entity, stored apart from ledger
// facts. Unique per (entity type, entity id, scope key, engine version);
// superseded rows are archived to history before being overwritten.
type RiskScore struct {
	EntityType    EntityType     `json:"entity_type"`
	EntityID      string         `json:"entity_id"`
	ScopeKey      string         `json:"scope_key"` // e.g. GLOBAL, COUNTRY:TR
	EngineVersion string         `json:"engine_version"`
	Score         float64        `json:"score"`      // 0-100
	Confidence    float64        `json:"confidence"` // 0-1
	Level         RiskLevel      `json:"level"`
	MainReason    string         `json:"main_reason"`
	Reasons       map[string]any `json:"reasons,omitempty"`
	ComputedAt    time.Time      `json:"computed_at"`
}
