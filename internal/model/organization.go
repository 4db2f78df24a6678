// Package model defines the core domain types shared across the trade
// intelligence pipeline: organizations, ledger transactions, mirror matches,
// risk opinions and entity profiles.
package model

import (
	"time"

	"github.com/google/uuid"
)

// OrgType classifies the trading role an organization has been seen in.
type OrgType string

const (
	OrgTypeBuyer    OrgType = "BUYER"
	OrgTypeSupplier OrgType = "SUPPLIER"
	OrgTypeMixed    OrgType = "MIXED"
)

// Escalate returns the type an organization should carry after being seen in
// the given role. Transitions are monotonic: once MIXED, always MIXED.
func (t OrgType) Escalate(seen OrgType) OrgType {
	if t == "" {
		return seen
	}
	if t == OrgTypeMixed || seen == OrgTypeMixed {
		return OrgTypeMixed
	}
	if t != seen {
		return OrgTypeMixed
	}
	return t
}

// Organization is a resolved real-world trading entity. Raw name variants
// observed in customs declarations are kept per role for auditability.
type Organization struct {
	UUID           uuid.UUID           `json:"uuid"`
	NormalizedName string              `json:"normalized_name"`
	Country        string              `json:"country"`
	Type           OrgType             `json:"type"`
	Variants       map[string][]string `json:"variants,omitempty"` // role -> raw names seen
	Website        *string             `json:"website,omitempty"`  // nil until enrichment finds one
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}
