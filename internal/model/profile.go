package model

import (
	"time"

	"github.com/google/uuid"
)

// RankedItem is one entry of a top-N list inside a profile rollup.
type RankedItem struct {
	Key      string  `json:"key"` // counterparty uuid or HS code
	Label    string  `json:"label,omitempty"`
	ValueUSD float64 `json:"value_usd"`
	Count    int64   `json:"count"`
}

// BuyerProfile is the per-buyer rollup the scoring layers read. Grain is
// (buyer uuid, jurisdiction); rebuilt from the ledger, never hand-edited.
type BuyerProfile struct {
	BuyerUUID        uuid.UUID    `json:"buyer_uuid"`
	Jurisdiction     string       `json:"jurisdiction"`
	PeriodStart      time.Time    `json:"period_start"`
	PeriodEnd        time.Time    `json:"period_end"`
	TotalShipments   int64        `json:"total_shipments"`
	TotalValueUSD    float64      `json:"total_value_usd"`
	TotalQtyKg       float64      `json:"total_qty_kg"`
	DistinctHS6      int          `json:"distinct_hs6"`
	MonthsActive     int          `json:"months_active"`
	YearsActive      int          `json:"years_active"`
	TopSuppliers     []RankedItem `json:"top_suppliers,omitempty"`
	TopProducts      []RankedItem `json:"top_products,omitempty"`
	Classification   string       `json:"classification,omitempty"`
	StabilityScore   float64      `json:"stability_score"`
	OnboardingScore  float64      `json:"onboarding_score"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// ExporterProfile mirrors BuyerProfile for the supplier side.
type ExporterProfile struct {
	ExporterUUID   uuid.UUID    `json:"exporter_uuid"`
	Jurisdiction   string       `json:"jurisdiction"`
	PeriodStart    time.Time    `json:"period_start"`
	PeriodEnd      time.Time    `json:"period_end"`
	TotalShipments int64        `json:"total_shipments"`
	TotalValueUSD  float64      `json:"total_value_usd"`
	TotalQtyKg     float64      `json:"total_qty_kg"`
	DistinctHS6    int          `json:"distinct_hs6"`
	MonthsActive   int          `json:"months_active"`
	YearsActive    int          `json:"years_active"`
	TopBuyers      []RankedItem `json:"top_buyers,omitempty"`
	TopProducts    []RankedItem `json:"top_products,omitempty"`
	Classification string       `json:"classification,omitempty"`
	StabilityScore float64      `json:"stability_score"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
