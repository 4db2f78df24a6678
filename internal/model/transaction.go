package model

import (
	"time"

	"github.com/google/uuid"
)

// Direction marks which side of the border a declaration was filed on.
type Direction string

const (
	DirectionImport Direction = "IMPORT"
	DirectionExport Direction = "EXPORT"
)

// StandardizedShipment is one customs declaration line after column mapping
// and unit normalization, before identity resolution. Produced by the
// ingestion layer, immutable except for the resolution backfill columns.
type StandardizedShipment struct {
	StdID             string     `json:"std_id"` // natural key for idempotent ledger loads
	ReportingCountry  string     `json:"reporting_country"`
	Direction         Direction  `json:"direction"`
	OriginCountry     string     `json:"origin_country"`
	DestCountry       string     `json:"dest_country"`
	HSCodeRaw         string     `json:"hs_code_raw"`
	HSCode6           string     `json:"hs_code_6"`
	BuyerNameRaw      string     `json:"buyer_name_raw"`
	SupplierNameRaw   string     `json:"supplier_name_raw"`
	ShipmentDate      *time.Time `json:"shipment_date,omitempty"`
	ExportDate        *time.Time `json:"export_date,omitempty"`
	ImportDate        *time.Time `json:"import_date,omitempty"`
	QtyKg             *float64   `json:"qty_kg,omitempty"`
	ValueUSD          float64    `json:"value_usd"`
	PricePerKg        *float64   `json:"price_per_kg,omitempty"`
	SourceFile        string     `json:"source_file"`
	BuyerUUID         *uuid.UUID `json:"buyer_uuid,omitempty"`
	SupplierUUID      *uuid.UUID `json:"supplier_uuid,omitempty"`
	HiddenBuyer       bool       `json:"hidden_buyer"`
	ProcessedAt       time.Time  `json:"processed_at"`
}

// TradeTransaction is one row of the append-only trade ledger. Immutable
// after creation except for BuyerUUID and MirrorMatchedAt, which the mirror
// matcher may set exactly once.
type TradeTransaction struct {
	TxnID            uuid.UUID  `json:"txn_id"`
	StdID            string     `json:"std_id"`
	ReportingCountry string     `json:"reporting_country"`
	Direction        Direction  `json:"direction"`
	OriginCountry    string     `json:"origin_country"`
	DestCountry      string     `json:"dest_country"`
	HSCode6          string     `json:"hs_code_6"`
	ShipmentDate     time.Time  `json:"shipment_date"`
	QtyKg            *float64   `json:"qty_kg,omitempty"`
	ValueUSD         float64    `json:"value_usd"`
	UnitPrice        *float64   `json:"unit_price,omitempty"`
	BuyerUUID        *uuid.UUID `json:"buyer_uuid,omitempty"`
	SupplierUUID     *uuid.UUID `json:"supplier_uuid,omitempty"`
	HiddenBuyer      bool       `json:"hidden_buyer"`
	MirrorMatchedAt  *time.Time `json:"mirror_matched_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// MirrorMatch is the permanent audit record of one inferred counterparty
// linkage. ExportTxnID is unique: an export is matched at most once, ever.
type MirrorMatch struct {
	ExportTxnID uuid.UUID `json:"export_txn_id"`
	ImportTxnID uuid.UUID `json:"import_txn_id"`
	MatchScore  float64   `json:"match_score"` // 0-100
	Criteria    []string  `json:"criteria"`    // matched dimensions
	CreatedAt   time.Time `json:"created_at"`
}
