package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Inspection is the stored form of an InspectionRecord. The list columns are
// duplicated out of the JSON document for sorting and summaries.
type Inspection struct {
	bun.BaseModel `bun:"table:inspections,alias:i"`

	ID               string    `bun:"id,pk"`
	Company          string    `bun:"company,notnull"`
	DocumentNo       string    `bun:"document_no,notnull"`
	CustomerName     string    `bun:"customer_name,notnull"`
	BuyerDesignName  string    `bun:"buyer_design_name,notnull"`
	OPSNo            string    `bun:"ops_no,notnull"`
	InspectionDate   string    `bun:"inspection_date,notnull"`
	InspectionResult string    `bun:"inspection_result,notnull"`
	StationID        string    `bun:"station_id,notnull"`
	Document         string    `bun:"document,notnull"`
	CreatedAt        time.Time `bun:"created_at,notnull"`
}

// CustomOption is a user-added option shared across stations.
type CustomOption struct {
	bun.BaseModel `bun:"table:custom_options,alias:co"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Kind      string    `bun:"kind,notnull"`
	Value     string    `bun:"value,notnull"`
	Code      string    `bun:"code,notnull"`
	CreatedBy string    `bun:"created_by,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// DeliveryAttempt records every report dispatch, including skipped ones.
type DeliveryAttempt struct {
	bun.BaseModel `bun:"table:delivery_attempts,alias:da"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	InspectionID string    `bun:"inspection_id,notnull" json:"inspectionId"`
	StationID    string    `bun:"station_id,notnull" json:"stationId"`
	Recipients   string    `bun:"recipients,notnull" json:"recipients"`
	Outcome      string    `bun:"outcome,notnull" json:"outcome"`
	Error        string    `bun:"error,notnull" json:"error,omitempty"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
}

// AuditLog captures immutable change history for key operations.
type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs,alias:al"`

	ID         int64     `bun:"id,pk,autoincrement"`
	ActorID    string    `bun:"actor_id,notnull"`
	Action     string    `bun:"action,notnull"`
	EntityType string    `bun:"entity_type,notnull"`
	EntityID   string    `bun:"entity_id,notnull"`
	BeforeJSON string    `bun:"before_json"`
	AfterJSON  string    `bun:"after_json"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
