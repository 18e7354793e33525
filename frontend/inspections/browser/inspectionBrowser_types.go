package browser

import (
	"errors"
	"time"

	"qcinspect/models"
)

var (
	ErrNotFound             = errors.New("inspection not found")
	ErrConfirmationRequired = errors.New("delete requires confirm=yes")
)

// Summary is one row of the inspection list.
type Summary struct {
	ID               string    `json:"id" bun:"id"`
	Company          string    `json:"company" bun:"company"`
	DocumentNo       string    `json:"documentNo" bun:"document_no"`
	CustomerName     string    `json:"customerName" bun:"customer_name"`
	BuyerDesignName  string    `json:"buyerDesignName" bun:"buyer_design_name"`
	OPSNo            string    `json:"opsNo" bun:"ops_no"`
	InspectionDate   string    `json:"inspectionDate" bun:"inspection_date"`
	InspectionResult string    `json:"inspectionResult" bun:"inspection_result"`
	CreatedAt        time.Time `json:"createdAt" bun:"created_at"`
}

// Detail is the expanded view of one record.
type Detail struct {
	Record     models.InspectionRecord  `json:"record"`
	MajorTotal int64                    `json:"majorTotal"`
	MinorTotal int64                    `json:"minorTotal"`
	Photos     []models.PhotoRef        `json:"photos"`
	Deliveries []models.DeliveryAttempt `json:"deliveries"`
	StationID  string                   `json:"stationId"`
}

// ResendResult reports a re-delivery.
type ResendResult struct {
	ID            string `json:"id"`
	Delivery      string `json:"delivery"`
	DeliveryError string `json:"deliveryError,omitempty"`
}
