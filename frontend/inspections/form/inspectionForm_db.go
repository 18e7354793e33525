package form

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/uptrace/bun"

	"qcinspect/infrastructure/audit"
	"qcinspect/infrastructure/sqlite"
	"qcinspect/models"
)

// SaveInspection writes a new record and its audit row. Records are never
// updated; a second save of the same id fails on the primary key.
func SaveInspection(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, station string, rec models.InspectionRecord) error {
	row, err := ToRow(rec, station)
	if err != nil {
		return err
	}
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return fmt.Errorf("insert inspection: %w", err)
		}
		if auditSvc != nil {
			summary := map[string]any{
				"documentNo":       rec.DocumentNo,
				"customerName":     rec.CustomerName,
				"opsNo":            rec.OPSNo,
				"inspectionResult": rec.InspectionResult,
			}
			if err := auditSvc.Write(ctx, tx, station, audit.ActionInspectionCreate, "inspection", rec.ID, nil, summary); err != nil {
				return err
			}
		}
		return nil
	})
}

// ToRow converts a record into its stored form.
func ToRow(rec models.InspectionRecord, station string) (models.Inspection, error) {
	doc, err := json.Marshal(rec)
	if err != nil {
		return models.Inspection{}, fmt.Errorf("marshal inspection: %w", err)
	}
	return models.Inspection{
		ID:               rec.ID,
		Company:          rec.Company,
		DocumentNo:       rec.DocumentNo,
		CustomerName:     rec.CustomerName,
		BuyerDesignName:  rec.BuyerDesignName,
		OPSNo:            rec.OPSNo,
		InspectionDate:   rec.InspectionDate,
		InspectionResult: rec.InspectionResult,
		StationID:        station,
		Document:         string(doc),
		CreatedAt:        rec.CreatedAt,
	}, nil
}
