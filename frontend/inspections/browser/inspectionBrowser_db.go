package browser

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"qcinspect/infrastructure/audit"
	"qcinspect/infrastructure/sqlite"
	"qcinspect/models"
)

// ListInspections returns every record summary, newest first.
func ListInspections(ctx context.Context, db *sqlite.DB) ([]Summary, error) {
	rows := make([]Summary, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`
SELECT id, company, document_no, customer_name, buyer_design_name, ops_no,
       inspection_date, inspection_result, created_at
FROM inspections
ORDER BY created_at DESC, id ASC`).Scan(ctx, &rows)
	})
	if err != nil {
		return nil, fmt.Errorf("list inspections: %w", err)
	}
	return rows, nil
}

// ListRecords decodes every stored record, newest first.
func ListRecords(ctx context.Context, db *sqlite.DB) ([]models.InspectionRecord, error) {
	rows := make([]models.Inspection, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&rows).OrderExpr("created_at DESC, id ASC").Scan(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list inspection records: %w", err)
	}
	out := make([]models.InspectionRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := FromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// LoadInspection returns the stored record and the station that wrote it.
func LoadInspection(ctx context.Context, db *sqlite.DB, id string) (models.InspectionRecord, string, error) {
	var row models.Inspection
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&row).Where("id = ?", id).Limit(1).Scan(ctx)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return models.InspectionRecord{}, "", ErrNotFound
	}
	if err != nil {
		return models.InspectionRecord{}, "", fmt.Errorf("load inspection: %w", err)
	}
	rec, err := FromRow(row)
	return rec, row.StationID, err
}

// FromRow decodes the JSON document of a stored record.
func FromRow(row models.Inspection) (models.InspectionRecord, error) {
	var rec models.InspectionRecord
	if err := json.Unmarshal([]byte(row.Document), &rec); err != nil {
		return models.InspectionRecord{}, fmt.Errorf("decode inspection %s: %w", row.ID, err)
	}
	if rec.Defects == nil {
		rec.Defects = []models.Defect{}
	}
	return rec, nil
}

// DeleteInspection removes a record and writes its audit row. Delivery history stays.
func DeleteInspection(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, station, id string) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var row models.Inspection
		if err := tx.NewSelect().Model(&row).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("load inspection: %w", err)
		}
		if _, err := tx.NewDelete().Model((*models.Inspection)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
			return fmt.Errorf("delete inspection: %w", err)
		}
		if auditSvc == nil {
			return nil
		}
		before := map[string]any{
			"documentNo":       row.DocumentNo,
			"customerName":     row.CustomerName,
			"opsNo":            row.OPSNo,
			"inspectionResult": row.InspectionResult,
		}
		return auditSvc.Write(ctx, tx, station, audit.ActionInspectionDelete, "inspection", id, before, nil)
	})
}
