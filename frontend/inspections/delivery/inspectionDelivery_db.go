package delivery

import (
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"qcinspect/infrastructure/audit"
	"qcinspect/infrastructure/sqlite"
	"qcinspect/models"
)

// RecordAttempt stores one delivery attempt and its audit row.
func RecordAttempt(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, attempt models.DeliveryAttempt) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&attempt).Exec(ctx); err != nil {
			return fmt.Errorf("insert delivery attempt: %w", err)
		}
		if auditSvc == nil {
			return nil
		}
		after := map[string]any{
			"outcome":    attempt.Outcome,
			"recipients": splitRecipients(attempt.Recipients),
		}
		if attempt.Error != "" {
			after["error"] = attempt.Error
		}
		return auditSvc.Write(ctx, tx, attempt.StationID, audit.ActionReportDelivery, "inspection", attempt.InspectionID, nil, after)
	})
}

// ListAttempts returns the delivery history of one record, oldest first.
func ListAttempts(ctx context.Context, db *sqlite.DB, inspectionID string) ([]models.DeliveryAttempt, error) {
	rows := make([]models.DeliveryAttempt, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&rows).
			Where("inspection_id = ?", inspectionID).
			Order("id ASC").
			Scan(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list delivery attempts: %w", err)
	}
	return rows, nil
}

func splitRecipients(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
