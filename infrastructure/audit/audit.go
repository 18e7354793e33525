package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/uptrace/bun"

	"qcinspect/models"
)

// Audit actions.
const (
	ActionInspectionCreate = "inspection.create"
	ActionInspectionDelete = "inspection.delete"
	ActionInspectionExport = "inspection.export"
	ActionOptionAppend     = "option.append"
	ActionCustomerImport   = "customer.import"
	ActionReportDelivery   = "report.delivery"
)

// Service writes audit records inside the caller transaction.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Write stores one audit row. actorID is the station that made the change.
func (s *Service) Write(ctx context.Context, tx bun.Tx, actorID, action, entityType, entityID string, before, after any) error {
	beforeJSON, err := marshal(before)
	if err != nil {
		return fmt.Errorf("marshal audit before: %w", err)
	}
	afterJSON, err := marshal(after)
	if err != nil {
		return fmt.Errorf("marshal audit after: %w", err)
	}
	row := &models.AuditLog{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		BeforeJSON: beforeJSON,
		AfterJSON:  afterJSON,
	}
	if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// ListForEntity returns the audit trail of one entity, oldest first.
func (s *Service) ListForEntity(ctx context.Context, tx bun.Tx, entityType, entityID string) ([]models.AuditLog, error) {
	rows := make([]models.AuditLog, 0)
	err := tx.NewSelect().Model(&rows).
		Where("entity_type = ?", entityType).
		Where("entity_id = ?", entityID).
		Order("id ASC").
		Scan(ctx)
	return rows, err
}

func marshal(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
