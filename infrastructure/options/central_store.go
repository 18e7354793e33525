package options

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/uptrace/bun"

	"qcinspect/infrastructure/audit"
	"qcinspect/infrastructure/sqlite"
	"qcinspect/models"
)

// CentralStore keeps custom options in the shared database, visible to every
// station.
type CentralStore struct {
	db    *sqlite.DB
	audit *audit.Service
}

func NewCentralStore(db *sqlite.DB, auditSvc *audit.Service) *CentralStore {
	return &CentralStore{db: db, audit: auditSvc}
}

// Load returns the custom options of kind. Customers come back ordered by
// name; other kinds keep the order they were added in.
func (s *CentralStore) Load(ctx context.Context, _ string, kind Kind) ([]Option, error) {
	rows := make([]models.CustomOption, 0)
	err := s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewSelect().Model(&rows).Where("kind = ?", string(kind))
		if kind == KindCustomer {
			q = q.OrderExpr("value COLLATE NOCASE ASC")
		}
		return q.Order("id ASC").Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	out := make([]Option, 0, len(rows))
	for _, r := range rows {
		out = append(out, Option{Value: r.Value, Code: r.Code})
	}
	return out, nil
}

func (s *CentralStore) Append(ctx context.Context, station string, kind Kind, opt Option) ([]Option, error) {
	err := s.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO custom_options (kind, value, code, created_by, created_at)
VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(kind, value) DO NOTHING`, string(kind), opt.Value, opt.Code, station)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 || s.audit == nil {
			return nil
		}
		return s.audit.Write(ctx, tx, station, audit.ActionOptionAppend, "custom_options", string(kind), nil, opt)
	})
	if err != nil {
		return nil, err
	}
	return s.Load(ctx, station, kind)
}

// ImportSummary counts the outcome of a customer CSV import.
type ImportSummary struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Errors   int `json:"errors"`
}

// ImportCustomers upserts customers from CSV with a name,code header. Rows
// that cannot be read or have no name are counted as errors and skipped. A
// missing or wrong header fails with ErrInvalidImport.
func (s *CentralStore) ImportCustomers(ctx context.Context, station string, reader io.Reader) (ImportSummary, error) {
	summary := ImportSummary{}
	r := csv.NewReader(reader)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return summary, fmt.Errorf("%w: read header: %v", ErrInvalidImport, err)
	}
	if len(header) < 2 || !strings.EqualFold(strings.TrimSpace(header[0]), "name") || !strings.EqualFold(strings.TrimSpace(header[1]), "code") {
		return summary, fmt.Errorf("%w: expected name,code header", ErrInvalidImport)
	}

	err = s.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		for {
			record, err := r.Read()
			if err == io.EOF {
				break
			}
			if err != nil || len(record) < 2 {
				summary.Errors++
				continue
			}
			name := strings.TrimSpace(record[0])
			code := strings.TrimSpace(record[1])
			if name == "" {
				summary.Errors++
				continue
			}

			var exists int
			if err := tx.NewRaw(`SELECT COUNT(1) FROM custom_options WHERE kind = ? AND value = ?`, string(KindCustomer), name).Scan(ctx, &exists); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO custom_options (kind, value, code, created_by, created_at)
VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(kind, value) DO UPDATE SET code = excluded.code`, string(KindCustomer), name, code, station); err != nil {
				return err
			}
			if exists > 0 {
				summary.Updated++
			} else {
				summary.Inserted++
			}
		}

		if s.audit == nil {
			return nil
		}
		return s.audit.Write(ctx, tx, station, audit.ActionCustomerImport, "custom_options", string(KindCustomer), nil, summary)
	})
	return summary, err
}
