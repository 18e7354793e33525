package delivery

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/uptrace/bun"

	"qcinspect/infrastructure/audit"
	"qcinspect/infrastructure/mailer"
	"qcinspect/infrastructure/options"
	"qcinspect/infrastructure/sqlite"
	"qcinspect/models"
)

type staticRecipients map[string][]string

func (s staticRecipients) List(_ context.Context, station string) ([]string, error) {
	return s[station], nil
}

type brokenRecipients struct{}

func (brokenRecipients) List(context.Context, string) ([]string, error) {
	return nil, errors.New("store closed")
}

func openDeliveryTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.OpenDB(filepath.Join(t.TempDir(), "delivery-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := sqlite.ApplyEmbeddedMigrations(context.Background(), db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

func testRecord() models.InspectionRecord {
	return models.InspectionRecord{
		ID:               "5b1d2c3e-0000-4000-8000-00000000000a",
		Company:          "EMPL",
		DocumentNo:       "EMPL/IP/01",
		InspectionDate:   "2026-05-06",
		QCInspectorName:  "Faizan",
		CustomerName:     "Target",
		CustomerCode:     "T-01",
		OPSNo:            "OPS-17",
		BuyerDesignName:  "Aria",
		ProductSizes:     []string{"5x8"},
		Defects:          []models.Defect{},
		InspectionResult: models.ResultFail,
		CreatedAt:        time.Date(2026, 5, 6, 8, 0, 0, 0, time.UTC),
	}
}

type capture struct {
	calls atomic.Int32
	last  mailer.Message
}

func newEndpoint(t *testing.T, status int, resp mailer.Response) (*httptest.Server, *capture) {
	t.Helper()
	c := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.calls.Add(1)
		if err := json.NewDecoder(r.Body).Decode(&c.last); err != nil {
			t.Errorf("decode dispatch body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func newService(t *testing.T, db *sqlite.DB, endpoint string, recipients RecipientSource) *Service {
	t.Helper()
	catalog, err := options.LoadCatalog()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return &Service{
		Recipients: recipients,
		Dispatcher: mailer.NewDispatcher(endpoint, 5*time.Second, zerolog.Nop()),
		Catalog:    catalog,
		DB:         db,
		Audit:      audit.NewService(),
		Now:        func() time.Time { return time.Date(2026, 5, 6, 9, 0, 0, 0, time.UTC) },
	}
}

func countAudit(t *testing.T, db *sqlite.DB, entityID string) int {
	t.Helper()
	var n int
	if err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT COUNT(*) FROM audit_logs WHERE action = ? AND entity_id = ?`, audit.ActionReportDelivery, entityID).Scan(ctx, &n)
	}); err != nil {
		t.Fatalf("count audit: %v", err)
	}
	return n
}

func TestDeliverSkipsWithoutRecipients(t *testing.T) {
	db := openDeliveryTestDB(t)
	srv, c := newEndpoint(t, http.StatusOK, mailer.Response{Success: true})
	svc := newService(t, db, srv.URL, staticRecipients{})
	rec := testRecord()

	outcome, err := svc.Deliver(context.Background(), "s1", rec)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if outcome != mailer.OutcomeSkipped {
		t.Fatalf("expected skipped, got %s", outcome)
	}
	if c.calls.Load() != 0 {
		t.Fatalf("expected no dispatch, got %d", c.calls.Load())
	}
	attempts, err := ListAttempts(context.Background(), db, rec.ID)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 1 || attempts[0].Outcome != "skipped" || attempts[0].StationID != "s1" {
		t.Fatalf("unexpected attempts %+v", attempts)
	}
	if n := countAudit(t, db, rec.ID); n != 1 {
		t.Fatalf("expected 1 delivery audit row, got %d", n)
	}
}

func TestDeliverSendsRenderedReport(t *testing.T) {
	db := openDeliveryTestDB(t)
	srv, c := newEndpoint(t, http.StatusOK, mailer.Response{Success: true, Message: "Email sent successfully"})
	svc := newService(t, db, srv.URL, staticRecipients{"s1": {"qc@x.com", "ops@x.com"}})
	rec := testRecord()

	outcome, err := svc.Deliver(context.Background(), "s1", rec)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if outcome != mailer.OutcomeSent {
		t.Fatalf("expected sent, got %s", outcome)
	}
	if c.calls.Load() != 1 {
		t.Fatalf("expected one dispatch, got %d", c.calls.Load())
	}
	msg := c.last
	if strings.Join(msg.To, ",") != "qc@x.com,ops@x.com" {
		t.Fatalf("unexpected recipients %v", msg.To)
	}
	if msg.Subject != "Final Inspection: Target - Aria [FAIL] - EMPL/IP/01" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if msg.PDFFilename != "Final_Inspection_OPS-17_2026-05-06.pdf" {
		t.Fatalf("unexpected filename %q", msg.PDFFilename)
	}
	if !strings.Contains(msg.HTML, "Eastern Mills Pvt. Ltd.") || !strings.Contains(msg.HTML, "✗ FAILED") {
		t.Fatalf("html body should carry company name and FAILED banner")
	}
	pdf, err := base64.StdEncoding.DecodeString(msg.PDFBase64)
	if err != nil {
		t.Fatalf("decode pdf: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Fatalf("attachment is not a pdf")
	}

	attempts, err := ListAttempts(context.Background(), db, rec.ID)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 1 || attempts[0].Outcome != "sent" || attempts[0].Recipients != "qc@x.com,ops@x.com" {
		t.Fatalf("unexpected attempts %+v", attempts)
	}
}

func TestDeliverReportsEndpointFailure(t *testing.T) {
	db := openDeliveryTestDB(t)
	srv, _ := newEndpoint(t, http.StatusInternalServerError, mailer.Response{Success: false, Error: "smtp down"})
	svc := newService(t, db, srv.URL, staticRecipients{"s1": {"qc@x.com"}})
	rec := testRecord()

	outcome, err := svc.Deliver(context.Background(), "s1", rec)
	if !errors.Is(err, mailer.ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}
	if outcome != mailer.OutcomeFailed {
		t.Fatalf("expected failed, got %s", outcome)
	}
	attempts, err := ListAttempts(context.Background(), db, rec.ID)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 1 || attempts[0].Outcome != "failed" || !strings.Contains(attempts[0].Error, "smtp down") {
		t.Fatalf("unexpected attempts %+v", attempts)
	}
}

func TestDeliverRecordsRecipientLookupFailure(t *testing.T) {
	db := openDeliveryTestDB(t)
	srv, c := newEndpoint(t, http.StatusOK, mailer.Response{Success: true})
	svc := newService(t, db, srv.URL, brokenRecipients{})
	rec := testRecord()

	outcome, err := svc.Deliver(context.Background(), "s1", rec)
	if err == nil || outcome != mailer.OutcomeFailed {
		t.Fatalf("expected failed outcome with error, got %s %v", outcome, err)
	}
	if c.calls.Load() != 0 {
		t.Fatalf("expected no dispatch")
	}
	if n := countAudit(t, db, rec.ID); n != 1 {
		t.Fatalf("expected 1 delivery audit row, got %d", n)
	}
}
