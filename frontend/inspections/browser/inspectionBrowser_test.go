package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"

	"qcinspect/frontend/inspections/form"
	"qcinspect/frontend/inspections/report"
	stationctx "qcinspect/frontend/shared/context"
	"qcinspect/infrastructure/audit"
	"qcinspect/infrastructure/mailer"
	"qcinspect/infrastructure/options"
	"qcinspect/infrastructure/sqlite"
	"qcinspect/models"
)

func openBrowserTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.OpenDB(filepath.Join(t.TempDir(), "browser-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := sqlite.ApplyEmbeddedMigrations(context.Background(), db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

func record(id, docNo string, created time.Time) models.InspectionRecord {
	return models.InspectionRecord{
		ID:               id,
		Company:          "EHI",
		DocumentNo:       docNo,
		InspectionDate:   created.Format("2006-01-02"),
		CustomerName:     "Target",
		BuyerDesignName:  "Aria",
		OPSNo:            "OPS-" + id[:4],
		Quality:          models.CheckSection{"backing": models.CheckNotOK},
		Defects:          []models.Defect{{DefectCode: "D01", MajorCount: 2, MinorCount: 5}},
		NotOKPhotos:      map[string]string{"backing": "/uploads/final-inspection-images/1_notok_backing_b.jpg"},
		InspectionResult: models.ResultPass,
		CreatedAt:        created,
	}
}

func seed(t *testing.T, db *sqlite.DB, recs ...models.InspectionRecord) {
	t.Helper()
	for _, rec := range recs {
		if err := form.SaveInspection(context.Background(), db, audit.NewService(), "station-a", rec); err != nil {
			t.Fatalf("seed %s: %v", rec.ID, err)
		}
	}
}

type fakeRenderer struct{ err error }

func (f fakeRenderer) Render(_ context.Context, rec models.InspectionRecord) (mailer.Report, error) {
	if f.err != nil {
		return mailer.Report{}, f.err
	}
	return mailer.Report{PDF: []byte("%PDF-1.3 fake"), Filename: "Final_Inspection_" + rec.OPSNo + ".pdf"}, nil
}

type fakeDeliverer struct {
	station string
	id      string
}

func (f *fakeDeliverer) Deliver(_ context.Context, station string, rec models.InspectionRecord) (mailer.Outcome, error) {
	f.station, f.id = station, rec.ID
	return mailer.OutcomeFailed, errors.New("endpoint down")
}

func newRouter(t *testing.T, db *sqlite.DB, d Deliverer) http.Handler {
	t.Helper()
	catalog, err := options.LoadCatalog()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(stationctx.NewContextWithStation(r.Context(), "station-b")))
		})
	})
	r.Get("/api/inspections", ListInspectionsQueryHandler(db))
	r.Get("/api/inspections/{id}", GetInspectionQueryHandler(db))
	r.Post("/api/inspections/{id}/delete", DeleteInspectionCommandHandler(db, audit.NewService()))
	r.Get("/api/inspections/{id}/pdf", InspectionPDFQueryHandler(db, fakeRenderer{}))
	r.Get("/api/inspections/{id}/preview", InspectionPreviewQueryHandler(db, catalog))
	r.Post("/api/inspections/{id}/resend", ResendInspectionCommandHandler(db, d))
	return r
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const (
	idOld = "aaaa0000-0000-4000-8000-000000000001"
	idNew = "bbbb0000-0000-4000-8000-000000000002"
)

func TestListInspectionsNewestFirst(t *testing.T) {
	db := openBrowserTestDB(t)
	base := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	seed(t, db, record(idOld, "EHI/IP/01", base), record(idNew, "EHI/IP/01", base.Add(time.Hour)))

	rows, err := ListInspections(context.Background(), db)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != idNew || rows[1].ID != idOld {
		t.Fatalf("unexpected order %+v", rows)
	}

	res := do(newRouter(t, db, &fakeDeliverer{}), http.MethodGet, "/api/inspections")
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), `"documentNo":"EHI/IP/01"`) {
		t.Fatalf("unexpected list response %d %s", res.Code, res.Body.String())
	}
}

func TestGetInspectionDetail(t *testing.T) {
	db := openBrowserTestDB(t)
	seed(t, db, record(idOld, "EHI/IP/01", time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)))
	h := newRouter(t, db, &fakeDeliverer{})

	if res := do(h, http.MethodGet, "/api/inspections/missing"); res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
	res := do(h, http.MethodGet, "/api/inspections/"+idOld)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var detail Detail
	if err := json.Unmarshal(res.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail.Record.DocumentNo != "EHI/IP/01" || detail.MajorTotal != 2 || detail.MinorTotal != 5 {
		t.Fatalf("unexpected detail %+v", detail)
	}
	if len(detail.Photos) != 1 || detail.Photos[0].Label != "Backing (NOT OK)" {
		t.Fatalf("unexpected photos %+v", detail.Photos)
	}
	if detail.StationID != "station-a" {
		t.Fatalf("expected station-a, got %q", detail.StationID)
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	db := openBrowserTestDB(t)
	seed(t, db, record(idOld, "EHI/IP/01", time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)))
	h := newRouter(t, db, &fakeDeliverer{})

	if res := do(h, http.MethodPost, "/api/inspections/"+idOld+"/delete"); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without confirm, got %d", res.Code)
	}
	if _, _, err := LoadInspection(context.Background(), db, idOld); err != nil {
		t.Fatalf("record should survive an unconfirmed delete: %v", err)
	}
	if res := do(h, http.MethodPost, "/api/inspections/"+idOld+"/delete?confirm=yes"); res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if _, _, err := LoadInspection(context.Background(), db, idOld); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if res := do(h, http.MethodPost, "/api/inspections/"+idOld+"/delete?confirm=yes"); res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", res.Code)
	}

	var actor string
	if err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT actor_id FROM audit_logs WHERE action = ? AND entity_id = ?`, audit.ActionInspectionDelete, idOld).Scan(ctx, &actor)
	}); err != nil {
		t.Fatalf("read delete audit: %v", err)
	}
	if actor != "station-b" {
		t.Fatalf("expected delete audited for station-b, got %q", actor)
	}
}

func TestPDFPreviewAndResend(t *testing.T) {
	db := openBrowserTestDB(t)
	seed(t, db, record(idOld, "EHI/IP/01", time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)))
	d := &fakeDeliverer{}
	h := newRouter(t, db, d)

	res := do(h, http.MethodGet, "/api/inspections/"+idOld+"/pdf")
	if res.Code != http.StatusOK || res.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("unexpected pdf response %d %q", res.Code, res.Header().Get("Content-Type"))
	}
	if got := res.Header().Get("Content-Disposition"); got != `attachment; filename="Final_Inspection_OPS-aaaa.pdf"` {
		t.Fatalf("unexpected disposition %q", got)
	}

	res = do(h, http.MethodGet, "/api/inspections/"+idOld+"/preview")
	if res.Code != http.StatusOK || !strings.HasPrefix(res.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("unexpected preview response %d %q", res.Code, res.Header().Get("Content-Type"))
	}
	body := res.Body.String()
	if !strings.Contains(body, "Final Inspection Report - EHI/IP/01") || !strings.Contains(body, "Eastern Home Industries") {
		t.Fatalf("preview should carry company and document number")
	}

	res = do(h, http.MethodPost, "/api/inspections/"+idOld+"/resend")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var out ResendResult
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode resend: %v", err)
	}
	if out.Delivery != "failed" || out.DeliveryError != "endpoint down" {
		t.Fatalf("unexpected resend result %+v", out)
	}
	if d.station != "station-b" || d.id != idOld {
		t.Fatalf("resend should use the requesting station, got %q %q", d.station, d.id)
	}
}

func TestStoredRecordRendersDocumentNumber(t *testing.T) {
	db := openBrowserTestDB(t)
	rec := record(idOld, "EHI/IP/07", time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC))
	rec.CustomerName = "Café Rugs"
	rec.QCInspectorRemarks = "Café — 5×8 °"
	seed(t, db, rec)

	loaded, _, err := LoadInspection(context.Background(), db, idOld)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.DocumentNo != "EHI/IP/07" || loaded.QCInspectorRemarks != rec.QCInspectorRemarks {
		t.Fatalf("unexpected stored record %+v", loaded)
	}

	pdf, err := report.RenderPDF(context.Background(), loaded, report.PDFOptions{GeneratedAt: loaded.CreatedAt, Uncompressed: true})
	if err != nil {
		t.Fatalf("render pdf: %v", err)
	}
	footer := "Document EHI/IP/07 | ID " + idOld
	if pdf.Footer != footer || !bytes.Contains(pdf.Bytes, []byte(footer)) {
		t.Fatalf("pdf footer should read %q, got %q", footer, pdf.Footer)
	}

	html, err := report.RenderHTML(context.Background(), loaded, "Eastern Home Industries")
	if err != nil {
		t.Fatalf("render html: %v", err)
	}
	if !strings.Contains(html, "Final Inspection Report - EHI/IP/07") || !strings.Contains(html, "Café Rugs") {
		t.Fatalf("email header should carry the stored document number")
	}
}
