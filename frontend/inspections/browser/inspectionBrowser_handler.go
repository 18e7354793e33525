package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"qcinspect/frontend/inspections/delivery"
	"qcinspect/frontend/inspections/report"
	stationctx "qcinspect/frontend/shared/context"
	"qcinspect/frontend/shared/respond"
	"qcinspect/infrastructure/audit"
	"qcinspect/infrastructure/mailer"
	"qcinspect/infrastructure/options"
	"qcinspect/infrastructure/sqlite"
	"qcinspect/models"
)

// Renderer produces the report artifacts of a stored record.
type Renderer interface {
	Render(ctx context.Context, rec models.InspectionRecord) (mailer.Report, error)
}

// Deliverer re-sends a stored record to the station's current recipients.
type Deliverer interface {
	Deliver(ctx context.Context, station string, rec models.InspectionRecord) (mailer.Outcome, error)
}

func stationOf(r *http.Request) string {
	station, _ := stationctx.GetStationFromContext(r.Context())
	return station
}

// loadOrFail writes the 404/500 response itself and reports whether rec is usable.
func loadOrFail(w http.ResponseWriter, r *http.Request, db *sqlite.DB) (models.InspectionRecord, string, bool) {
	id := chi.URLParam(r, "id")
	rec, station, err := LoadInspection(r.Context(), db, id)
	if errors.Is(err, ErrNotFound) {
		respond.Error(w, http.StatusNotFound, "inspection not found")
		return rec, station, false
	}
	if err != nil {
		log.Error().Err(err).Str("inspection_id", id).Msg("load inspection")
		respond.Error(w, http.StatusInternalServerError, "failed to load inspection")
		return rec, station, false
	}
	return rec, station, true
}

func ListInspectionsQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := ListInspections(r.Context(), db)
		if err != nil {
			log.Error().Err(err).Msg("list inspections")
			respond.Error(w, http.StatusInternalServerError, "failed to load inspections")
			return
		}
		respond.JSON(w, http.StatusOK, map[string]any{"inspections": rows})
	}
}

func GetInspectionQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, station, ok := loadOrFail(w, r, db)
		if !ok {
			return
		}
		attempts, err := delivery.ListAttempts(r.Context(), db, rec.ID)
		if err != nil {
			log.Warn().Err(err).Str("inspection_id", rec.ID).Msg("delivery history unavailable")
			attempts = []models.DeliveryAttempt{}
		}
		major, minor := rec.DefectTotals()
		photos := rec.OrderedPhotos()
		if photos == nil {
			photos = []models.PhotoRef{}
		}
		respond.JSON(w, http.StatusOK, Detail{
			Record:     rec,
			MajorTotal: major,
			MinorTotal: minor,
			Photos:     photos,
			Deliveries: attempts,
			StationID:  station,
		})
	}
}

// DeleteInspectionCommandHandler removes a record. The request must carry confirm=yes.
func DeleteInspectionCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if r.FormValue("confirm") != "yes" {
			respond.Error(w, http.StatusBadRequest, ErrConfirmationRequired.Error())
			return
		}
		err := DeleteInspection(r.Context(), db, auditSvc, stationOf(r), id)
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(w, http.StatusNotFound, "inspection not found")
		case err != nil:
			log.Error().Err(err).Str("inspection_id", id).Msg("delete inspection")
			respond.Error(w, http.StatusInternalServerError, "failed to delete inspection")
		default:
			log.Info().Str("inspection_id", id).Str("station", stationOf(r)).Msg("inspection deleted")
			respond.JSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
		}
	}
}

// InspectionPDFQueryHandler regenerates the PDF report and sends it as a download.
func InspectionPDFQueryHandler(db *sqlite.DB, renderer Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, _, ok := loadOrFail(w, r, db)
		if !ok {
			return
		}
		out, err := renderer.Render(r.Context(), rec)
		if err != nil {
			log.Error().Err(err).Str("inspection_id", rec.ID).Msg("render inspection pdf")
			respond.Error(w, http.StatusInternalServerError, "failed to render report")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
		w.Header().Set("Content-Length", strconv.Itoa(len(out.PDF)))
		_, _ = w.Write(out.PDF)
	}
}

// InspectionPreviewQueryHandler shows the email body of a record.
func InspectionPreviewQueryHandler(db *sqlite.DB, catalog *options.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, _, ok := loadOrFail(w, r, db)
		if !ok {
			return
		}
		companyName := rec.Company
		if catalog != nil {
			companyName = catalog.CompanyName(rec.Company)
		}
		templ.Handler(report.EmailBody(rec, companyName)).ServeHTTP(w, r)
	}
}

// ResendInspectionCommandHandler delivers a stored record again.
func ResendInspectionCommandHandler(db *sqlite.DB, deliverer Deliverer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, _, ok := loadOrFail(w, r, db)
		if !ok {
			return
		}
		outcome, err := deliverer.Deliver(r.Context(), stationOf(r), rec)
		result := ResendResult{ID: rec.ID, Delivery: string(outcome)}
		if err != nil {
			result.DeliveryError = err.Error()
		}
		respond.JSON(w, http.StatusOK, result)
	}
}
