package exports

import (
	"bytes"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	stationctx "qcinspect/frontend/shared/context"
	"qcinspect/infrastructure/audit"
	"qcinspect/infrastructure/sqlite"
)

func InspectionsCSVHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		rows, err := WriteInspectionsCSV(r.Context(), db, &buf)
		if err != nil {
			log.Error().Err(err).Msg("export inspections csv")
			http.Error(w, "failed to export csv", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=inspections.csv")
		_, _ = w.Write(buf.Bytes())
		logExportRun(r, db, auditSvc, "inspections_csv", rows)
	}
}

func InspectionsXLSXHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		rows, err := WriteInspectionsXLSX(r.Context(), db, &buf, time.Now())
		if err != nil {
			log.Error().Err(err).Msg("export inspections xlsx")
			http.Error(w, "failed to export xlsx", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", "attachment; filename=inspections.xlsx")
		_, _ = w.Write(buf.Bytes())
		logExportRun(r, db, auditSvc, "inspections_xlsx", rows)
	}
}

func logExportRun(r *http.Request, db *sqlite.DB, auditSvc *audit.Service, exportType string, rows int) {
	if auditSvc == nil {
		return
	}
	station, _ := stationctx.GetStationFromContext(r.Context())
	if err := recordExportRun(r.Context(), db, auditSvc, station, exportType, rows); err != nil {
		log.Error().Err(err).Str("type", exportType).Msg("record export run failed")
	}
}
