package options

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	stationctx "qcinspect/frontend/shared/context"
	"qcinspect/frontend/shared/respond"
	optioninfra "qcinspect/infrastructure/options"
)

const maxImport = 10 << 20

func kindParam(w http.ResponseWriter, r *http.Request) (optioninfra.Kind, bool) {
	kind, err := optioninfra.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		respond.Error(w, http.StatusNotFound, err.Error())
		return "", false
	}
	return kind, true
}

// ListOptionsQueryHandler returns the merged list of one kind for the station.
func ListOptionsQueryHandler(registry *optioninfra.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, ok := kindParam(w, r)
		if !ok {
			return
		}
		station, _ := stationctx.GetStationFromContext(r.Context())
		list, err := registry.List(r.Context(), station, kind)
		if err != nil {
			log.Error().Err(err).Str("kind", string(kind)).Msg("list options")
			respond.Error(w, http.StatusInternalServerError, "failed to load options")
			return
		}
		respond.JSON(w, http.StatusOK, OptionsView{Kind: string(kind), Options: list})
	}
}

// AddOptionCommandHandler appends value (and code, for customers) and returns the merged list.
func AddOptionCommandHandler(registry *optioninfra.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, ok := kindParam(w, r)
		if !ok {
			return
		}
		station, _ := stationctx.GetStationFromContext(r.Context())
		opt := optioninfra.Option{Value: r.FormValue("value"), Code: r.FormValue("code")}
		list, err := registry.Add(r.Context(), station, kind, opt)
		switch {
		case errors.Is(err, optioninfra.ErrEmptyOption):
			respond.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, optioninfra.ErrReadOnlyOption):
			respond.Error(w, http.StatusForbidden, err.Error())
		case err != nil:
			log.Error().Err(err).Str("kind", string(kind)).Msg("add option")
			respond.Error(w, http.StatusInternalServerError, "failed to save option")
		default:
			respond.JSON(w, http.StatusOK, OptionsView{Kind: string(kind), Options: list})
		}
	}
}

// ImportCustomersCommandHandler upserts customers from an uploaded name,code CSV.
func ImportCustomersCommandHandler(central *optioninfra.CentralStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxImport); err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid upload")
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "file is required")
			return
		}
		defer file.Close()

		station, _ := stationctx.GetStationFromContext(r.Context())
		summary, err := central.ImportCustomers(r.Context(), station, file)
		switch {
		case errors.Is(err, optioninfra.ErrInvalidImport):
			log.Warn().Err(err).Str("station", station).Msg("customer import rejected")
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			log.Error().Err(err).Str("station", station).Msg("customer import failed")
			respond.Error(w, http.StatusInternalServerError, "failed to import customers")
			return
		}
		log.Info().Int("inserted", summary.Inserted).Int("updated", summary.Updated).Int("errors", summary.Errors).Msg("customers imported")
		respond.JSON(w, http.StatusOK, summary)
	}
}
