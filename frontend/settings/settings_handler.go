package settings

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	stationctx "qcinspect/frontend/shared/context"
	"qcinspect/frontend/shared/respond"
)

func RecipientsQueryHandler(recipients *Recipients) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		station, _ := stationctx.GetStationFromContext(r.Context())
		list, err := recipients.List(r.Context(), station)
		if err != nil {
			log.Error().Err(err).Str("station", station).Msg("list recipients")
			respond.Error(w, http.StatusInternalServerError, "failed to load recipients")
			return
		}
		respond.JSON(w, http.StatusOK, RecipientsView{Recipients: list})
	}
}

func AddRecipientCommandHandler(recipients *Recipients) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		station, _ := stationctx.GetStationFromContext(r.Context())
		list, err := recipients.Add(r.Context(), station, r.FormValue("email"))
		switch {
		case errors.Is(err, ErrInvalidRecipient):
			respond.Error(w, http.StatusBadRequest, "Please enter a valid email address")
		case errors.Is(err, ErrDuplicateRecipient):
			respond.Error(w, http.StatusConflict, "Email already added")
		case err != nil:
			log.Error().Err(err).Str("station", station).Msg("add recipient")
			respond.Error(w, http.StatusInternalServerError, "failed to save recipients")
		default:
			respond.JSON(w, http.StatusOK, RecipientsView{Recipients: list})
		}
	}
}

func RemoveRecipientCommandHandler(recipients *Recipients) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		station, _ := stationctx.GetStationFromContext(r.Context())
		list, err := recipients.Remove(r.Context(), station, r.FormValue("email"))
		if err != nil {
			log.Error().Err(err).Str("station", station).Msg("remove recipient")
			respond.Error(w, http.StatusInternalServerError, "failed to save recipients")
			return
		}
		respond.JSON(w, http.StatusOK, RecipientsView{Recipients: list})
	}
}
