// Package session identifies the QC station a request comes from. A station
// is a device: it keeps its own form draft, custom options and recipients.
package session

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const CookieName = "X-Station-Id"

// stationCookieMaxAge keeps a station id for a year.
const stationCookieMaxAge = 365 * 24 * 60 * 60

func StationCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   false,
	}
}

// EnsureStationID returns the station id of r, issuing a new one when the
// cookie is missing or malformed.
func EnsureStationID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil {
		if id, err := uuid.Parse(strings.TrimSpace(c.Value)); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, StationCookie(id, stationCookieMaxAge))
	return id
}
