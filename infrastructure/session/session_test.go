package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEnsureStationIDIssuesCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	id := EnsureStationID(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if id == "" {
		t.Fatalf("expected station id")
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName || cookies[0].Value != id {
		t.Fatalf("expected station cookie, got %#v", cookies)
	}
}

func TestEnsureStationIDReusesValidCookie(t *testing.T) {
	const existing = "7f0c4a52-8d4e-4f7e-9a53-3a7f2f6e9b10"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(StationCookie(existing, 60))
	rec := httptest.NewRecorder()

	if id := EnsureStationID(rec, req); id != existing {
		t.Fatalf("expected existing id, got %s", id)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("did not expect a new cookie")
	}
}

func TestEnsureStationIDReplacesMalformedCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(StationCookie("not-a-uuid", 60))
	rec := httptest.NewRecorder()

	if id := EnsureStationID(rec, req); id == "not-a-uuid" {
		t.Fatalf("malformed id should be replaced")
	}
}
