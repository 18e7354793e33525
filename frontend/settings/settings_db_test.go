package settings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"testing"

	stationctx "qcinspect/frontend/shared/context"
	"qcinspect/infrastructure/kv"
)

func openRecipients(t *testing.T) *Recipients {
	t.Helper()
	store, err := kv.OpenInMemory()
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return NewRecipients(store)
}

func TestRecipients_AddNormalizesAndRejectsDuplicates(t *testing.T) {
	rs := openRecipients(t)
	ctx := context.Background()

	list, err := rs.Add(ctx, "s1", "  QC@Example.com ")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !slices.Equal(list, []string{"qc@example.com"}) {
		t.Fatalf("unexpected list %v", list)
	}
	if _, err := rs.Add(ctx, "s1", "qc@EXAMPLE.com"); !errors.Is(err, ErrDuplicateRecipient) {
		t.Fatalf("expected ErrDuplicateRecipient, got %v", err)
	}
	for _, bad := range []string{"", "nope", "a@b", "a b@c.d", "@c.d"} {
		if _, err := rs.Add(ctx, "s1", bad); !errors.Is(err, ErrInvalidRecipient) {
			t.Fatalf("expected ErrInvalidRecipient for %q, got %v", bad, err)
		}
	}
}

func TestRecipients_PerStationAndRemove(t *testing.T) {
	rs := openRecipients(t)
	ctx := context.Background()

	if _, err := rs.Add(ctx, "s1", "a@x.com"); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if _, err := rs.Add(ctx, "s1", "b@x.com"); err != nil {
		t.Fatalf("add b: %v", err)
	}
	other, err := rs.List(ctx, "s2")
	if err != nil {
		t.Fatalf("list s2: %v", err)
	}
	if len(other) != 0 || other == nil {
		t.Fatalf("expected empty non-nil list for s2, got %#v", other)
	}

	list, err := rs.Remove(ctx, "s1", "A@x.com")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !slices.Equal(list, []string{"b@x.com"}) {
		t.Fatalf("unexpected list after remove %v", list)
	}
	list, err = rs.Remove(ctx, "s1", "missing@x.com")
	if err != nil || !slices.Equal(list, []string{"b@x.com"}) {
		t.Fatalf("removing an absent address should be a no-op: %v %v", list, err)
	}
}

func TestRecipientHandlers(t *testing.T) {
	rs := openRecipients(t)
	post := func(h http.HandlerFunc, email string) *httptest.ResponseRecorder {
		form := url.Values{"email": {email}}
		req := httptest.NewRequest(http.MethodPost, "/api/settings/recipients", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req = req.WithContext(stationctx.NewContextWithStation(req.Context(), "s1"))
		rec := httptest.NewRecorder()
		h(rec, req)
		return rec
	}

	if rec := post(AddRecipientCommandHandler(rs), "qc@x.com"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := post(AddRecipientCommandHandler(rs), "qc@x.com"); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate, got %d", rec.Code)
	}
	if rec := post(AddRecipientCommandHandler(rs), "broken"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on invalid email, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/settings/recipients", nil)
	req = req.WithContext(stationctx.NewContextWithStation(req.Context(), "s1"))
	rec := httptest.NewRecorder()
	RecipientsQueryHandler(rs)(rec, req)
	var view RecipientsView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !slices.Equal(view.Recipients, []string{"qc@x.com"}) {
		t.Fatalf("unexpected recipients %v", view.Recipients)
	}

	if rec := post(RemoveRecipientCommandHandler(rs), "qc@x.com"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"recipients":[]`) {
		t.Fatalf("expected empty list after remove, got %d %s", rec.Code, rec.Body.String())
	}
}
