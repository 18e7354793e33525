package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRecipientsAcceptStringOrList(t *testing.T) {
	cases := map[string][]string{
		`"a@x.com"`:                     {"a@x.com"},
		`"a@x.com, b@x.com"`:            {"a@x.com", "b@x.com"},
		`["a@x.com","  b@x.com  ", ""]`: {"a@x.com", "b@x.com"},
	}
	for raw, want := range cases {
		var r Recipients
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if strings.Join(r, "|") != strings.Join(want, "|") {
			t.Fatalf("unmarshal %s = %v, want %v", raw, r, want)
		}
	}
	var r Recipients
	if err := json.Unmarshal([]byte(`42`), &r); err == nil {
		t.Fatalf("expected error for numeric recipients")
	}
}

func TestDeliverSkipsWithoutRecipients(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	d := NewDispatcher(srv.URL, time.Second, zerolog.Nop())
	outcome, err := d.Deliver(context.Background(), Report{Subject: "s"})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if outcome != OutcomeSkipped {
		t.Fatalf("expected skipped, got %s", outcome)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no http call, got %d", calls.Load())
	}
}

func TestDeliverPostsPayload(t *testing.T) {
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(Response{Success: true, Message: "Email sent successfully"})
	}))
	defer srv.Close()

	d := NewDispatcher(srv.URL, time.Second, zerolog.Nop())
	outcome, err := d.Deliver(context.Background(), Report{
		Recipients: []string{"qc@example.com", "buyer@example.com"},
		Subject:    "Final Inspection",
		HTML:       "<p>hi</p>",
		PDF:        []byte("%PDF-1.3"),
		Filename:   "Final_Inspection_OPS1_2026-10-15.pdf",
	})
	if err != nil || outcome != OutcomeSent {
		t.Fatalf("deliver: outcome=%s err=%v", outcome, err)
	}
	if len(got.To) != 2 || got.To[1] != "buyer@example.com" {
		t.Fatalf("unexpected recipients %v", got.To)
	}
	pdf, err := base64.StdEncoding.DecodeString(got.PDFBase64)
	if err != nil || string(pdf) != "%PDF-1.3" {
		t.Fatalf("unexpected pdf payload %q (%v)", pdf, err)
	}
	if got.PDFFilename != "Final_Inspection_OPS1_2026-10-15.pdf" {
		t.Fatalf("unexpected filename %q", got.PDFFilename)
	}
}

func TestDeliverReportsEndpointFailure(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"success":false,"error":"smtp down"}`},
		{"success false", http.StatusOK, `{"success":false,"error":"rejected"}`},
		{"not json", http.StatusOK, `ok`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			d := NewDispatcher(srv.URL, time.Second, zerolog.Nop())
			outcome, err := d.Deliver(context.Background(), Report{Recipients: []string{"qc@example.com"}})
			if !errors.Is(err, ErrDeliveryFailed) {
				t.Fatalf("expected ErrDeliveryFailed, got %v", err)
			}
			if outcome != OutcomeFailed {
				t.Fatalf("expected failed outcome, got %s", outcome)
			}
		})
	}
}

func TestSMTPBuildMessage(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 25, From: "automations@easternmills.com", FromName: "Eastern Mills QC"})
	m, err := s.BuildMessage(Email{
		To:         []string{"qc@example.com"},
		Subject:    "Final Inspection: BENUTA - Agra [PASS] - EHI/IP/01",
		HTML:       "<p>report</p>",
		Attachment: []byte("%PDF-1.3"),
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		t.Fatalf("write message: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Eastern Mills QC", "automations@easternmills.com", "qc@example.com", DefaultPDFFilename, "application/pdf"} {
		if !strings.Contains(out, want) {
			t.Fatalf("message missing %q:\n%s", want, out)
		}
	}

	if _, err := s.BuildMessage(Email{Subject: "x"}); err == nil {
		t.Fatalf("expected error without recipients")
	}
}
