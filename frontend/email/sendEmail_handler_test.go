package email

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"qcinspect/infrastructure/mailer"
)

type recordingSender struct {
	sent []mailer.Email
	err  error
}

func (s *recordingSender) Send(_ context.Context, e mailer.Email) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, e)
	return nil
}

func post(h http.HandlerFunc, body string) (*httptest.ResponseRecorder, mailer.Response) {
	req := httptest.NewRequest(http.MethodPost, "/api/send-email", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	var resp mailer.Response
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func TestSendEmailRejectsOtherMethods(t *testing.T) {
	rec := httptest.NewRecorder()
	SendEmailCommandHandler(&recordingSender{})(rec, httptest.NewRequest(http.MethodGet, "/api/send-email", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "Method Not Allowed" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestSendEmailSendsDecodedAttachment(t *testing.T) {
	sender := &recordingSender{}
	pdf := base64.StdEncoding.EncodeToString([]byte("%PDF-1.3"))
	rec, resp := post(SendEmailCommandHandler(sender), `{"to":"a@x.com, b@x.com","subject":"s","html":"<p>x</p>","pdfBase64":"`+pdf+`"}`)
	if rec.Code != http.StatusOK || !resp.Success || resp.Message != "Email sent successfully" {
		t.Fatalf("unexpected response %d %+v", rec.Code, resp)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(sender.sent))
	}
	got := sender.sent[0]
	if strings.Join(got.To, "|") != "a@x.com|b@x.com" || string(got.Attachment) != "%PDF-1.3" || got.AttachmentName != "" {
		t.Fatalf("unexpected email %+v", got)
	}
}

func TestSendEmailFailures(t *testing.T) {
	rec, resp := post(SendEmailCommandHandler(&recordingSender{}), `{"to":`)
	if rec.Code != http.StatusBadRequest || resp.Success {
		t.Fatalf("expected 400 for malformed body, got %d %+v", rec.Code, resp)
	}

	rec, resp = post(SendEmailCommandHandler(&recordingSender{err: errors.New("535 auth failed")}), `{"to":["a@x.com"],"subject":"s","html":"h"}`)
	if rec.Code != http.StatusInternalServerError || resp.Success || resp.Error != "535 auth failed" {
		t.Fatalf("expected 500 with sender error, got %d %+v", rec.Code, resp)
	}
}
