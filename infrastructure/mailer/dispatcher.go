package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Outcome of one delivery.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

var ErrDeliveryFailed = errors.New("report delivery failed")

// Report is a rendered inspection report addressed to recipients.
type Report struct {
	Recipients []string
	Subject    string
	HTML       string
	PDF        []byte
	Filename   string
}

// Dispatcher posts reports to the email endpoint. It never retries.
type Dispatcher struct {
	endpoint string
	client   *http.Client
	log      zerolog.Logger
}

func NewDispatcher(endpoint string, timeout time.Duration, log zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{endpoint: endpoint, client: &http.Client{Timeout: timeout}, log: log}
}

// Deliver sends r. With no recipients it does nothing and returns OutcomeSkipped.
func (d *Dispatcher) Deliver(ctx context.Context, r Report) (Outcome, error) {
	if len(r.Recipients) == 0 {
		d.log.Info().Str("subject", r.Subject).Msg("no recipients configured; delivery skipped")
		return OutcomeSkipped, nil
	}

	body, err := json.Marshal(Message{
		To:          r.Recipients,
		Subject:     r.Subject,
		HTML:        r.HTML,
		PDFBase64:   base64.StdEncoding.EncodeToString(r.PDF),
		PDFFilename: r.Filename,
	})
	if err != nil {
		return OutcomeFailed, fmt.Errorf("encode delivery: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return OutcomeFailed, fmt.Errorf("build delivery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var out Response
	decodeErr := json.Unmarshal(raw, &out)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := out.Error
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return OutcomeFailed, fmt.Errorf("%w: status %d: %s", ErrDeliveryFailed, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return OutcomeFailed, fmt.Errorf("%w: invalid response: %v", ErrDeliveryFailed, decodeErr)
	}
	if !out.Success {
		return OutcomeFailed, fmt.Errorf("%w: %s", ErrDeliveryFailed, out.Error)
	}

	d.log.Info().Strs("to", r.Recipients).Str("subject", r.Subject).Msg("report delivered")
	return OutcomeSent, nil
}
