// Package mailer delivers inspection reports: the dispatcher posts a report to
// the email endpoint, and the SMTP sender behind that endpoint mails it.
package mailer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Message is the JSON body accepted by the email endpoint.
type Message struct {
	To          Recipients `json:"to"`
	Subject     string     `json:"subject"`
	HTML        string     `json:"html"`
	PDFBase64   string     `json:"pdfBase64,omitempty"`
	PDFFilename string     `json:"pdfFilename,omitempty"`
}

// Response is the JSON reply of the email endpoint.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Recipients decodes from either a single address string or a list.
type Recipients []string

func (r *Recipients) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*r = splitAddresses(one)
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("to must be a string or a list of strings")
	}
	out := make([]string, 0, len(many))
	for _, m := range many {
		out = append(out, splitAddresses(m)...)
	}
	*r = out
	return nil
}

func splitAddresses(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DefaultPDFFilename names an attachment sent without a filename.
const DefaultPDFFilename = "report.pdf"
