package mailer

import (
	"context"
	"fmt"
	"io"

	gomail "gopkg.in/mail.v2"
)

// Email is a decoded message ready to send.
type Email struct {
	To             []string
	Subject        string
	HTML           string
	Attachment     []byte
	AttachmentName string
}

// Sender sends one email.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// SMTPConfig configures SMTPSender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// SMTPSender sends through an SMTP relay.
type SMTPSender struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)}
}

// BuildMessage assembles the MIME message for e.
func (s *SMTPSender) BuildMessage(e Email) (*gomail.Message, error) {
	if len(e.To) == 0 {
		return nil, fmt.Errorf("no recipients")
	}
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.From, s.cfg.FromName)
	m.SetHeader("To", e.To...)
	m.SetHeader("Subject", e.Subject)
	m.SetBody("text/html", e.HTML)
	if len(e.Attachment) > 0 {
		name := e.AttachmentName
		if name == "" {
			name = DefaultPDFFilename
		}
		data := e.Attachment
		m.Attach(name,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {"application/pdf"}}),
		)
	}
	return m, nil
}

func (s *SMTPSender) Send(ctx context.Context, e Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := s.BuildMessage(e)
	if err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
