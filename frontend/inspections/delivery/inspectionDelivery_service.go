package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"qcinspect/frontend/inspections/report"
	"qcinspect/infrastructure/audit"
	"qcinspect/infrastructure/mailer"
	"qcinspect/infrastructure/options"
	"qcinspect/infrastructure/sqlite"
	"qcinspect/models"
)

// ErrReportGeneration marks a delivery that never reached the dispatcher
// because the PDF could not be produced.
var ErrReportGeneration = errors.New("report generation failed")

// RecipientSource lists the addresses a station's reports go to.
type RecipientSource interface {
	List(ctx context.Context, station string) ([]string, error)
}

// Dispatcher sends one rendered report.
type Dispatcher interface {
	Deliver(ctx context.Context, r mailer.Report) (mailer.Outcome, error)
}

// Service renders a stored record and hands it to the dispatcher. Every call
// leaves a delivery_attempts row, including skipped and failed ones.
type Service struct {
	Recipients RecipientSource
	Dispatcher Dispatcher
	Catalog    *options.Catalog
	Fetcher    report.ImageFetcher
	DB         *sqlite.DB
	Audit      *audit.Service
	Now        func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Deliver sends the report of rec to the station's current recipients.
func (s *Service) Deliver(ctx context.Context, station string, rec models.InspectionRecord) (mailer.Outcome, error) {
	recipients, err := s.Recipients.List(ctx, station)
	if err != nil {
		err = fmt.Errorf("load recipients: %w", err)
		s.record(ctx, station, rec.ID, nil, mailer.OutcomeFailed, err)
		return mailer.OutcomeFailed, err
	}
	if len(recipients) == 0 {
		log.Info().Str("inspection_id", rec.ID).Str("station", station).Msg("no recipients configured; delivery skipped")
		s.record(ctx, station, rec.ID, recipients, mailer.OutcomeSkipped, nil)
		return mailer.OutcomeSkipped, nil
	}

	msg, err := s.Render(ctx, rec)
	if err != nil {
		s.record(ctx, station, rec.ID, recipients, mailer.OutcomeFailed, err)
		return mailer.OutcomeFailed, err
	}
	msg.Recipients = recipients

	outcome, err := s.Dispatcher.Deliver(ctx, msg)
	if err != nil {
		log.Warn().Err(err).Str("inspection_id", rec.ID).Msg("report delivery failed")
	}
	s.record(ctx, station, rec.ID, recipients, outcome, err)
	return outcome, err
}

// Render produces the email body and PDF attachment of rec without sending it.
func (s *Service) Render(ctx context.Context, rec models.InspectionRecord) (mailer.Report, error) {
	companyName := s.companyName(rec)
	html, err := report.RenderHTML(ctx, rec, companyName)
	if err != nil {
		return mailer.Report{}, fmt.Errorf("%w: html: %v", ErrReportGeneration, err)
	}
	pdf, err := report.RenderPDF(ctx, rec, report.PDFOptions{
		CompanyName: companyName,
		GeneratedAt: s.now(),
		Fetcher:     s.Fetcher,
	})
	if err != nil {
		return mailer.Report{}, fmt.Errorf("%w: pdf: %v", ErrReportGeneration, err)
	}
	return mailer.Report{
		Subject:  report.EmailSubject(rec),
		HTML:     html,
		PDF:      pdf.Bytes,
		Filename: report.PDFFilename(rec),
	}, nil
}

func (s *Service) companyName(rec models.InspectionRecord) string {
	if s.Catalog == nil {
		return rec.Company
	}
	return s.Catalog.CompanyName(rec.Company)
}

func (s *Service) record(ctx context.Context, station, inspectionID string, recipients []string, outcome mailer.Outcome, deliveryErr error) {
	if s.DB == nil {
		return
	}
	attempt := models.DeliveryAttempt{
		InspectionID: inspectionID,
		StationID:    station,
		Recipients:   strings.Join(recipients, ","),
		Outcome:      string(outcome),
		CreatedAt:    s.now().UTC(),
	}
	if deliveryErr != nil {
		attempt.Error = deliveryErr.Error()
	}
	// A lost history row does not change the outcome.
	if err := RecordAttempt(context.WithoutCancel(ctx), s.DB, s.Audit, attempt); err != nil {
		log.Error().Err(err).Str("inspection_id", inspectionID).Msg("record delivery attempt")
	}
}
