package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"qcinspect/frontend/email"
	"qcinspect/frontend/exports"
	"qcinspect/frontend/inspections/browser"
	"qcinspect/frontend/inspections/form"
	optionspage "qcinspect/frontend/options"
	"qcinspect/frontend/settings"
)

// emailPath is called server to server by the delivery dispatcher.
const emailPath = "/api/send-email"

// RegisterEmailRoutes registers the email endpoint. Every method reaches the
// handler so it can answer 405 itself.
func (s *Server) RegisterEmailRoutes() {
	s.router.HandleFunc(emailPath, email.SendEmailCommandHandler(s.Sender))
}

// RegisterFormRoutes registers the station draft and submission routes.
func (s *Server) RegisterFormRoutes(r chi.Router) {
	r.Route("/form", func(r chi.Router) {
		r.Get("/", form.GetFormQueryHandler(s.Drafts))
		r.Post("/fields", form.SetFieldsCommandHandler(s.Drafts))
		r.Post("/company", form.SetCompanyCommandHandler(s.Drafts))
		r.Post("/sizes", form.AddSizeCommandHandler(s.Drafts))
		r.Post("/sizes/remove", form.RemoveSizeCommandHandler(s.Drafts))
		r.Post("/defects", form.AddDefectCommandHandler(s.Drafts))
		r.Post("/defects/{index}", form.UpdateDefectCommandHandler(s.Drafts))
		r.Post("/defects/{index}/remove", form.RemoveDefectCommandHandler(s.Drafts))
		r.Post("/photos/{key}", form.AttachPhotoCommandHandler(s.Drafts))
		r.Post("/photos/{key}/remove", form.DetachPhotoCommandHandler(s.Drafts))
		r.Post("/reset", form.ResetFormCommandHandler(s.Drafts))
		r.Post("/submit", form.SubmitCommandHandler(s.Submitter))
	})
}

// RegisterInspectionRoutes registers the browser and export routes.
func (s *Server) RegisterInspectionRoutes(r chi.Router) {
	r.Route("/inspections", func(r chi.Router) {
		r.Get("/", browser.ListInspectionsQueryHandler(s.DB))
		r.Get("/export.csv", exports.InspectionsCSVHandler(s.DB, s.Audit))
		r.Get("/export.xlsx", exports.InspectionsXLSXHandler(s.DB, s.Audit))
		r.Get("/{id}", browser.GetInspectionQueryHandler(s.DB))
		r.Post("/{id}/delete", browser.DeleteInspectionCommandHandler(s.DB, s.Audit))
		r.Get("/{id}/pdf", browser.InspectionPDFQueryHandler(s.DB, s.Delivery))
		r.Get("/{id}/preview", browser.InspectionPreviewQueryHandler(s.DB, s.Catalog))
		r.Post("/{id}/resend", browser.ResendInspectionCommandHandler(s.DB, s.Delivery))
	})
}

// RegisterOptionRoutes registers dropdown option routes.
func (s *Server) RegisterOptionRoutes(r chi.Router) {
	r.Post("/options/customer/import", optionspage.ImportCustomersCommandHandler(s.Central))
	r.Get("/options/{kind}", optionspage.ListOptionsQueryHandler(s.Registry))
	r.Post("/options/{kind}", optionspage.AddOptionCommandHandler(s.Registry))
}

// RegisterSettingsRoutes registers the per-station recipient routes.
func (s *Server) RegisterSettingsRoutes(r chi.Router) {
	r.Get("/settings/recipients", settings.RecipientsQueryHandler(s.Recipients))
	r.Post("/settings/recipients", settings.AddRecipientCommandHandler(s.Recipients))
	r.Post("/settings/recipients/remove", settings.RemoveRecipientCommandHandler(s.Recipients))
}

func isExemptFromCSRF(r *http.Request) bool {
	return r.URL.Path == emailPath
}
