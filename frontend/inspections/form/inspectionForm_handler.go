package form

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	stationctx "qcinspect/frontend/shared/context"
	"qcinspect/frontend/shared/respond"
	"qcinspect/infrastructure/audit"
	"qcinspect/infrastructure/cache"
	"qcinspect/infrastructure/mailer"
	"qcinspect/infrastructure/options"
	"qcinspect/infrastructure/sqlite"
	"qcinspect/infrastructure/storage"
	"qcinspect/models"
)

const (
	maxPhoto     = 5 << 20  // 5MB
	maxMultipart = 64 << 20 // every photo of a submission
)

// Drafts holds one FormState per station.
type Drafts struct {
	cache   *cache.StationCache[*FormState]
	catalog *options.Catalog
	now     func() time.Time
}

func NewDrafts(catalog *options.Catalog) *Drafts {
	d := &Drafts{catalog: catalog, now: time.Now}
	d.cache = cache.NewStationCache(func() *FormState { return NewFormState(catalog, d.now()) })
	return d
}

// Update runs fn on a copy of the station's draft and keeps the copy only when
// fn succeeds, then returns the view.
func (d *Drafts) Update(station string, fn func(*FormState) error) (StateView, error) {
	var view StateView
	err := d.cache.Update(station, func(s *FormState) error {
		trial := s.Clone()
		if err := fn(trial); err != nil {
			return err
		}
		*s = *trial
		view = s.View()
		return nil
	})
	return view, err
}

// Snapshot copies the station's draft.
func (d *Drafts) Snapshot(station string) *FormState {
	var out *FormState
	_ = d.cache.Update(station, func(s *FormState) error {
		out = s.Clone()
		return nil
	})
	return out
}

// Reset restores the station's draft to defaults.
func (d *Drafts) Reset(station string) {
	d.cache.Delete(station)
}

// Deliverer renders and dispatches the report of a stored record.
type Deliverer interface {
	Deliver(ctx context.Context, station string, rec models.InspectionRecord) (mailer.Outcome, error)
}

// Submitter runs the submission chain for a station draft.
type Submitter struct {
	Drafts   *Drafts
	Uploader *storage.Uploader
	DB       *sqlite.DB
	Audit    *audit.Service
	Delivery Deliverer
	Now      func() time.Time
	NewID    func() string
}

// SubmitError tells the handler which stage failed.
type SubmitError struct {
	Stage string
	Err   error
}

func (e *SubmitError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// Submit validates, uploads, builds, persists and delivers. The draft is reset
// only after the record is stored; a failure before that leaves it intact.
func (s *Submitter) Submit(ctx context.Context, station string) (SubmitResult, error) {
	state := s.Drafts.Snapshot(station)
	if err := state.Validate(); err != nil {
		return SubmitResult{}, err
	}

	uploaded, err := s.Uploader.UploadAll(ctx, UploadsFor(state))
	if err != nil {
		return SubmitResult{}, &SubmitError{Stage: "upload", Err: err}
	}

	now, newID := time.Now, uuid.NewString
	if s.Now != nil {
		now = s.Now
	}
	if s.NewID != nil {
		newID = s.NewID
	}
	rec, err := Build(state, URLsByField(uploaded), newID(), now())
	if err != nil {
		return SubmitResult{}, &SubmitError{Stage: "build", Err: err}
	}
	if err := SaveInspection(ctx, s.DB, s.Audit, station, rec); err != nil {
		return SubmitResult{}, &SubmitError{Stage: "persist", Err: err}
	}
	s.Drafts.Reset(station)
	log.Info().Str("inspection_id", rec.ID).Str("document_no", rec.DocumentNo).Str("station", station).Int("photos", len(uploaded)).Msg("inspection stored")

	result := SubmitResult{ID: rec.ID, DocumentNo: rec.DocumentNo, Delivery: string(mailer.OutcomeSkipped)}
	if s.Delivery == nil {
		return result, nil
	}
	outcome, err := s.Delivery.Deliver(ctx, station, rec)
	result.Delivery = string(outcome)
	if err != nil {
		result.DeliveryError = err.Error()
	}
	return result, nil
}

func stationOf(r *http.Request) string {
	station, _ := stationctx.GetStationFromContext(r.Context())
	return station
}

// GetFormQueryHandler returns the station's current draft.
func GetFormQueryHandler(drafts *Drafts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, _ := drafts.Update(stationOf(r), func(*FormState) error { return nil })
		respond.JSON(w, http.StatusOK, view)
	}
}

// SetFieldsCommandHandler sets every posted field that names a form field.
func SetFieldsCommandHandler(drafts *Drafts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid form")
			return
		}
		values := make(map[string]string, len(r.PostForm))
		for key := range r.PostForm {
			values[key] = r.PostForm.Get(key)
		}
		view, err := drafts.Update(stationOf(r), func(s *FormState) error { return s.SetFields(values) })
		writeDraft(w, view, err)
	}
}

func SetCompanyCommandHandler(drafts *Drafts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimSpace(r.FormValue("company"))
		view, err := drafts.Update(stationOf(r), func(s *FormState) error { return s.SetCompany(code) })
		writeDraft(w, view, err)
	}
}

func AddSizeCommandHandler(drafts *Drafts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		size := r.FormValue("size")
		view, err := drafts.Update(stationOf(r), func(s *FormState) error { return s.AddSizeTag(size) })
		writeDraft(w, view, err)
	}
}

func RemoveSizeCommandHandler(drafts *Drafts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		size := r.FormValue("size")
		view, err := drafts.Update(stationOf(r), func(s *FormState) error {
			s.RemoveSizeTag(size)
			return nil
		})
		writeDraft(w, view, err)
	}
}

func AddDefectCommandHandler(drafts *Drafts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.FormValue("defectCode")
		view, err := drafts.Update(stationOf(r), func(s *FormState) error {
			s.AddDefect(code)
			return nil
		})
		writeDraft(w, view, err)
	}
}

func UpdateDefectCommandHandler(drafts *Drafts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid defect index")
			return
		}
		row := DefectInput{
			DefectCode:  r.FormValue("defectCode"),
			Description: r.FormValue("description"),
			MajorCount:  r.FormValue("majorCount"),
			MinorCount:  r.FormValue("minorCount"),
		}
		view, err := drafts.Update(stationOf(r), func(s *FormState) error { return s.UpdateDefect(i, row) })
		writeDraft(w, view, err)
	}
}

func RemoveDefectCommandHandler(drafts *Drafts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid defect index")
			return
		}
		view, err := drafts.Update(stationOf(r), func(s *FormState) error { return s.RemoveDefect(i) })
		writeDraft(w, view, err)
	}
}

// AttachPhotoCommandHandler stores the multipart "photo" in the slot named by
// key: a named slot, "other", or "notok:{check}".
func AttachPhotoCommandHandler(drafts *Drafts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxMultipart); err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		photo, ok, err := parsePhoto(r, "photo")
		if err != nil {
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		if !ok {
			respond.Error(w, http.StatusBadRequest, "photo is required")
			return
		}
		key := chi.URLParam(r, "key")
		view, err := drafts.Update(stationOf(r), func(s *FormState) error { return attach(s, key, photo) })
		writeDraft(w, view, err)
	}
}

func DetachPhotoCommandHandler(drafts *Drafts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		view, err := drafts.Update(stationOf(r), func(s *FormState) error {
			switch {
			case strings.HasPrefix(key, "notok:"):
				s.DetachNotOKPhoto(strings.TrimPrefix(key, "notok:"))
				return nil
			case strings.HasPrefix(key, "other:"):
				i, err := strconv.Atoi(strings.TrimPrefix(key, "other:"))
				if err != nil {
					return ErrUnknownPhoto
				}
				return s.RemoveOtherPhoto(i)
			default:
				return s.DetachPhoto(key)
			}
		})
		writeDraft(w, view, err)
	}
}

func ResetFormCommandHandler(drafts *Drafts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		drafts.Reset(stationOf(r))
		GetFormQueryHandler(drafts)(w, r)
	}
}

// SubmitCommandHandler merges an optional multipart body into the draft and
// submits it.
func SubmitCommandHandler(sub *Submitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		station := stationOf(r)
		if isMultipart(r) {
			if err := r.ParseMultipartForm(maxMultipart); err != nil {
				respond.Error(w, http.StatusBadRequest, "invalid multipart form")
				return
			}
		} else if err := r.ParseForm(); err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid form")
			return
		}
		if _, err := sub.Drafts.Update(station, func(s *FormState) error { return mergeRequest(s, r) }); err != nil {
			writeDraft(w, StateView{}, err)
			return
		}

		result, err := sub.Submit(r.Context(), station)
		if err != nil {
			var verr *ValidationError
			var serr *SubmitError
			switch {
			case errors.As(err, &verr):
				respond.JSON(w, http.StatusUnprocessableEntity, map[string]any{"error": verr.Error(), "missing": verr.Missing})
			case errors.As(err, &serr) && serr.Stage == "upload":
				log.Error().Err(err).Str("station", station).Msg("inspection photo upload failed")
				respond.Error(w, http.StatusBadGateway, "photo upload failed; the draft was kept, please retry")
			case errors.As(err, &serr) && serr.Stage == "build":
				respond.Error(w, http.StatusUnprocessableEntity, serr.Err.Error())
			default:
				log.Error().Err(err).Str("station", station).Msg("inspection submit failed")
				respond.Error(w, http.StatusInternalServerError, "failed to save inspection; the draft was kept, please retry")
			}
			return
		}
		respond.JSON(w, http.StatusCreated, result)
	}
}

func writeDraft(w http.ResponseWriter, view StateView, err error) {
	if err == nil {
		respond.JSON(w, http.StatusOK, view)
		return
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		respond.JSON(w, http.StatusUnprocessableEntity, map[string]any{"error": verr.Error(), "missing": verr.Missing})
		return
	}
	respond.Error(w, http.StatusBadRequest, err.Error())
}

func attach(s *FormState, key string, p PhotoAttachment) error {
	switch {
	case key == "other":
		s.AttachOtherPhoto(p)
		return nil
	case strings.HasPrefix(key, "notok:"):
		return s.AttachNotOKPhoto(strings.TrimPrefix(key, "notok:"), p)
	default:
		return s.AttachPhoto(key, p)
	}
}

// mergeRequest applies submitted values to the draft: scalar fields by key,
// "company", "productSizes", slot photos by slot key, "otherPhotos" and
// "notok_{check}" photos. Submitted otherPhotos replace the draft's list.
func mergeRequest(s *FormState, r *http.Request) error {
	values := make(map[string]string)
	for key := range r.PostForm {
		if _, ok := models.FieldByKey(key); ok {
			values[key] = r.PostForm.Get(key)
		}
	}
	if err := s.SetFields(values); err != nil {
		return err
	}
	if code := strings.TrimSpace(r.PostForm.Get("company")); code != "" {
		if err := s.SetCompany(code); err != nil {
			return err
		}
	}
	for _, raw := range r.PostForm["productSizes"] {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if err := s.AddSizeTag(raw); err != nil {
			return err
		}
	}
	if r.MultipartForm == nil {
		return nil
	}
	for _, slot := range models.PhotoSlots {
		p, ok, err := parsePhoto(r, slot.Key)
		if err != nil {
			return err
		}
		if ok {
			s.Photos[slot.Key] = p
		}
	}
	if files := r.MultipartForm.File["otherPhotos"]; len(files) > 0 {
		// A resubmission carries the full set again.
		s.OtherPhotos = nil
		for _, fh := range files {
			file, err := fh.Open()
			if err != nil {
				return err
			}
			p, ok, err := readPhoto(file, fh.Filename, fh.Header.Get("Content-Type"))
			_ = file.Close()
			if err != nil {
				return err
			}
			if ok {
				s.AttachOtherPhoto(p)
			}
		}
	}
	for _, f := range models.InspectionFields {
		if !f.IsCheck() {
			continue
		}
		p, ok, err := parsePhoto(r, models.NotOKPhotoKey(f.Key))
		if err != nil {
			return err
		}
		if ok {
			if err := s.AttachNotOKPhoto(f.Key, p); err != nil {
				return err
			}
		}
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type"))), "multipart/form-data")
}

func parsePhoto(r *http.Request, field string) (PhotoAttachment, bool, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return PhotoAttachment{}, false, nil
		}
		return PhotoAttachment{}, false, err
	}
	defer file.Close()
	return readPhoto(file, header.Filename, header.Header.Get("Content-Type"))
}

func readPhoto(file io.Reader, filename, contentType string) (PhotoAttachment, bool, error) {
	data, err := io.ReadAll(io.LimitReader(file, maxPhoto+1))
	if err != nil {
		return PhotoAttachment{}, false, err
	}
	if len(data) == 0 {
		return PhotoAttachment{}, false, nil
	}
	if len(data) > maxPhoto {
		return PhotoAttachment{}, false, errors.New("photo must be 5MB or less")
	}

	mimeType := strings.TrimSpace(contentType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return PhotoAttachment{}, false, errors.New("photo must be an image file")
	}

	name := strings.TrimSpace(filename)
	if name == "" {
		ext := ""
		if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
			ext = exts[0]
		}
		name = "photo" + ext
	} else {
		name = filepath.Base(name)
	}
	return PhotoAttachment{Filename: name, ContentType: mimeType, Data: data}, true, nil
}
