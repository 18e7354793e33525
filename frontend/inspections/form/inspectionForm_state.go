package form

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"qcinspect/infrastructure/options"
	"qcinspect/models"
)

// FormState is one station's in-progress inspection. It is not safe for
// concurrent use; the draft cache serializes access.
type FormState struct {
	catalog *options.Catalog

	Company     string
	DocumentNo  string
	Fields      map[string]string
	Sizes       []string
	Defects     []DefectInput
	Photos      map[string]PhotoAttachment
	OtherPhotos []PhotoAttachment
	NotOKPhotos map[string]PhotoAttachment
}

// NewFormState returns the default draft dated now.
func NewFormState(catalog *options.Catalog, now time.Time) *FormState {
	s := &FormState{catalog: catalog}
	s.Reset(now)
	return s
}

// Reset restores every field to its default.
func (s *FormState) Reset(now time.Time) {
	co := s.catalog.DefaultCompany()
	s.Company = co.Code
	s.DocumentNo = co.DocumentNo
	s.Fields = make(map[string]string, len(models.InspectionFields))
	for _, f := range models.InspectionFields {
		s.Fields[f.Key] = f.Default
	}
	s.Fields["inspectionDate"] = now.Format("2006-01-02")
	s.Sizes = nil
	s.Defects = nil
	s.Photos = make(map[string]PhotoAttachment)
	s.OtherPhotos = nil
	s.NotOKPhotos = make(map[string]PhotoAttachment)
}

// Clone copies the draft so it can be submitted without holding the cache.
// Photo bytes are shared; they are never modified in place.
func (s *FormState) Clone() *FormState {
	return &FormState{
		catalog:     s.catalog,
		Company:     s.Company,
		DocumentNo:  s.DocumentNo,
		Fields:      maps.Clone(s.Fields),
		Sizes:       slices.Clone(s.Sizes),
		Defects:     slices.Clone(s.Defects),
		Photos:      maps.Clone(s.Photos),
		OtherPhotos: slices.Clone(s.OtherPhotos),
		NotOKPhotos: maps.Clone(s.NotOKPhotos),
	}
}

// SetField sets one scalar field. Fixed-choice fields only accept their choices.
func (s *FormState) SetField(key, value string) error {
	f, ok := models.FieldByKey(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	if (f.Kind == models.KindCheck || f.Kind == models.KindChoice) && !f.Allows(value) {
		return fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, value)
	}
	if f.Kind == models.KindDate && value != "" {
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, value)
		}
	}
	s.Fields[key] = value
	if f.IsCheck() && value == models.CheckOK {
		delete(s.NotOKPhotos, key)
	}
	return nil
}

// SetFields applies several fields, or none if any is invalid.
func (s *FormState) SetFields(values map[string]string) error {
	trial := s.Clone()
	keys := slices.Sorted(maps.Keys(values))
	for _, k := range keys {
		if err := trial.SetField(k, values[k]); err != nil {
			return err
		}
	}
	s.Fields = trial.Fields
	s.NotOKPhotos = trial.NotOKPhotos
	return nil
}

// SetCompany switches the inspecting company and its document number.
func (s *FormState) SetCompany(code string) error {
	co, ok := s.catalog.Company(code)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCompany, code)
	}
	s.Company = co.Code
	s.DocumentNo = co.DocumentNo
	return nil
}

// AddSizeTag adds a size; comma separated input adds several. Duplicates are ignored.
func (s *FormState) AddSizeTag(raw string) error {
	added := false
	for _, part := range strings.Split(raw, ",") {
		size := strings.TrimSpace(part)
		if size == "" {
			continue
		}
		added = true
		if !slices.Contains(s.Sizes, size) {
			s.Sizes = append(s.Sizes, size)
		}
	}
	if !added {
		return ErrEmptySize
	}
	return nil
}

// RemoveSizeTag removes a size if present.
func (s *FormState) RemoveSizeTag(size string) {
	size = strings.TrimSpace(size)
	s.Sizes = slices.DeleteFunc(s.Sizes, func(v string) bool { return v == size })
}

// AddDefect appends a defect row. A catalogued code fills in its description.
func (s *FormState) AddDefect(code string) DefectInput {
	row := DefectInput{DefectCode: strings.TrimSpace(code), MajorCount: "0", MinorCount: "0"}
	if d, ok := s.catalog.DefectDescription(row.DefectCode); ok {
		row.Description = d
	}
	s.Defects = append(s.Defects, row)
	return row
}

// UpdateDefect replaces row i. Changing the code to a catalogued one without a
// description fills the description in.
func (s *FormState) UpdateDefect(i int, row DefectInput) error {
	if i < 0 || i >= len(s.Defects) {
		return fmt.Errorf("%w: %d", ErrDefectIndex, i)
	}
	row.DefectCode = strings.TrimSpace(row.DefectCode)
	if row.DefectCode != s.Defects[i].DefectCode && strings.TrimSpace(row.Description) == "" {
		if d, ok := s.catalog.DefectDescription(row.DefectCode); ok {
			row.Description = d
		}
	}
	s.Defects[i] = row
	return nil
}

// RemoveDefect deletes row i.
func (s *FormState) RemoveDefect(i int) error {
	if i < 0 || i >= len(s.Defects) {
		return fmt.Errorf("%w: %d", ErrDefectIndex, i)
	}
	s.Defects = slices.Delete(s.Defects, i, i+1)
	return nil
}

// AttachPhoto sets a named slot photo.
func (s *FormState) AttachPhoto(slot string, p PhotoAttachment) error {
	if _, ok := models.PhotoSlotByKey(slot); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPhoto, slot)
	}
	s.Photos[slot] = p
	return nil
}

// DetachPhoto clears a named slot.
func (s *FormState) DetachPhoto(slot string) error {
	if _, ok := models.PhotoSlotByKey(slot); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPhoto, slot)
	}
	delete(s.Photos, slot)
	return nil
}

// AttachOtherPhoto appends a supplementary photo.
func (s *FormState) AttachOtherPhoto(p PhotoAttachment) {
	s.OtherPhotos = append(s.OtherPhotos, p)
}

// RemoveOtherPhoto deletes supplementary photo i.
func (s *FormState) RemoveOtherPhoto(i int) error {
	if i < 0 || i >= len(s.OtherPhotos) {
		return fmt.Errorf("%w: other photo %d", ErrUnknownPhoto, i)
	}
	s.OtherPhotos = slices.Delete(s.OtherPhotos, i, i+1)
	return nil
}

// AttachNotOKPhoto links a photo to a check currently marked NOT OK.
func (s *FormState) AttachNotOKPhoto(check string, p PhotoAttachment) error {
	f, ok := models.FieldByKey(check)
	if !ok || !f.IsCheck() {
		return fmt.Errorf("%w: %s", ErrUnknownPhoto, check)
	}
	if s.Fields[check] != models.CheckNotOK {
		return fmt.Errorf("%w: %s", ErrCheckNotFailed, check)
	}
	s.NotOKPhotos[check] = p
	return nil
}

// DetachNotOKPhoto removes the photo of a check.
func (s *FormState) DetachNotOKPhoto(check string) {
	delete(s.NotOKPhotos, check)
}

// MissingFields lists empty mandatory fields in form order.
func (s *FormState) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(s.Company) == "" {
		missing = append(missing, "company")
	}
	for _, f := range models.InspectionFields {
		if f.Required && strings.TrimSpace(s.Fields[f.Key]) == "" {
			missing = append(missing, f.Key)
		}
		if f.Key == "colorName" && len(s.Sizes) == 0 {
			missing = append(missing, "productSizes")
		}
	}
	return missing
}

// Validate blocks submission while mandatory fields are empty.
func (s *FormState) Validate() error {
	if missing := s.MissingFields(); len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// View returns the JSON shape of the draft.
func (s *FormState) View() StateView {
	v := StateView{
		Company:     s.Company,
		DocumentNo:  s.DocumentNo,
		Fields:      maps.Clone(s.Fields),
		Sizes:       append([]string{}, s.Sizes...),
		Defects:     append([]DefectInput{}, s.Defects...),
		Photos:      make(map[string]PhotoInfo, len(s.Photos)),
		OtherPhotos: make([]PhotoInfo, 0, len(s.OtherPhotos)),
		NotOKPhotos: make(map[string]PhotoInfo, len(s.NotOKPhotos)),
		Missing:     s.MissingFields(),
	}
	for k, p := range s.Photos {
		v.Photos[k] = PhotoInfo{Filename: p.Filename, Size: len(p.Data)}
	}
	for _, p := range s.OtherPhotos {
		v.OtherPhotos = append(v.OtherPhotos, PhotoInfo{Filename: p.Filename, Size: len(p.Data)})
	}
	for k, p := range s.NotOKPhotos {
		v.NotOKPhotos[k] = PhotoInfo{Filename: p.Filename, Size: len(p.Data)}
	}
	if v.Missing == nil {
		v.Missing = []string{}
	}
	return v
}
