package form

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"qcinspect/infrastructure/storage"
	"qcinspect/models"
)

var (
	ErrEmptyQuantity = errors.New("quantity is empty")
	ErrMissingUpload = errors.New("attached photo has no uploaded url")
)

// QuantityError reports text that is not a non-negative whole number.
type QuantityError struct {
	Input string
}

func (e *QuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %q: must be a whole number of zero or more", e.Input)
}

// EmptyPolicy decides what an empty quantity means.
type EmptyPolicy int

const (
	EmptyAsError EmptyPolicy = iota
	EmptyAsZero
)

// ParseQuantity parses a non-negative integer. Surrounding spaces are ignored.
func ParseQuantity(text string) (int64, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, ErrEmptyQuantity
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, &QuantityError{Input: text}
	}
	return n, nil
}

// ParseQuantityWith applies policy to empty input.
func ParseQuantityWith(text string, policy EmptyPolicy) (int64, error) {
	n, err := ParseQuantity(text)
	if errors.Is(err, ErrEmptyQuantity) && policy == EmptyAsZero {
		return 0, nil
	}
	return n, err
}

// UploadsFor lists the draft's photos in upload order: named slots, then
// supplementary photos, then NOT-OK photos in check order.
func UploadsFor(s *FormState) []storage.PhotoUpload {
	var out []storage.PhotoUpload
	for _, slot := range models.PhotoSlots {
		if p, ok := s.Photos[slot.Key]; ok {
			out = append(out, upload(slot.Key, p))
		}
	}
	for i, p := range s.OtherPhotos {
		out = append(out, upload(models.OtherPhotoKey(i), p))
	}
	for _, f := range models.InspectionFields {
		if !f.IsCheck() {
			continue
		}
		if p, ok := s.NotOKPhotos[f.Key]; ok {
			out = append(out, upload(models.NotOKPhotoKey(f.Key), p))
		}
	}
	return out
}

func upload(key string, p PhotoAttachment) storage.PhotoUpload {
	return storage.PhotoUpload{FieldKey: key, Filename: p.Filename, ContentType: p.ContentType, Data: p.Data}
}

// URLsByField indexes upload results by field key.
func URLsByField(uploaded []storage.UploadedPhoto) map[string]string {
	out := make(map[string]string, len(uploaded))
	for _, u := range uploaded {
		out[u.FieldKey] = u.URL
	}
	return out
}

// Build assembles the immutable record from a validated draft and the URLs
// of its uploaded photos keyed by upload field key.
func Build(s *FormState, urls map[string]string, id string, now time.Time) (models.InspectionRecord, error) {
	if err := s.Validate(); err != nil {
		return models.InspectionRecord{}, err
	}
	f := func(key string) string { return strings.TrimSpace(s.Fields[key]) }

	rec := models.InspectionRecord{
		ID:                 id,
		Company:            s.Company,
		DocumentNo:         s.DocumentNo,
		InspectionDate:     f("inspectionDate"),
		QCInspectorName:    f("qcInspectorName"),
		CustomerName:       f("customerName"),
		CustomerCode:       f("customerCode"),
		CustomerPONo:       f("customerPoNo"),
		OPSNo:              f("opsNo"),
		BuyerDesignName:    f("buyerDesignName"),
		EMPLDesignNo:       f("emplDesignNo"),
		ColorName:          f("colorName"),
		ProductSizes:       splitSizes(s.Sizes),
		Merchant:           f("merchant"),
		AQL:                f("aql"),
		DPCISkuStyleNumber: f("dpciSkuStyleNumber"),
		StyleDescription:   f("styleDescription"),
		InspectionResult:   f("inspectionResult"),
		QCInspectorRemarks: strings.TrimSpace(s.Fields["qcInspectorRemarks"]),
		Defects:            []models.Defect{},
		CreatedAt:          now.UTC(),
	}

	quantities := []struct {
		key string
		dst *int64
	}{
		{"totalOrderQty", &rec.TotalOrderQty},
		{"inspectedLotQty", &rec.InspectedLotQty},
		{"sampleSize", &rec.SampleSize},
		{"acceptedQty", &rec.AcceptedQty},
		{"rejectedQty", &rec.RejectedQty},
	}
	for _, q := range quantities {
		n, err := ParseQuantityWith(s.Fields[q.key], EmptyAsError)
		if err != nil {
			return models.InspectionRecord{}, fmt.Errorf("%s: %w", fieldLabel(q.key), err)
		}
		*q.dst = n
	}

	for _, sid := range models.CheckSections {
		section := models.CheckSection{}
		for _, field := range models.SectionFields(sid) {
			section[field.Key] = strings.TrimSpace(s.Fields[field.Key])
		}
		switch sid {
		case models.SectionQuality:
			rec.Quality = section
		case models.SectionLabeling:
			rec.Labeling = section
		case models.SectionPackaging:
			rec.Packaging = section
		case models.SectionAdditional:
			rec.Additional = section
		}
	}

	for i, d := range s.Defects {
		major, err := ParseQuantityWith(d.MajorCount, EmptyAsZero)
		if err != nil {
			return models.InspectionRecord{}, fmt.Errorf("defect %d major count: %w", i+1, err)
		}
		minor, err := ParseQuantityWith(d.MinorCount, EmptyAsZero)
		if err != nil {
			return models.InspectionRecord{}, fmt.Errorf("defect %d minor count: %w", i+1, err)
		}
		rec.Defects = append(rec.Defects, models.Defect{
			DefectCode:  strings.TrimSpace(d.DefectCode),
			Description: strings.TrimSpace(d.Description),
			MajorCount:  major,
			MinorCount:  minor,
		})
	}

	for _, u := range UploadsFor(s) {
		if urls[u.FieldKey] == "" {
			return models.InspectionRecord{}, fmt.Errorf("%w: %s", ErrMissingUpload, u.FieldKey)
		}
	}
	if len(s.Photos) > 0 {
		rec.Photos = make(map[string]string, len(s.Photos))
		for key := range s.Photos {
			rec.Photos[key] = urls[key]
		}
	}
	for i := range s.OtherPhotos {
		rec.OtherPhotos = append(rec.OtherPhotos, urls[models.OtherPhotoKey(i)])
	}
	if len(s.NotOKPhotos) > 0 {
		rec.NotOKPhotos = make(map[string]string, len(s.NotOKPhotos))
		for check := range s.NotOKPhotos {
			rec.NotOKPhotos[check] = urls[models.NotOKPhotoKey(check)]
		}
	}
	return rec, nil
}

// splitSizes flattens tags that still contain commas.
func splitSizes(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		for _, part := range strings.Split(t, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
