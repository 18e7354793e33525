package form

import (
	"errors"
	"fmt"
	"strings"

	"qcinspect/models"
)

var (
	ErrUnknownField   = errors.New("unknown form field")
	ErrInvalidValue   = errors.New("invalid field value")
	ErrUnknownCompany = errors.New("unknown company")
	ErrUnknownPhoto   = errors.New("unknown photo slot")
	ErrCheckNotFailed = errors.New("photo can only be attached to a NOT OK check")
	ErrDefectIndex    = errors.New("defect row does not exist")
	ErrEmptySize      = errors.New("size is required")
)

// PhotoAttachment is a photo held in a draft until submission.
type PhotoAttachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// DefectInput is a defect row as typed; counts are parsed at build time.
type DefectInput struct {
	DefectCode  string `json:"defectCode"`
	Description string `json:"description"`
	MajorCount  string `json:"majorCount"`
	MinorCount  string `json:"minorCount"`
}

// ValidationError lists the mandatory fields that are still empty.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	labels := make([]string, 0, len(e.Missing))
	for _, key := range e.Missing {
		labels = append(labels, fieldLabel(key))
	}
	return fmt.Sprintf("missing required fields: %s", strings.Join(labels, ", "))
}

func fieldLabel(key string) string {
	switch key {
	case "company":
		return "Company"
	case "productSizes":
		return "Product Sizes"
	}
	if f, ok := models.FieldByKey(key); ok {
		return f.Label
	}
	return key
}

// PhotoInfo describes an attached photo without its bytes.
type PhotoInfo struct {
	Filename string `json:"filename"`
	Size     int    `json:"size"`
}

// StateView is the JSON shape of a draft returned to the station.
type StateView struct {
	Company     string               `json:"company"`
	DocumentNo  string               `json:"documentNo"`
	Fields      map[string]string    `json:"fields"`
	Sizes       []string             `json:"productSizes"`
	Defects     []DefectInput        `json:"defects"`
	Photos      map[string]PhotoInfo `json:"photos"`
	OtherPhotos []PhotoInfo          `json:"otherPhotos"`
	NotOKPhotos map[string]PhotoInfo `json:"notOkPhotos"`
	Missing     []string             `json:"missing"`
}

// SubmitResult is returned after a successful submission.
type SubmitResult struct {
	ID            string `json:"id"`
	DocumentNo    string `json:"documentNo"`
	Delivery      string `json:"delivery"`
	DeliveryError string `json:"deliveryError,omitempty"`
}
