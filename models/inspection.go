package models

import "time"

// Result values.
const (
	ResultPass = "PASS"
	ResultFail = "FAIL"
)

// Check values.
const (
	CheckOK    = "OK"
	CheckNotOK = "NOT OK"
	AnswerYes  = "Yes"
	AnswerNo   = "No"
)

// Defect is one row of the defect table. Major and minor counts are independent.
type Defect struct {
	DefectCode  string `json:"defectCode"`
	Description string `json:"description"`
	MajorCount  int64  `json:"majorCount"`
	MinorCount  int64  `json:"minorCount"`
}

// CheckSection holds the values of one quality-check section keyed by field key.
// A nil section means the record was written without it.
type CheckSection map[string]string

// InspectionRecord is a submitted final inspection. It is never updated after
// it is written.
type InspectionRecord struct {
	ID         string `json:"id"`
	Company    string `json:"company"`
	DocumentNo string `json:"documentNo"`

	InspectionDate  string   `json:"inspectionDate"`
	QCInspectorName string   `json:"qcInspectorName"`
	CustomerName    string   `json:"customerName"`
	CustomerCode    string   `json:"customerCode"`
	CustomerPONo    string   `json:"customerPoNo"`
	OPSNo           string   `json:"opsNo"`
	BuyerDesignName string   `json:"buyerDesignName"`
	EMPLDesignNo    string   `json:"emplDesignNo"`
	ColorName       string   `json:"colorName"`
	ProductSizes    []string `json:"productSizes"`
	Merchant        string   `json:"merchant"`

	TotalOrderQty   int64  `json:"totalOrderQty"`
	InspectedLotQty int64  `json:"inspectedLotQty"`
	AQL             string `json:"aql"`
	SampleSize      int64  `json:"sampleSize"`
	AcceptedQty     int64  `json:"acceptedQty"`
	RejectedQty     int64  `json:"rejectedQty"`

	Quality    CheckSection `json:"quality,omitempty"`
	Labeling   CheckSection `json:"labeling,omitempty"`
	Packaging  CheckSection `json:"packaging,omitempty"`
	Additional CheckSection `json:"additional,omitempty"`

	DPCISkuStyleNumber string   `json:"dpciSkuStyleNumber"`
	StyleDescription   string   `json:"styleDescription"`
	Defects            []Defect `json:"defects"`

	Photos      map[string]string `json:"photos,omitempty"`
	OtherPhotos []string          `json:"otherPhotos,omitempty"`
	NotOKPhotos map[string]string `json:"notOkPhotos,omitempty"`

	InspectionResult   string    `json:"inspectionResult"`
	QCInspectorRemarks string    `json:"qcInspectorRemarks"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Section returns the check section with the given id, or nil.
func (r *InspectionRecord) Section(id SectionID) CheckSection {
	switch id {
	case SectionQuality:
		return r.Quality
	case SectionLabeling:
		return r.Labeling
	case SectionPackaging:
		return r.Packaging
	case SectionAdditional:
		return r.Additional
	}
	return nil
}

// DefectTotals sums major and minor counts across all defect rows.
func (r *InspectionRecord) DefectTotals() (major, minor int64) {
	for _, d := range r.Defects {
		major += d.MajorCount
		minor += d.MinorCount
	}
	return major, minor
}

// Passed reports whether the inspector marked the lot as passed.
func (r *InspectionRecord) Passed() bool {
	return r.InspectionResult == ResultPass
}

// PhotoRef is one photo of a record in rendering order.
type PhotoRef struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

// OrderedPhotos lists named slots in catalog order, then supplementary photos,
// then NOT-OK photos in check catalog order. Empty URLs are skipped.
func (r *InspectionRecord) OrderedPhotos() []PhotoRef {
	var out []PhotoRef
	for _, slot := range PhotoSlots {
		if u := r.Photos[slot.Key]; u != "" {
			out = append(out, PhotoRef{Key: slot.Key, Label: slot.Label, URL: u})
		}
	}
	for i, u := range r.OtherPhotos {
		if u == "" {
			continue
		}
		out = append(out, PhotoRef{Key: OtherPhotoKey(i), Label: OtherPhotoLabel(i), URL: u})
	}
	for _, f := range InspectionFields {
		if !f.IsCheck() {
			continue
		}
		if u := r.NotOKPhotos[f.Key]; u != "" {
			out = append(out, PhotoRef{Key: NotOKPhotoKey(f.Key), Label: f.Label + " (NOT OK)", URL: u})
		}
	}
	return out
}
