package models

import "fmt"

// SectionID groups form fields the way the report lays them out.
type SectionID string

const (
	SectionOrder          SectionID = "order"
	SectionQuantities     SectionID = "quantities"
	SectionQuality        SectionID = "quality"
	SectionLabeling       SectionID = "labeling"
	SectionPackaging      SectionID = "packaging"
	SectionAdditional     SectionID = "additional"
	SectionDefectTracking SectionID = "defectTracking"
	SectionOutcome        SectionID = "outcome"
)

// SectionTitles maps sections to report headings.
var SectionTitles = map[SectionID]string{
	SectionOrder:          "Order Information",
	SectionQuantities:     "Quantities",
	SectionQuality:        "Product Quality",
	SectionLabeling:       "Labeling",
	SectionPackaging:      "Packaging",
	SectionAdditional:     "Additional Checks",
	SectionDefectTracking: "Defects",
	SectionOutcome:        "Result",
}

// CheckSections are the sections stored as CheckSection maps on a record.
var CheckSections = []SectionID{SectionQuality, SectionLabeling, SectionPackaging, SectionAdditional}

// FieldKind describes how a field value is entered and validated.
type FieldKind int

const (
	KindText FieldKind = iota
	KindDate
	KindOption
	KindQuantity
	KindCheck
	KindChoice
)

// Field describes one scalar form field.
type Field struct {
	Key      string
	Label    string
	Section  SectionID
	Kind     FieldKind
	Required bool
	Default  string
	Choices  []string
	// OptionKind names the option list backing a KindOption field.
	OptionKind string
}

// IsCheck reports whether the field is a two-state OK/NOT OK check.
func (f Field) IsCheck() bool {
	return f.Kind == KindCheck
}

// Allows reports whether v is an acceptable value for a fixed-choice field.
func (f Field) Allows(v string) bool {
	if len(f.Choices) == 0 {
		return true
	}
	for _, c := range f.Choices {
		if c == v {
			return true
		}
	}
	return false
}

var (
	checkChoices  = []string{CheckOK, CheckNotOK}
	answerChoices = []string{AnswerYes, AnswerNo}
)

func check(key, label string, section SectionID) Field {
	return Field{Key: key, Label: label, Section: section, Kind: KindCheck, Default: CheckOK, Choices: checkChoices}
}

func text(key, label string, section SectionID) Field {
	return Field{Key: key, Label: label, Section: section, Kind: KindText}
}

func quantity(key, label string) Field {
	return Field{Key: key, Label: label, Section: SectionQuantities, Kind: KindQuantity, Required: true}
}

// InspectionFields is every scalar field of the inspection form in report order.
// Company, product sizes, defects and photos are handled separately.
var InspectionFields = []Field{
	{Key: "inspectionDate", Label: "Inspection Date", Section: SectionOrder, Kind: KindDate, Required: true},
	{Key: "qcInspectorName", Label: "QC Inspector", Section: SectionOrder, Kind: KindOption, Required: true, OptionKind: "inspector"},
	{Key: "customerName", Label: "Customer Name", Section: SectionOrder, Kind: KindOption, Required: true, OptionKind: "customer"},
	{Key: "customerCode", Label: "Customer Code", Section: SectionOrder, Kind: KindText, Required: true},
	{Key: "customerPoNo", Label: "Customer PO No", Section: SectionOrder, Kind: KindText, Required: true},
	{Key: "opsNo", Label: "OPS No", Section: SectionOrder, Kind: KindText, Required: true},
	{Key: "buyerDesignName", Label: "Buyer Design Name", Section: SectionOrder, Kind: KindOption, Required: true, OptionKind: "design"},
	{Key: "emplDesignNo", Label: "EMPL Design No", Section: SectionOrder, Kind: KindText, Required: true},
	{Key: "colorName", Label: "Color", Section: SectionOrder, Kind: KindText, Required: true},
	{Key: "merchant", Label: "Merchant", Section: SectionOrder, Kind: KindOption, Required: true, OptionKind: "merchant"},

	quantity("totalOrderQty", "Total Order Qty"),
	quantity("inspectedLotQty", "Inspected Lot Qty"),
	{Key: "aql", Label: "AQL", Section: SectionQuantities, Kind: KindOption, Required: true, Default: "2.5", OptionKind: "aql"},
	quantity("sampleSize", "Sample Size"),
	quantity("acceptedQty", "Accepted Qty"),
	quantity("rejectedQty", "Rejected Qty"),

	{Key: "approvedSampleAvailable", Label: "Approved Sample Available", Section: SectionQuality, Kind: KindChoice, Default: AnswerYes, Choices: answerChoices},
	check("motifDesignCheck", "Motif / Design", SectionQuality),
	check("backing", "Backing", SectionQuality),
	check("bindingAndEdges", "Binding & Edges", SectionQuality),
	check("handFeel", "Hand Feel", SectionQuality),
	check("embossingCarving", "Embossing / Carving", SectionQuality),
	check("workmanship", "Workmanship", SectionQuality),
	check("productQualityWeight", "Product Quality / Weight", SectionQuality),
	{Key: "materialFibreContent", Label: "Material / Fibre Content", Section: SectionQuality, Kind: KindOption, OptionKind: "material"},
	text("tuftDensity", "Tuft Density", SectionQuality),
	text("backingNotes", "Backing Notes", SectionQuality),
	text("pileHeight", "Pile Height", SectionQuality),
	text("productWeight", "Product Weight", SectionQuality),
	text("sizeTolerance", "Size Tolerance", SectionQuality),
	text("finishingPercent", "Finishing %", SectionQuality),
	text("packedPercent", "Packed %", SectionQuality),

	check("labelPlacement", "Label Placement", SectionLabeling),
	check("sideMarking", "Side Marking", SectionLabeling),
	check("outerMarking", "Outer Marking", SectionLabeling),
	check("innerPack", "Inner Pack", SectionLabeling),
	check("careLabels", "Care Labels", SectionLabeling),
	check("skuStickers", "SKU Stickers", SectionLabeling),
	check("upcBarcodes", "UPC Barcodes", SectionLabeling),

	text("cartonPly", "Carton Ply", SectionPackaging),
	check("cartonDropTest", "Carton Drop Test", SectionPackaging),
	{Key: "packingType", Label: "Packing Type", Section: SectionPackaging, Kind: KindChoice, Default: "Solid", Choices: []string{"Solid", "Assorted"}},
	text("grossWeight", "Gross Weight", SectionPackaging),
	text("netWeight", "Net Weight", SectionPackaging),
	check("cartonBaleNumbering", "Carton / Bale Numbering", SectionPackaging),
	text("pcsPerCartonBale", "Pcs per Carton / Bale", SectionPackaging),
	text("pcsPerPolybag", "Pcs per Polybag", SectionPackaging),
	text("cartonMeasurementL", "Carton Length", SectionPackaging),
	text("cartonMeasurementW", "Carton Width", SectionPackaging),
	text("cartonMeasurementH", "Carton Height", SectionPackaging),

	check("cartonDimension", "Carton Dimension", SectionAdditional),
	check("productLabel", "Product Label", SectionAdditional),
	check("cartonLabel", "Carton Label", SectionAdditional),
	check("barcodeScan", "Barcode Scan", SectionAdditional),

	text("dpciSkuStyleNumber", "DPCI / SKU / Style Number", SectionDefectTracking),
	text("styleDescription", "Style Description", SectionDefectTracking),

	{Key: "inspectionResult", Label: "Inspection Result", Section: SectionOutcome, Kind: KindChoice, Required: true, Default: ResultPass, Choices: []string{ResultPass, ResultFail}},
	text("qcInspectorRemarks", "QC Inspector Remarks", SectionOutcome),
}

var fieldsByKey = func() map[string]Field {
	m := make(map[string]Field, len(InspectionFields))
	for _, f := range InspectionFields {
		m[f.Key] = f
	}
	return m
}()

// FieldByKey looks up a scalar field.
func FieldByKey(key string) (Field, bool) {
	f, ok := fieldsByKey[key]
	return f, ok
}

// SectionFields returns the fields of one section in catalog order.
func SectionFields(id SectionID) []Field {
	var out []Field
	for _, f := range InspectionFields {
		if f.Section == id {
			out = append(out, f)
		}
	}
	return out
}

// PhotoSlot is one named photo slot of the form.
type PhotoSlot struct {
	Key   string
	Label string
}

// PhotoSlots lists the named photo slots in upload and report order.
var PhotoSlots = []PhotoSlot{
	{Key: "approvedSamplePhoto", Label: "Approved Sample"},
	{Key: "idPhoto", Label: "ID Photo"},
	{Key: "redSealFrontPhoto", Label: "Red Seal - Front"},
	{Key: "redSealSidePhoto", Label: "Red Seal - Side"},
	{Key: "backPhoto", Label: "Back Photo"},
	{Key: "labelPhoto", Label: "Label Photo"},
	{Key: "moisturePhoto", Label: "Moisture Photo"},
	{Key: "sizeFrontPhoto", Label: "Size - Front"},
	{Key: "sizeSidePhoto", Label: "Size - Side"},
	{Key: "inspectedSamplesPhoto", Label: "Inspected Samples"},
	{Key: "metalCheckingPhoto", Label: "Metal Checking"},
}

// PhotoSlotByKey looks up a named photo slot.
func PhotoSlotByKey(key string) (PhotoSlot, bool) {
	for _, s := range PhotoSlots {
		if s.Key == key {
			return s, true
		}
	}
	return PhotoSlot{}, false
}

// OtherPhotoKey is the upload field key of the i-th supplementary photo.
func OtherPhotoKey(i int) string {
	return fmt.Sprintf("other_%d", i)
}

// OtherPhotoLabel is the report title of the i-th supplementary photo.
func OtherPhotoLabel(i int) string {
	return fmt.Sprintf("Other Photo %d", i+1)
}

// NotOKPhotoKey is the upload field key of the photo attached to a failed check.
func NotOKPhotoKey(checkKey string) string {
	return "notok_" + checkKey
}
