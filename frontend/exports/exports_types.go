package exports

import (
	"strconv"
	"strings"

	"qcinspect/models"
)

// Column is one export column.
type Column struct {
	Header string
	Width  float64
	Value  func(rec models.InspectionRecord) any
}

func str(f func(models.InspectionRecord) string) func(models.InspectionRecord) any {
	return func(rec models.InspectionRecord) any { return f(rec) }
}

// Columns is the export layout, one row per record.
var Columns = []Column{
	{"id", 38, str(func(r models.InspectionRecord) string { return r.ID })},
	{"document_no", 14, str(func(r models.InspectionRecord) string { return r.DocumentNo })},
	{"company", 10, str(func(r models.InspectionRecord) string { return r.Company })},
	{"inspection_date", 14, str(func(r models.InspectionRecord) string { return r.InspectionDate })},
	{"qc_inspector", 18, str(func(r models.InspectionRecord) string { return r.QCInspectorName })},
	{"customer_name", 20, str(func(r models.InspectionRecord) string { return r.CustomerName })},
	{"customer_code", 14, str(func(r models.InspectionRecord) string { return r.CustomerCode })},
	{"customer_po_no", 14, str(func(r models.InspectionRecord) string { return r.CustomerPONo })},
	{"ops_no", 12, str(func(r models.InspectionRecord) string { return r.OPSNo })},
	{"buyer_design_name", 20, str(func(r models.InspectionRecord) string { return r.BuyerDesignName })},
	{"empl_design_no", 14, str(func(r models.InspectionRecord) string { return r.EMPLDesignNo })},
	{"color_name", 14, str(func(r models.InspectionRecord) string { return r.ColorName })},
	{"product_sizes", 18, str(func(r models.InspectionRecord) string { return strings.Join(r.ProductSizes, ", ") })},
	{"merchant", 14, str(func(r models.InspectionRecord) string { return r.Merchant })},
	{"total_order_qty", 12, func(r models.InspectionRecord) any { return r.TotalOrderQty }},
	{"inspected_lot_qty", 12, func(r models.InspectionRecord) any { return r.InspectedLotQty }},
	{"aql", 8, str(func(r models.InspectionRecord) string { return r.AQL })},
	{"sample_size", 12, func(r models.InspectionRecord) any { return r.SampleSize }},
	{"accepted_qty", 12, func(r models.InspectionRecord) any { return r.AcceptedQty }},
	{"rejected_qty", 12, func(r models.InspectionRecord) any { return r.RejectedQty }},
	{"major_defects", 12, func(r models.InspectionRecord) any { major, _ := r.DefectTotals(); return major }},
	{"minor_defects", 12, func(r models.InspectionRecord) any { _, minor := r.DefectTotals(); return minor }},
	{"not_ok_checks", 30, str(notOKChecks)},
	{"inspection_result", 10, str(func(r models.InspectionRecord) string { return r.InspectionResult })},
	{"created_at", 20, str(func(r models.InspectionRecord) string { return r.CreatedAt.UTC().Format("02/01/2006 15:04") })},
}

// notOKChecks lists the labels of failed checks in catalog order.
func notOKChecks(rec models.InspectionRecord) string {
	var out []string
	for _, f := range models.InspectionFields {
		if !f.IsCheck() {
			continue
		}
		if rec.Section(f.Section)[f.Key] == models.CheckNotOK {
			out = append(out, f.Label)
		}
	}
	return strings.Join(out, "; ")
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return ""
	}
}
