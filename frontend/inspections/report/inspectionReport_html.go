package report

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"qcinspect/models"
)

const (
	htmlHeaderBg  = "#059669"
	htmlPass      = "#22c55e"
	htmlPassBg    = "#dcfce7"
	htmlFail      = "#ef4444"
	htmlFailBg    = "#fee2e2"
	htmlMinor     = "#f59e0b"
	htmlHeading   = "color: #374151; border-bottom: 1px solid #e5e7eb; padding-bottom: 10px; margin-top: 20px;"
	htmlLabelCell = "padding: 8px 0; color: #6b7280;"
	htmlValueCell = "padding: 8px 0;"
	htmlGridCell  = "padding: 8px; border: 1px solid #e5e7eb;"
)

// EmailBody is the self-contained HTML report sent as the email body. Every
// value is escaped and the output depends only on its inputs.
func EmailBody(rec models.InspectionRecord, companyName string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{}
		h.document(rec, companyName)
		_, err := io.WriteString(w, h.String())
		return err
	})
}

// RenderHTML renders EmailBody to a string.
func RenderHTML(ctx context.Context, rec models.InspectionRecord, companyName string) (string, error) {
	var b strings.Builder
	if err := EmailBody(rec, companyName).Render(ctx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

type htmlWriter struct {
	strings.Builder
}

func (h *htmlWriter) raw(s ...string) {
	for _, v := range s {
		h.WriteString(v)
	}
}

func esc(s string) string {
	return templ.EscapeString(s)
}

func (h *htmlWriter) document(rec models.InspectionRecord, companyName string) {
	if strings.TrimSpace(companyName) == "" {
		companyName = rec.Company
	}
	color, bg, label := htmlFail, htmlFailBg, "✗ FAILED"
	if rec.Passed() {
		color, bg, label = htmlPass, htmlPassBg, "✓ PASSED"
	}

	h.raw(`<div style="font-family: Arial, sans-serif; max-width: 800px; margin: 0 auto;">`)
	h.raw(`<div style="background: `, htmlHeaderBg, `; color: white; padding: 20px; text-align: center;">`)
	h.raw(`<h1 style="margin: 0;">`, esc(companyName), `</h1>`)
	h.raw(`<p style="margin: 5px 0 0;">Final Inspection Report - `, esc(rec.DocumentNo), `</p>`)
	h.raw(`</div>`)

	h.raw(`<div style="background: `, bg, `; padding: 20px; text-align: center; border-bottom: 3px solid `, color, `;">`)
	h.raw(`<h2 style="color: `, color, `; margin: 0; font-size: 28px;">`, label, `</h2>`)
	h.raw(`</div>`)

	h.raw(`<div style="padding: 20px;">`)
	h.table("Order Information", []htmlRow{
		{"Date", rec.InspectionDate, ""},
		{"Inspector", rec.QCInspectorName, ""},
		{"Customer", customerLabel(rec), ""},
		{"Customer PO", rec.CustomerPONo, ""},
		{"OPS No.", rec.OPSNo, ""},
		{"Design", rec.BuyerDesignName + " / " + rec.EMPLDesignNo, ""},
		{"Color", rec.ColorName, ""},
		{"Sizes", strings.Join(rec.ProductSizes, ", "), ""},
		{"Merchant", rec.Merchant, ""},
	})
	h.table("Quantities", []htmlRow{
		{"Total Order Qty", strconv.FormatInt(rec.TotalOrderQty, 10), ""},
		{"Inspected Lot", strconv.FormatInt(rec.InspectedLotQty, 10), ""},
		{"AQL / Sample Size", rec.AQL + " / " + strconv.FormatInt(rec.SampleSize, 10), ""},
		{"Accepted", strconv.FormatInt(rec.AcceptedQty, 10), htmlPass},
		{"Rejected", strconv.FormatInt(rec.RejectedQty, 10), htmlFail},
	})
	for _, sid := range models.CheckSections {
		section := rec.Section(sid)
		if section == nil {
			continue
		}
		var rows []htmlRow
		for _, f := range models.SectionFields(sid) {
			row := htmlRow{label: f.Label, value: section[f.Key]}
			if f.IsCheck() {
				switch section[f.Key] {
				case models.CheckOK:
					row.color = htmlPass
				case models.CheckNotOK:
					row.color = htmlFail
				}
			}
			rows = append(rows, row)
		}
		h.table(models.SectionTitles[sid], rows)
	}
	if strings.TrimSpace(rec.DPCISkuStyleNumber) != "" || strings.TrimSpace(rec.StyleDescription) != "" {
		h.table("Style Details", []htmlRow{
			{"DPCI / SKU / Style", rec.DPCISkuStyleNumber, ""},
			{"Style Description", rec.StyleDescription, ""},
		})
	}
	if len(rec.Defects) > 0 {
		h.defects(rec)
	}

	remarks := strings.TrimSpace(rec.QCInspectorRemarks)
	if remarks == "" {
		remarks = "No remarks"
	}
	h.raw(`<h3 style="`, htmlHeading, `">QC Remarks</h3>`)
	h.raw(`<p style="color: #374151; white-space: pre-wrap;">`, esc(remarks), `</p>`)

	if photos := rec.OrderedPhotos(); len(photos) > 0 {
		h.raw(`<h3 style="`, htmlHeading, `">Photos</h3>`)
		h.raw(`<div style="display: grid; gap: 20px;">`)
		for _, p := range photos {
			h.raw(`<div><p style="color: #6b7280; margin-bottom: 8px;">`, esc(p.Label), `</p>`)
			h.raw(`<img src="`, esc(string(templ.URL(p.URL))), `" style="max-width: 100%; border-radius: 8px; border: 1px solid #e5e7eb;" alt="`, esc(p.Label), `"></div>`)
		}
		h.raw(`</div>`)
	}
	h.raw(`</div>`)

	h.raw(`<div style="background: #f3f4f6; padding: 15px; text-align: center; color: #6b7280; font-size: 12px;">`)
	h.raw(`<p>`, esc(companyName), ` QC System - Final Inspection Report</p>`)
	h.raw(`<p>`, esc(rec.DocumentNo), ` | `, esc(rec.ID), `</p>`)
	h.raw(`</div></div>`)
}

type htmlRow struct {
	label string
	value string
	color string
}

func (h *htmlWriter) table(title string, rows []htmlRow) {
	h.raw(`<h3 style="`, htmlHeading, `">`, esc(title), `</h3>`)
	h.raw(`<table style="width: 100%; border-collapse: collapse;">`)
	for _, r := range rows {
		value := strings.TrimSpace(r.value)
		if value == "" {
			value = "-"
		}
		style := htmlValueCell
		if r.color != "" {
			style += " color: " + r.color + "; font-weight: bold;"
		}
		h.raw(`<tr><td style="`, htmlLabelCell, `">`, esc(r.label), `:</td><td style="`, style, `">`, esc(value), `</td></tr>`)
	}
	h.raw(`</table>`)
}

func (h *htmlWriter) defects(rec models.InspectionRecord) {
	h.raw(`<h3 style="`, htmlHeading, `">Defects Found</h3>`)
	h.raw(`<table style="width: 100%; border-collapse: collapse; border: 1px solid #e5e7eb;">`)
	h.raw(`<tr style="background: #f3f4f6;">`,
		`<th style="`, htmlGridCell, ` text-align: left;">Code</th>`,
		`<th style="`, htmlGridCell, ` text-align: left;">Description</th>`,
		`<th style="`, htmlGridCell, ` text-align: center;">Major</th>`,
		`<th style="`, htmlGridCell, ` text-align: center;">Minor</th></tr>`)
	for _, d := range rec.Defects {
		h.raw(`<tr><td style="`, htmlGridCell, `">`, esc(d.DefectCode), `</td>`,
			`<td style="`, htmlGridCell, `">`, esc(d.Description), `</td>`,
			`<td style="`, htmlGridCell, ` text-align: center; color: `, htmlFail, `;">`, strconv.FormatInt(d.MajorCount, 10), `</td>`,
			`<td style="`, htmlGridCell, ` text-align: center; color: `, htmlMinor, `;">`, strconv.FormatInt(d.MinorCount, 10), `</td></tr>`)
	}
	major, minor := rec.DefectTotals()
	h.raw(`<tr style="background: #f3f4f6; font-weight: bold;"><td style="`, htmlGridCell, `"></td>`,
		`<td style="`, htmlGridCell, `">Total</td>`,
		`<td style="`, htmlGridCell, ` text-align: center; color: `, htmlFail, `;">`, strconv.FormatInt(major, 10), `</td>`,
		`<td style="`, htmlGridCell, ` text-align: center; color: `, htmlMinor, `;">`, strconv.FormatInt(minor, 10), `</td></tr>`)
	h.raw(`</table>`)
}

func customerLabel(rec models.InspectionRecord) string {
	if strings.TrimSpace(rec.CustomerCode) == "" {
		return rec.CustomerName
	}
	return rec.CustomerName + " (" + rec.CustomerCode + ")"
}

// EmailSubject is the subject line of a report email.
func EmailSubject(rec models.InspectionRecord) string {
	return "Final Inspection: " + rec.CustomerName + " - " + rec.BuyerDesignName + " [" + rec.InspectionResult + "] - " + rec.DocumentNo
}

// PDFFilename is the attachment name of a report.
func PDFFilename(rec models.InspectionRecord) string {
	return "Final_Inspection_" + rec.OPSNo + "_" + rec.InspectionDate + ".pdf"
}
