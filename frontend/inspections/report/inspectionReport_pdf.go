package report

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"strconv"
	"strings"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/jung-kurt/gofpdf"
	"github.com/rs/zerolog/log"

	"qcinspect/models"
)

const (
	pageMargin    = 15.0
	pageTop       = 20.0
	footerReserve = 20.0
	rowHeight     = 7.0
	labelWidth    = 38.0

	PlaceholderNotLoaded   = "Image could not be loaded"
	PlaceholderNotRendered = "Image could not be rendered"

	BadgePassed = "PASSED"
	BadgeFailed = "FAILED"
)

type rgb struct{ r, g, b int }

var (
	colorPrimary  = rgb{16, 185, 129}
	colorDark     = rgb{55, 65, 81}
	colorLight    = rgb{156, 163, 175}
	colorSuccess  = rgb{34, 197, 94}
	colorError    = rgb{239, 68, 68}
	colorWarning  = rgb{245, 158, 11}
	colorSection  = rgb{243, 244, 246}
	colorRule     = rgb{229, 231, 235}
	colorLabelBox = rgb{249, 250, 251}
)

// PDFOptions controls one render.
type PDFOptions struct {
	CompanyName string
	GeneratedAt time.Time
	Fetcher     ImageFetcher
	// Uncompressed writes plain content streams.
	Uncompressed bool
}

// PhotoPage describes one image page. Placeholder is empty when the image was drawn.
type PhotoPage struct {
	Label       string
	URL         string
	Placeholder string
}

// PDFReport is a rendered report and what went into it. Footer is the text
// printed at the bottom of every page.
type PDFReport struct {
	Bytes    []byte
	Pages    int
	Sections []string
	Badge    string
	Footer   string
	Photos   []PhotoPage
}

// badgeFor returns the badge text and fill color of a result.
func badgeFor(result string) (string, rgb) {
	if result == models.ResultPass {
		return BadgePassed, colorSuccess
	}
	return BadgeFailed, colorError
}

type pdfWriter struct {
	pdf      *gofpdf.Fpdf
	tr       func(string) string
	pageW    float64
	pageH    float64
	y        float64
	sections []string
}

// RenderPDF draws the report: a summary that flows over as many pages as it
// needs, then one page per photo. A photo that cannot be fetched or decoded
// gets a placeholder page instead.
func RenderPDF(ctx context.Context, rec models.InspectionRecord, opts PDFOptions) (*PDFReport, error) {
	generatedAt := opts.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}
	companyName := strings.TrimSpace(opts.CompanyName)
	if companyName == "" {
		companyName = rec.Company
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(!opts.Uncompressed)
	pdf.SetCreationDate(generatedAt.UTC())
	pdf.SetCatalogSort(true)
	pdf.SetTitle("Final Inspection Report "+rec.DocumentNo, true)
	pdf.SetAuthor(companyName, true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AliasNbPages("{nb}")

	w := &pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	w.pageW, w.pageH = pdf.GetPageSize()

	footer := fmt.Sprintf("Document %s | ID %s", rec.DocumentNo, rec.ID)
	generated := "Generated: " + generatedAt.UTC().Format("2006-01-02 15:04 UTC")
	pdf.SetFooterFunc(func() {
		pdf.SetDrawColor(colorRule.r, colorRule.g, colorRule.b)
		pdf.SetLineWidth(0.2)
		pdf.Line(pageMargin, w.pageH-15, w.pageW-pageMargin, w.pageH-15)
		pdf.SetFont("Helvetica", "", 7)
		pdf.SetTextColor(colorLight.r, colorLight.g, colorLight.b)
		pdf.SetXY(pageMargin, w.pageH-12)
		pdf.CellFormat(60, 4, generated, "", 0, "L", false, 0, "")
		pdf.CellFormat(w.pageW-2*pageMargin-90, 4, w.tr(footer), "", 0, "C", false, 0, "")
		pdf.CellFormat(30, 4, "Page "+strconv.Itoa(pdf.PageNo())+" of {nb}", "", 0, "R", false, 0, "")
	})

	badge, badgeColor := badgeFor(rec.InspectionResult)
	w.firstPage(companyName, rec, badge, badgeColor)
	w.orderInformation(rec)
	w.quantities(rec)
	for _, sid := range models.CheckSections {
		section := rec.Section(sid)
		if section == nil {
			continue
		}
		w.checkSection(sid, section)
	}
	if len(rec.Defects) > 0 {
		w.defects(rec)
	}
	w.remarks(rec.QCInspectorRemarks)

	report := &PDFReport{Badge: badge, Footer: footer}
	for i, photo := range rec.OrderedPhotos() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := PhotoPage{Label: photo.Label, URL: photo.URL}
		page.Placeholder = w.photoPage(ctx, opts.Fetcher, i, photo)
		report.Photos = append(report.Photos, page)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render inspection pdf: %w", err)
	}
	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("write inspection pdf: %w", err)
	}
	report.Bytes = out.Bytes()
	report.Pages = pdf.PageCount()
	report.Sections = w.sections
	return report, nil
}

func (w *pdfWriter) firstPage(companyName string, rec models.InspectionRecord, badge string, badgeColor rgb) {
	pdf := w.pdf
	pdf.AddPage()

	pdf.SetFillColor(colorPrimary.r, colorPrimary.g, colorPrimary.b)
	pdf.Rect(0, 0, w.pageW, 28, "F")
	pdf.SetTextColor(255, 255, 255)
	name := strings.ToUpper(companyName)
	pdf.SetFont("Helvetica", "B", fitFontSizeForWidth(pdf, "Helvetica", "B", 18, 11, name, w.pageW-2*pageMargin))
	pdf.SetXY(pageMargin, 5)
	pdf.CellFormat(w.pageW-2*pageMargin, 9, w.tr(name), "", 0, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetXY(pageMargin, 16)
	pdf.CellFormat(w.pageW-2*pageMargin, 7, w.tr("Final Inspection Report - "+rec.DocumentNo), "", 0, "C", false, 0, "")

	pdf.SetFillColor(badgeColor.r, badgeColor.g, badgeColor.b)
	pdf.Rect(pageMargin, 34, 50, 12, "F")
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(pageMargin, 34)
	pdf.CellFormat(50, 12, badge, "", 0, "C", false, 0, "")

	barcodeValue := rec.DocumentNo + " " + rec.ID
	barcodeW, barcodeH := 100.0, 11.0
	barcodeX := w.pageW - pageMargin - barcodeW
	if barcodePNG, err := renderCode128PNG(barcodeValue, 1000, 110); err != nil {
		log.Warn().Err(err).Str("inspection_id", rec.ID).Msg("document barcode skipped")
	} else {
		opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		pdf.RegisterImageOptionsReader("document-barcode", opt, bytes.NewReader(barcodePNG))
		pdf.ImageOptions("document-barcode", barcodeX, 33, barcodeW, barcodeH, false, opt, 0, "")
	}
	pdf.SetFont("Helvetica", "", 7)
	pdf.SetTextColor(colorDark.r, colorDark.g, colorDark.b)
	pdf.SetXY(barcodeX, 33+barcodeH+0.5)
	pdf.CellFormat(barcodeW, 3.5, w.tr(barcodeValue), "", 0, "C", false, 0, "")

	w.y = 56
}

// ensureSpace starts a new page when h more millimetres would run into the footer.
func (w *pdfWriter) ensureSpace(h float64) {
	if w.y+h <= w.pageH-footerReserve {
		return
	}
	w.pdf.AddPage()
	w.y = pageTop
}

func (w *pdfWriter) sectionHeader(title string) {
	w.ensureSpace(10 + rowHeight)
	w.sections = append(w.sections, title)
	pdf := w.pdf
	pdf.SetFillColor(colorSection.r, colorSection.g, colorSection.b)
	pdf.Rect(pageMargin, w.y, w.pageW-2*pageMargin, 8, "F")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetTextColor(colorPrimary.r, colorPrimary.g, colorPrimary.b)
	pdf.SetXY(pageMargin+3, w.y)
	pdf.CellFormat(w.pageW-2*pageMargin-6, 8, w.tr(title), "", 0, "L", false, 0, "")
	w.y += 10
}

type pdfCell struct {
	label string
	value string
	color *rgb
}

// fieldTable draws label/value pairs two per row in a bordered grid.
func (w *pdfWriter) fieldTable(cells []pdfCell) {
	valueW := (w.pageW - 2*pageMargin - 2*labelWidth) / 2
	for i := 0; i < len(cells); i += 2 {
		w.ensureSpace(rowHeight)
		x := pageMargin
		for j := i; j < i+2 && j < len(cells); j++ {
			w.tableCell(x, labelWidth, valueW, cells[j])
			x += labelWidth + valueW
		}
		w.y += rowHeight
	}
	w.y += 4
}

func (w *pdfWriter) tableCell(x, labelW, valueW float64, c pdfCell) {
	pdf := w.pdf
	pdf.SetDrawColor(colorRule.r, colorRule.g, colorRule.b)
	pdf.SetLineWidth(0.2)

	pdf.SetFillColor(colorLabelBox.r, colorLabelBox.g, colorLabelBox.b)
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(colorLight.r, colorLight.g, colorLight.b)
	pdf.SetXY(x, w.y)
	pdf.CellFormat(labelW, rowHeight, w.fit(c.label, labelW-2), "1", 0, "L", true, 0, "")

	value := strings.TrimSpace(c.value)
	if value == "" {
		value = "-"
	}
	style := ""
	if c.color != nil {
		style = "B"
	}
	pdf.SetFont("Helvetica", style, 9)
	if c.color != nil {
		pdf.SetTextColor(c.color.r, c.color.g, c.color.b)
	} else {
		pdf.SetTextColor(colorDark.r, colorDark.g, colorDark.b)
	}
	pdf.CellFormat(valueW, rowHeight, w.fit(value, valueW-2), "1", 0, "L", false, 0, "")
}

// fit translates text for the core fonts and shortens it to width.
func (w *pdfWriter) fit(text string, width float64) string {
	s := w.tr(text)
	if w.pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 0 && w.pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}

func (w *pdfWriter) orderInformation(rec models.InspectionRecord) {
	w.sectionHeader("Order Information")
	w.fieldTable([]pdfCell{
		{label: "Inspection Date", value: rec.InspectionDate},
		{label: "QC Inspector", value: rec.QCInspectorName},
		{label: "Customer", value: rec.CustomerName},
		{label: "Customer Code", value: rec.CustomerCode},
		{label: "Customer PO", value: rec.CustomerPONo},
		{label: "OPS No.", value: rec.OPSNo},
		{label: "Buyer Design", value: rec.BuyerDesignName},
		{label: "EMPL Design", value: rec.EMPLDesignNo},
		{label: "Color", value: rec.ColorName},
		{label: "Product Sizes", value: strings.Join(rec.ProductSizes, ", ")},
		{label: "Merchant", value: rec.Merchant},
		{label: "Document No.", value: rec.DocumentNo},
		{label: "DPCI / SKU / Style", value: rec.DPCISkuStyleNumber},
		{label: "Style Description", value: rec.StyleDescription},
	})
}

func (w *pdfWriter) quantities(rec models.InspectionRecord) {
	w.sectionHeader("Inspection Quantities")
	w.fieldTable([]pdfCell{
		{label: "Total Order Qty", value: strconv.FormatInt(rec.TotalOrderQty, 10)},
		{label: "Inspected Lot Qty", value: strconv.FormatInt(rec.InspectedLotQty, 10)},
		{label: "AQL", value: rec.AQL},
		{label: "Sample Size", value: strconv.FormatInt(rec.SampleSize, 10)},
		{label: "Accepted Qty", value: strconv.FormatInt(rec.AcceptedQty, 10), color: &colorSuccess},
		{label: "Rejected Qty", value: strconv.FormatInt(rec.RejectedQty, 10), color: &colorError},
	})
}

func (w *pdfWriter) checkSection(sid models.SectionID, section models.CheckSection) {
	w.sectionHeader(models.SectionTitles[sid])
	var cells []pdfCell
	for _, f := range models.SectionFields(sid) {
		c := pdfCell{label: f.Label, value: section[f.Key]}
		if f.IsCheck() {
			switch section[f.Key] {
			case models.CheckOK:
				c.color = &colorSuccess
			case models.CheckNotOK:
				c.color = &colorError
			}
		}
		cells = append(cells, c)
	}
	w.fieldTable(cells)
}

func (w *pdfWriter) defects(rec models.InspectionRecord) {
	w.sectionHeader("Defects")
	pdf := w.pdf
	contentW := w.pageW - 2*pageMargin
	widths := []float64{25, contentW - 25 - 2*30, 30, 30}

	row := func(cols []string, style string, fill bool, colors []*rgb) {
		w.ensureSpace(rowHeight)
		pdf.SetDrawColor(colorRule.r, colorRule.g, colorRule.b)
		pdf.SetFillColor(colorSection.r, colorSection.g, colorSection.b)
		pdf.SetFont("Helvetica", style, 9)
		pdf.SetXY(pageMargin, w.y)
		for i, text := range cols {
			align := "L"
			if i >= 2 {
				align = "C"
			}
			if colors != nil && colors[i] != nil {
				pdf.SetTextColor(colors[i].r, colors[i].g, colors[i].b)
			} else {
				pdf.SetTextColor(colorDark.r, colorDark.g, colorDark.b)
			}
			pdf.CellFormat(widths[i], rowHeight, w.fit(text, widths[i]-2), "1", 0, align, fill, 0, "")
		}
		w.y += rowHeight
	}

	countColors := []*rgb{nil, nil, &colorError, &colorWarning}
	row([]string{"Code", "Description", "Major", "Minor"}, "B", true, nil)
	for _, d := range rec.Defects {
		row([]string{d.DefectCode, d.Description, strconv.FormatInt(d.MajorCount, 10), strconv.FormatInt(d.MinorCount, 10)}, "", false, countColors)
	}
	major, minor := rec.DefectTotals()
	row([]string{"", "Total", strconv.FormatInt(major, 10), strconv.FormatInt(minor, 10)}, "B", true, countColors)
	w.y += 4
}

func (w *pdfWriter) remarks(text string) {
	w.sectionHeader("QC Inspector Remarks")
	text = strings.TrimSpace(text)
	if text == "" {
		text = "No remarks provided"
	}
	pdf := w.pdf
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(colorDark.r, colorDark.g, colorDark.b)
	// Wrap on the translated cp1252 bytes; the core fonts have no rune widths.
	width := w.pageW - 2*pageMargin - 6
	for _, line := range pdf.SplitLines([]byte(w.tr(text)), width) {
		w.ensureSpace(5)
		pdf.SetXY(pageMargin+3, w.y)
		pdf.CellFormat(width, 5, string(line), "", 0, "L", false, 0, "")
		w.y += 5
	}
}

// photoPage draws one photo on its own page and returns the placeholder text
// used instead, if any.
func (w *pdfWriter) photoPage(ctx context.Context, fetcher ImageFetcher, i int, photo models.PhotoRef) string {
	pdf := w.pdf
	pdf.AddPage()
	w.y = pageTop
	pdf.SetFillColor(colorPrimary.r, colorPrimary.g, colorPrimary.b)
	pdf.Rect(0, 0, w.pageW, 20, "F")
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetXY(pageMargin, 6.5)
	pdf.CellFormat(w.pageW-2*pageMargin, 7, w.tr(photo.Label), "", 0, "C", false, 0, "")

	placeholder := func(text string) string {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(colorLight.r, colorLight.g, colorLight.b)
		pdf.SetXY(pageMargin, 97)
		pdf.CellFormat(w.pageW-2*pageMargin, 6, text, "", 0, "C", false, 0, "")
		return text
	}

	if fetcher == nil {
		return placeholder(PlaceholderNotLoaded)
	}
	data, err := fetcher.Fetch(ctx, photo.URL)
	if err != nil {
		log.Warn().Err(err).Str("photo", photo.Key).Msg("report photo could not be fetched")
		return placeholder(PlaceholderNotLoaded)
	}
	jpegBytes, width, height, err := normalizeImage(data)
	if err != nil {
		log.Warn().Err(err).Str("photo", photo.Key).Msg("report photo could not be decoded")
		return placeholder(PlaceholderNotRendered)
	}

	maxW := w.pageW - 2*pageMargin
	maxH := w.pageH - 28 - footerReserve - 4
	scale := min(maxW/float64(width), maxH/float64(height))
	imgW, imgH := float64(width)*scale, float64(height)*scale
	x := (w.pageW - imgW) / 2
	y := 28.0

	opt := gofpdf.ImageOptions{ImageType: "JPG", ReadDpi: false}
	name := "photo-" + strconv.Itoa(i)
	pdf.RegisterImageOptionsReader(name, opt, bytes.NewReader(jpegBytes))
	if pdf.Err() {
		pdf.ClearError()
		return placeholder(PlaceholderNotRendered)
	}
	pdf.SetDrawColor(colorRule.r, colorRule.g, colorRule.b)
	pdf.SetLineWidth(0.5)
	pdf.Rect(x-2, y-2, imgW+4, imgH+4, "D")
	pdf.ImageOptions(name, x, y, imgW, imgH, false, opt, 0, "")
	return ""
}

// normalizeImage decodes any supported format and re-encodes it as JPEG on a
// white background.
func normalizeImage(data []byte) ([]byte, int, int, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, err
	}
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, 0, 0, fmt.Errorf("empty image")
	}
	flat := image.NewRGBA(b)
	draw.Draw(flat, b, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(flat, b, src, b.Min, draw.Over)
	var out bytes.Buffer
	if err := jpeg.Encode(&out, flat, &jpeg.Options{Quality: 85}); err != nil {
		return nil, 0, 0, err
	}
	return out.Bytes(), b.Dx(), b.Dy(), nil
}

func fitFontSizeForWidth(pdf *gofpdf.Fpdf, family, style string, base, min float64, text string, maxWidth float64) float64 {
	if maxWidth <= 0 {
		return min
	}
	size := base
	pdf.SetFont(family, style, size)
	for size > min && pdf.GetStringWidth(text) > maxWidth {
		size -= 0.5
		pdf.SetFont(family, style, size)
	}
	return size
}

func renderCode128PNG(value string, width, height int) ([]byte, error) {
	code, err := code128.Encode(value)
	if err != nil {
		return nil, err
	}
	scaled, err := barcode.Scale(code, width, height)
	if err != nil {
		return nil, err
	}
	normalized := toNRGBA(scaled)
	var barcodePNG bytes.Buffer
	if err := png.Encode(&barcodePNG, normalized); err != nil {
		return nil, err
	}
	return barcodePNG.Bytes(), nil
}

func toNRGBA(src image.Image) *image.NRGBA {
	bounds := src.Bounds()
	dst := image.NewNRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)
	return dst
}
