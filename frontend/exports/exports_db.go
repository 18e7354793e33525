package exports

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/uptrace/bun"
	"github.com/xuri/excelize/v2"

	"qcinspect/frontend/inspections/browser"
	"qcinspect/infrastructure/audit"
	"qcinspect/infrastructure/sqlite"
	"qcinspect/models"
)

const sheetName = "Inspections"

// WriteInspectionsCSV writes every record as one CSV row, newest first.
func WriteInspectionsCSV(ctx context.Context, db *sqlite.DB, w io.Writer) (int, error) {
	recs, err := browser.ListRecords(ctx, db)
	if err != nil {
		return 0, err
	}
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := make([]string, len(Columns))
	for i, c := range Columns {
		header[i] = c.Header
	}
	if err := writer.Write(header); err != nil {
		return 0, err
	}
	for _, rec := range recs {
		row := make([]string, len(Columns))
		for i, c := range Columns {
			row[i] = toString(c.Value(rec))
		}
		if err := writer.Write(row); err != nil {
			return 0, err
		}
	}
	writer.Flush()
	return len(recs), writer.Error()
}

// WriteInspectionsXLSX writes every record into a single-sheet workbook.
func WriteInspectionsXLSX(ctx context.Context, db *sqlite.DB, w io.Writer, generatedAt time.Time) (int, error) {
	recs, err := browser.ListRecords(ctx, db)
	if err != nil {
		return 0, err
	}
	f, err := buildWorkbook(recs, generatedAt)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return 0, fmt.Errorf("write workbook: %w", err)
	}
	return len(recs), nil
}

// buildWorkbook lays out a title row, a generated-at row, a header row at row 4
// and one data row per record.
func buildWorkbook(recs []models.InspectionRecord, generatedAt time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16},
		Alignment: &excelize.Alignment{Vertical: "center"},
	})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"10B981"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	dataStyle, _ := f.NewStyle(&excelize.Style{
		Border: []excelize.Border{
			{Type: "left", Color: "CCCCCC", Style: 1},
			{Type: "right", Color: "CCCCCC", Style: 1},
			{Type: "top", Color: "CCCCCC", Style: 1},
			{Type: "bottom", Color: "CCCCCC", Style: 1},
		},
	})

	_ = f.SetCellValue(sheetName, "A1", "Final Inspections")
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)
	_ = f.SetRowHeight(sheetName, 1, 30)
	_ = f.SetCellValue(sheetName, "A2", "Generated: "+generatedAt.UTC().Format("2006-01-02 15:04:05")+" UTC")

	for col, c := range Columns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 4)
		_ = f.SetCellValue(sheetName, cell, c.Header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
		name, _ := excelize.ColumnNumberToName(col + 1)
		_ = f.SetColWidth(sheetName, name, name, c.Width)
	}
	for i, rec := range recs {
		for col, c := range Columns {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+5)
			if err := f.SetCellValue(sheetName, cell, c.Value(rec)); err != nil {
				return nil, fmt.Errorf("set %s: %w", cell, err)
			}
			_ = f.SetCellStyle(sheetName, cell, cell, dataStyle)
		}
	}
	return f, nil
}

// recordExportRun leaves an audit row for each export download.
func recordExportRun(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, station, exportType string, rows int) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return auditSvc.Write(ctx, tx, station, audit.ActionInspectionExport, "export", exportType, nil, map[string]any{"rows": rows})
	})
}
