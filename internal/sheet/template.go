package sheet

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/kha159-create/alsani-cockpit/internal/importer"
)

const templateSheet = "Upload"

// sampleRows are example lines written under each template's headers.
var sampleRows = map[importer.FileShape][][]any{
	importer.ShapeEmployeeSales: {
		{"1001-Ali", "Riyadh Park", "2024-03-05", 12500, 14},
	},
	importer.ShapeItemWiseSales: {
		{"Riyadh Park", "1001-Ali", "2024-03-05", "King Duvet Set", "4501", 1, 695},
	},
	importer.ShapeInstall: {
		{"store", "Riyadh Park", 350000, "", "", "", ""},
		{"employee", "", "", "1001-Ali", "Riyadh Park", 90000, 40},
	},
	importer.ShapeVisitors: {
		{"2024-03-05", "Riyadh Park", 420},
	},
}

// Template returns an xlsx workbook with the shape's canonical headers and
// sample rows.
func Template(shape importer.FileShape) (*bytes.Buffer, error) {
	headers := importer.Headers(shape)
	if len(headers) == 0 {
		return nil, fmt.Errorf("no template for file type %s", shape)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(templateSheet, cell, h); err != nil {
			return nil, err
		}
	}
	for r, sample := range sampleRows[shape] {
		for c, v := range sample {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(templateSheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	last, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetColWidth(templateSheet, "A", last, 22)
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(templateSheet, "A1", lastHeader, bold)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf, nil
}

// Filename is the download name of a shape's template.
func Filename(shape importer.FileShape) string {
	return fmt.Sprintf("%s_template.xlsx", shape)
}
