package sheet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kha159-create/alsani-cockpit/internal/importer"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, v))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadXLSX(t *testing.T) {
	buf := workbook(t, [][]any{
		{"Sales Man Name", "Outlet Name", "Bill Date", "Net Amount", ""},
		{"Ahmed"},
		{},
		{"", "Store A", 45000, 1000.5, "ignored"},
	})

	tbl, err := Read("sales.XLSX", buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sales Man Name", "Outlet Name", "Bill Date", "Net Amount"}, tbl.Headers)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "Ahmed", tbl.Rows[0]["Sales Man Name"])

	data := tbl.Rows[1]
	assert.Equal(t, 45000.0, data["Bill Date"])
	assert.Equal(t, 1000.5, data["Net Amount"])
	assert.NotContains(t, data, "")

	date, ok := importer.NormalizeDate(data["Bill Date"])
	assert.True(t, ok)
	assert.Equal(t, "2023-03-15", date)
}

func TestReadCSV(t *testing.T) {
	src := "\xef\xbb\xbfDate,Store Name,Visitors,Code\n" +
		"05/03/2024, Riyadh,\"1,200\",0042\n" +
		",,,\n" +
		"2024-03-06,Jeddah,300\n"

	tbl, err := Read("visitors.csv", strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Store Name", "Visitors", "Code"}, tbl.Headers)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, importer.Row{"Date": "05/03/2024", "Store Name": "Riyadh", "Visitors": "1,200", "Code": "0042"}, tbl.Rows[0])
	assert.Equal(t, 300.0, tbl.Rows[1]["Visitors"])
}

func TestReadUnsupported(t *testing.T) {
	_, err := Read("notes.txt", strings.NewReader("hello"))
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Read("broken.xlsx", strings.NewReader("not a zip"))
	assert.Error(t, err)

	_, err = Read("legacy.xls", strings.NewReader("not a compound file"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupported)
}

func TestCellValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"12", 12.0},
		{" 3.5 ", 3.5},
		{"0", 0.0},
		{"0.25", 0.25},
		{"007", "007"},
		{"NaN", "NaN"},
		{"1e5", "1e5"},
		{"12,000", "12,000"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cellValue(tt.in), "input %q", tt.in)
	}
}

func TestTemplateRoundTrip(t *testing.T) {
	for _, shape := range importer.Shapes {
		t.Run(shape.String(), func(t *testing.T) {
			buf, err := Template(shape)
			require.NoError(t, err)

			tbl, err := Read(Filename(shape), buf)
			require.NoError(t, err)
			assert.Equal(t, importer.Headers(shape), tbl.Headers)

			layout := importer.LayoutNone
			if shape == importer.ShapeEmployeeSales {
				layout = importer.LayoutFlat
			}
			in := importer.NewInterpreter(shape, layout, nil, nil)
			for _, row := range tbl.Rows {
				_, v := in.Interpret(row)
				assert.Equal(t, importer.Emit, v, "sample row %v", row)
			}
		})
	}
}

func TestTemplateUnknownShape(t *testing.T) {
	_, err := Template(importer.ShapeUnknown)
	assert.Error(t, err)
}
