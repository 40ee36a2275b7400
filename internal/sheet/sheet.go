// Package sheet reads uploaded spreadsheets into importer rows and writes
// the blank upload templates.
package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/kha159-create/alsani-cockpit/internal/importer"
)

// ErrUnsupported is returned for file types other than xlsx, xls and csv.
var ErrUnsupported = errors.New("unsupported file type: upload .xlsx, .xls or .csv")

// Table is a parsed sheet: the header row and one Row per non-blank data
// line.
type Table struct {
	Headers []string
	Rows    []importer.Row
}

// Read parses r according to the extension of name. Only the first
// worksheet of a workbook is read.
func Read(name string, r io.Reader) (*Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return readXLSX(r)
	case ".xls":
		return readXLS(r)
	case ".csv":
		return readCSV(r)
	default:
		return nil, ErrUnsupported
	}
}

func readXLSX(r io.Reader) (*Table, error) {
	xl, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer xl.Close()

	sheetName := xl.GetSheetName(0)
	// raw values keep dates as serial numbers instead of locale strings
	rows, err := xl.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	return buildTable(rows), nil
}

// readXLS reads legacy BIFF workbooks. Cells come back as the library's
// formatted text.
func readXLS(r io.Reader) (t *Table, err error) {
	// the BIFF decoder panics on some malformed files
	defer func() {
		if p := recover(); p != nil {
			t, err = nil, fmt.Errorf("open xls workbook: %v", p)
		}
	}()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls workbook: %w", err)
	}
	if wb.NumSheets() == 0 {
		return &Table{}, nil
	}
	ws := wb.GetSheet(0)
	if ws == nil {
		return &Table{}, nil
	}

	var rows [][]string
	for i := 0; i <= int(ws.MaxRow); i++ {
		row := ws.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for c := row.FirstCol(); c < row.LastCol(); c++ {
			cells[c] = row.Col(c)
		}
		rows = append(rows, cells)
	}
	// leading blank rows would otherwise become the header
	for len(rows) > 0 && isEmptyRow(rows[0]) {
		rows = rows[1:]
	}
	return buildTable(rows), nil
}

func readCSV(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	// Excel writes a BOM on "CSV UTF-8" exports
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	rdr := csv.NewReader(bytes.NewReader(data))
	rdr.FieldsPerRecord = -1
	rdr.LazyQuotes = true
	rdr.TrimLeadingSpace = true
	rows, err := rdr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return buildTable(rows), nil
}

func buildTable(rows [][]string) *Table {
	t := &Table{}
	if len(rows) == 0 {
		return t
	}

	header := rows[0]
	cols := make([]string, len(header))
	seen := map[string]bool{}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		cols[i] = h
		t.Headers = append(t.Headers, h)
	}

	for _, raw := range rows[1:] {
		if isEmptyRow(raw) {
			continue
		}
		row := importer.Row{}
		for i, cell := range raw {
			if i >= len(cols) || cols[i] == "" {
				continue
			}
			row[cols[i]] = cellValue(cell)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// cellValue turns plain numeric text into float64 so serial dates and
// amounts reach the importer as numbers. Codes with leading zeros stay
// text.
func cellValue(cell string) any {
	s := strings.TrimSpace(cell)
	if s == "" {
		return ""
	}
	if len(s) > 1 && s[0] == '0' && s[1] != '.' {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || strings.ContainsAny(s, "eEnNiI") {
		return s
	}
	return f
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
