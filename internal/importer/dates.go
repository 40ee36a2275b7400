package importer

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// excelEpoch is day zero of spreadsheet serial dates.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// Serials at or below this (1970-01-01) are treated as ordinary numbers.
const minSerial = 25569

// maxSerial is 9999-12-31, the last date with a four-digit year.
const maxSerial = 2958465

// Layouts tried for free-form dates, after the day-first rule.
var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Mon Jan 2 2006",
	"02 Jan 2006",
}

// NormalizeDate converts a cell to YYYY-MM-DD in UTC. It accepts
// spreadsheet serial numbers, day-first D-M-Y or D/M/Y strings (two-digit
// years become 20YY), canonical dates and a few textual layouts.
// ok is false when nothing yields a real calendar date.
func NormalizeDate(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case time.Time:
		if t.IsZero() || !fourDigitYear(t.UTC().Year()) {
			return "", false
		}
		return t.UTC().Format(dateLayout), true
	case string:
		return normalizeDateString(t)
	default:
		f := NormalizeNumber(v)
		if f == 0 {
			return "", false
		}
		return serialToDate(f)
	}
}

func serialToDate(serial float64) (string, bool) {
	if math.IsNaN(serial) || serial <= minSerial || serial >= maxSerial+1 {
		return "", false
	}
	days := int(math.Floor(serial))
	return excelEpoch.AddDate(0, 0, days).Format(dateLayout), true
}

func normalizeDateString(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	// Bare numbers in text cells are serials too.
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return serialToDate(f)
	}

	// Drop a trailing time part: "05/03/2024 00:00:00".
	datePart := s
	if i := strings.IndexAny(s, " T"); i > 0 && strings.ContainsAny(s[:i], "-/") {
		datePart = s[:i]
	}

	if strings.ContainsAny(datePart, "-/") {
		parts := strings.FieldsFunc(datePart, func(r rune) bool { return r == '-' || r == '/' })
		if len(parts) == 3 {
			if len(parts[0]) == 4 {
				return buildDate(parts[0], parts[1], parts[2])
			}
			year := parts[2]
			if len(year) == 2 {
				year = "20" + year
			}
			return buildDate(year, parts[1], parts[0])
		}
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil && fourDigitYear(t.UTC().Year()) {
			return t.UTC().Format(dateLayout), true
		}
	}
	return "", false
}

func buildDate(y, m, d string) (string, bool) {
	year, err1 := strconv.Atoi(y)
	month, err2 := strconv.Atoi(m)
	day, err3 := strconv.Atoi(d)
	if err1 != nil || err2 != nil || err3 != nil {
		return "", false
	}
	if !fourDigitYear(year) || month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31 Feb into March; reject that
	if t.Day() != day || int(t.Month()) != month {
		return "", false
	}
	return t.Format(dateLayout), true
}

func fourDigitYear(y int) bool { return y >= 1000 && y <= 9999 }
