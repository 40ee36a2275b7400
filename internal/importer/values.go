package importer

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Row is one spreadsheet row keyed by its source column name.
type Row map[string]any

func foldKey(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Lookup returns the value stored under the first alias that has one.
// Keys are compared case-insensitively after trimming surrounding space.
// When several keys fold to the same alias, a non-blank value wins over a
// blank one, and ties go to the lowest key in byte order.
// Empty aliases are ignored.
func Lookup(row Row, aliases ...string) (any, bool) {
	if len(row) == 0 {
		return nil, false
	}
	for _, alias := range aliases {
		if strings.TrimSpace(alias) == "" {
			continue
		}
		want := foldKey(alias)
		var keys []string
		for k := range row {
			if foldKey(k) == want {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)

		var blank any
		found := false
		for _, k := range keys {
			v := row[k]
			if v == nil {
				continue
			}
			if strings.TrimSpace(toText(v)) != "" {
				return v, true
			}
			if !found {
				blank, found = v, true
			}
		}
		if found {
			return blank, true
		}
	}
	return nil, false
}

// lookupText finds a value and returns it as trimmed text. Empty text
// counts as absent.
func lookupText(row Row, aliases ...string) (string, bool) {
	v, ok := Lookup(row, aliases...)
	if !ok {
		return "", false
	}
	s := strings.TrimSpace(toText(v))
	return s, s != ""
}

// lookupNumber finds a value and normalizes it. A blank cell counts as
// absent; an unparsable one as zero.
func lookupNumber(row Row, aliases ...string) (float64, bool) {
	v, ok := Lookup(row, aliases...)
	if !ok {
		return 0, false
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return 0, false
	}
	return NormalizeNumber(v), true
}

// NormalizeNumber converts a cell to a finite number, stripping thousands
// separators. Anything that does not parse to a finite value is 0.
func NormalizeNumber(v any) float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint64:
		f = float64(n)
	case uint32:
		f = float64(n)
	case bool:
		return 0
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return NormalizeNumber(fmt.Sprint(n))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprint(t)
	}
}
