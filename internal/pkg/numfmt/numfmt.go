// Package numfmt formats figures the way the dashboard shows them.
package numfmt

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Format renders n with thousands separators: whole numbers without
// decimals, everything else with two.
func Format(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return "0"
	}
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return printer.Sprintf("%d", int64(n))
	}
	return printer.Sprintf("%.2f", n)
}
