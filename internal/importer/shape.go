package importer

import (
	"fmt"
	"strings"
)

// FileShape is the kind of spreadsheet being imported.
type FileShape int

const (
	ShapeUnknown FileShape = iota
	ShapeEmployeeSales
	ShapeItemWiseSales
	ShapeInstall
	ShapeVisitors
)

// Shapes lists the recognized shapes in prompt order.
var Shapes = []FileShape{ShapeEmployeeSales, ShapeItemWiseSales, ShapeInstall, ShapeVisitors}

var shapeNames = map[FileShape]string{
	ShapeEmployeeSales: "employee_sales",
	ShapeItemWiseSales: "item_wise_sales",
	ShapeInstall:       "install",
	ShapeVisitors:      "visitors",
}

// String returns the wire name used by the classifier and the API.
func (s FileShape) String() string {
	if n, ok := shapeNames[s]; ok {
		return n
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (s FileShape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *FileShape) UnmarshalText(b []byte) error {
	if string(b) == "unknown" {
		*s = ShapeUnknown
		return nil
	}
	shape, err := ParseShape(string(b))
	if err != nil {
		return err
	}
	*s = shape
	return nil
}

// ParseShape maps a wire name to a FileShape.
func ParseShape(name string) (FileShape, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for s, wire := range shapeNames {
		if wire == n {
			return s, nil
		}
	}
	return ShapeUnknown, fmt.Errorf("unrecognized file type %q", name)
}

// Layout is the row arrangement of an employee sales file.
type Layout int

const (
	LayoutNone Layout = iota
	// LayoutFlat: every row carries the salesman.
	LayoutFlat
	// LayoutGrouped: a salesman row is followed by that salesman's rows.
	LayoutGrouped
)

func (l Layout) String() string {
	switch l {
	case LayoutFlat:
		return "flat"
	case LayoutGrouped:
		return "grouped"
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Layout) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty text is
// LayoutNone.
func (l *Layout) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*l = LayoutNone
		return nil
	}
	*l = parseLayout(string(b))
	return nil
}

// parseLayout defaults to flat for anything but "grouped".
func parseLayout(name string) Layout {
	if strings.EqualFold(strings.TrimSpace(name), "grouped") {
		return LayoutGrouped
	}
	return LayoutFlat
}
