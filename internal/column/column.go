// Package column describes the per-column schema of a dataset: logical
// type, distinguished role (time/lat/lon/alt/id), and the packing
// attributes (scale, offset, fill, missing, units) used to linearize raw
// source values into physical ones.
package column

import (
	"fmt"
	"strings"
)

// Kind is the logical type of a column's values.
type Kind int

const (
	KindUnknown Kind = iota
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindText
	KindTimestamp
)

// String returns the canonical lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInt8:
		return "int8"
	case KindInt16:
		return "int16"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindText:
		return "text"
	case KindTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether the kind participates in numeric range
// comparisons rather than lexicographic text comparisons.
func (k Kind) IsNumeric() bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64, KindFloat32, KindFloat64, KindTimestamp:
		return true
	default:
		return false
	}
}

// ParseKind parses a configuration-facing type name into a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int8", "byte":
		return KindInt8, nil
	case "int16", "short":
		return KindInt16, nil
	case "int32", "int":
		return KindInt32, nil
	case "int64", "long":
		return KindInt64, nil
	case "float32", "float":
		return KindFloat32, nil
	case "float64", "double":
		return KindFloat64, nil
	case "text", "string":
		return KindText, nil
	case "timestamp", "time":
		return KindTimestamp, nil
	default:
		return KindUnknown, fmt.Errorf("column: unrecognized type %q", s)
	}
}

// Role distinguishes the handful of columns the engine treats specially.
type Role int

const (
	RoleNone Role = iota
	RoleTime
	RoleLat
	RoleLon
	RoleAlt
	RoleID
)

// Descriptor is the full schema entry for one column: its source name,
// logical type, optional distinguished role, and packing attributes.
type Descriptor struct {
	Name string
	Kind Kind
	Role Role

	// Packing: raw source value -> physical value is value*Scale + Offset.
	Scale  float64
	Offset float64

	// Fill and Missing sentinels, carried as both numeric and text forms
	// since a column's native representation may be either.
	FillNumber    float64
	FillText      string
	HasFillNumber bool
	HasFillText   bool

	MissingNumber    float64
	MissingText      string
	HasMissingNumber bool
	HasMissingText   bool

	Units string

	// Source holds attributes as read from the file; Override holds
	// caller-supplied replacements. Effective() layers them.
	Source   Attrs
	Override Attrs
}

// Effective returns the attribute bag obtained by layering Override on
// top of Source, per the combined-metadata-layers rule in the design
// notes: override values win, and the literal string "null" deletes the
// source entry instead of producing a visible sentinel.
func (d Descriptor) Effective() Attrs {
	return d.Source.Merge(d.Override)
}

// unitAliases groups together known-equivalent spellings of the same
// physical unit, as seen across CF-convention-adjacent datasets.
var unitAliases = map[string]string{
	"degrees_north": "degrees_north",
	"degree_north":  "degrees_north",
	"degrees n":     "degrees_north",
	"degreesn":      "degrees_north",
	"degree n":      "degrees_north",

	"degrees_east": "degrees_east",
	"degree_east":  "degrees_east",
	"degrees e":    "degrees_east",
	"degreese":     "degrees_east",

	"seconds since 1970-01-01t00:00:00z": "seconds since 1970-01-01T00:00:00Z",
	"seconds since 1970-01-01 00:00:00":  "seconds since 1970-01-01T00:00:00Z",
	"unix epoch time":                    "seconds since 1970-01-01T00:00:00Z",

	"m": "meters",
	"meter": "meters",
	"metre": "meters",
	"metres": "meters",
}

// UnitsEquivalent reports whether two unit strings denote the same
// physical unit, tolerating common synonyms instead of requiring byte
// equality. Unknown strings fall back to case-insensitive, whitespace
// collapsed comparison.
func UnitsEquivalent(a, b string) bool {
	na, nb := normalizeUnits(a), normalizeUnits(b)
	if canon, ok := unitAliases[na]; ok {
		na = canon
	}
	if canon, ok := unitAliases[nb]; ok {
		nb = canon
	}
	return na == nb
}

func normalizeUnits(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(strings.TrimSpace(s)), " "))
}
