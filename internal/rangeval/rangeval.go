// Package rangeval implements the predicate evaluator: given a column's
// (min, max, hasMissing) range and a single-column predicate, it decides
// whether the range could possibly contain a matching row. A false
// result is a proof of absence and lets the caller skip the file or
// reject the whole dataset; a true result is merely "maybe" and must be
// followed by exact re-evaluation once rows are actually read.
//
// False exclusion (returning false for a range that does contain a
// match) is the one forbidden outcome; spurious inclusion only costs
// performance.
package rangeval

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/harrison/tablecat/internal/column"
)

// Op is a predicate operator.
type Op string

const (
	OpEQ    Op = "="
	OpNE    Op = "!="
	OpLT    Op = "<"
	OpLE    Op = "<="
	OpGT    Op = ">"
	OpGE    Op = ">="
	OpRegex Op = "~"
)

// Valid reports whether op is one of the fixed recognized operators.
func (op Op) Valid() bool {
	switch op {
	case OpEQ, OpNE, OpLT, OpLE, OpGT, OpGE, OpRegex:
		return true
	}
	return false
}

// ParseOp parses an operator token from a query string.
func ParseOp(s string) (Op, error) {
	op := Op(s)
	if !op.Valid() {
		return "", fmt.Errorf("rangeval: unrecognized operator %q", s)
	}
	return op, nil
}

// Range is the per-file, per-column summary the catalog stores: the
// minimum and maximum observed value, and whether any row in the file is
// missing this column.
type Range struct {
	Kind column.Kind

	MinNum float64
	MaxNum float64

	MinText string
	MaxText string

	HasMissing bool
}

// relativeTolerance corresponds to the "five significant digits" fixed
// numeric-precision tolerance used for <=, >=, and = comparisons. Catalog
// min/max are aggregated from possibly-packed source values and may carry
// unscaled sentinels, so exact equality is too strict.
const relativeTolerance = 1e-5

// ApproxEqualForSpacing reports whether two consecutive-row deltas in a
// sorted column agree closely enough to call the column "evenly
// spaced" (used when classifying a file's sortedSpacing).
func ApproxEqualForSpacing(a, b float64) bool {
	return approxEqual(a, b)
}

func approxEqual(a, b float64) bool {
	if a == b {
		return true
	}
	diff := math.Abs(a - b)
	scale := math.Max(math.Abs(a), math.Abs(b))
	if scale == 0 {
		return diff < relativeTolerance
	}
	return diff/scale < relativeTolerance
}

// cmpTolerant returns -1, 0, or 1 comparing a to b, treating values within
// relativeTolerance of each other as equal when tolerant is true.
func cmpTolerant(a, b float64, tolerant bool) int {
	if tolerant && approxEqual(a, b) {
		return 0
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Evaluate decides whether the range could satisfy (op, value). value is
// the predicate's literal operand, always given as text (numeric values
// are parsed internally); missingSentinel is the column's numeric missing
// value, used only for numeric columns.
func Evaluate(r Range, op Op, value string, missingSentinel float64, hasMissingSentinel bool) (bool, error) {
	if !op.Valid() {
		return false, fmt.Errorf("rangeval: unrecognized operator %q", op)
	}

	if r.Kind == column.KindText || op == OpRegex {
		return evaluateText(r, op, value), nil
	}
	return evaluateNumeric(r, op, value, missingSentinel, hasMissingSentinel)
}

func evaluateText(r Range, op Op, value string) bool {
	if r.HasMissing && value == "" {
		switch op {
		case OpEQ, OpLE, OpGE, OpRegex:
			return true
		case OpLT:
			return value != ""
		}
		// OpNE falls through to the normal rule below.
	}

	if op == OpRegex {
		re, err := regexp.Compile(value)
		if err != nil {
			// An invalid regex can never exclude a range; admit it and
			// let exact re-evaluation downstream surface the bad pattern.
			return true
		}
		if r.MinText == r.MaxText {
			return re.MatchString(r.MinText)
		}
		return true
	}

	c1 := strings.Compare(r.MinText, value)
	c2 := strings.Compare(r.MaxText, value)

	switch op {
	case OpEQ:
		return c1 <= 0 && c2 >= 0
	case OpNE:
		return !(r.MinText == r.MaxText && r.MinText == value)
	case OpLT:
		return c1 < 0
	case OpLE:
		return c1 <= 0
	case OpGT:
		return c2 > 0
	case OpGE:
		return c2 >= 0
	}
	return true
}

func evaluateNumeric(r Range, op Op, valueText string, missingSentinel float64, hasMissingSentinel bool) (bool, error) {
	value, err := strconv.ParseFloat(valueText, 64)
	if err != nil {
		return false, fmt.Errorf("rangeval: predicate value %q is not numeric: %w", valueText, err)
	}

	if hasMissingSentinel && value == missingSentinel {
		switch op {
		case OpEQ, OpLE, OpGE:
			return r.HasMissing, nil
		case OpNE:
			return !(r.MinNum == missingSentinel && r.MaxNum == missingSentinel), nil
		default:
			return false, nil
		}
	}

	if hasMissingSentinel && r.MinNum == missingSentinel && r.MaxNum == missingSentinel {
		if op == OpNE {
			return true, nil
		}
		return false, nil
	}

	tolerant := op == OpLE || op == OpGE || op == OpEQ
	c1 := cmpTolerant(r.MinNum, value, tolerant)
	c2 := cmpTolerant(r.MaxNum, value, tolerant)

	switch op {
	case OpEQ:
		return c1 <= 0 && c2 >= 0, nil
	case OpNE:
		return !(r.MinNum == r.MaxNum && r.MinNum == value), nil
	case OpLT:
		return c1 < 0, nil
	case OpLE:
		return c1 <= 0, nil
	case OpGT:
		return c2 > 0, nil
	case OpGE:
		return c2 >= 0, nil
	}
	return true, nil
}
