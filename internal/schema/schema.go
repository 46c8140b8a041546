// Package schema implements the schema sentinel: the per-column packing
// attributes (scale, offset, fill, missing, units) captured from the
// first file scanned in an update session and enforced against every
// file scanned afterward. A mismatch quarantines the file rather than
// corrupting the catalog with incompatible ranges.
package schema

import (
	"fmt"
	"sync"

	"github.com/harrison/tablecat/internal/column"
)

// Expected holds the packing attributes captured for one column on the
// first file that defines them.
type Expected struct {
	Scale  float64
	Offset float64

	FillNumber    float64
	HasFillNumber bool
	FillText      string
	HasFillText   bool

	MissingNumber    float64
	HasMissingNumber bool
	MissingText      string
	HasMissingText   bool

	Units string
}

// Observed is what a freshly scanned file reports for a column, before
// any override substitution.
type Observed struct {
	Scale  float64
	Offset float64

	FillNumber    float64
	HasFillNumber bool
	FillText      string
	HasFillText   bool

	MissingNumber    float64
	HasMissingNumber bool
	MissingText      string
	HasMissingText   bool

	Units string
}

// Override supplies caller-configured substitutions applied to an
// Observed value before it is checked against the Expected sentinel,
// for datasets whose source metadata disagrees with the value the
// catalog should actually use.
type Override struct {
	FillNumber    float64
	HasFillNumber bool
	FillText      string
	HasFillText   bool

	MissingNumber    float64
	HasMissingNumber bool
	MissingText      string
	HasMissingText   bool
}

// apply returns o with any override fields substituted in.
func (o Observed) apply(ov Override) Observed {
	if ov.HasFillNumber {
		o.FillNumber = ov.FillNumber
		o.HasFillNumber = true
	}
	if ov.HasFillText {
		o.FillText = ov.FillText
		o.HasFillText = true
	}
	if ov.HasMissingNumber {
		o.MissingNumber = ov.MissingNumber
		o.HasMissingNumber = true
	}
	if ov.HasMissingText {
		o.MissingText = ov.MissingText
		o.HasMissingText = true
	}
	return o
}

// Mismatch describes a single attribute disagreement found while
// enforcing the sentinel.
type Mismatch struct {
	Column   string
	Attr     string
	Expected string
	Got      string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("column %q: %s mismatch: expected %s, got %s", m.Column, m.Attr, m.Expected, m.Got)
}

// Sentinel captures and enforces per-column packing attributes across
// one catalog-update session. It is not safe to reuse across sessions:
// create a fresh Sentinel per update pass so the first file of that
// pass re-establishes the expected attributes.
type Sentinel struct {
	mu         sync.Mutex
	expected   map[string]Expected
	keepLatest bool
}

// New returns an empty sentinel that captures attributes from the
// first file of an update session and holds onto them for the rest of
// the pass (metadataFrom: "first").
func New() *Sentinel {
	return &Sentinel{expected: make(map[string]Expected)}
}

// NewFromConfig returns a sentinel whose captured attributes follow
// metadataFrom: "first" (default) freezes on the first file a column
// is seen in; "last" keeps advancing to whichever file was scanned
// most recently, so the dataset's reported metadata tracks the newest
// file even as older files are still checked for mismatches against
// what was expected at the time.
func NewFromConfig(metadataFrom string) *Sentinel {
	return &Sentinel{expected: make(map[string]Expected), keepLatest: metadataFrom == "last"}
}

// Check captures obs as the expected attributes for col the first time
// col is seen, or enforces obs (after override substitution) against
// the previously captured expectation. It returns the mismatches found;
// an empty, non-nil slice means the file agrees.
func (s *Sentinel) Check(col string, kind column.Kind, obs Observed, ov Override) []Mismatch {
	obs = obs.apply(ov)

	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.expected[col]
	if !ok {
		s.expected[col] = Expected{
			Scale:            obs.Scale,
			Offset:           obs.Offset,
			FillNumber:       obs.FillNumber,
			HasFillNumber:    obs.HasFillNumber,
			FillText:         obs.FillText,
			HasFillText:      obs.HasFillText,
			MissingNumber:    obs.MissingNumber,
			HasMissingNumber: obs.HasMissingNumber,
			MissingText:      obs.MissingText,
			HasMissingText:   obs.HasMissingText,
			Units:            obs.Units,
		}
		return nil
	}

	var mismatches []Mismatch

	if exp.Scale != obs.Scale {
		mismatches = append(mismatches, Mismatch{col, "scale", fmt.Sprint(exp.Scale), fmt.Sprint(obs.Scale)})
	}
	if exp.Offset != obs.Offset {
		mismatches = append(mismatches, Mismatch{col, "offset", fmt.Sprint(exp.Offset), fmt.Sprint(obs.Offset)})
	}

	if kind.IsNumeric() {
		if exp.HasFillNumber && obs.HasFillNumber && exp.FillNumber != obs.FillNumber {
			mismatches = append(mismatches, Mismatch{col, "fill", fmt.Sprint(exp.FillNumber), fmt.Sprint(obs.FillNumber)})
		}
		if exp.HasMissingNumber && obs.HasMissingNumber && exp.MissingNumber != obs.MissingNumber {
			mismatches = append(mismatches, Mismatch{col, "missing", fmt.Sprint(exp.MissingNumber), fmt.Sprint(obs.MissingNumber)})
		}
	} else {
		if exp.HasFillText && obs.HasFillText && exp.FillText != obs.FillText {
			mismatches = append(mismatches, Mismatch{col, "fill", exp.FillText, obs.FillText})
		}
		if exp.HasMissingText && obs.HasMissingText && exp.MissingText != obs.MissingText {
			mismatches = append(mismatches, Mismatch{col, "missing", exp.MissingText, obs.MissingText})
		}
	}

	if exp.Units != "" && obs.Units != "" && !column.UnitsEquivalent(exp.Units, obs.Units) {
		mismatches = append(mismatches, Mismatch{col, "units", exp.Units, obs.Units})
	}

	if s.keepLatest {
		s.expected[col] = Expected{
			Scale:            obs.Scale,
			Offset:           obs.Offset,
			FillNumber:       obs.FillNumber,
			HasFillNumber:    obs.HasFillNumber,
			FillText:         obs.FillText,
			HasFillText:      obs.HasFillText,
			MissingNumber:    obs.MissingNumber,
			HasMissingNumber: obs.HasMissingNumber,
			MissingText:      obs.MissingText,
			HasMissingText:   obs.HasMissingText,
			Units:            obs.Units,
		}
	}

	return mismatches
}

// Expectations returns a copy of the attributes captured so far, keyed
// by column name.
func (s *Sentinel) Expectations() map[string]Expected {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Expected, len(s.expected))
	for k, v := range s.expected {
		out[k] = v
	}
	return out
}
