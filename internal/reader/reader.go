// Package reader defines the file reader capability: the pluggable
// boundary through which the catalog updater and query executor obtain
// row data from dataset files. Concrete readers (CSV, NetCDF, whatever
// a given dataset's files are stored as) live outside this package and
// are supplied by the caller; this package only fixes the contract and
// offers a fake implementation for tests.
package reader

import (
	"context"

	"github.com/harrison/tablecat/internal/column"
)

// Request describes one read call. GetMetadata asks the reader to
// populate per-column attributes on the Table (used by the schema
// sentinel); MustGetAllData asks for every row regardless of sort
// bounds, used during a full catalog scan.
type Request struct {
	Dir             string
	Name            string
	ColumnNames     []string
	ColumnTypes     []column.Kind
	SortedSpacing   float64
	MinSorted       float64
	MaxSorted       float64
	GetMetadata     bool
	MustGetAllData  bool
}

// Table is the data a reader returns: one named, typed column per
// requested variable, row-aligned, plus the per-column attributes
// observed in the file (populated when the request asked for metadata).
type Table struct {
	Columns    []string
	Numeric    map[string][]float64
	Text       map[string][]string
	Attributes map[string]column.Attrs
}

// NumRows returns the row count of the table, inferred from whichever
// column is populated first.
func (t Table) NumRows() int {
	for _, name := range t.Columns {
		if v, ok := t.Numeric[name]; ok {
			return len(v)
		}
		if v, ok := t.Text[name]; ok {
			return len(v)
		}
	}
	return 0
}

// Reader is the capability the updater and query executor call to get
// row data out of one dataset file.
type Reader interface {
	Read(ctx context.Context, req Request) (Table, error)
}

// Func adapts a plain function to the Reader interface.
type Func func(ctx context.Context, req Request) (Table, error)

// Read implements Reader.
func (f Func) Read(ctx context.Context, req Request) (Table, error) {
	return f(ctx, req)
}
