// Package query implements the query planner/executor: it turns a
// parsed query into a file visitation plan using the catalog's
// aggregate and per-file ranges for pruning, then streams matching
// chunks to a sink. The executor takes no locks of its own; the catalog
// and directory table it operates on are snapshots handed to it by the
// caller (internal/engine copies them out under a read lock).
package query

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/tablecat/internal/apierrors"
	"github.com/harrison/tablecat/internal/catalog"
	"github.com/harrison/tablecat/internal/column"
	"github.com/harrison/tablecat/internal/dirtable"
	"github.com/harrison/tablecat/internal/rangeval"
	"github.com/harrison/tablecat/internal/reader"
	"github.com/harrison/tablecat/internal/sink"
)

// Predicate is one (column, operator, value) constraint from a parsed
// query.
type Predicate struct {
	Column string
	Op     rangeval.Op
	Value  string
}

// Query is a parsed request: the columns to return and the predicates
// that must hold, plus the distinct() marker.
type Query struct {
	Columns    []string
	Predicates []Predicate
	Distinct   bool
}

// nowWindow is how close to the current wall clock a sorted column's
// file-max must be before that file is treated as still receiving
// appended rows, and therefore not prunable on its stale max.
const nowWindow = 4 * time.Hour

// retryBackoff is how long the executor pauses before retrying a
// failed per-file read once.
const retryBackoff = 50 * time.Millisecond

// Dataset bundles everything the executor needs to run one query: the
// published catalog/directory snapshot, per-column metadata, the file
// reader capability, and the bad-file registry so local failures can
// be quarantined mid-query.
type Dataset struct {
	Catalog   *catalog.Catalog
	Dirs      *dirtable.Table
	BadFiles  *catalog.BadFiles
	Columns   map[string]column.Descriptor

	IDColumnName     string
	SortedColumnName string
	FilesAreLocal    bool

	MissingSentinel    map[string]float64
	HasMissingSentinel map[string]bool

	// ExpandFPEquality widens an exact "=" match against a numeric
	// column into a small tolerance window, for sources whose values
	// drift slightly under float round-tripping (packed/scaled data
	// reread from disk rarely reproduces the exact bit pattern it was
	// written with).
	ExpandFPEquality bool

	Reader reader.Reader

	// Now returns the current time; defaults to time.Now. Exposed for
	// deterministic tests of the now+4h window.
	Now func() time.Time
}

func (d Dataset) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Executor runs queries against one Dataset snapshot.
type Executor struct {
	ds Dataset
}

// New returns an Executor bound to ds.
func New(ds Dataset) *Executor {
	return &Executor{ds: ds}
}

// Run plans and executes q, streaming results to s. The returned
// correlation id identifies this execution in logs. ctx cancellation is
// checked between file scans and between emitted chunks.
func (e *Executor) Run(ctx context.Context, q Query, s sink.Sink) (string, error) {
	correlationID := uuid.NewString()

	if err := e.validate(q); err != nil {
		return correlationID, fmt.Errorf("%w: %v", apierrors.ErrBadRequest, err)
	}

	agg := e.ds.Catalog.Aggregate()
	for _, p := range q.Predicates {
		admit, err := e.evalAgainstRange(agg[p.Column], p)
		if err != nil {
			return correlationID, fmt.Errorf("%w: %v", apierrors.ErrBadRequest, err)
		}
		if !admit {
			return correlationID, apierrors.ErrNoMatchingData
		}
	}

	sortedBounds := e.foldSortedRange(q.Predicates)

	if len(q.Columns) == 1 && q.Columns[0] == e.ds.IDColumnName {
		return correlationID, e.runIDOnly(s)
	}

	candidates := e.ds.Catalog.Records()

	if q.Distinct {
		return correlationID, e.runDistinct(ctx, q, candidates, sortedBounds, s)
	}

	return correlationID, e.runScan(ctx, q, candidates, sortedBounds, s)
}

func (e *Executor) validate(q Query) error {
	if len(q.Columns) == 0 {
		return fmt.Errorf("query: no result columns requested")
	}
	for _, c := range q.Columns {
		if c == e.ds.IDColumnName {
			continue
		}
		if _, ok := e.ds.Columns[c]; !ok {
			return fmt.Errorf("query: unknown column %q", c)
		}
	}
	for _, p := range q.Predicates {
		if !p.Op.Valid() {
			return fmt.Errorf("query: unrecognized operator %q", p.Op)
		}
		if p.Column != e.ds.IDColumnName {
			if _, ok := e.ds.Columns[p.Column]; !ok {
				return fmt.Errorf("query: unknown column %q", p.Column)
			}
		}
	}
	return nil
}

func (e *Executor) evalAgainstRange(rng rangeval.Range, p Predicate) (bool, error) {
	if p.Column == e.ds.IDColumnName {
		return true, nil
	}
	missing := e.ds.MissingSentinel[p.Column]
	hasMissing := e.ds.HasMissingSentinel[p.Column]
	return rangeval.Evaluate(rng, p.Op, p.Value, missing, hasMissing)
}

// sortedBounds is the folded [min,max] interval for the sorted column,
// derived from predicates that reference it directly.
type sortedBounds struct {
	has bool
	min float64
	max float64
}

func (e *Executor) foldSortedRange(preds []Predicate) sortedBounds {
	b := sortedBounds{min: -1, max: -1}
	if e.ds.SortedColumnName == "" {
		return b
	}
	for _, p := range preds {
		if p.Column != e.ds.SortedColumnName || p.Op == rangeval.OpRegex {
			continue
		}
		var v float64
		if _, err := fmt.Sscanf(p.Value, "%g", &v); err != nil {
			continue
		}
		switch p.Op {
		case rangeval.OpLT, rangeval.OpLE:
			if !b.has || v < b.max {
				b.max = v
			}
		case rangeval.OpGT, rangeval.OpGE:
			if !b.has || v > b.min {
				b.min = v
			}
		case rangeval.OpEQ:
			b.min, b.max = v, v
		}
		b.has = true
	}
	return b
}

// effectiveMax returns a file's sorted-column max for pruning purposes,
// widened to now+nowWindow (in epoch seconds) when that max lies within
// nowWindow of the current time, since such a file may still be
// receiving appended rows.
func (e *Executor) effectiveMax(rec catalog.FileRecord) float64 {
	rng, ok := rec.Columns[e.ds.SortedColumnName]
	if !ok {
		return 0
	}
	now := e.ds.now()
	lo := float64(now.Add(-nowWindow).Unix())
	hi := float64(now.Add(nowWindow).Unix())
	if rng.MaxNum >= lo && rng.MaxNum < hi {
		return hi
	}
	return rng.MaxNum
}

func (e *Executor) passesSortedBounds(rec catalog.FileRecord, b sortedBounds) bool {
	if !b.has || e.ds.SortedColumnName == "" {
		return true
	}
	rng, ok := rec.Columns[e.ds.SortedColumnName]
	if !ok {
		return true
	}
	max := e.effectiveMax(rec)
	if max < b.min {
		return false
	}
	if rng.MinNum > b.max {
		return false
	}
	return true
}

func (e *Executor) passesPredicates(rec catalog.FileRecord, preds []Predicate) (bool, error) {
	for _, p := range preds {
		if p.Column == e.ds.IDColumnName {
			continue
		}
		rng, ok := rec.Columns[p.Column]
		if !ok {
			continue
		}
		missing := e.ds.MissingSentinel[p.Column]
		hasMissing := e.ds.HasMissingSentinel[p.Column]
		admit, err := rangeval.Evaluate(rng, p.Op, p.Value, missing, hasMissing)
		if err != nil {
			return false, err
		}
		if !admit {
			return false, nil
		}
	}
	return true, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (e *Executor) runIDOnly(s sink.Sink) error {
	recs := e.ds.Catalog.Records()
	ids := make([]string, 0, len(recs))
	seen := make(map[string]bool, len(recs))
	for _, rec := range recs {
		rng, ok := rec.Columns[e.ds.IDColumnName]
		if !ok {
			continue
		}
		if !seen[rng.MinText] {
			seen[rng.MinText] = true
			ids = append(ids, rng.MinText)
		}
	}
	return s.WriteAllAndFinish(reader.Table{
		Columns: []string{e.ds.IDColumnName},
		Text:    map[string][]string{e.ds.IDColumnName: ids},
	})
}
