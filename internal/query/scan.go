package query

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/harrison/tablecat/internal/apierrors"
	"github.com/harrison/tablecat/internal/catalog"
	"github.com/harrison/tablecat/internal/column"
	"github.com/harrison/tablecat/internal/rangeval"
	"github.com/harrison/tablecat/internal/reader"
	"github.com/harrison/tablecat/internal/sink"
)

// fpEqualityEpsilon is the tolerance window ExpandFPEquality widens an
// exact numeric "=" match into.
const fpEqualityEpsilon = 1e-5

// matchesRow re-evaluates predicate p against the actual row value at
// index i, exactly rather than via range pruning.
func (e *Executor) matchesRow(tbl reader.Table, desc column.Descriptor, p Predicate, i int) bool {
	if desc.Kind.IsNumeric() {
		v := tbl.Numeric[p.Column][i]
		if p.Op == rangeval.OpEQ && e.ds.ExpandFPEquality {
			loOp, loValue, hiOp, hiValue, expanded := rangeval.ExpandEquality(p.Op, p.Value, fpEqualityEpsilon)
			if expanded {
				return evalExactNumeric(v, loOp, loValue) && evalExactNumeric(v, hiOp, hiValue)
			}
		}
		return evalExactNumeric(v, p.Op, p.Value)
	}
	v := tbl.Text[p.Column][i]
	return evalExactText(v, p.Op, p.Value)
}

func evalExactNumeric(v float64, op rangeval.Op, valueText string) bool {
	target, err := strconv.ParseFloat(valueText, 64)
	if err != nil {
		return false
	}
	switch op {
	case rangeval.OpEQ:
		return v == target
	case rangeval.OpNE:
		return v != target
	case rangeval.OpLT:
		return v < target
	case rangeval.OpLE:
		return v <= target
	case rangeval.OpGT:
		return v > target
	case rangeval.OpGE:
		return v >= target
	}
	return true
}

func regexMatch(v, pattern string) (bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(v), nil
}

func evalExactText(v string, op rangeval.Op, target string) bool {
	switch op {
	case rangeval.OpEQ:
		return v == target
	case rangeval.OpNE:
		return v != target
	case rangeval.OpLT:
		return v < target
	case rangeval.OpLE:
		return v <= target
	case rangeval.OpGT:
		return v > target
	case rangeval.OpGE:
		return v >= target
	case rangeval.OpRegex:
		ok, _ := regexMatch(v, target)
		return ok
	}
	return true
}

// runScan performs the per-file scan step of the plan: for each
// surviving file, read the requested columns, re-apply every predicate
// exactly against the actual rows, project to the requested columns,
// and hand non-empty chunks to the sink.
func (e *Executor) runScan(ctx context.Context, q Query, candidates []catalog.FileRecord, bounds sortedBounds, s sink.Sink) error {
	wroteAny := false
	for _, rec := range candidates {
		if ctx.Err() != nil {
			return s.Finish()
		}
		if !e.passesSortedBounds(rec, bounds) {
			continue
		}
		admit, err := e.passesPredicates(rec, q.Predicates)
		if err != nil {
			return err
		}
		if !admit {
			continue
		}

		tbl, err := e.readFileWithRetry(ctx, rec, q)
		if err != nil {
			return err
		}
		if tbl.NumRows() == 0 {
			continue
		}

		chunk := e.projectAndFilter(tbl, rec, q)
		if chunk.NumRows() == 0 {
			continue
		}
		wroteAny = true
		if err := s.WriteSome(chunk); err != nil {
			return err
		}

		if ctx.Err() != nil {
			return s.Finish()
		}
	}

	if !wroteAny {
		_ = s.Finish()
		return apierrors.ErrNoMatchingData
	}
	return s.Finish()
}

// readFileWithRetry reads rec once, retrying a single time after a
// short backoff on I/O failure; a second failure quarantines the file
// (local datasets only) and surfaces a retryable error.
func (e *Executor) readFileWithRetry(ctx context.Context, rec catalog.FileRecord, q Query) (reader.Table, error) {
	dir, _ := e.ds.Dirs.Path(rec.DirIndex)
	req := e.readRequest(dir, rec, q)

	tbl, err := e.ds.Reader.Read(ctx, req)
	if err == nil {
		return tbl, nil
	}

	select {
	case <-ctx.Done():
		return reader.Table{}, ctx.Err()
	case <-time.After(retryBackoff):
	}

	tbl, err = e.ds.Reader.Read(ctx, req)
	if err == nil {
		return tbl, nil
	}

	if e.ds.FilesAreLocal {
		e.ds.BadFiles.Quarantine(catalog.Key(rec.DirIndex, rec.Name), rec.LastModified, err.Error())
	}
	return reader.Table{}, fmt.Errorf("%w: reading %s: %v", apierrors.ErrRetryLater, rec.Name, err)
}

func (e *Executor) readRequest(dir string, rec catalog.FileRecord, q Query) reader.Request {
	names := make([]string, 0, len(q.Columns))
	types := make([]column.Kind, 0, len(q.Columns))
	for _, c := range q.Columns {
		if c == e.ds.IDColumnName {
			continue
		}
		names = append(names, c)
		types = append(types, e.ds.Columns[c].Kind)
	}
	return reader.Request{
		Dir:            dir,
		Name:           rec.Name,
		ColumnNames:    names,
		ColumnTypes:    types,
		SortedSpacing:  rec.SortedSpacing,
		MinSorted:      e.effectiveMinFor(rec),
		MaxSorted:      e.effectiveMax(rec),
		GetMetadata:    false,
		MustGetAllData: true,
	}
}

func (e *Executor) effectiveMinFor(rec catalog.FileRecord) float64 {
	if rng, ok := rec.Columns[e.ds.SortedColumnName]; ok {
		return rng.MinNum
	}
	return 0
}

// projectAndFilter applies predicate re-evaluation against the actual
// rows read (the catalog-range check only proved the file couldn't be
// excluded, not that every row matches), appends the id column if
// requested, and projects down to the query's requested columns.
func (e *Executor) projectAndFilter(tbl reader.Table, rec catalog.FileRecord, q Query) reader.Table {
	n := tbl.NumRows()
	keep := make([]bool, n)
	for i := range keep {
		keep[i] = true
	}

	for _, p := range q.Predicates {
		if p.Column == e.ds.IDColumnName {
			continue
		}
		desc, ok := e.ds.Columns[p.Column]
		if !ok {
			continue
		}
		for i := 0; i < n; i++ {
			if !keep[i] {
				continue
			}
			if !e.matchesRow(tbl, desc, p, i) {
				keep[i] = false
			}
		}
	}

	out := reader.Table{Columns: append([]string(nil), q.Columns...)}
	var idValue string
	if e.ds.IDColumnName != "" {
		if rng, ok := rec.Columns[e.ds.IDColumnName]; ok {
			idValue = rng.MinText
		}
	}

	numeric := make(map[string][]float64)
	text := make(map[string][]string)
	for _, c := range q.Columns {
		if c == e.ds.IDColumnName {
			vals := make([]string, 0, n)
			for i := 0; i < n; i++ {
				if keep[i] {
					vals = append(vals, idValue)
				}
			}
			text[c] = vals
			continue
		}
		desc := e.ds.Columns[c]
		if desc.Kind.IsNumeric() {
			src := tbl.Numeric[c]
			vals := make([]float64, 0, n)
			for i := 0; i < n; i++ {
				if keep[i] {
					vals = append(vals, src[i])
				}
			}
			numeric[c] = vals
		} else {
			src := tbl.Text[c]
			vals := make([]string, 0, n)
			for i := 0; i < n; i++ {
				if keep[i] {
					vals = append(vals, src[i])
				}
			}
			text[c] = vals
		}
	}
	out.Numeric = numeric
	out.Text = text
	return out
}
