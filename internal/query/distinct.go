package query

import (
	"context"

	"github.com/harrison/tablecat/internal/apierrors"
	"github.com/harrison/tablecat/internal/catalog"
	"github.com/harrison/tablecat/internal/reader"
	"github.com/harrison/tablecat/internal/sink"
)

// runDistinct implements the distinct() short-circuit: for each file
// that passes per-file predicate evaluation, if every requested column
// has min=max in that file the row is trivially uniform and can be
// emitted straight from the catalog; otherwise the file falls through
// to a full scan. Emitted rows are deduplicated against rows already
// seen so repeated uniform files collapse into one row, matching what
// a sorted dedup of the equivalent non-distinct query would produce.
func (e *Executor) runDistinct(ctx context.Context, q Query, candidates []catalog.FileRecord, bounds sortedBounds, s sink.Sink) error {
	seen := make(map[string]bool)
	numericValues := make(map[string][]float64, len(q.Columns))
	textValues := make(map[string][]string, len(q.Columns))
	rowCount := 0
	scanQueue := make([]catalog.FileRecord, 0)
	wroteAny := false

	isNumeric := func(c string) bool {
		return c != e.ds.IDColumnName && e.ds.Columns[c].Kind.IsNumeric()
	}

	resetDistinctBuffer := func() {
		numericValues = make(map[string][]float64, len(q.Columns))
		textValues = make(map[string][]string, len(q.Columns))
		rowCount = 0
	}

	flush := func() error {
		if rowCount == 0 {
			return nil
		}
		chunk := reader.Table{
			Columns: append([]string(nil), q.Columns...),
			Numeric: numericValues,
			Text:    textValues,
		}
		wroteAny = true
		resetDistinctBuffer()
		return s.WriteSome(chunk)
	}

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

		uniform, key := e.uniformRow(rec, q.Columns)
		if !uniform {
			scanQueue = append(scanQueue, rec)
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		rowCount++
		for _, c := range q.Columns {
			if isNumeric(c) {
				rng := rec.Columns[c]
				numericValues[c] = append(numericValues[c], rng.MinNum)
				continue
			}
			textValues[c] = append(textValues[c], e.uniformValue(rec, c))
		}
	}

	if err := flush(); err != nil {
		return err
	}

	if len(scanQueue) > 0 {
		if err := e.runScanNoFinish(ctx, q, scanQueue, &wroteAny, s); err != nil && err != apierrors.ErrNoMatchingData {
			return err
		}
	}

	if !wroteAny {
		_ = s.Finish()
		return apierrors.ErrNoMatchingData
	}
	return s.Finish()
}

// uniformRow reports whether every requested column has min=max in
// rec, and if so a stable dedup key for the resulting row.
func (e *Executor) uniformRow(rec catalog.FileRecord, columns []string) (bool, string) {
	key := ""
	for _, c := range columns {
		if c == e.ds.IDColumnName {
			key += "/id=" + e.uniformValue(rec, c)
			continue
		}
		rng, ok := rec.Columns[c]
		if !ok {
			return false, ""
		}
		if rng.Kind.IsNumeric() {
			if rng.MinNum != rng.MaxNum {
				return false, ""
			}
		} else if rng.MinText != rng.MaxText {
			return false, ""
		}
		key += "/" + c + "=" + e.uniformValue(rec, c)
	}
	return true, key
}

func (e *Executor) uniformValue(rec catalog.FileRecord, column string) string {
	rng, ok := rec.Columns[column]
	if !ok {
		return ""
	}
	if rng.Kind.IsNumeric() {
		return formatFloat(rng.MinNum)
	}
	return rng.MinText
}

// runScanNoFinish runs the full per-file scan over files that weren't
// trivially uniform, without calling Finish (the caller, runDistinct,
// owns the single Finish call for the whole query).
func (e *Executor) runScanNoFinish(ctx context.Context, q Query, candidates []catalog.FileRecord, wroteAny *bool, s sink.Sink) error {
	for _, rec := range candidates {
		if ctx.Err() != nil {
			return nil
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
		*wroteAny = true
		if err := s.WriteSome(chunk); err != nil {
			return err
		}
	}
	return nil
}
