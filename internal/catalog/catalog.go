// Package catalog holds the persistent, incrementally-maintained index of
// per-file metadata that lets the query engine reject whole datasets and
// prune individual files without opening them. A Catalog value is
// immutable once built; the updater constructs a new one on each pass and
// the engine publishes it by replacing its snapshot pointer under a
// sync.RWMutex, which queries hold only long enough to copy the snapshot.
package catalog

import (
	"sort"

	"github.com/harrison/tablecat/internal/rangeval"
)

// FileRecord is the catalog's per-file entry: identity (dirIndex, name),
// change-detection timestamp, the sorted-column spacing classification,
// and the per-column range summary used for predicate pruning.
type FileRecord struct {
	DirIndex      int
	Name          string
	LastModified  int64 // wall-clock milliseconds
	SortedSpacing float64
	Columns       map[string]rangeval.Range
}

// Key returns the (dirIndex, name) identity used for catalog ordering,
// bad-file registry lookups, and equality checks.
func (r FileRecord) Key() FileKey {
	return FileKey{DirIndex: r.DirIndex, Name: r.Name}
}

// FileKey is a file's catalog identity.
type FileKey struct {
	DirIndex int
	Name     string
}

// Less orders keys by (dirIndex, name) ascending, the catalog's required
// sort order before any sortFilesBySourceNames re-sort is applied.
func (k FileKey) Less(other FileKey) bool {
	if k.DirIndex != other.DirIndex {
		return k.DirIndex < other.DirIndex
	}
	return k.Name < other.Name
}

// Catalog is the immutable, ordered collection of file records for one
// dataset, plus the aggregate min/max/hasMissing table derived from them.
type Catalog struct {
	records   []FileRecord
	aggregate map[string]rangeval.Range
}

// Empty returns a Catalog with no records.
func Empty() *Catalog {
	return &Catalog{aggregate: map[string]rangeval.Range{}}
}

// New builds a Catalog from records, sorting by (dirIndex, name) and
// recomputing the aggregate table. The input slice is not retained.
func New(records []FileRecord) *Catalog {
	recs := append([]FileRecord(nil), records...)
	sort.Slice(recs, func(i, j int) bool { return recs[i].Key().Less(recs[j].Key()) })
	return &Catalog{records: recs, aggregate: computeAggregate(recs)}
}

// Records returns the catalog's file records in their current order
// (ascending (dirIndex, name) unless SortBySourceNames re-ordered them).
func (c *Catalog) Records() []FileRecord {
	return append([]FileRecord(nil), c.records...)
}

// Len returns the number of files in the catalog.
func (c *Catalog) Len() int {
	return len(c.records)
}

// Find looks up a file record by (dirIndex, name) using binary search
// over the records in their current order. It relies on the
// (dirIndex, name)-ascending order New produces; on a Catalog returned by
// SortBySourceNames it can report a present record as missing.
func (c *Catalog) Find(key FileKey) (FileRecord, bool) {
	i := sort.Search(len(c.records), func(i int) bool {
		return !c.records[i].Key().Less(key)
	})
	if i < len(c.records) && c.records[i].Key() == key {
		return c.records[i], true
	}
	return FileRecord{}, false
}

// Aggregate returns the per-column aggregate range: min of mins, max of
// maxes, and the OR of hasMissing, across every file in the catalog.
func (c *Catalog) Aggregate() map[string]rangeval.Range {
	out := make(map[string]rangeval.Range, len(c.aggregate))
	for k, v := range c.aggregate {
		out[k] = v
	}
	return out
}

func computeAggregate(records []FileRecord) map[string]rangeval.Range {
	agg := make(map[string]rangeval.Range)
	seen := make(map[string]bool)
	for _, rec := range records {
		for name, rng := range rec.Columns {
			if !seen[name] {
				agg[name] = rng
				seen[name] = true
				continue
			}
			a := agg[name]
			a.HasMissing = a.HasMissing || rng.HasMissing
			if rng.Kind.IsNumeric() {
				if rng.MinNum < a.MinNum {
					a.MinNum = rng.MinNum
				}
				if rng.MaxNum > a.MaxNum {
					a.MaxNum = rng.MaxNum
				}
			} else {
				if rng.MinText < a.MinText {
					a.MinText = rng.MinText
				}
				if rng.MaxText > a.MaxText {
					a.MaxText = rng.MaxText
				}
			}
			agg[name] = a
		}
	}
	return agg
}

// SortBySourceNames re-sorts the catalog's records by a configured list of
// column names, per sortFilesBySourceNames: records are compared on each
// column's min value in turn (numerically or as text), skipping a column
// either record lacks, with (dirIndex, name) as the final tie-break. This
// determines file visitation order at query time and therefore output
// row order for unsorted queries. It returns a new Catalog; the receiver
// keeps its (dirIndex, name) order.
func (c *Catalog) SortBySourceNames(names []string) *Catalog {
	recs := append([]FileRecord(nil), c.records...)
	sort.SliceStable(recs, func(i, j int) bool {
		for _, name := range names {
			cmp, ok := compareSortKey(recs[i], recs[j], name)
			if !ok {
				continue
			}
			if cmp != 0 {
				return cmp < 0
			}
		}
		return recs[i].Key().Less(recs[j].Key())
	})
	return &Catalog{records: recs, aggregate: c.aggregate}
}

// compareSortKey compares two records on a single sort column's min
// value, returning ok=false when either record lacks the column so the
// caller can fall through to the next tie-break key.
func compareSortKey(a, b FileRecord, column string) (cmp int, ok bool) {
	ra, oka := a.Columns[column]
	rb, okb := b.Columns[column]
	if !oka || !okb {
		return 0, false
	}
	if ra.Kind.IsNumeric() {
		switch {
		case ra.MinNum < rb.MinNum:
			return -1, true
		case ra.MinNum > rb.MinNum:
			return 1, true
		default:
			return 0, true
		}
	}
	switch {
	case ra.MinText < rb.MinText:
		return -1, true
	case ra.MinText > rb.MinText:
		return 1, true
	default:
		return 0, true
	}
}
