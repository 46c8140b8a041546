// Package dirtable implements the directory table: an append-only,
// ordered sequence of directory path strings. File records in the
// catalog reference a directory by its small integer position instead
// of repeating the path, which keeps the catalog's on-disk and
// in-memory footprint proportional to file count rather than to
// path length times file count.
package dirtable

import "sync"

// Table is the directory index. The zero value is not usable; call New.
// Positions are append-only and stable for the lifetime of the catalog
// that references them.
type Table struct {
	mu    sync.RWMutex
	paths []string
	index map[string]int
}

// New returns an empty directory table.
func New() *Table {
	return &Table{index: make(map[string]int)}
}

// FromSlice rebuilds a directory table from a previously persisted,
// order-preserving slice of paths (index i is position i).
func FromSlice(paths []string) *Table {
	t := &Table{
		paths: append([]string(nil), paths...),
		index: make(map[string]int, len(paths)),
	}
	for i, p := range t.paths {
		t.index[p] = i
	}
	return t
}

// Intern returns the existing index for path, appending it if it has not
// been seen before. The number of distinct directories is bounded by
// filesystem depth, so the linear-scan-free map lookup is more than
// sufficient and the append path stays O(1) amortized.
func (t *Table) Intern(path string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i, ok := t.index[path]; ok {
		return i
	}
	i := len(t.paths)
	t.paths = append(t.paths, path)
	t.index[path] = i
	return i
}

// Lookup returns the index of path without interning it.
func (t *Table) Lookup(path string) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.index[path]
	return i, ok
}

// Path returns the directory path at index i.
func (t *Table) Path(i int) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i < 0 || i >= len(t.paths) {
		return "", false
	}
	return t.paths[i], true
}

// Snapshot returns a copy of the ordered path slice, suitable for
// persistence. The returned slice's index i is directory index i.
func (t *Table) Snapshot() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.paths...)
}

// Len returns the number of interned directories.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.paths)
}
