package reader

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory Reader backed by pre-registered tables, keyed by
// dir/name. It exists for tests that exercise the updater or query
// executor without real dataset files on disk.
type Fake struct {
	mu      sync.Mutex
	tables  map[string]Table
	errs    map[string]error
	calls   []Request
}

// NewFake returns an empty fake reader.
func NewFake() *Fake {
	return &Fake{tables: make(map[string]Table), errs: make(map[string]error)}
}

func fakeKey(dir, name string) string {
	return dir + "/" + name
}

// Set registers the table to return for dir/name.
func (f *Fake) Set(dir, name string, t Table) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[fakeKey(dir, name)] = t
}

// SetErr registers an error to return for dir/name instead of a table.
func (f *Fake) SetErr(dir, name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[fakeKey(dir, name)] = err
}

// Calls returns the requests seen so far, in order.
func (f *Fake) Calls() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.calls...)
}

// Read implements Reader.
func (f *Fake) Read(ctx context.Context, req Request) (Table, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	key := fakeKey(req.Dir, req.Name)
	if err, ok := f.errs[key]; ok {
		f.mu.Unlock()
		return Table{}, err
	}
	t, ok := f.tables[key]
	f.mu.Unlock()
	if !ok {
		return Table{}, fmt.Errorf("fake reader: no table registered for %s", key)
	}
	return t, nil
}
