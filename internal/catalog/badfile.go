package catalog

import (
	"fmt"
	"sync"
)

// BadFileEntry records why a file is quarantined and the lastModified it
// was quarantined at. A newer lastModified on a later scan invalidates
// the entry (the file "escapes" quarantine once it changes).
type BadFileEntry struct {
	LastModified int64
	Reason       string
}

// BadFiles is the concurrent-safe bad-file registry. It is consulted and
// mutated on every catalog update pass; reads from the query path never
// touch it, so the mutex here is unrelated to the catalog's lock-free
// read path.
type BadFiles struct {
	mu      sync.RWMutex
	entries map[string]BadFileEntry
}

// NewBadFiles returns an empty registry.
func NewBadFiles() *BadFiles {
	return &BadFiles{entries: make(map[string]BadFileEntry)}
}

// FromMap rebuilds a registry from a previously persisted key->entry map.
func FromMap(m map[string]BadFileEntry) *BadFiles {
	b := NewBadFiles()
	for k, v := range m {
		b.entries[k] = v
	}
	return b
}

// Key formats the dirIndex/name identity used as the registry's map key.
func Key(dirIndex int, name string) string {
	return fmt.Sprintf("%d/%s", dirIndex, name)
}

// IsBad reports whether key is quarantined at exactly lastModified. A
// mismatched lastModified means the file has since changed and is no
// longer considered bad.
func (b *BadFiles) IsBad(key string, lastModified int64) (BadFileEntry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[key]
	if !ok || e.LastModified != lastModified {
		return BadFileEntry{}, false
	}
	return e, true
}

// Quarantine adds or replaces the entry for key.
func (b *BadFiles) Quarantine(key string, lastModified int64, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[key] = BadFileEntry{LastModified: lastModified, Reason: reason}
}

// Remove deletes key from the registry, if present.
func (b *BadFiles) Remove(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, key)
}

// Clear empties the registry. Used for remote datasets at the start of
// each update pass, since transient remote failures must not permanently
// exclude a file.
func (b *BadFiles) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make(map[string]BadFileEntry)
}

// PruneAbsent removes every entry whose key is not present in present.
func (b *BadFiles) PruneAbsent(present map[string]bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k := range b.entries {
		if !present[k] {
			delete(b.entries, k)
		}
	}
}

// Snapshot returns a copy of the registry's entries, suitable for
// persistence.
func (b *BadFiles) Snapshot() map[string]BadFileEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]BadFileEntry, len(b.entries))
	for k, v := range b.entries {
		out[k] = v
	}
	return out
}

// Len returns the number of quarantined entries.
func (b *BadFiles) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
