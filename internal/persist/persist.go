// Package persist durably stores one dataset's catalog, directory
// table, and bad-file registry, and atomically swaps them on update.
// Each is written to a temp file under the dataset's data directory and
// renamed into place, in an order chosen so a partial failure never
// leaves the catalog referencing an undefined directory: bad-file
// registry first, directory index second, catalog last.
package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harrison/tablecat/internal/catalog"
	"github.com/harrison/tablecat/internal/dirtable"
	"github.com/harrison/tablecat/internal/filelock"
	"github.com/harrison/tablecat/internal/rangeval"
)

const (
	directoryTableFile = "directoryTable"
	fileTableFile      = "fileTable"
	badFilesFile       = "badFiles"
)

// fileRecordRow is the on-disk shape of one catalog.FileRecord. Field
// order mirrors the fileTable column layout from the persisted state
// layout: dirIndex, fileName, lastModified, sortedSpacing, then the
// per-column min/max/hasMissing triples.
type fileRecordRow struct {
	DirIndex      int                       `json:"dirIndex"`
	Name          string                    `json:"fileName"`
	LastModified  int64                     `json:"lastModified"`
	SortedSpacing float64                   `json:"sortedSpacing"`
	Columns       map[string]rangeval.Range `json:"columns"`
}

// Store is a dataset's on-disk persistence location.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir, creating it if necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("persist: create data dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// Load reads the directory table, catalog, and bad-file registry from
// disk. A missing file is reported as its empty value (an empty
// directory table, an Empty catalog, an empty registry) with a nil
// error, so callers can distinguish
// "never persisted" from a load error and build fresh state. Corrupt
// files (malformed JSON) are reported as an error; the caller is
// expected to discard and rebuild per the persisted state layout's
// corruption policy.
func (s *Store) Load() (*dirtable.Table, *catalog.Catalog, *catalog.BadFiles, error) {
	dirs, err := s.loadDirTable()
	if err != nil {
		return nil, nil, nil, err
	}
	cat, err := s.loadCatalog()
	if err != nil {
		return nil, nil, nil, err
	}
	bad, err := s.loadBadFiles()
	if err != nil {
		return nil, nil, nil, err
	}
	return dirs, cat, bad, nil
}

func (s *Store) loadDirTable() (*dirtable.Table, error) {
	data, err := os.ReadFile(s.path(directoryTableFile))
	if os.IsNotExist(err) {
		return dirtable.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("persist: read %s: %w", directoryTableFile, err)
	}
	var paths []string
	if err := json.Unmarshal(data, &paths); err != nil {
		return nil, fmt.Errorf("persist: corrupt %s: %w", directoryTableFile, err)
	}
	return dirtable.FromSlice(paths), nil
}

func (s *Store) loadCatalog() (*catalog.Catalog, error) {
	data, err := os.ReadFile(s.path(fileTableFile))
	if os.IsNotExist(err) {
		return catalog.Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("persist: read %s: %w", fileTableFile, err)
	}
	var rows []fileRecordRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("persist: corrupt %s: %w", fileTableFile, err)
	}
	recs := make([]catalog.FileRecord, len(rows))
	for i, r := range rows {
		recs[i] = catalog.FileRecord{
			DirIndex:      r.DirIndex,
			Name:          r.Name,
			LastModified:  r.LastModified,
			SortedSpacing: r.SortedSpacing,
			Columns:       r.Columns,
		}
	}
	return catalog.New(recs), nil
}

func (s *Store) loadBadFiles() (*catalog.BadFiles, error) {
	data, err := os.ReadFile(s.path(badFilesFile))
	if os.IsNotExist(err) {
		return catalog.NewBadFiles(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("persist: read %s: %w", badFilesFile, err)
	}
	var entries map[string]catalog.BadFileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("persist: corrupt %s: %w", badFilesFile, err)
	}
	return catalog.FromMap(entries), nil
}

// Save atomically persists dirs, cat, and bad in the order required to
// keep the on-disk state always internally consistent: bad-file
// registry first (or removed if empty), directory index second,
// catalog last. On any write failure the temporaries are discarded and
// the previously persisted files are left untouched.
func (s *Store) Save(dirs *dirtable.Table, cat *catalog.Catalog, bad *catalog.BadFiles) error {
	if err := s.saveBadFiles(bad); err != nil {
		return err
	}
	if err := s.saveDirTable(dirs); err != nil {
		return err
	}
	return s.saveCatalog(cat)
}

func (s *Store) saveBadFiles(bad *catalog.BadFiles) error {
	snap := bad.Snapshot()
	path := s.path(badFilesFile)
	if len(snap) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("persist: remove empty %s: %w", badFilesFile, err)
		}
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("persist: encode %s: %w", badFilesFile, err)
	}
	return s.atomicWrite(path, data, badFilesFile)
}

func (s *Store) saveDirTable(dirs *dirtable.Table) error {
	data, err := json.Marshal(dirs.Snapshot())
	if err != nil {
		return fmt.Errorf("persist: encode %s: %w", directoryTableFile, err)
	}
	return s.atomicWrite(s.path(directoryTableFile), data, directoryTableFile)
}

func (s *Store) saveCatalog(cat *catalog.Catalog) error {
	recs := cat.Records()
	rows := make([]fileRecordRow, len(recs))
	for i, r := range recs {
		rows[i] = fileRecordRow{
			DirIndex:      r.DirIndex,
			Name:          r.Name,
			LastModified:  r.LastModified,
			SortedSpacing: r.SortedSpacing,
			Columns:       r.Columns,
		}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("persist: encode %s: %w", fileTableFile, err)
	}
	return s.atomicWrite(s.path(fileTableFile), data, fileTableFile)
}

func (s *Store) atomicWrite(path string, data []byte, label string) error {
	lock := filelock.NewFileLock(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("persist: lock %s: %w", label, err)
	}
	defer lock.Unlock()

	if err := filelock.AtomicWrite(path, data); err != nil {
		return fmt.Errorf("persist: write %s: %w", label, err)
	}
	return nil
}
