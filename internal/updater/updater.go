// Package updater implements the catalog updater: it discovers dataset
// files, diffs them against the current catalog, invokes the file
// reader for new or changed files, enforces the schema sentinel,
// quarantines failures, and persists the result atomically. Only one
// update pass runs at a time per Updater; a concurrent call is
// rejected with apierrors.ErrRetryLater rather than blocking, so a
// caller driving a reload cadence never piles up goroutines waiting on
// a slow scan.
package updater

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/harrison/tablecat/internal/apierrors"
	"github.com/harrison/tablecat/internal/catalog"
	"github.com/harrison/tablecat/internal/column"
	"github.com/harrison/tablecat/internal/dirtable"
	"github.com/harrison/tablecat/internal/persist"
	"github.com/harrison/tablecat/internal/rangeval"
	"github.com/harrison/tablecat/internal/reader"
	"github.com/harrison/tablecat/internal/schema"
)

// staleThreshold is how old an in-flight file's lastModified must be
// before a scan failure quarantines it, rather than being treated as a
// transient condition retried next pass.
const staleThreshold = 30 * time.Minute

// Logger is the narrow logging surface the updater needs; satisfied by
// internal/logger's console logger.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any) {}
func (nopLogger) Warnf(string, ...any) {}

// Options configures one dataset's update behavior.
type Options struct {
	FileDir       string
	FileNameRegex string
	Recursive     bool
	FilesAreLocal bool

	ColumnNames []string
	ColumnTypes []column.Kind

	IDColumnName string
	IDExtractor  IDExtractor

	SortedColumnName string

	// SortFilesBySourceNames, if set, is the column list the finished
	// catalog is sorted by before persisting, determining file
	// visitation order for unsorted queries. This is independent of
	// SortedColumnName, which only feeds query-time range pruning.
	SortFilesBySourceNames []string

	// MetadataFrom selects which scanned file's attributes the schema
	// sentinel reports as the dataset's captured metadata: "first"
	// (default) freezes it at the first file seen for each column,
	// "last" keeps advancing it to the most recently scanned file.
	MetadataFrom string

	// Overrides supplies per-column fill/missing substitutions applied
	// to a freshly scanned file's observed attributes before checking
	// them against the schema sentinel, for datasets whose configured
	// sentinel differs from what the source file itself reports.
	Overrides map[string]schema.Override

	Reader reader.Reader
	Logger Logger

	// Now returns the current time; defaults to time.Now. Exposed for
	// deterministic tests of the staleness threshold.
	Now func() time.Time

	// OnProgress, if set, is called after each live file is resolved
	// (from cache, rescanned, or newly added) during mergeWalk, with
	// the number resolved so far and the total live count.
	OnProgress func(done, total int)
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Updater runs update passes for one dataset and persists their result.
type Updater struct {
	opts  Options
	store *persist.Store

	mu sync.Mutex
}

// New returns an Updater backed by store.
func New(opts Options, store *persist.Store) *Updater {
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	return &Updater{opts: opts, store: store}
}

// Result summarizes one completed update pass.
type Result struct {
	Dirs      *dirtable.Table
	Catalog   *catalog.Catalog
	BadFiles  *catalog.BadFiles
	Added     int
	Removed   int
	Rescanned int
	Quarantined int
}

// Run performs one full discover-diff-rescan-persist pass. It returns
// apierrors.ErrRetryLater if another pass is already in flight.
func (u *Updater) Run(ctx context.Context) (Result, error) {
	if !u.mu.TryLock() {
		return Result{}, apierrors.ErrRetryLater
	}
	defer u.mu.Unlock()

	dirs, cat, bad, err := u.store.Load()
	if err != nil {
		return Result{}, fmt.Errorf("updater: load prior state: %w", err)
	}

	found, err := discover(u.opts.FileDir, u.opts.FileNameRegex, u.opts.Recursive)
	if err != nil {
		return Result{}, fmt.Errorf("updater: discover: %w", err)
	}

	if !u.opts.FilesAreLocal {
		bad.Clear()
	}

	scanned := make([]scannedFile, len(found))
	for i, f := range found {
		scanned[i] = scannedFile{DiscoveredFile: f, DirIndex: dirs.Intern(f.Dir)}
	}
	// The catalog's merge-walk order is (dirIndex, name); discover sorts
	// by (dir string, name), which can disagree with (dirIndex, name)
	// once a new directory is interned with an index that doesn't match
	// its alphabetical position. Re-sort on the assigned indices.
	sort.Slice(scanned, func(i, j int) bool {
		if scanned[i].DirIndex != scanned[j].DirIndex {
			return scanned[i].DirIndex < scanned[j].DirIndex
		}
		return scanned[i].Name < scanned[j].Name
	})

	present := make(map[string]bool, len(scanned))
	var live []scannedFile
	for _, f := range scanned {
		key := catalog.Key(f.DirIndex, f.Name)
		present[key] = true
		if _, isBad := bad.IsBad(key, f.LastModified); isBad {
			continue
		}
		live = append(live, f)
	}
	bad.PruneAbsent(present)

	sentinel := schema.NewFromConfig(u.opts.MetadataFrom)
	records, added, removed, rescanned, quarantined, err := u.mergeWalk(ctx, cat, bad, live, sentinel)
	if err != nil {
		return Result{}, err
	}

	newCat := catalog.New(records)
	if len(u.opts.SortFilesBySourceNames) > 0 {
		newCat = newCat.SortBySourceNames(u.opts.SortFilesBySourceNames)
	}

	if err := u.store.Save(dirs, newCat, bad); err != nil {
		return Result{}, fmt.Errorf("updater: persist: %w", err)
	}

	u.opts.Logger.Infof("update pass complete: added=%d removed=%d rescanned=%d quarantined=%d total=%d",
		added, removed, rescanned, quarantined, newCat.Len())

	return Result{
		Dirs:        dirs,
		Catalog:     newCat,
		BadFiles:    bad,
		Added:       added,
		Removed:     removed,
		Rescanned:   rescanned,
		Quarantined: quarantined,
	}, nil
}

// scannedFile is one discovered file together with the directory index
// assigned to it by the directory table, the join key used to align a
// fresh scan with both the existing catalog and the bad-file registry.
type scannedFile struct {
	DiscoveredFile
	DirIndex int
}

func (f scannedFile) Key() catalog.FileKey {
	return catalog.FileKey{DirIndex: f.DirIndex, Name: f.Name}
}

// mergeWalk implements a two-sorted-sequence diff: the existing
// catalog (already sorted by (dirIndex,name)) against the live set
// (the fresh scan with already-quarantined files filtered out, sorted
// the same way by Run).
func (u *Updater) mergeWalk(
	ctx context.Context,
	cat *catalog.Catalog,
	bad *catalog.BadFiles,
	live []scannedFile,
	sentinel *schema.Sentinel,
) (records []catalog.FileRecord, added, removed, rescanned, quarantined int, err error) {
	existing := cat.Records()
	ci, si := 0, 0
	total := len(live)

	for si < len(live) {
		f := live[si]
		fk := f.Key()

		for ci < len(existing) && existing[ci].Key().Less(fk) {
			removed++
			ci++
		}

		if ci < len(existing) && existing[ci].Key() == fk {
			if existing[ci].LastModified == f.LastModified {
				records = append(records, existing[ci])
				ci++
				si++
				u.reportProgress(si, total)
				continue
			}
			rec, scanErr := u.scanOne(ctx, f, sentinel)
			ci++
			si++
			u.reportProgress(si, total)
			if scanErr != nil {
				if u.handleScanFailure(bad, fk, f, scanErr) {
					quarantined++
				}
				continue
			}
			records = append(records, rec)
			rescanned++
			continue
		}

		rec, scanErr := u.scanOne(ctx, f, sentinel)
		si++
		u.reportProgress(si, total)
		if scanErr != nil {
			if u.handleScanFailure(bad, fk, f, scanErr) {
				quarantined++
			}
			continue
		}
		records = append(records, rec)
		added++
	}

	removed += len(existing) - ci

	return records, added, removed, rescanned, quarantined, nil
}

func (u *Updater) reportProgress(done, total int) {
	if u.opts.OnProgress != nil {
		u.opts.OnProgress(done, total)
	}
}

// handleScanFailure quarantines f if it is older than staleThreshold and
// reports whether it did; a younger file is skipped for this pass only.
func (u *Updater) handleScanFailure(bad *catalog.BadFiles, fk catalog.FileKey, f scannedFile, scanErr error) bool {
	age := u.opts.now().Sub(time.UnixMilli(f.LastModified))
	key := catalog.Key(fk.DirIndex, fk.Name)
	if age < staleThreshold {
		u.opts.Logger.Warnf("skipping in-flight file %s/%s (age %s): %v", f.Dir, f.Name, age, scanErr)
		return false
	}
	u.opts.Logger.Warnf("quarantining %s/%s: %v", f.Dir, f.Name, scanErr)
	bad.Quarantine(key, f.LastModified, scanErr.Error())
	return true
}

func (u *Updater) scanOne(ctx context.Context, f scannedFile, sentinel *schema.Sentinel) (catalog.FileRecord, error) {
	req := reader.Request{
		Dir:            f.Dir,
		Name:           f.Name,
		ColumnNames:    u.opts.ColumnNames,
		ColumnTypes:    u.opts.ColumnTypes,
		SortedSpacing:  -1,
		GetMetadata:    true,
		MustGetAllData: true,
	}
	tbl, err := u.opts.Reader.Read(ctx, req)
	if err != nil {
		return catalog.FileRecord{}, err
	}

	columns := make(map[string]rangeval.Range, len(u.opts.ColumnNames))
	for i, name := range u.opts.ColumnNames {
		kind := u.opts.ColumnTypes[i]
		rng, obs := summarize(kind, name, tbl)
		columns[name] = rng

		mismatches := sentinel.Check(name, kind, obs, u.opts.Overrides[name])
		if len(mismatches) > 0 {
			reasons := ""
			for _, m := range mismatches {
				reasons += m.String() + "; "
			}
			return catalog.FileRecord{}, fmt.Errorf("schema mismatch: %s", reasons)
		}
	}

	if u.opts.IDColumnName != "" {
		columns[u.opts.IDColumnName] = idRange(u.opts.IDExtractor.Extract(f.Name))
	}

	var sortedSpacing float64 = -1
	if u.opts.SortedColumnName != "" {
		if v, ok := tbl.Numeric[u.opts.SortedColumnName]; ok {
			sortedSpacing = computeSortedSpacing(v)
		}
	}

	return catalog.FileRecord{
		DirIndex:      f.DirIndex,
		Name:          f.Name,
		LastModified:  f.LastModified,
		SortedSpacing: sortedSpacing,
		Columns:       columns,
	}, nil
}

func idRange(id string) rangeval.Range {
	return rangeval.Range{Kind: column.KindText, MinText: id, MaxText: id, HasMissing: id == ""}
}

func summarize(kind column.Kind, name string, tbl reader.Table) (rangeval.Range, schema.Observed) {
	rng := rangeval.Range{Kind: kind}
	var obs schema.Observed
	if attrs, ok := tbl.Attributes[name]; ok {
		obs = observedFromAttrs(attrs)
	}

	if kind.IsNumeric() {
		values := tbl.Numeric[name]
		first := true
		for _, v := range values {
			if obs.HasMissingNumber && v == obs.MissingNumber {
				rng.HasMissing = true
				continue
			}
			if first {
				rng.MinNum, rng.MaxNum = v, v
				first = false
				continue
			}
			if v < rng.MinNum {
				rng.MinNum = v
			}
			if v > rng.MaxNum {
				rng.MaxNum = v
			}
		}
		return rng, obs
	}

	values := tbl.Text[name]
	first := true
	for _, v := range values {
		if obs.HasMissingText && v == obs.MissingText {
			rng.HasMissing = true
			continue
		}
		if first {
			rng.MinText, rng.MaxText = v, v
			first = false
			continue
		}
		if v < rng.MinText {
			rng.MinText = v
		}
		if v > rng.MaxText {
			rng.MaxText = v
		}
	}
	return rng, obs
}

func observedFromAttrs(attrs column.Attrs) schema.Observed {
	var obs schema.Observed
	if v, ok := attrs["scale_factor"]; ok && v.IsNumber() {
		obs.Scale = v.Number()
	}
	if v, ok := attrs["add_offset"]; ok && v.IsNumber() {
		obs.Offset = v.Number()
	}
	if v, ok := attrs["_FillValue"]; ok {
		if v.IsNumber() {
			obs.FillNumber, obs.HasFillNumber = v.Number(), true
		} else if v.IsText() {
			obs.FillText, obs.HasFillText = v.Text(), true
		}
	}
	if v, ok := attrs["missing_value"]; ok {
		if v.IsNumber() {
			obs.MissingNumber, obs.HasMissingNumber = v.Number(), true
		} else if v.IsText() {
			obs.MissingText, obs.HasMissingText = v.Text(), true
		}
	}
	if v, ok := attrs["units"]; ok && v.IsText() {
		obs.Units = v.Text()
	}
	return obs
}

// computeSortedSpacing classifies a column's ascension: -1 not
// ascending, 0 ascending but uneven, δ>0 ascending with uniform stride.
func computeSortedSpacing(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	spacing := values[1] - values[0]
	if spacing <= 0 {
		for i := 1; i < len(values); i++ {
			if values[i] < values[i-1] {
				return -1
			}
		}
		return 0
	}
	for i := 2; i < len(values); i++ {
		d := values[i] - values[i-1]
		if d <= 0 {
			return -1
		}
		if !rangeval.ApproxEqualForSpacing(d, spacing) {
			return 0
		}
	}
	return spacing
}
