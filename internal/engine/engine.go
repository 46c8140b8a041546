// Package engine wires one dataset's configuration, persistence,
// updater, and query executor together into a single long-lived
// handle, and a Manager that holds one such handle per configured
// dataset for the CLI to drive.
package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/harrison/tablecat/internal/apierrors"
	"github.com/harrison/tablecat/internal/audit"
	"github.com/harrison/tablecat/internal/config"
	"github.com/harrison/tablecat/internal/notify"
	"github.com/harrison/tablecat/internal/persist"
	"github.com/harrison/tablecat/internal/query"
	"github.com/harrison/tablecat/internal/reader"
	"github.com/harrison/tablecat/internal/sink"
	"github.com/harrison/tablecat/internal/updater"
	"github.com/harrison/tablecat/internal/watch"
)

// Logger is the narrow logging surface a Dataset needs. The console
// and file loggers in internal/logger both satisfy it.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

// Dataset is one configured dataset's running engine: its persisted
// catalog, its updater, and the most recently published query.Dataset
// snapshot that queries are served from.
type Dataset struct {
	id  string
	cfg *config.DatasetConfig

	upd      *updater.Updater
	audit    *audit.Store
	notifier notify.Notifier
	logger   Logger

	mu    sync.RWMutex
	ds    query.Dataset
	ready bool

	watchTrigger *watch.Trigger
}

// progressReporter is implemented by loggers that can render scan
// progress (internal/logger.ConsoleLogger); loggers that can't are used
// without a progress bar.
type progressReporter interface {
	ScanProgress(label string) func(done, total int)
}

// NewDataset builds a Dataset from cfg, persisting its catalog under
// dataDir (typically <dataRoot>/<datasetId>) and reading files with
// rdr. auditStore may be nil to disable durable quarantine history.
func NewDataset(cfg *config.DatasetConfig, dataDir string, rdr reader.Reader, log Logger, notifier notify.Notifier, auditStore *audit.Store) (*Dataset, error) {
	store, err := persist.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("engine: %s: %w", cfg.DatasetID, err)
	}

	opts, err := cfg.UpdaterOptions()
	if err != nil {
		return nil, fmt.Errorf("engine: %s: %w", cfg.DatasetID, err)
	}
	opts.Reader = rdr
	opts.Logger = log
	if pr, ok := log.(progressReporter); ok {
		opts.OnProgress = pr.ScanProgress(cfg.DatasetID)
	}

	qds, err := cfg.QueryDataset()
	if err != nil {
		return nil, fmt.Errorf("engine: %s: %w", cfg.DatasetID, err)
	}
	qds.Reader = rdr

	return &Dataset{
		id:       cfg.DatasetID,
		cfg:      cfg,
		upd:      updater.New(opts, store),
		audit:    auditStore,
		notifier: notifier,
		logger:   log,
		ds:       qds,
	}, nil
}

// ID returns the dataset id.
func (d *Dataset) ID() string { return d.id }

// ReloadInterval returns the configured reload cadence.
func (d *Dataset) ReloadInterval() time.Duration { return d.cfg.ReloadInterval() }

// Update runs one discover-diff-rescan-persist pass and, on success,
// publishes the result so subsequent Query calls see it. Whenever the
// pass quarantined anything, every entry in the bad-file registry at the
// end of the pass is recorded to the audit log (entries carried over from
// earlier passes included) and a notification summarizing the pass is
// sent. A failed pass (other than ErrRetryLater) is also notified.
func (d *Dataset) Update(ctx context.Context) (updater.Result, error) {
	start := time.Now()
	res, err := d.upd.Run(ctx)
	if err != nil {
		if d.notifier != nil && !errors.Is(err, apierrors.ErrRetryLater) {
			event := notify.Event{
				DatasetID: d.id,
				Subject:   fmt.Sprintf("%s: update pass failed", d.id),
				Body:      fmt.Sprintf("Update pass for **%s** failed: %v", d.id, err),
			}
			if nerr := d.notifier.Notify(event); nerr != nil {
				d.logger.Warnf("%s: notify failed: %v", d.id, nerr)
			}
		}
		return res, err
	}

	d.mu.Lock()
	d.ds.Catalog = res.Catalog
	d.ds.Dirs = res.Dirs
	d.ds.BadFiles = res.BadFiles
	d.ready = true
	d.mu.Unlock()

	if d.audit != nil && res.Quarantined > 0 {
		for key, entry := range res.BadFiles.Snapshot() {
			if err := d.audit.Record(ctx, audit.Event{
				DatasetID: d.id,
				Kind:      audit.KindQuarantined,
				FileName:  key,
				Reason:    entry.Reason,
			}); err != nil {
				d.logger.Warnf("%s: audit record failed: %v", d.id, err)
			}
		}
	}

	if d.notifier != nil && res.Quarantined > 0 {
		event := notify.Event{
			DatasetID: d.id,
			Subject:   fmt.Sprintf("%s: %d file(s) quarantined", d.id, res.Quarantined),
			Body: fmt.Sprintf("Update pass for **%s** quarantined %d file(s) (added=%d removed=%d rescanned=%d) in %s.",
				d.id, res.Quarantined, res.Added, res.Removed, res.Rescanned, time.Since(start).Round(time.Millisecond)),
		}
		if err := d.notifier.Notify(event); err != nil {
			d.logger.Warnf("%s: notify failed: %v", d.id, err)
		}
	}

	return res, nil
}

// Query runs q against the most recently published snapshot. If no
// update pass has ever published a snapshot, it returns
// apierrors.ErrRetryLater.
func (d *Dataset) Query(ctx context.Context, q query.Query, s sink.Sink) (string, error) {
	d.mu.RLock()
	ready := d.ready
	snapshot := d.ds
	d.mu.RUnlock()

	if !ready {
		return "", apierrors.ErrRetryLater
	}

	return query.New(snapshot).Run(ctx, q, s)
}

// Status is a snapshot of a dataset's published catalog size, usable
// for a CLI status display without holding the dataset's lock.
type Status struct {
	DatasetID   string
	Ready       bool
	Files       int
	Quarantined int
}

// Status returns the dataset's current published status.
func (d *Dataset) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	st := Status{DatasetID: d.id, Ready: d.ready}
	if d.ds.Catalog != nil {
		st.Files = d.ds.Catalog.Len()
	}
	if d.ds.BadFiles != nil {
		st.Quarantined = d.ds.BadFiles.Len()
	}
	return st
}

// History returns the dataset's durable quarantine/schema-mismatch
// history, or an empty slice if no audit store is configured.
func (d *Dataset) History(ctx context.Context) ([]audit.Event, error) {
	if d.audit == nil {
		return nil, nil
	}
	return d.audit.History(ctx, d.id)
}

// WatchForChanges starts an fsnotify trigger on the dataset's file
// directory that schedules an out-of-cadence Update whenever files
// change, debounced by delay. It augments, never replaces, the
// reload-cadence driven by ReloadInterval. Calling it twice is an
// error; Close stops the watch.
func (d *Dataset) WatchForChanges(ctx context.Context, delay time.Duration) error {
	if d.watchTrigger != nil {
		return fmt.Errorf("engine: %s: already watching", d.id)
	}

	trigger, err := watch.New(d.cfg.FileDir, d.cfg.Recursive, delay, func() {
		if _, err := d.Update(ctx); err != nil {
			d.logger.Warnf("%s: watch-triggered update failed: %v", d.id, err)
		}
	})
	if err != nil {
		return fmt.Errorf("engine: %s: %w", d.id, err)
	}
	d.watchTrigger = trigger

	go func() {
		for err := range trigger.Errors() {
			d.logger.Warnf("%s: watch error: %v", d.id, err)
		}
	}()

	return nil
}

// Close releases the dataset's watch trigger, if any.
func (d *Dataset) Close() error {
	if d.watchTrigger == nil {
		return nil
	}
	return d.watchTrigger.Close()
}

// Manager holds one Dataset per configured dataset id.
type Manager struct {
	mu       sync.RWMutex
	datasets map[string]*Dataset
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{datasets: make(map[string]*Dataset)}
}

// Add registers ds under its id.
func (m *Manager) Add(ds *Dataset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.datasets[ds.ID()] = ds
}

// Get returns the dataset with the given id.
func (m *Manager) Get(id string) (*Dataset, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ds, ok := m.datasets[id]
	return ds, ok
}

// All returns every registered dataset, in no particular order.
func (m *Manager) All() []*Dataset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]*Dataset, 0, len(m.datasets))
	for _, ds := range m.datasets {
		all = append(all, ds)
	}
	return all
}

// Close closes every registered dataset's watch trigger.
func (m *Manager) Close() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var firstErr error
	for _, ds := range m.datasets {
		if err := ds.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LoadManager loads every dataset config under configDir and builds a
// Manager with one Dataset per config, persisting each under
// <dataRoot>/<datasetId>.
func LoadManager(configDir, dataRoot string, rdr reader.Reader, log Logger, notifier notify.Notifier, auditStore *audit.Store) (*Manager, error) {
	cfgs, err := config.LoadDir(configDir)
	if err != nil {
		return nil, fmt.Errorf("engine: load configs: %w", err)
	}

	mgr := NewManager()
	for _, cfg := range cfgs {
		ds, err := NewDataset(cfg, filepath.Join(dataRoot, cfg.DatasetID), rdr, log, notifier, auditStore)
		if err != nil {
			return nil, err
		}
		mgr.Add(ds)
	}
	return mgr, nil
}
