// Package watch augments a dataset's reloadEveryNMinutes cadence with
// an fsnotify-based trigger: a directory change schedules an early
// reload pass instead of waiting for the next tick. Rapid bursts of
// writes (a batch upload landing all at once) are coalesced by
// debouncing so the burst causes one reload, not one per file.
package watch

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceDelay is how long Trigger waits after the last
// observed change before firing.
const DefaultDebounceDelay = 2 * time.Second

// Trigger watches a directory tree and calls a reload function after
// a debounced burst of filesystem changes settles.
type Trigger struct {
	watcher *fsnotify.Watcher
	root    string
	recursive bool
	delay   time.Duration
	fire    func()

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
	done   chan struct{}

	errs chan error
}

// New starts watching root (and its subdirectories, if recursive) and
// calls fire, debounced by delay, whenever something under it
// changes. If delay is zero, DefaultDebounceDelay is used.
func New(root string, recursive bool, delay time.Duration, fire func()) (*Trigger, error) {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	t := &Trigger{
		watcher:   w,
		root:      filepath.Clean(root),
		recursive: recursive,
		delay:     delay,
		fire:      fire,
		done:      make(chan struct{}),
		errs:      make(chan error, 10),
	}

	if err := t.addTree(t.root); err != nil {
		w.Close()
		return nil, err
	}

	go t.loop()
	return t, nil
}

func (t *Trigger) addTree(dir string) error {
	if !t.recursive {
		return t.watcher.Add(dir)
	}
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if addErr := t.watcher.Add(path); addErr != nil && !os.IsPermission(addErr) {
			return addErr
		}
		return nil
	})
}

func (t *Trigger) loop() {
	for {
		select {
		case <-t.done:
			return
		case ev, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			t.handle(ev)
		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			select {
			case t.errs <- err:
			default:
			}
		}
	}
}

func (t *Trigger) handle(ev fsnotify.Event) {
	if t.recursive && ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = t.addTree(ev.Name)
		}
	}
	t.schedule()
}

func (t *Trigger) schedule() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.delay, t.fire)
}

// Errors returns the channel on which watch errors (e.g. a removed
// directory) are reported. Capacity 10; excess errors are dropped.
func (t *Trigger) Errors() <-chan error {
	return t.errs
}

// Close stops watching and cancels any pending debounce timer.
func (t *Trigger) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	if t.timer != nil {
		t.timer.Stop()
	}
	t.mu.Unlock()

	close(t.done)
	return t.watcher.Close()
}
