package filelock

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileLock(t *testing.T) {
	dir := t.TempDir()
	lock := NewFileLock(filepath.Join(dir, "fileTable.lock"))
	require.NotNil(t, lock)
}

func TestLockUnlock(t *testing.T) {
	dir := t.TempDir()
	lock := NewFileLock(filepath.Join(dir, "fileTable.lock"))

	require.NoError(t, lock.Lock())
	require.NoError(t, lock.Unlock())
}

func TestConcurrentLocking(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "fileTable.lock")

	var active int32
	var sawOverlap bool
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock := NewFileLock(lockPath)
			require.NoError(t, lock.Lock())
			defer lock.Unlock()

			n := atomic.AddInt32(&active, 1)
			if n > 1 {
				mu.Lock()
				sawOverlap = true
				mu.Unlock()
			}
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.False(t, sawOverlap, "lock holders overlapped")
}

func TestAtomicWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fileTable")

	require.NoError(t, AtomicWrite(path, []byte(`[{"fileName":"a.csv"}]`)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `[{"fileName":"a.csv"}]`, string(data))
}

func TestAtomicWriteOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fileTable")

	require.NoError(t, AtomicWrite(path, []byte("first snapshot")))
	require.NoError(t, AtomicWrite(path, []byte("second snapshot")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second snapshot", string(data))
}

func TestAtomicWriteCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "data", "fileTable")

	require.NoError(t, AtomicWrite(path, []byte("snapshot")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "snapshot", string(data))
}

func TestAtomicWritePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fileTable")

	require.NoError(t, AtomicWrite(path, []byte("snapshot")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestAtomicWriteNoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fileTable")

	require.NoError(t, AtomicWrite(path, []byte("snapshot")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "fileTable", entries[0].Name())
}

func TestAtomicWriteWithLock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fileTable")
	lock := NewFileLock(path + ".lock")

	require.NoError(t, lock.Lock())
	require.NoError(t, AtomicWrite(path, []byte("snapshot")))
	require.NoError(t, lock.Unlock())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "snapshot", string(data))
}

func TestConcurrentAtomicWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fileTable")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			lock := NewFileLock(path + ".lock")
			require.NoError(t, lock.Lock())
			defer lock.Unlock()
			require.NoError(t, AtomicWrite(path, []byte("snapshot")))
		}(i)
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "snapshot", string(data))
}
