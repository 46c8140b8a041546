package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDatasetConfig(t *testing.T, configDir, fileDir string) {
	t.Helper()
	content := `
datasetId: buoys
fileDir: ` + fileDir + `
fileNameRegex: .*\.csv
dataVariable:
  - sourceName: temp
    dataType: float64
`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "buoys.yaml"), []byte(content), 0o644))
}

func newTestRootCmd(t *testing.T, configDir string) (*bytes.Buffer, func([]string) error) {
	t.Helper()
	buf := &bytes.Buffer{}
	dataDir := t.TempDir()

	run := func(args []string) error {
		root := NewRootCommand()
		root.SetOut(buf)
		root.SetErr(buf)
		root.SetArgs(append([]string{"--config-dir", configDir, "--data-dir", dataDir}, args...))
		return root.Execute()
	}
	return buf, run
}

func TestStatusReportsNotYetUpdatedBeforeAnyReload(t *testing.T) {
	configDir := t.TempDir()
	writeDatasetConfig(t, configDir, t.TempDir())

	buf, run := newTestRootCmd(t, configDir)
	require.NoError(t, run([]string{"status"}))

	assert.Contains(t, buf.String(), "buoys")
	assert.Contains(t, buf.String(), "not yet updated")
}

func TestReloadRequiresDatasetIDOrAll(t *testing.T) {
	configDir := t.TempDir()
	writeDatasetConfig(t, configDir, t.TempDir())

	_, run := newTestRootCmd(t, configDir)
	err := run([]string{"reload"})
	assert.Error(t, err)
}

func TestReloadUnknownDatasetErrors(t *testing.T) {
	configDir := t.TempDir()
	writeDatasetConfig(t, configDir, t.TempDir())

	_, run := newTestRootCmd(t, configDir)
	err := run([]string{"reload", "nope"})
	assert.Error(t, err)
}

func TestReloadAllRunsWithoutError(t *testing.T) {
	configDir := t.TempDir()
	writeDatasetConfig(t, configDir, t.TempDir())

	buf, run := newTestRootCmd(t, configDir)
	require.NoError(t, run([]string{"reload", "--all"}))
	assert.Contains(t, buf.String(), "buoys")
}

func TestHistoryForUnknownDatasetErrors(t *testing.T) {
	configDir := t.TempDir()
	writeDatasetConfig(t, configDir, t.TempDir())

	_, run := newTestRootCmd(t, configDir)
	err := run([]string{"history", "nope"})
	assert.Error(t, err)
}

func TestHistoryReportsNoEventsBeforeAnyQuarantine(t *testing.T) {
	configDir := t.TempDir()
	writeDatasetConfig(t, configDir, t.TempDir())

	buf, run := newTestRootCmd(t, configDir)
	require.NoError(t, run([]string{"history", "buoys"}))
	assert.Contains(t, buf.String(), "no recorded events")
}

func TestQueryRequiresColumns(t *testing.T) {
	configDir := t.TempDir()
	writeDatasetConfig(t, configDir, t.TempDir())

	_, run := newTestRootCmd(t, configDir)
	err := run([]string{"query", "buoys"})
	assert.Error(t, err)
}
