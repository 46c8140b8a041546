package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
datasetId: buoys
fileDir: /data/buoys
fileNameRegex: .*\.csv
dataVariable:
  - sourceName: temperature
    destinationName: temp
    dataType: float64
    units: degrees_C
  - sourceName: station_id
    destinationName: station_id
    dataType: text
    role: id
`

func TestLoadAppliesDefaultsAndParses(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "buoys.yaml", minimalConfig)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "buoys", cfg.DatasetID)
	assert.Equal(t, "last", cfg.MetadataFrom)
	assert.Equal(t, 1440, cfg.ReloadEveryNMinutes)
	assert.False(t, cfg.Recursive)
	assert.True(t, cfg.FilesAreLocal)
	assert.Len(t, cfg.DataVariables, 2)
}

func TestLoadRejectsMissingDatasetID(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "bad.yaml", `
fileDir: /data
fileNameRegex: .*
dataVariable:
  - sourceName: x
    dataType: float64
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "datasetId")
}

func TestLoadRejectsBadFileNameRegex(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "bad.yaml", `
datasetId: buoys
fileDir: /data
fileNameRegex: "[unterminated"
dataVariable:
  - sourceName: x
    dataType: float64
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "fileNameRegex")
}

func TestLoadRejectsUnknownColumnType(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "bad.yaml", `
datasetId: buoys
fileDir: /data
fileNameRegex: .*
dataVariable:
  - sourceName: x
    dataType: not-a-type
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsDuplicateDestinationColumn(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "bad.yaml", `
datasetId: buoys
fileDir: /data
fileNameRegex: .*
dataVariable:
  - sourceName: a
    destinationName: temp
    dataType: float64
  - sourceName: b
    destinationName: temp
    dataType: float64
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "declared more than once")
}

func TestLoadRejectsUnknownSortedColumn(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "bad.yaml", `
datasetId: buoys
fileDir: /data
fileNameRegex: .*
sortedColumnSourceName: time
dataVariable:
  - sourceName: a
    dataType: float64
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "sortedColumnSourceName")
}

func TestLoadDirSortsByFilenameAndStopsOnFirstError(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "b.yaml", minimalConfig)
	writeConfig(t, dir, "a.yaml", `
datasetId: gliders
fileDir: /data/gliders
fileNameRegex: .*\.nc
dataVariable:
  - sourceName: depth
    dataType: float64
`)

	configs, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, "gliders", configs[0].DatasetID)
	assert.Equal(t, "buoys", configs[1].DatasetID)
}

func TestSortColumnsSplitsOnWhitespace(t *testing.T) {
	cfg := DatasetConfig{SortFilesBySourceNames: "time  station_id"}
	assert.Equal(t, []string{"time", "station_id"}, cfg.SortColumns())

	empty := DatasetConfig{}
	assert.Nil(t, empty.SortColumns())
}

func TestReloadIntervalConvertsMinutesToDuration(t *testing.T) {
	cfg := DatasetConfig{ReloadEveryNMinutes: 90}
	assert.Equal(t, 90*60, int(cfg.ReloadInterval().Seconds()))
}
