package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/tablecat/internal/column"
)

func scale(f float64) *float64 { return &f }
func str(s string) *string     { return &s }

func TestDescriptorsAppliesScaleOffsetFillMissingUnits(t *testing.T) {
	cfg := DatasetConfig{
		DataVariables: []ColumnConfig{
			{
				SourceName:   "temp_raw",
				Name:         "temp",
				Type:         "float64",
				ScaleFactor:  scale(0.1),
				AddOffset:    scale(-5),
				FillValue:    str("9999"),
				MissingValue: str("-9999"),
				Units:        str("degrees_C"),
			},
			{SourceName: "station_id", Type: "text", Role: "id"},
		},
	}

	descs, err := cfg.Descriptors()
	require.NoError(t, err)

	temp := descs["temp"]
	assert.Equal(t, column.KindFloat64, temp.Kind)
	assert.Equal(t, 0.1, temp.Scale)
	assert.Equal(t, -5.0, temp.Offset)
	assert.Equal(t, "degrees_C", temp.Units)
	require.True(t, temp.HasFillNumber)
	assert.Equal(t, 9999.0, temp.FillNumber)
	require.True(t, temp.HasMissingNumber)
	assert.Equal(t, -9999.0, temp.MissingNumber)

	id := descs["station_id"]
	assert.Equal(t, column.RoleID, id.Role)
}

func TestDescriptorsAppliesGlobalAttributeOverrideToEveryColumn(t *testing.T) {
	cfg := DatasetConfig{
		AddGlobalAttributes: map[string]string{"institution": "tablecat", "source": "null"},
		DataVariables: []ColumnConfig{
			{SourceName: "temp", Type: "float64"},
			{SourceName: "station_id", Type: "text", Role: "id"},
		},
	}

	descs, err := cfg.Descriptors()
	require.NoError(t, err)

	for _, name := range []string{"temp", "station_id"} {
		eff := descs[name].Effective()
		require.True(t, eff["institution"].IsText(), name)
		assert.Equal(t, "tablecat", eff["institution"].Text(), name)
		_, hasSource := eff["source"]
		assert.False(t, hasSource, name)
	}
}

func TestDescriptorsDefaultsScaleToOne(t *testing.T) {
	cfg := DatasetConfig{DataVariables: []ColumnConfig{{SourceName: "x", Type: "float64"}}}
	descs, err := cfg.Descriptors()
	require.NoError(t, err)
	assert.Equal(t, 1.0, descs["x"].Scale)
}

func TestDescriptorsRejectsNonNumericFillOnNumericColumn(t *testing.T) {
	cfg := DatasetConfig{DataVariables: []ColumnConfig{{
		SourceName: "x", Type: "float64", FillValue: str("not-a-number"),
	}}}
	_, err := cfg.Descriptors()
	assert.Error(t, err)
}

func TestDescriptorsRejectsUnknownRole(t *testing.T) {
	cfg := DatasetConfig{DataVariables: []ColumnConfig{{SourceName: "x", Type: "text", Role: "bogus"}}}
	_, err := cfg.Descriptors()
	assert.Error(t, err)
}

func TestColumnNamesAndTypesAreParallel(t *testing.T) {
	cfg := DatasetConfig{DataVariables: []ColumnConfig{
		{SourceName: "a", Type: "float64"},
		{SourceName: "b", Type: "text"},
	}}
	names := cfg.ColumnNames()
	types, err := cfg.ColumnTypes()
	require.NoError(t, err)
	require.Len(t, names, 2)
	require.Len(t, types, 2)
	assert.Equal(t, "a", names[0])
	assert.Equal(t, column.KindFloat64, types[0])
	assert.Equal(t, "b", names[1])
	assert.Equal(t, column.KindText, types[1])
}

func TestUpdaterOptionsWiresIDExtractorAndColumns(t *testing.T) {
	cfg := DatasetConfig{
		FileDir:              "/data/buoys",
		FileNameRegex:        `.*\.csv`,
		Recursive:            true,
		FilesAreLocal:        true,
		PreExtractRegex:      `^buoy_`,
		ExtractRegex:         `(\d+)`,
		ColumnNameForExtract: "station_id",
		SortedColumnSourceName: "time",
		DataVariables: []ColumnConfig{
			{SourceName: "time", Type: "timestamp"},
		},
	}

	opts, err := cfg.UpdaterOptions()
	require.NoError(t, err)
	assert.Equal(t, "/data/buoys", opts.FileDir)
	assert.Equal(t, "time", opts.SortedColumnName)
	assert.Equal(t, "station_id", opts.IDColumnName)
	assert.Equal(t, "42", opts.IDExtractor.Extract("buoy_42.csv"))
}

func TestUpdaterOptionsWiresOverridesFromConfiguredMissingValue(t *testing.T) {
	cfg := DatasetConfig{
		FileDir: "/data/buoys",
		DataVariables: []ColumnConfig{
			{SourceName: "time", Type: "timestamp"},
			{SourceName: "temp", Type: "float64", MissingValue: str("-9999")},
		},
	}

	opts, err := cfg.UpdaterOptions()
	require.NoError(t, err)
	require.Contains(t, opts.Overrides, "temp")
	assert.True(t, opts.Overrides["temp"].HasMissingNumber)
	assert.Equal(t, -9999.0, opts.Overrides["temp"].MissingNumber)
	assert.NotContains(t, opts.Overrides, "time")
}

func TestQueryDatasetWiresColumnsAndMissingSentinels(t *testing.T) {
	cfg := DatasetConfig{
		FilesAreLocal:          true,
		SortedColumnSourceName: "time",
		ColumnNameForExtract:   "station_id",
		DataVariables: []ColumnConfig{
			{SourceName: "time", Type: "timestamp"},
			{SourceName: "temp_raw", Name: "temp", Type: "float64", MissingValue: str("-9999")},
			{SourceName: "station_id", Type: "text", Role: "id"},
		},
	}

	ds, err := cfg.QueryDataset()
	require.NoError(t, err)
	assert.Len(t, ds.Columns, 3)
	assert.Equal(t, "time", ds.SortedColumnName)
	assert.Equal(t, "station_id", ds.IDColumnName)
	assert.True(t, ds.FilesAreLocal)
	assert.True(t, ds.HasMissingSentinel["temp"])
	assert.Equal(t, -9999.0, ds.MissingSentinel["temp"])
	assert.False(t, ds.HasMissingSentinel["time"])
	assert.False(t, ds.ExpandFPEquality)
}

func TestQueryDatasetWiresExpandFPEquality(t *testing.T) {
	cfg := DatasetConfig{
		SourceNeedsExpandedFPEQ: true,
		DataVariables: []ColumnConfig{
			{SourceName: "temp", Type: "float64"},
		},
	}

	ds, err := cfg.QueryDataset()
	require.NoError(t, err)
	assert.True(t, ds.ExpandFPEquality)
}
