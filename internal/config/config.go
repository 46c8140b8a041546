// Package config decodes dataset configuration: one YAML document per
// dataset, as a typed struct tree with yaml tags, sensible defaults,
// and a Validate pass that turns a bad file into a config error with
// the offending dataset id and field name rather than a stack trace.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrison/tablecat/internal/column"
)

// ColumnConfig describes one dataVariable entry: how a source column
// maps to a destination column, its logical type, its distinguished
// role (if any), and override attributes layered on top of whatever
// the file itself reports.
type ColumnConfig struct {
	SourceName string `yaml:"sourceName"`
	Name       string `yaml:"destinationName"`
	Type       string `yaml:"dataType"`
	Role       string `yaml:"role"`

	ScaleFactor *float64 `yaml:"scale_factor"`
	AddOffset   *float64 `yaml:"add_offset"`
	FillValue   *string  `yaml:"fillValue"`
	MissingValue *string `yaml:"missingValue"`
	Units       *string  `yaml:"units"`
}

// destinationName returns Name if set, else SourceName.
func (c ColumnConfig) destinationName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.SourceName
}

// DatasetConfig is the full per-dataset configuration document.
type DatasetConfig struct {
	DatasetID string `yaml:"datasetId"`

	FileDir       string `yaml:"fileDir"`
	FileNameRegex string `yaml:"fileNameRegex"`
	Recursive     bool   `yaml:"recursive"`
	FilesAreLocal bool   `yaml:"filesAreLocal"`

	MetadataFrom string `yaml:"metadataFrom"` // "first" or "last"

	PreExtractRegex      string `yaml:"preExtractRegex"`
	PostExtractRegex     string `yaml:"postExtractRegex"`
	ExtractRegex         string `yaml:"extractRegex"`
	ColumnNameForExtract string `yaml:"columnNameForExtract"`

	SortedColumnSourceName string `yaml:"sortedColumnSourceName"`
	SortFilesBySourceNames string `yaml:"sortFilesBySourceNames"`

	ColumnNamesRow int `yaml:"columnNamesRow"`
	FirstDataRow   int `yaml:"firstDataRow"`

	SourceNeedsExpandedFPEQ bool `yaml:"sourceNeedsExpandedFP_EQ"`

	ReloadEveryNMinutes int `yaml:"reloadEveryNMinutes"`

	AddGlobalAttributes map[string]string `yaml:"addGlobalAttributes"`
	DataVariables       []ColumnConfig    `yaml:"dataVariable"`
}

// DefaultDatasetConfig returns a DatasetConfig with defaults applied
// before overlaying the decoded file.
func DefaultDatasetConfig() DatasetConfig {
	return DatasetConfig{
		Recursive:           false,
		FilesAreLocal:       true,
		MetadataFrom:        "last",
		ColumnNamesRow:      0,
		FirstDataRow:        1,
		ReloadEveryNMinutes: 1440,
	}
}

// datasetIDPattern is the filename-safe character set a datasetId must
// match.
var datasetIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Load decodes one dataset config file, overlaying it on the defaults.
func Load(path string) (*DatasetConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := DefaultDatasetConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDir decodes every *.yaml file in dir (non-recursive), in
// filename order, and returns an error naming the first file that
// fails to parse or validate.
func LoadDir(dir string) ([]*DatasetConfig, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("config: read directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".yaml") || strings.HasSuffix(e.Name(), ".yml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var configs []*DatasetConfig
	for _, name := range names {
		cfg, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// Validate checks the fields that must hold before the config can be
// turned into a running dataset: a filename-safe datasetId, compilable
// regexes, a recognized metadataFrom, and a positive reload cadence.
func (c *DatasetConfig) Validate() error {
	if c.DatasetID == "" {
		return fmt.Errorf("datasetId is required")
	}
	if !datasetIDPattern.MatchString(c.DatasetID) {
		return fmt.Errorf("datasetId %q must match %s", c.DatasetID, datasetIDPattern.String())
	}
	if c.FileDir == "" {
		return fmt.Errorf("dataset %s: fileDir is required", c.DatasetID)
	}
	if c.FileNameRegex == "" {
		return fmt.Errorf("dataset %s: fileNameRegex is required", c.DatasetID)
	}
	if _, err := regexp.Compile(c.FileNameRegex); err != nil {
		return fmt.Errorf("dataset %s: fileNameRegex: %w", c.DatasetID, err)
	}
	for field, pattern := range map[string]string{
		"preExtractRegex":  c.PreExtractRegex,
		"postExtractRegex": c.PostExtractRegex,
		"extractRegex":     c.ExtractRegex,
	} {
		if pattern == "" {
			continue
		}
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("dataset %s: %s: %w", c.DatasetID, field, err)
		}
	}
	switch c.MetadataFrom {
	case "", "first", "last":
	default:
		return fmt.Errorf("dataset %s: metadataFrom must be \"first\" or \"last\", got %q", c.DatasetID, c.MetadataFrom)
	}
	if c.ReloadEveryNMinutes <= 0 {
		return fmt.Errorf("dataset %s: reloadEveryNMinutes must be > 0, got %d", c.DatasetID, c.ReloadEveryNMinutes)
	}
	if len(c.DataVariables) == 0 {
		return fmt.Errorf("dataset %s: at least one dataVariable is required", c.DatasetID)
	}
	seen := make(map[string]bool, len(c.DataVariables))
	for i, dv := range c.DataVariables {
		if dv.SourceName == "" {
			return fmt.Errorf("dataset %s: dataVariable[%d]: sourceName is required", c.DatasetID, i)
		}
		if _, err := column.ParseKind(dv.Type); err != nil {
			return fmt.Errorf("dataset %s: dataVariable[%d]: %w", c.DatasetID, i, err)
		}
		name := dv.destinationName()
		if seen[name] {
			return fmt.Errorf("dataset %s: dataVariable %q declared more than once", c.DatasetID, name)
		}
		seen[name] = true
	}
	if c.SortedColumnSourceName != "" && !seen[c.SortedColumnSourceName] {
		return fmt.Errorf("dataset %s: sortedColumnSourceName %q is not a declared dataVariable", c.DatasetID, c.SortedColumnSourceName)
	}
	return nil
}

// SortColumns splits the space-separated sortFilesBySourceNames field
// into its column names.
func (c *DatasetConfig) SortColumns() []string {
	if strings.TrimSpace(c.SortFilesBySourceNames) == "" {
		return nil
	}
	return strings.Fields(c.SortFilesBySourceNames)
}

// ReloadInterval returns ReloadEveryNMinutes as a time.Duration.
func (c *DatasetConfig) ReloadInterval() time.Duration {
	return time.Duration(c.ReloadEveryNMinutes) * time.Minute
}
