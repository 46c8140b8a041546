package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/harrison/tablecat/internal/column"
	"github.com/harrison/tablecat/internal/query"
	"github.com/harrison/tablecat/internal/schema"
	"github.com/harrison/tablecat/internal/updater"
)

// roleByName maps the config-facing role string onto column.Role.
func roleByName(s string) (column.Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return column.RoleNone, nil
	case "time":
		return column.RoleTime, nil
	case "lat", "latitude":
		return column.RoleLat, nil
	case "lon", "longitude":
		return column.RoleLon, nil
	case "alt", "altitude":
		return column.RoleAlt, nil
	case "id":
		return column.RoleID, nil
	default:
		return column.RoleNone, fmt.Errorf("unrecognized role %q", s)
	}
}

// Descriptors builds the column.Descriptor map the query and updater
// packages need from the declared dataVariable entries. Scale, offset,
// fill, missing and units are set on the descriptor's own fields; the
// Override attribute layer carries only addGlobalAttributes.
func (c *DatasetConfig) Descriptors() (map[string]column.Descriptor, error) {
	globalOverride := globalAttrOverride(c.AddGlobalAttributes)

	descs := make(map[string]column.Descriptor, len(c.DataVariables))
	for _, dv := range c.DataVariables {
		kind, err := column.ParseKind(dv.Type)
		if err != nil {
			return nil, err
		}
		role, err := roleByName(dv.Role)
		if err != nil {
			return nil, fmt.Errorf("dataVariable %s: %w", dv.SourceName, err)
		}

		d := column.Descriptor{
			Name:     dv.destinationName(),
			Kind:     kind,
			Role:     role,
			Override: globalOverride,
		}
		if dv.ScaleFactor != nil {
			d.Scale = *dv.ScaleFactor
		} else {
			d.Scale = 1
		}
		if dv.AddOffset != nil {
			d.Offset = *dv.AddOffset
		}
		if dv.Units != nil {
			d.Units = *dv.Units
		}
		if dv.FillValue != nil {
			if err := setSentinel(&d, kind, *dv.FillValue, true); err != nil {
				return nil, fmt.Errorf("dataVariable %s: fillValue: %w", dv.SourceName, err)
			}
		}
		if dv.MissingValue != nil {
			if err := setSentinel(&d, kind, *dv.MissingValue, false); err != nil {
				return nil, fmt.Errorf("dataVariable %s: missingValue: %w", dv.SourceName, err)
			}
		}
		descs[dv.destinationName()] = d
	}
	return descs, nil
}

// globalAttrOverride turns addGlobalAttributes into the override layer
// every column's Descriptor carries, using the literal text "null" to
// delete a source attribute rather than replace it (column.Attrs.Merge).
func globalAttrOverride(raw map[string]string) column.Attrs {
	if len(raw) == 0 {
		return nil
	}
	out := make(column.Attrs, len(raw))
	for k, v := range raw {
		out[k] = column.TextAttr(v)
	}
	return out
}

// setSentinel parses raw into the fill or missing sentinel fields of
// d, choosing the numeric or text form based on kind.
func setSentinel(d *column.Descriptor, kind column.Kind, raw string, isFill bool) error {
	if kind.IsNumeric() {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("expected a number for a %s column, got %q", kind, raw)
		}
		if isFill {
			d.FillNumber, d.HasFillNumber = v, true
		} else {
			d.MissingNumber, d.HasMissingNumber = v, true
		}
		return nil
	}
	if isFill {
		d.FillText, d.HasFillText = raw, true
	} else {
		d.MissingText, d.HasMissingText = raw, true
	}
	return nil
}

// ColumnNames returns the declared dataVariable source names in
// configuration order, the form the updater scans files with.
func (c *DatasetConfig) ColumnNames() []string {
	names := make([]string, len(c.DataVariables))
	for i, dv := range c.DataVariables {
		names[i] = dv.SourceName
	}
	return names
}

// ColumnTypes returns the declared dataVariable kinds, parallel to
// ColumnNames.
func (c *DatasetConfig) ColumnTypes() ([]column.Kind, error) {
	kinds := make([]column.Kind, len(c.DataVariables))
	for i, dv := range c.DataVariables {
		kind, err := column.ParseKind(dv.Type)
		if err != nil {
			return nil, err
		}
		kinds[i] = kind
	}
	return kinds, nil
}

// IDColumnName returns the destination column carrying the id role,
// if one is declared via columnNameForExtract; otherwise the empty
// string (no synthesized id column).
func (c *DatasetConfig) IDColumnName() string {
	return c.ColumnNameForExtract
}

// UpdaterOptions builds the updater.Options this config describes.
// Reader and Logger are runtime collaborators the caller must still
// set; Now is left nil to default to time.Now.
func (c *DatasetConfig) UpdaterOptions() (updater.Options, error) {
	colTypes, err := c.ColumnTypes()
	if err != nil {
		return updater.Options{}, err
	}

	extractor, err := updater.NewIDExtractor(c.PreExtractRegex, c.PostExtractRegex, c.ExtractRegex)
	if err != nil {
		return updater.Options{}, fmt.Errorf("id extractor: %w", err)
	}

	descs, err := c.Descriptors()
	if err != nil {
		return updater.Options{}, err
	}

	return updater.Options{
		FileDir:                c.FileDir,
		FileNameRegex:          c.FileNameRegex,
		Recursive:              c.Recursive,
		FilesAreLocal:          c.FilesAreLocal,
		ColumnNames:            c.ColumnNames(),
		ColumnTypes:            colTypes,
		IDColumnName:           c.ColumnNameForExtract,
		IDExtractor:            extractor,
		SortedColumnName:       c.SortedColumnSourceName,
		SortFilesBySourceNames: c.SortColumns(),
		MetadataFrom:           c.MetadataFrom,
		Overrides:              schemaOverrides(descs),
	}, nil
}

// schemaOverrides builds the per-column fill/missing substitutions the
// updater applies before checking a scanned file's attributes against
// the schema sentinel, from whichever dataVariable entries configured
// an explicit fillValue or missingValue.
func schemaOverrides(descs map[string]column.Descriptor) map[string]schema.Override {
	overrides := make(map[string]schema.Override, len(descs))
	for name, d := range descs {
		if !d.HasFillNumber && !d.HasFillText && !d.HasMissingNumber && !d.HasMissingText {
			continue
		}
		overrides[name] = schema.Override{
			FillNumber:       d.FillNumber,
			HasFillNumber:    d.HasFillNumber,
			FillText:         d.FillText,
			HasFillText:      d.HasFillText,
			MissingNumber:    d.MissingNumber,
			HasMissingNumber: d.HasMissingNumber,
			MissingText:      d.MissingText,
			HasMissingText:   d.HasMissingText,
		}
	}
	return overrides
}

// QueryDataset builds the static half of a query.Dataset: column
// descriptors, missing-value sentinels, and the id/sorted column
// names. The caller still fills in Catalog, Dirs, BadFiles, and Reader
// once an update pass has published them.
func (c *DatasetConfig) QueryDataset() (query.Dataset, error) {
	descs, err := c.Descriptors()
	if err != nil {
		return query.Dataset{}, err
	}

	missing := make(map[string]float64, len(descs))
	hasMissing := make(map[string]bool, len(descs))
	for name, d := range descs {
		if d.HasMissingNumber {
			missing[name] = d.MissingNumber
			hasMissing[name] = true
		}
	}

	return query.Dataset{
		Columns:            descs,
		IDColumnName:       c.ColumnNameForExtract,
		SortedColumnName:   c.SortedColumnSourceName,
		FilesAreLocal:      c.FilesAreLocal,
		MissingSentinel:    missing,
		HasMissingSentinel: hasMissing,
		ExpandFPEquality:   c.SourceNeedsExpandedFPEQ,
	}, nil
}
