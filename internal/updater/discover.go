package updater

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// DiscoveredFile is one file found by a directory scan, prior to any
// catalog comparison.
type DiscoveredFile struct {
	Dir          string
	Name         string
	LastModified int64 // wall-clock milliseconds
}

// discover walks dir (recursively, if recursive is true) and returns
// every regular file whose full name matches pattern, sorted by
// (dir, name) ascending to match the catalog's required merge-walk
// order. Hidden directories are always skipped, mirroring the
// project's general directory-scanning convention.
func discover(dir string, pattern string, recursive bool) ([]DiscoveredFile, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("updater: access %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("updater: not a directory: %s", dir)
	}

	var nameRegex *regexp.Regexp
	if pattern != "" {
		nameRegex, err = regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("updater: invalid fileNameRegex %q: %w", pattern, err)
		}
	}

	var found []DiscoveredFile
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if path == dir {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if nameRegex != nil && !nameRegex.MatchString(d.Name()) {
			return nil
		}
		stat, statErr := d.Info()
		if statErr != nil {
			return nil
		}
		found = append(found, DiscoveredFile{
			Dir:          filepath.Dir(path),
			Name:         d.Name(),
			LastModified: stat.ModTime().UnixMilli(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("updater: walk %s: %w", dir, err)
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].Dir != found[j].Dir {
			return found[i].Dir < found[j].Dir
		}
		return found[i].Name < found[j].Name
	})
	return found, nil
}
