// Package catalog locates the precomputed map documents and data tables for a
// selection and reads them from disk.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/couchcryptid/bh-network-dashboard/internal/domain"
)

// AssetKind names the type of a precomputed file.
type AssetKind string

const (
	KindMap   AssetKind = "map"
	KindTable AssetKind = "data table"
)

// AssetNotFoundError reports a precomputed file that does not exist, along
// with the files of the same kind that do.
type AssetNotFoundError struct {
	Kind      AssetKind
	Path      string
	Available []string
}

func (e *AssetNotFoundError) Error() string {
	return fmt.Sprintf("%s file not found: %s", e.Kind, filepath.Base(e.Path))
}

// Catalog resolves selections to files under the maps and tables directories.
type Catalog struct {
	mapsDir   string
	tablesDir string
}

// New creates a Catalog rooted at the given directories.
func New(mapsDir, tablesDir string) *Catalog {
	return &Catalog{mapsDir: mapsDir, tablesDir: tablesDir}
}

// MapsDir is the directory holding the base map documents.
func (c *Catalog) MapsDir() string { return c.mapsDir }

// MapPath is where the base map for sel is expected.
func (c *Catalog) MapPath(sel domain.Selection) string {
	return filepath.Join(c.mapsDir, sel.MapFileName())
}

// TablePath is where the companion data table for sel is expected.
func (c *Catalog) TablePath(sel domain.Selection) string {
	return filepath.Join(c.tablesDir, sel.Level.TableDir(), sel.DataFileName())
}

// ReadMap returns the base map document for sel.
func (c *Catalog) ReadMap(sel domain.Selection) (string, error) {
	path := c.MapPath(sel)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", &AssetNotFoundError{Kind: KindMap, Path: path, Available: listFiles(c.mapsDir, ".html")}
	}
	if err != nil {
		return "", fmt.Errorf("read map %s: %w", filepath.Base(path), err)
	}
	return string(data), nil
}

// ReadTable parses the companion data table for sel.
func (c *Catalog) ReadTable(sel domain.Selection) (*Table, error) {
	path := c.TablePath(sel)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &AssetNotFoundError{Kind: KindTable, Path: path, Available: listFiles(filepath.Dir(path), ".csv")}
	}
	if err != nil {
		return nil, fmt.Errorf("open data table %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	t, err := parseTable(f, sel.MetricColumn())
	if err != nil {
		return nil, fmt.Errorf("parse data table %s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// MissingAssets checks that both files for sel exist.
func (c *Catalog) MissingAssets(sel domain.Selection) []string {
	var missing []string
	for _, p := range []string{c.MapPath(sel), c.TablePath(sel)} {
		if _, err := os.Stat(p); err != nil {
			missing = append(missing, p)
		}
	}
	return missing
}

// listFiles returns the sorted names of files in dir with the given extension.
// An unreadable directory yields nil.
func listFiles(dir, ext string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ext) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}
