// Package facility loads behavioral-health facility locations from a
// directory of CSV exports.
package facility

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/bh-network-dashboard/internal/domain"
	"github.com/couchcryptid/bh-network-dashboard/internal/observability"
	"github.com/jonboulle/clockwork"
)

// ErrDirectoryNotFound is returned when the facility directory does not exist.
var ErrDirectoryNotFound = errors.New("facility directory not found")

// FileIssue describes a facility file that was skipped. A skipped file
// contributes no rows; the rest of the directory still loads.
type FileIssue struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

func (i FileIssue) Error() string {
	if i.Err == nil {
		return i.File + ": " + i.Reason
	}
	return fmt.Sprintf("%s: %s: %v", i.File, i.Reason, i.Err)
}

func (i FileIssue) Unwrap() error { return i.Err }

// LoadResult is the outcome of loading one directory.
type LoadResult struct {
	Dir        string            `json:"dir"`
	Facilities domain.Collection `json:"facilities"`
	Files      []string          `json:"files"`
	Skipped    []FileIssue       `json:"skipped"`
	LoadedAt   time.Time         `json:"loaded_at"`
}

// Empty reports whether no file yielded any rows. This is "no data", not an error.
func (r LoadResult) Empty() bool { return r.Facilities.Empty() }

// Loader reads every *.csv file in a directory and cleans the rows into
// FacilityRecords. It never touches the network.
type Loader struct {
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
}

// NewLoader creates a Loader. A nil clock uses the real clock.
func NewLoader(logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Loader {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Loader{logger: logger, metrics: metrics, clock: clock}
}

// Load reads the directory non-recursively, in lexical file order. Files that
// are missing a required column or fail to parse are skipped with a FileIssue.
// A directory with no usable rows returns an empty result and a nil error.
func (l *Loader) Load(ctx context.Context, dir string) (LoadResult, error) {
	start := l.clock.Now()
	result := LoadResult{Dir: dir}

	files, err := listCSVFiles(dir)
	if err != nil {
		l.metrics.FacilityLoads.WithLabelValues("error").Inc()
		return result, err
	}
	if len(files) == 0 {
		l.logger.Info("no facility files found", "dir", dir)
	}

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			l.metrics.FacilityLoads.WithLabelValues("error").Inc()
			return LoadResult{Dir: dir}, err
		}

		result.Files = append(result.Files, name)
		rows, dropped, err := readFile(filepath.Join(dir, name))
		if err != nil {
			var issue FileIssue
			if !errors.As(err, &issue) {
				issue = FileIssue{Reason: "unreadable file", Err: err}
			}
			issue.File = name
			result.Skipped = append(result.Skipped, issue)
			l.logger.Warn("skipping facility file", "file", name, "reason", issue.Reason, "error", issue.Err)
			l.metrics.FacilityFiles.WithLabelValues("skipped").Inc()
			continue
		}

		l.metrics.FacilityFiles.WithLabelValues("loaded").Inc()
		l.metrics.FacilityRows.WithLabelValues("kept").Add(float64(len(rows)))
		l.metrics.FacilityRows.WithLabelValues("dropped").Add(float64(dropped))
		if dropped > 0 {
			l.logger.Debug("dropped facility rows", "file", name, "dropped", dropped)
		}
		result.Facilities = append(result.Facilities, rows...)
	}

	result.LoadedAt = l.clock.Now()
	l.metrics.FacilityLoadDuration.Observe(result.LoadedAt.Sub(start).Seconds())
	if result.Empty() {
		l.metrics.FacilityLoads.WithLabelValues("empty").Inc()
	} else {
		l.metrics.FacilityLoads.WithLabelValues("loaded").Inc()
	}

	l.logger.Info("facility files loaded",
		"dir", dir,
		"files", len(result.Files),
		"skipped", len(result.Skipped),
		"facilities", len(result.Facilities),
	)
	return result, nil
}

// listCSVFiles returns the regular *.csv file names in dir, sorted by name.
func listCSVFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("stat facility directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDirectoryNotFound, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read facility directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// readFile parses one facility file. It returns the retained rows and the
// number of rows dropped for a missing name, a missing coordinate, or a
// coordinate out of range. Any other problem rejects the whole file.
func readFile(path string) (domain.Collection, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, FileIssue{Reason: "cannot open file", Err: err}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, FileIssue{Reason: "file has no header row"}
	}
	if err != nil {
		return nil, 0, FileIssue{Reason: "invalid CSV", Err: err}
	}

	colIdx := indexHeader(header)
	if missing := missingColumns(colIdx); len(missing) > 0 {
		return nil, 0, FileIssue{Reason: "missing required columns: " + strings.Join(missing, ", ")}
	}

	source := filepath.Base(path)
	var (
		out     domain.Collection
		dropped int
	)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, FileIssue{Reason: "invalid CSV", Err: err}
		}

		rec, keep, err := parseRow(row, colIdx, source)
		if err != nil {
			line, _ := reader.FieldPos(0)
			return nil, 0, FileIssue{Reason: fmt.Sprintf("line %d", line), Err: err}
		}
		if !keep {
			dropped++
			continue
		}
		out = append(out, rec)
	}
	return out, dropped, nil
}

// parseRow cleans one data row. keep is false when the row must be dropped silently.
func parseRow(row []string, colIdx map[string]int, source string) (rec domain.FacilityRecord, keep bool, err error) {
	name := get(row, colIdx, domain.ColumnName)
	lat, hasLat, err := domain.ParseCoordinate(get(row, colIdx, domain.ColumnLatitude))
	if err != nil {
		return rec, false, err
	}
	lon, hasLon, err := domain.ParseCoordinate(get(row, colIdx, domain.ColumnLongitude))
	if err != nil {
		return rec, false, err
	}
	if name == "" || !hasLat || !hasLon {
		return rec, false, nil
	}

	geo := domain.Geo{Lat: lat, Lon: lon}
	if !geo.Valid() {
		return rec, false, nil
	}

	return domain.FacilityRecord{
		NPI:            domain.NormalizeIdentifier(get(row, colIdx, domain.ColumnNPI)),
		Name:           name,
		StreetAddress:  get(row, colIdx, domain.ColumnStreetAddress),
		City:           get(row, colIdx, domain.ColumnCity),
		State:          get(row, colIdx, domain.ColumnState),
		Zip:            domain.NormalizePostalCode(get(row, colIdx, domain.ColumnZip)),
		Geo:            geo,
		SubstanceAbuse: domain.NormalizeFlag(get(row, colIdx, domain.ColumnSubstanceAbuse)),
		SUDRehabClinic: domain.NormalizeFlag(get(row, colIdx, domain.ColumnSUDRehabClinic)),
		SourceFile:     source,
	}, true, nil
}

// indexHeader maps column names to positions. The first occurrence of a
// duplicated name wins; a leading byte-order mark is ignored.
func indexHeader(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.TrimSpace(h)
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return idx
}

func missingColumns(colIdx map[string]int) []string {
	var missing []string
	for _, col := range domain.RequiredColumns {
		if _, ok := colIdx[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

func get(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
