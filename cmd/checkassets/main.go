// Command checkassets verifies that the precomputed dashboard assets are
// complete: every selection has its map document and data table, every data
// table carries its declared metric column, and the facility directory loads
// without skipped files.
//
// Usage:
//
//	go run ./cmd/checkassets \
//	  -maps data/maps \
//	  -tables data/map_tables \
//	  -facilities data/facility_location_files
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/bh-network-dashboard/internal/catalog"
	"github.com/couchcryptid/bh-network-dashboard/internal/domain"
	"github.com/couchcryptid/bh-network-dashboard/internal/facility"
	"github.com/couchcryptid/bh-network-dashboard/internal/observability"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/prometheus/client_golang/prometheus"
)

// phase tracks pass/fail for a check phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataDir := sharedcfg.EnvOrDefault("DATA_DIR", "data")
	mapsDir := flag.String("maps", sharedcfg.EnvOrDefault("MAPS_DIR", filepath.Join(dataDir, "maps")), "directory containing base map documents")
	tablesDir := flag.String("tables", sharedcfg.EnvOrDefault("TABLES_DIR", filepath.Join(dataDir, "map_tables")), "directory containing data tables")
	facilityDir := flag.String("facilities", sharedcfg.EnvOrDefault("FACILITY_DIR", filepath.Join(dataDir, "facility_location_files")), "directory containing facility CSV files; empty to skip")
	flag.Parse()

	os.Exit(run(os.Stdout, *mapsDir, *tablesDir, *facilityDir))
}

func run(w io.Writer, mapsDir, tablesDir, facilityDir string) int {
	fmt.Fprintln(w, "=== Dashboard Asset Check ===")
	fmt.Fprintln(w)

	cat := catalog.New(mapsDir, tablesDir)
	selections := domain.AllSelections()

	phases := []*phase{
		checkMaps(cat, selections),
		checkTables(cat, selections),
	}
	if facilityDir != "" {
		phases = append(phases, checkFacilities(facilityDir))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Selections: %d (%d levels x %d taxonomies x %d metrics)\n",
		len(selections), len(domain.Levels), len(domain.Taxonomies), len(domain.Metrics))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll checks passed.")
		return 0
	}
	fmt.Fprintln(w, "\nAsset check FAILED.")
	return 1
}

func checkMaps(cat *catalog.Catalog, selections []domain.Selection) *phase {
	p := &phase{name: "Map documents present"}
	for _, sel := range selections {
		if _, err := os.Stat(cat.MapPath(sel)); err != nil {
			p.errorf("%s: %s missing", sel.Title(), sel.MapFileName())
		}
	}
	return p
}

func checkTables(cat *catalog.Catalog, selections []domain.Selection) *phase {
	p := &phase{name: "Data tables present with metric column"}
	for _, sel := range selections {
		t, err := cat.ReadTable(sel)
		var notFound *catalog.AssetNotFoundError
		switch {
		case errors.As(err, &notFound):
			p.errorf("%s: %s missing", sel.Title(), sel.DataFileName())
			continue
		case err != nil:
			p.errorf("%s: %v", sel.Title(), err)
			continue
		}
		if !t.HasMetric() {
			p.errorf("%s: %s has no %q column", sel.Title(), sel.DataFileName(), sel.MetricColumn())
		}
		if len(t.Rows) == 0 {
			p.errorf("%s: %s has no rows", sel.Title(), sel.DataFileName())
		}
	}
	return p
}

func checkFacilities(dir string) *phase {
	p := &phase{name: "Facility files load cleanly"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	res, err := facility.NewLoader(logger, observability.NewMetricsWithRegistry(prometheus.NewRegistry()), nil).Load(context.Background(), dir)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	for _, issue := range res.Skipped {
		p.errorf("skipped %s", issue.Error())
	}
	if res.Empty() {
		p.errorf("no facilities loaded from %s", dir)
	}
	return p
}
