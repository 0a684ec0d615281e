// Package dashboard orchestrates one user interaction: resolve the selected
// precomputed assets, optionally load facilities, and apply the overlay.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/bh-network-dashboard/internal/catalog"
	"github.com/couchcryptid/bh-network-dashboard/internal/domain"
	"github.com/couchcryptid/bh-network-dashboard/internal/facility"
	"github.com/couchcryptid/bh-network-dashboard/internal/observability"
	"github.com/couchcryptid/bh-network-dashboard/internal/overlay"
)

// Messages shown when the facility overlay cannot be applied.
const (
	NoFacilitiesWarning   = "No individual facility data loaded or found. Overlay will not be shown."
	MissingDirWarningFmt  = "Facility directory not found: %s. Overlay will not be shown."
	SkippedFileWarningFmt = "Skipped facility file %s"
)

// Assets resolves selections to precomputed map documents and data tables.
type Assets interface {
	ReadMap(sel domain.Selection) (string, error)
	ReadTable(sel domain.Selection) (*catalog.Table, error)
	MapsDir() string
}

// Service serves map, table, and facility views.
type Service struct {
	assets      Assets
	facilities  facility.DirectoryLoader
	facilityDir string
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// New creates a Service. facilities may be nil, in which case the overlay is never shown.
func New(assets Assets, facilities facility.DirectoryLoader, facilityDir string, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		assets:      assets,
		facilities:  facilities,
		facilityDir: facilityDir,
		logger:      logger,
		metrics:     metrics,
	}
}

// MapRequest selects a base map and whether to overlay individual facilities.
type MapRequest struct {
	Selection      domain.Selection
	ShowFacilities bool
}

// MapView is a rendered map document with the messages to show alongside it.
type MapView struct {
	Selection     domain.Selection     `json:"-"`
	Title         string               `json:"title"`
	Notices       []string             `json:"notices"`
	Warnings      []string             `json:"warnings,omitempty"`
	Document      string               `json:"document"`
	FacilityCount int                  `json:"facility_count"`
	Skipped       []facility.FileIssue `json:"skipped,omitempty"`
}

// Map reads the base document for the selection and, when requested, overlays
// the facilities from the configured directory. A missing base map is an
// error; every facility problem degrades to a warning on the view.
func (s *Service) Map(ctx context.Context, req MapRequest) (MapView, error) {
	sel := req.Selection
	level := string(sel.Level)

	doc, err := s.assets.ReadMap(sel)
	if err != nil {
		var notFound *catalog.AssetNotFoundError
		if errors.As(err, &notFound) {
			s.metrics.MapRequests.WithLabelValues(level, "not_found").Inc()
			s.logger.Warn("map not found", "file", sel.MapFileName(), "available", len(notFound.Available))
		} else {
			s.metrics.MapRequests.WithLabelValues(level, "error").Inc()
			s.logger.Error("read map failed", "file", sel.MapFileName(), "error", err)
		}
		return MapView{}, err
	}

	view := MapView{
		Selection: sel,
		Title:     sel.Title(),
		Notices:   sel.Notices(),
		Document:  doc,
	}

	if req.ShowFacilities {
		if err := s.applyOverlay(ctx, &view); err != nil {
			s.metrics.MapRequests.WithLabelValues(level, "error").Inc()
			return MapView{}, err
		}
	}

	s.metrics.MapRequests.WithLabelValues(level, "ok").Inc()
	return view, nil
}

func (s *Service) applyOverlay(ctx context.Context, view *MapView) error {
	if s.facilities == nil {
		view.Warnings = append(view.Warnings, NoFacilitiesWarning)
		return nil
	}

	res, err := s.facilities.Load(ctx, s.facilityDir)
	switch {
	case errors.Is(err, facility.ErrDirectoryNotFound):
		view.Warnings = append(view.Warnings, fmt.Sprintf(MissingDirWarningFmt, s.facilityDir))
		return nil
	case err != nil:
		return fmt.Errorf("load facilities: %w", err)
	}

	view.Skipped = res.Skipped
	for _, issue := range res.Skipped {
		view.Warnings = append(view.Warnings, fmt.Sprintf(SkippedFileWarningFmt, issue.Error()))
	}
	if res.Empty() {
		view.Warnings = append(view.Warnings, NoFacilitiesWarning)
		return nil
	}

	doc, err := overlay.Render(view.Document, res.Facilities)
	if err != nil {
		return fmt.Errorf("render overlay: %w", err)
	}
	s.metrics.OverlayRenders.Inc()
	s.metrics.OverlayMarkers.Observe(float64(len(res.Facilities)))

	view.Document = doc
	view.FacilityCount = len(res.Facilities)
	return nil
}

// TableRequest selects a data table and, at zip level, filters it.
type TableRequest struct {
	Selection domain.Selection
	States    []string
	Min       *float64
	Max       *float64
}

// Table returns the companion data table for the selection. Filters apply
// only at zip level; the state table is always returned whole.
func (s *Service) Table(ctx context.Context, req TableRequest) (catalog.TableView, error) {
	if err := ctx.Err(); err != nil {
		return catalog.TableView{}, err
	}

	t, err := s.assets.ReadTable(req.Selection)
	if err != nil {
		return catalog.TableView{}, err
	}

	if req.Selection.Level != domain.LevelZip {
		return t.View(), nil
	}
	return t.Filter(catalog.TableFilter{States: req.States, Min: req.Min, Max: req.Max}), nil
}

// FacilitySummary describes the most recent facility directory load.
type FacilitySummary struct {
	Dir        string               `json:"dir"`
	Files      []string             `json:"files"`
	Skipped    []facility.FileIssue `json:"skipped"`
	Total      int                  `json:"total"`
	ByCategory map[string]int       `json:"by_category"`
	LoadedAt   time.Time            `json:"loaded_at"`
}

// Facilities loads the facility directory and summarizes it.
func (s *Service) Facilities(ctx context.Context) (FacilitySummary, error) {
	if s.facilities == nil {
		return FacilitySummary{}, facility.ErrDirectoryNotFound
	}

	res, err := s.facilities.Load(ctx, s.facilityDir)
	if err != nil {
		return FacilitySummary{}, err
	}

	byCategory := make(map[string]int, len(domain.Categories))
	for _, c := range domain.Categories {
		byCategory[string(c)] = 0
	}
	for c, n := range res.Facilities.CountByCategory() {
		byCategory[string(c)] = n
	}

	return FacilitySummary{
		Dir:        res.Dir,
		Files:      res.Files,
		Skipped:    res.Skipped,
		Total:      len(res.Facilities),
		ByCategory: byCategory,
		LoadedAt:   res.LoadedAt,
	}, nil
}

// CheckReadiness returns nil when the maps directory is readable.
func (s *Service) CheckReadiness(_ context.Context) error {
	dir := s.assets.MapsDir()
	if _, err := os.ReadDir(dir); err != nil {
		return fmt.Errorf("maps directory %s is not readable: %w", dir, err)
	}
	return nil
}
