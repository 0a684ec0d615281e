package dashboard

import "github.com/couchcryptid/bh-network-dashboard/internal/domain"

// Option is one selectable value and its display label.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// LegendEntry is one facility category in the overlay legend.
type LegendEntry struct {
	Category string `json:"category"`
	Label    string `json:"label"`
	Color    string `json:"color"`
}

// Options lists what the dashboard can show and the notes that explain it.
type Options struct {
	Levels     []Option      `json:"levels"`
	Taxonomies []Option      `json:"taxonomies"`
	Metrics    []Option      `json:"metrics"`
	Legend     []LegendEntry `json:"legend"`
	DataNotes  []string      `json:"data_notes"`
}

// legendOrder is the order categories appear in the legend.
var legendOrder = []domain.Category{
	domain.CategorySubstanceAbuse,
	domain.CategorySUDClinic,
	domain.CategoryBoth,
	domain.CategoryOther,
}

// DataNotes describe how the precomputed maps were built.
var DataNotes = []string{
	"Per capita rates exclude areas with <5000 population.",
	"Zip code maps show only areas with available data or shapefiles.",
	"Zip codes at or above the 98th percentile facility count have been visually capped to prevent skewing. True counts can be found in the tooltip.",
	"State maps include all 50 states + DC.",
	"All maps use linear binning to preserve true disparities.",
	"All maps are available individually in the maps folder.",
	"Combined maps show the total of all three facility types: Substance Abuse Rehabs, SUD Rehab Clinics, and Multi-Specialty Clinics.",
	"The facility overlay shows individual facility locations from the facility files, colored by facility type.",
}

// Options returns the selectable levels, taxonomies, and metrics together
// with the overlay legend and data notes.
func (s *Service) Options() Options {
	opts := Options{DataNotes: DataNotes}
	for _, l := range domain.Levels {
		opts.Levels = append(opts.Levels, Option{Value: string(l), Label: l.Label()})
	}
	for _, t := range domain.Taxonomies {
		opts.Taxonomies = append(opts.Taxonomies, Option{Value: t.Code, Label: t.Label()})
	}
	for _, m := range domain.Metrics {
		opts.Metrics = append(opts.Metrics, Option{Value: string(m), Label: m.Label()})
	}
	for _, c := range legendOrder {
		opts.Legend = append(opts.Legend, LegendEntry{Category: string(c), Label: c.LegendLabel(), Color: c.FillColor()})
	}
	return opts
}
