package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Level is the geography a density map is aggregated to.
type Level string

const (
	LevelZip   Level = "zip"
	LevelState Level = "state"
)

// Levels lists the selectable geographic levels.
var Levels = []Level{LevelZip, LevelState}

// Label is the display name of the level.
func (l Level) Label() string {
	if l == LevelState {
		return "State"
	}
	return "Zip Code"
}

// filePrefix is the prefix used by the map generator for this level's outputs.
func (l Level) filePrefix() string {
	if l == LevelState {
		return "state"
	}
	return "zipcode"
}

// TableDir is the subdirectory of the tables root holding this level's data files.
func (l Level) TableDir() string {
	if l == LevelState {
		return "state_counts"
	}
	return "zip_code_counts"
}

// Taxonomy describes one selectable facility type. FileType is the name the
// map generator used when it wrote the map and data files.
type Taxonomy struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	FileType string `json:"file_type"`
	Combined bool   `json:"combined,omitempty"`
}

// Label is the radio-button style label, e.g. "324500000X - Substance Abuse Rehabs".
func (t Taxonomy) Label() string {
	if t.Combined {
		return "Combined - " + t.FileType
	}
	return t.Code + " - " + t.Name
}

// slug is the lower-case column prefix used in the data tables.
func (t Taxonomy) slug() string {
	return strings.ToLower(strings.ReplaceAll(t.FileType, " ", "_"))
}

// Taxonomies is the declared set of facility types, in display order.
var Taxonomies = []Taxonomy{
	{Code: "324500000X", Name: "Substance Abuse Rehabs", FileType: "Substance Abuse Rehabs"},
	{Code: "261QR0405X", Name: "SUD Rehab Clinics", FileType: "SUD Rehab Clinics"},
	{Code: "261QM1300X", Name: "Multi-Specialty Clinics", FileType: "Multi-Specialty Clinics"},
	{Code: "combined", Name: "All Healthcare Facilities", FileType: "All Healthcare Facilities", Combined: true},
}

// LookupTaxonomy finds a taxonomy by code, case-insensitively.
func LookupTaxonomy(code string) (Taxonomy, bool) {
	for _, t := range Taxonomies {
		if strings.EqualFold(t.Code, code) {
			return t, true
		}
	}
	return Taxonomy{}, false
}

// Metric is the value a density map is colored by.
type Metric string

const (
	MetricRaw       Metric = "raw"
	MetricPerCapita Metric = "per_capita"
)

// Metrics lists the selectable metrics.
var Metrics = []Metric{MetricRaw, MetricPerCapita}

// Label is the display name of the metric.
func (m Metric) Label() string {
	if m == MetricPerCapita {
		return "Per Capita (per 100k)"
	}
	return "Raw Count"
}

// suffix is the parenthesized qualifier the generator appends to map names.
func (m Metric) suffix() string {
	if m == MetricPerCapita {
		return "per 100k"
	}
	return "Raw"
}

// ErrInvalidSelection is returned when a level, taxonomy, or metric is not recognized.
var ErrInvalidSelection = errors.New("invalid selection")

// Selection is one (level, taxonomy, metric) combination of precomputed assets.
type Selection struct {
	Level    Level
	Taxonomy Taxonomy
	Metric   Metric
}

// ParseSelection validates raw selection parameters. Empty values fall back
// to the dashboard defaults: zip level, first taxonomy, raw count.
func ParseSelection(level, taxonomy, metric string) (Selection, error) {
	sel := Selection{Level: LevelZip, Taxonomy: Taxonomies[0], Metric: MetricRaw}

	switch Level(strings.ToLower(strings.TrimSpace(level))) {
	case "":
	case LevelZip:
		sel.Level = LevelZip
	case LevelState:
		sel.Level = LevelState
	default:
		return Selection{}, fmt.Errorf("%w: level %q", ErrInvalidSelection, level)
	}

	if taxonomy = strings.TrimSpace(taxonomy); taxonomy != "" {
		t, ok := LookupTaxonomy(taxonomy)
		if !ok {
			return Selection{}, fmt.Errorf("%w: taxonomy %q", ErrInvalidSelection, taxonomy)
		}
		sel.Taxonomy = t
	}

	switch Metric(strings.ToLower(strings.TrimSpace(metric))) {
	case "":
	case MetricRaw:
		sel.Metric = MetricRaw
	case MetricPerCapita:
		sel.Metric = MetricPerCapita
	default:
		return Selection{}, fmt.Errorf("%w: metric %q", ErrInvalidSelection, metric)
	}

	return sel, nil
}

// AllSelections enumerates every combination in display order.
func AllSelections() []Selection {
	out := make([]Selection, 0, len(Levels)*len(Taxonomies)*len(Metrics))
	for _, l := range Levels {
		for _, t := range Taxonomies {
			for _, m := range Metrics {
				out = append(out, Selection{Level: l, Taxonomy: t, Metric: m})
			}
		}
	}
	return out
}

// MapName is the generator's name for the map, e.g. "SUD Rehab Clinics (per 100k)".
func (s Selection) MapName() string {
	return fmt.Sprintf("%s (%s)", s.Taxonomy.FileType, s.Metric.suffix())
}

// Title is the heading shown above the map.
func (s Selection) Title() string {
	return s.Level.Label() + ": " + s.MapName()
}

// FileStem is the shared part of the map and data file names,
// e.g. "SUD_Rehab_Clinics_per_100k".
func (s Selection) FileStem() string {
	return strings.ReplaceAll(s.Taxonomy.FileType, " ", "_") + "_" + strings.ReplaceAll(s.Metric.suffix(), " ", "_")
}

// MapFileName is the base map document name, e.g. "zipcode_map_Substance_Abuse_Rehabs_Raw.html".
func (s Selection) MapFileName() string {
	return s.Level.filePrefix() + "_map_" + s.FileStem() + ".html"
}

// DataFileName is the companion table name, e.g. "state_data_Multi-Specialty_Clinics_per_100k.csv".
func (s Selection) DataFileName() string {
	return s.Level.filePrefix() + "_data_" + s.FileStem() + ".csv"
}

// MetricColumn is the declared data table column holding the selected metric.
func (s Selection) MetricColumn() string {
	if s.Metric == MetricPerCapita {
		return s.Taxonomy.slug() + "_per_100k"
	}
	return s.Taxonomy.slug() + "_count"
}

// Notices returns the contextual explanations shown for this selection.
func (s Selection) Notices() []string {
	var out []string
	switch s.Level {
	case LevelZip:
		out = append(out, "Zip code-level view: shows granular, localized data. Only zip codes with facilities are displayed.")
	case LevelState:
		out = append(out, "State-level view: shows aggregated data for all facilities within each state, providing a high-level regional comparison.")
	}
	if s.Taxonomy.Combined {
		out = append(out, "Combined view: this map shows the total count of all three facility types combined (Substance Abuse Rehabs + SUD Rehab Clinics + Multi-Specialty Clinics).")
	}
	return out
}
