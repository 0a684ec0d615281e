// Package overlay adds clustered facility markers to a precomputed Leaflet map document.
package overlay

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/couchcryptid/bh-network-dashboard/internal/domain"
)

// Block delimiters. Everything between them belongs to the overlay and is
// replaced on every render.
const (
	StartMarker = "<!-- facility-overlay:start -->"
	EndMarker   = "<!-- facility-overlay:end -->"
)

const (
	// LayerName is the toggle label of the facility layer in the map's layer control.
	LayerName = "Individual Facilities"

	markerClusterVersion = "1.4.1"
	libraryBase          = "https://unpkg.com/leaflet.markercluster@" + markerClusterVersion + "/dist"
	libraryProbe         = "markercluster.css"
	guardFlag            = "__facilityOverlayApplied"
	popupMaxWidth        = 300
	maxAttempts          = 50
	retryMillis          = 100
)

//go:embed templates/overlay.gohtml
var templateFS embed.FS

var tmpl = template.Must(template.New("overlay.gohtml").ParseFS(templateFS, "templates/overlay.gohtml"))

// MarkerStyle is the fixed circle-marker styling shared by every facility.
type MarkerStyle struct {
	Radius      int     `json:"radius"`
	Color       string  `json:"color"`
	Weight      int     `json:"weight"`
	Opacity     float64 `json:"opacity"`
	FillOpacity float64 `json:"fillOpacity"`
}

// DefaultMarkerStyle is applied to all markers; only the fill color varies by category.
var DefaultMarkerStyle = MarkerStyle{
	Radius:      7,
	Color:       domain.ColorBorder,
	Weight:      2,
	Opacity:     0.9,
	FillOpacity: 0.7,
}

// ClusterOptions configures the Leaflet.markercluster group.
type ClusterOptions struct {
	ShowCoverageOnHover        bool `json:"showCoverageOnHover"`
	ZoomToBoundsOnClick        bool `json:"zoomToBoundsOnClick"`
	SpiderfyOnMaxZoom          bool `json:"spiderfyOnMaxZoom"`
	RemoveOutsideVisibleBounds bool `json:"removeOutsideVisibleBounds"`
	DisableClusteringAtZoom    int  `json:"disableClusteringAtZoom"`
}

// DefaultClusterOptions stops clustering at street-level zoom.
var DefaultClusterOptions = ClusterOptions{
	ShowCoverageOnHover:        false,
	ZoomToBoundsOnClick:        true,
	SpiderfyOnMaxZoom:          false,
	RemoveOutsideVisibleBounds: true,
	DisableClusteringAtZoom:    13,
}

// marker is the per-facility payload serialized into the page.
type marker struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Fill  string  `json:"fill"`
	Popup string  `json:"popup"`
}

type popupData struct {
	NPI            string
	Name           string
	Type           string
	StreetAddress  string
	City           string
	State          string
	Zip            string
	Coordinates    string
	SubstanceAbuse domain.Flag
	SUDRehabClinic domain.Flag
}

type overlayData struct {
	IncludeLibrary bool
	LibraryBase    string
	Guard          string
	Markers        []marker
	Style          MarkerStyle
	Cluster        ClusterOptions
	OverlayName    string
	PopupMaxWidth  int
	MaxAttempts    int
	RetryMillis    int
}

// Render returns doc with a marker for every facility in c. An empty
// collection returns doc unchanged. Any overlay block left by an earlier
// render is replaced, so rendering twice yields a single overlay.
func Render(doc string, c domain.Collection) (string, error) {
	if c.Empty() {
		return doc, nil
	}

	base := Strip(doc)

	markers := make([]marker, 0, len(c))
	for i := range c {
		m, err := newMarker(&c[i])
		if err != nil {
			return "", err
		}
		markers = append(markers, m)
	}

	data := overlayData{
		IncludeLibrary: !strings.Contains(strings.ToLower(base), libraryProbe),
		LibraryBase:    libraryBase,
		Guard:          guardFlag,
		Markers:        markers,
		Style:          DefaultMarkerStyle,
		Cluster:        DefaultClusterOptions,
		OverlayName:    LayerName,
		PopupMaxWidth:  popupMaxWidth,
		MaxAttempts:    maxAttempts,
		RetryMillis:    retryMillis,
	}

	var block bytes.Buffer
	block.WriteString(StartMarker)
	block.WriteByte('\n')
	if err := tmpl.ExecuteTemplate(&block, "overlay", data); err != nil {
		return "", fmt.Errorf("render overlay: %w", err)
	}
	block.WriteString(EndMarker)
	block.WriteByte('\n')

	return insertBeforeBodyEnd(base, block.String()), nil
}

// Strip removes every complete overlay block from doc. An unterminated start
// marker is left in place.
func Strip(doc string) string {
	for {
		start := strings.Index(doc, StartMarker)
		if start < 0 {
			return doc
		}
		rel := strings.Index(doc[start:], EndMarker)
		if rel < 0 {
			return doc
		}
		end := start + rel + len(EndMarker)
		if end < len(doc) && doc[end] == '\n' {
			end++
		}
		doc = doc[:start] + doc[end:]
	}
}

// CountBlocks reports how many overlay blocks doc contains.
func CountBlocks(doc string) int {
	return strings.Count(doc, StartMarker)
}

func newMarker(f *domain.FacilityRecord) (marker, error) {
	category := f.Category()

	var popup bytes.Buffer
	err := tmpl.ExecuteTemplate(&popup, "popup", popupData{
		NPI:            f.NPI,
		Name:           f.Name,
		Type:           category.Label(),
		StreetAddress:  f.StreetAddress,
		City:           f.City,
		State:          f.State,
		Zip:            f.Zip,
		Coordinates:    fmt.Sprintf("%.4f, %.4f", f.Geo.Lat, f.Geo.Lon),
		SubstanceAbuse: f.SubstanceAbuse,
		SUDRehabClinic: f.SUDRehabClinic,
	})
	if err != nil {
		return marker{}, fmt.Errorf("render popup for %s: %w", f.NPI, err)
	}

	return marker{
		Lat:   f.Geo.Lat,
		Lon:   f.Geo.Lon,
		Fill:  category.FillColor(),
		Popup: popup.String(),
	}, nil
}

// insertBeforeBodyEnd places block before the last closing body tag, matched
// without regard to case, or appends it when the document has none.
func insertBeforeBodyEnd(doc, block string) string {
	i := lastIndexFold(doc, "</body>")
	if i < 0 {
		return doc + block
	}
	return doc[:i] + block + doc[i:]
}

// lastIndexFold is strings.LastIndex with ASCII case folding. It compares
// bytes so offsets stay valid for any UTF-8 input.
func lastIndexFold(s, substr string) int {
	for i := len(s) - len(substr); i >= 0; i-- {
		if asciiEqualFold(s[i:i+len(substr)], substr) {
			return i
		}
	}
	return -1
}

func asciiEqualFold(a, b string) bool {
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
