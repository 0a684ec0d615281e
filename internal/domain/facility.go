package domain

// Source CSV column names. Every facility file must carry all of them.
const (
	ColumnNPI            = "NPI"
	ColumnName           = "Group Name"
	ColumnStreetAddress  = "Street Address"
	ColumnCity           = "City"
	ColumnState          = "State"
	ColumnZip            = "Zip"
	ColumnLatitude       = "Latitude"
	ColumnLongitude      = "Longitude"
	ColumnSubstanceAbuse = "is_substance_abuse_rehab"
	ColumnSUDRehabClinic = "is_sud_rehab_clinic"
)

// RequiredColumns lists the facility CSV header in its canonical order.
var RequiredColumns = []string{
	ColumnNPI,
	ColumnName,
	ColumnStreetAddress,
	ColumnCity,
	ColumnState,
	ColumnZip,
	ColumnLatitude,
	ColumnLongitude,
	ColumnSubstanceAbuse,
	ColumnSUDRehabClinic,
}

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether both components are inside the WGS-84 range.
// NaN fails both comparisons and is therefore invalid.
func (g Geo) Valid() bool {
	return g.Lat >= -90 && g.Lat <= 90 && g.Lon >= -180 && g.Lon <= 180
}

// FacilityRecord is one cleaned row from a facility location file.
type FacilityRecord struct {
	NPI            string `json:"npi"`
	Name           string `json:"name"`
	StreetAddress  string `json:"street_address"`
	City           string `json:"city"`
	State          string `json:"state"`
	Zip            string `json:"zip"`
	Geo            Geo    `json:"geo"`
	SubstanceAbuse Flag   `json:"is_substance_abuse_rehab"`
	SUDRehabClinic Flag   `json:"is_sud_rehab_clinic"`
	SourceFile     string `json:"source_file"`
}

// Category classifies the record by its two taxonomy flags.
func (r FacilityRecord) Category() Category {
	return Classify(r.SubstanceAbuse, r.SUDRehabClinic)
}

// Collection is an ordered set of facilities. Order follows the source files
// and the rows within them; records are never merged across files.
type Collection []FacilityRecord

// Empty reports whether the collection holds no facilities. A nil collection is empty.
func (c Collection) Empty() bool { return len(c) == 0 }

// CountByCategory tallies the collection per overlay category.
func (c Collection) CountByCategory() map[Category]int {
	counts := make(map[Category]int, len(Categories))
	for i := range c {
		counts[c[i].Category()]++
	}
	return counts
}
