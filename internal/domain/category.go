package domain

// Category is the overlay classification derived from a facility's two flags.
type Category string

const (
	CategoryBoth           Category = "both"
	CategorySubstanceAbuse Category = "substance_abuse"
	CategorySUDClinic      Category = "sud_clinic"
	CategoryOther          Category = "other"
)

// Categories lists every category in precedence order.
var Categories = []Category{
	CategoryBoth,
	CategorySubstanceAbuse,
	CategorySUDClinic,
	CategoryOther,
}

// Marker colors. The border is shared; the fill identifies the category.
const (
	ColorBoth           = "#800080"
	ColorSubstanceAbuse = "#FF0000"
	ColorSUDClinic      = "#0000FF"
	ColorOther          = "#808080"
	ColorBorder         = "#000000"
)

// Classify applies the precedence rule: both flags set wins, then each single
// flag, then the fallback. Only FlagTrue counts as set.
func Classify(substanceAbuse, sudClinic Flag) Category {
	switch {
	case substanceAbuse.IsTrue() && sudClinic.IsTrue():
		return CategoryBoth
	case substanceAbuse.IsTrue():
		return CategorySubstanceAbuse
	case sudClinic.IsTrue():
		return CategorySUDClinic
	default:
		return CategoryOther
	}
}

// Label is the human-readable facility type shown in popups and the legend.
func (c Category) Label() string {
	switch c {
	case CategoryBoth:
		return "Substance Abuse Rehab & SUD Rehab Clinic"
	case CategorySubstanceAbuse:
		return "Substance Abuse Rehab"
	case CategorySUDClinic:
		return "SUD Rehab Clinic"
	default:
		return "Other/Unknown"
	}
}

// LegendLabel is the shorter name used in the map legend.
func (c Category) LegendLabel() string {
	if c == CategoryBoth {
		return "Both Types"
	}
	return c.Label()
}

// FillColor returns the marker fill for the category.
func (c Category) FillColor() string {
	switch c {
	case CategoryBoth:
		return ColorBoth
	case CategorySubstanceAbuse:
		return ColorSubstanceAbuse
	case CategorySUDClinic:
		return ColorSUDClinic
	default:
		return ColorOther
	}
}
