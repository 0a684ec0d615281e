package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Flag is a normalized taxonomy indicator.
type Flag string

const (
	FlagTrue    Flag = "true"
	FlagFalse   Flag = "false"
	FlagUnknown Flag = "unknown"
)

// IsTrue reports whether the flag is set.
func (f Flag) IsTrue() bool { return f == FlagTrue }

// NormalizeFlag maps a raw CSV cell onto a Flag. Boolean literals in any case
// and numeric values equal to 1 or 0 ("1", "1.0", "0.00") are recognized;
// everything else, including an empty cell, is unknown.
func NormalizeFlag(raw string) Flag {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return FlagUnknown
	}
	switch {
	case strings.EqualFold(raw, "true"):
		return FlagTrue
	case strings.EqualFold(raw, "false"):
		return FlagFalse
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return FlagUnknown
	}
	switch v {
	case 1:
		return FlagTrue
	case 0:
		return FlagFalse
	default:
		return FlagUnknown
	}
}

// NormalizePostalCode trims the value and strips the ".0" suffix that appears
// when a zip column has been round-tripped through a float, e.g. "12345.0" -> "12345".
func NormalizePostalCode(raw string) string {
	return trimFloatSuffix(strings.TrimSpace(raw))
}

// NormalizeIdentifier applies the same float-artifact cleanup to NPI values.
func NormalizeIdentifier(raw string) string {
	return trimFloatSuffix(strings.TrimSpace(raw))
}

func trimFloatSuffix(s string) string {
	digits, ok := strings.CutSuffix(s, ".0")
	if !ok || digits == "" {
		return s
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return s
		}
	}
	return digits
}

// ErrMalformedCoordinate is returned when a coordinate cell is present but not a number.
var ErrMalformedCoordinate = errors.New("malformed coordinate")

// ParseCoordinate parses a latitude or longitude cell. A blank cell reports
// ok=false with no error; a non-numeric cell is an error.
func ParseCoordinate(raw string) (v float64, ok bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %q", ErrMalformedCoordinate, raw)
	}
	return v, true, nil
}
