// Package domain models behavioral-health facility locations and the
// precomputed density map selections they are overlaid on.
//
// # Facility Files
//
// Facility location files are CSV exports keyed by the National Provider
// Identifier (NPI). Each file must carry every column in [RequiredColumns];
// extra columns are ignored.
//
// Float artifacts:
//
//	Zip and NPI columns are sometimes written from a float column, producing
//	values like "12345.0". The suffix is stripped so postal codes stay bare
//	digit strings. Leading zeros survive because cells are never parsed as numbers.
//
// Taxonomy flags:
//
//	is_substance_abuse_rehab and is_sud_rehab_clinic hold booleans in several
//	encodings: True/False, true/false, 1/0, 1.0/0.0. Anything else, including a
//	blank cell, normalizes to [FlagUnknown]. See [NormalizeFlag].
//
// Coordinates:
//
//	Latitude must lie in [-90, 90] and longitude in [-180, 180]. Rows outside
//	the range are dropped silently; a non-numeric coordinate makes the whole
//	file unusable.
//
// # Overlay Categories
//
// Facilities are colored by [Classify]:
//
//	both flags true        -> purple  #800080
//	substance abuse only   -> red     #FF0000
//	SUD clinic only        -> blue    #0000FF
//	anything else          -> gray    #808080
//
// # Map Selections
//
// The offline map generator writes one HTML map and one CSV table per
// (level, taxonomy, metric) combination. File names are derived from the
// declared taxonomy file type and metric suffix:
//
//	zipcode_map_Substance_Abuse_Rehabs_Raw.html
//	zip_code_counts/zipcode_data_Substance_Abuse_Rehabs_Raw.csv
//	state_map_All_Healthcare_Facilities_per_100k.html
//	state_counts/state_data_All_Healthcare_Facilities_per_100k.csv
//
// The metric column inside each table is declared rather than discovered:
// "<file type slug>_count" for raw counts and "<file type slug>_per_100k" for
// per-capita rates. See [Selection.MetricColumn].
package domain
