package catalog

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
)

const (
	cappedSuffix = "_capped_viz"
	stateColumn  = "state"
)

// ErrEmptyTable is returned for a data table without a header row.
var ErrEmptyTable = errors.New("data table is empty")

// Table is a parsed data table with the visualization-only columns removed.
type Table struct {
	Columns      []string
	Rows         [][]string
	MetricColumn string

	metricIdx int
	stateIdx  int
}

// TableFilter narrows a table by state and by the metric value range.
// A nil bound is open.
type TableFilter struct {
	States []string
	Min    *float64
	Max    *float64
}

// TableView is a filtered projection of a Table.
type TableView struct {
	Columns         []string   `json:"columns"`
	Rows            [][]string `json:"rows"`
	Total           int        `json:"total"`
	Matched         int        `json:"matched"`
	MetricColumn    string     `json:"metric_column"`
	MetricAvailable bool       `json:"metric_available"`
	MetricMin       *float64   `json:"metric_min,omitempty"`
	MetricMax       *float64   `json:"metric_max,omitempty"`
	States          []string   `json:"states,omitempty"`
}

func parseTable(r io.Reader, metricColumn string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	all, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, ErrEmptyTable
	}

	header := all[0]
	keep := make([]int, 0, len(header))
	t := &Table{MetricColumn: metricColumn, metricIdx: -1, stateIdx: -1}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if strings.HasSuffix(h, cappedSuffix) {
			continue
		}
		switch h {
		case metricColumn:
			t.metricIdx = len(keep)
		case stateColumn:
			t.stateIdx = len(keep)
		}
		keep = append(keep, i)
		t.Columns = append(t.Columns, h)
	}

	t.Rows = make([][]string, 0, len(all)-1)
	for _, row := range all[1:] {
		out := make([]string, len(keep))
		for j, i := range keep {
			if i < len(row) {
				out[j] = strings.TrimSpace(row[i])
			}
		}
		t.Rows = append(t.Rows, out)
	}
	return t, nil
}

// HasMetric reports whether the declared metric column is present.
func (t *Table) HasMetric() bool { return t.metricIdx >= 0 }

// States returns the distinct, sorted values of the state column.
func (t *Table) States() []string {
	if t.stateIdx < 0 {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, row := range t.Rows {
		s := row[t.stateIdx]
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// View returns the whole table without filtering.
func (t *Table) View() TableView {
	return TableView{
		Columns:         t.Columns,
		Rows:            t.Rows,
		Total:           len(t.Rows),
		Matched:         len(t.Rows),
		MetricColumn:    t.MetricColumn,
		MetricAvailable: t.HasMetric(),
	}
}

// Filter applies f. The state filter runs first; the reported metric range
// covers the rows that pass it, and the value range is applied last. Rows
// whose metric is not numeric are excluded once a bound is set.
func (t *Table) Filter(f TableFilter) TableView {
	v := TableView{
		Columns:         t.Columns,
		Total:           len(t.Rows),
		MetricColumn:    t.MetricColumn,
		MetricAvailable: t.HasMetric(),
		States:          t.States(),
	}

	rows := t.Rows
	if len(f.States) > 0 && t.stateIdx >= 0 {
		rows = slices.DeleteFunc(slices.Clone(rows), func(row []string) bool {
			return !slices.Contains(f.States, row[t.stateIdx])
		})
	}

	if t.HasMetric() {
		v.MetricMin, v.MetricMax = t.metricRange(rows)
		if f.Min != nil || f.Max != nil {
			rows = slices.DeleteFunc(slices.Clone(rows), func(row []string) bool {
				val, ok := t.metric(row)
				if !ok {
					return true
				}
				return (f.Min != nil && val < *f.Min) || (f.Max != nil && val > *f.Max)
			})
		}
	}

	v.Rows = rows
	v.Matched = len(rows)
	return v
}

func (t *Table) metric(row []string) (float64, bool) {
	v, err := strconv.ParseFloat(row[t.metricIdx], 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func (t *Table) metricRange(rows [][]string) (lo, hi *float64) {
	for _, row := range rows {
		v, ok := t.metric(row)
		if !ok {
			continue
		}
		if lo == nil || v < *lo {
			lo = &v
		}
		if hi == nil || v > *hi {
			hi = &v
		}
	}
	return lo, hi
}
