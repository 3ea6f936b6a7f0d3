// Package analysis produces the exploratory report over the retail tables:
// data quality audits, summary statistics and the aggregates behind the
// charts.
package analysis

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/retailseg/internal/dataset"
)

// ColumnAudit counts empty cells of one column.
type ColumnAudit struct {
	Name    string
	Missing int
}

// TableAudit is the data quality view of one raw table.
type TableAudit struct {
	Name       string
	Rows       int
	Columns    []ColumnAudit
	Duplicates int // rows identical to an earlier row
}

// MissingTotal sums missing cells over all columns.
func (a TableAudit) MissingTotal() int {
	n := 0
	for _, c := range a.Columns {
		n += c.Missing
	}
	return n
}

// Audit counts missing cells per column and fully duplicated rows.
func Audit(t *dataset.Table) TableAudit {
	a := TableAudit{Name: t.Name, Rows: len(t.Rows), Columns: make([]ColumnAudit, len(t.Header))}
	for j, h := range t.Header {
		a.Columns[j].Name = safeName(h)
	}
	seen := make(map[string]struct{}, len(t.Rows))
	for _, row := range t.Rows {
		for j, v := range row {
			if j < len(a.Columns) && strings.TrimSpace(v) == "" {
				a.Columns[j].Missing++
			}
		}
		key := strings.Join(row, "\x1f")
		if _, dup := seen[key]; dup {
			a.Duplicates++
			continue
		}
		seen[key] = struct{}{}
	}
	return a
}

// Summary is the describe() view of a numeric column.
type Summary struct {
	Count  int
	Mean   float64
	Std    float64 // sample standard deviation; 0 with fewer than 2 values
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64
}

// Describe summarises values. Quantiles interpolate linearly between
// order statistics.
func Describe(values []float64) Summary {
	s := Summary{Count: len(values)}
	if len(values) == 0 {
		return s
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	s.Mean = stat.Mean(sorted, nil)
	if len(sorted) > 1 {
		s.Std = stat.StdDev(sorted, nil)
	}
	s.Min, s.Max = floats.Min(sorted), floats.Max(sorted)
	s.Q25 = quantile(sorted, 0.25)
	s.Median = quantile(sorted, 0.5)
	s.Q75 = quantile(sorted, 0.75)
	return s
}

// CorrMatrix holds a symmetric Pearson correlation matrix. Pairs involving a
// constant column are NaN.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// Correlate builds the Pearson matrix over equally long columns.
func Correlate(names []string, cols [][]float64) *CorrMatrix {
	m := &CorrMatrix{Columns: names, Values: make([][]float64, len(cols))}
	for i := range cols {
		m.Values[i] = make([]float64, len(cols))
	}
	for i := range cols {
		for j := i; j < len(cols); j++ {
			r := math.NaN()
			if len(cols[i]) > 1 && !constant(cols[i]) && !constant(cols[j]) {
				r = stat.Correlation(cols[i], cols[j], nil)
			}
			if i == j && !math.IsNaN(r) {
				r = 1
			}
			m.Values[i][j], m.Values[j][i] = r, r
		}
	}
	return m
}

func constant(v []float64) bool {
	return len(v) == 0 || floats.Min(v) == floats.Max(v)
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
