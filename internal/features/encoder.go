package features

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/KaramelBytes/retailseg/internal/errs"
)

// Numeric column names accepted by the encoder.
const (
	ColTotalSpend       = "total_spend"
	ColMeanSpend        = "mean_spend"
	ColTotalQuantity    = "total_quantity"
	ColTransactionCount = "transaction_count"
	ColSignupYear       = "signup_year"
)

// DefaultNumeric is the numeric layout used unless configured otherwise.
var DefaultNumeric = []string{ColTotalSpend, ColMeanSpend, ColTotalQuantity}

// NumericValue returns the named numeric attribute of p.
func NumericValue(p Profile, column string) (float64, bool) {
	switch column {
	case ColTotalSpend:
		return p.TotalSpend, true
	case ColMeanSpend:
		return p.MeanSpend, true
	case ColTotalQuantity:
		return float64(p.TotalQuantity), true
	case ColTransactionCount:
		return float64(p.TransactionCount), true
	case ColSignupYear:
		return float64(p.SignupYear), true
	}
	return 0, false
}

// Scaler maps each column linearly so the fitted min is 0 and max is 1.
// Constant columns map to 0.
type Scaler struct {
	Min []float64
	Max []float64
}

// FitScaler records per-column bounds of cols (column-major).
func FitScaler(cols [][]float64) *Scaler {
	s := &Scaler{Min: make([]float64, len(cols)), Max: make([]float64, len(cols))}
	for j, c := range cols {
		if len(c) == 0 {
			continue
		}
		s.Min[j], s.Max[j] = floats.Min(c), floats.Max(c)
	}
	return s
}

// Scale maps v of column j.
func (s *Scaler) Scale(j int, v float64) float64 {
	span := s.Max[j] - s.Min[j]
	if span == 0 {
		return 0
	}
	return (v - s.Min[j]) / span
}

// Categories returns the distinct values sorted lexicographically.
func Categories(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Encoder is fitted once on the full profile table and then applied
// identically to every row.
type Encoder struct {
	Numeric   []string
	Regions   []string // every observed region, sorted
	Reference string   // Regions[0], encoded as all-zero indicators
	scaler    *Scaler
}

// FitEncoder learns the numeric bounds and the region layout.
func FitEncoder(profiles []Profile, numeric []string) (*Encoder, error) {
	if len(profiles) == 0 {
		return nil, errs.Dataf("profiles", "cannot encode an empty profile table")
	}
	if len(numeric) == 0 {
		numeric = DefaultNumeric
	}
	cols := make([][]float64, len(numeric))
	for j, name := range numeric {
		cols[j] = make([]float64, len(profiles))
		for i, p := range profiles {
			v, ok := NumericValue(p, name)
			if !ok {
				return nil, errs.Configf("features.numeric", "unknown column %q", name)
			}
			cols[j][i] = v
		}
	}
	regions := make([]string, len(profiles))
	for i, p := range profiles {
		regions[i] = p.Region
	}
	e := &Encoder{
		Numeric: append([]string(nil), numeric...),
		Regions: Categories(regions),
		scaler:  FitScaler(cols),
	}
	if len(e.Regions) > 0 {
		e.Reference = e.Regions[0]
	}
	return e, nil
}

// Columns returns the output layout: scaled numeric columns, then one
// indicator per non-reference region.
func (e *Encoder) Columns() []string {
	out := append([]string(nil), e.Numeric...)
	for _, r := range e.indicators() {
		out = append(out, "region_"+r)
	}
	return out
}

func (e *Encoder) indicators() []string {
	if len(e.Regions) <= 1 {
		return nil
	}
	return e.Regions[1:]
}

// Transform encodes profiles row by row. Regions not seen at fit time encode
// like the reference category.
func (e *Encoder) Transform(profiles []Profile) (*mat.Dense, error) {
	if len(profiles) == 0 {
		return nil, errs.Dataf("profiles", "cannot encode an empty profile table")
	}
	ind := e.indicators()
	pos := make(map[string]int, len(ind))
	for j, r := range ind {
		pos[r] = len(e.Numeric) + j
	}
	width := len(e.Numeric) + len(ind)
	x := mat.NewDense(len(profiles), width, nil)
	for i, p := range profiles {
		for j, name := range e.Numeric {
			v, ok := NumericValue(p, name)
			if !ok {
				return nil, fmt.Errorf("encode: unknown column %q", name)
			}
			x.Set(i, j, e.scaler.Scale(j, v))
		}
		if j, ok := pos[p.Region]; ok {
			x.Set(i, j, 1)
		}
	}
	return x, nil
}

// Encode fits an encoder on profiles and transforms them.
func Encode(profiles []Profile, numeric []string) (*mat.Dense, *Encoder, error) {
	e, err := FitEncoder(profiles, numeric)
	if err != nil {
		return nil, nil, err
	}
	x, err := e.Transform(profiles)
	if err != nil {
		return nil, nil, err
	}
	return x, e, nil
}
