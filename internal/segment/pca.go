package segment

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/retailseg/internal/errs"
)

// Projection is a linear view of the encoded matrix onto its leading
// principal directions.
type Projection struct {
	Coords            *mat.Dense // n x components
	ExplainedVariance []float64  // ratio per component
}

// Project centres x and projects it onto the first components principal
// directions. Each direction's sign is fixed so its largest-magnitude
// loading is positive. Missing directions (rank below components) project
// to zero.
func Project(x mat.Matrix, components int) (*Projection, error) {
	n, d := x.Dims()
	if n < 2 {
		return nil, errs.Dataf("matrix", "projection needs at least 2 rows, got %d", n)
	}
	if components < 1 {
		return nil, errs.Configf("n_components", "must be positive, got %d", components)
	}

	centred := mat.NewDense(n, d, nil)
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, x)
		mean := stat.Mean(col, nil)
		for i := range col {
			centred.Set(i, j, col[i]-mean)
		}
	}

	var pc stat.PC
	ok := pc.PrincipalComponents(x, nil)
	if !ok {
		return nil, errs.Dataf("matrix", "principal component analysis failed")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	vars := pc.VarsTo(nil)

	_, avail := vecs.Dims()
	basis := mat.NewDense(d, components, nil)
	for c := 0; c < components && c < avail; c++ {
		v := mat.Col(nil, c, &vecs)
		big := 0
		for i := range v {
			if math.Abs(v[i]) > math.Abs(v[big]) {
				big = i
			}
		}
		sign := 1.0
		if v[big] < 0 {
			sign = -1
		}
		for i := range v {
			basis.Set(i, c, sign*v[i])
		}
	}

	coords := mat.NewDense(n, components, nil)
	coords.Mul(centred, basis)

	var total float64
	for _, v := range vars {
		total += v
	}
	ratio := make([]float64, components)
	for c := 0; c < components && c < len(vars); c++ {
		if total > 0 {
			ratio[c] = vars[c] / total
		}
	}
	return &Projection{Coords: coords, ExplainedVariance: ratio}, nil
}
