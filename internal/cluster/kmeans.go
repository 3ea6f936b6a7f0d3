// Package cluster implements seeded k-means, internal validity indices and
// the sweep that picks a cluster count.
package cluster

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/retailseg/internal/errs"
)

// KMeansConfig holds the tunables of one k-means fit. Zero NInit, MaxIter
// and Tolerance take the defaults.
type KMeansConfig struct {
	K         int
	Seed      int64
	NInit     int     // restarts; the lowest-inertia run wins
	MaxIter   int     // per restart
	Tolerance float64 // relative to the mean per-column variance
}

// DefaultKMeansConfig returns n_init 10, 300 iterations and tolerance 1e-4.
func DefaultKMeansConfig(k int, seed int64) KMeansConfig {
	return KMeansConfig{K: k, Seed: seed, NInit: 10, MaxIter: 300, Tolerance: 1e-4}
}

func (c KMeansConfig) withDefaults() KMeansConfig {
	d := DefaultKMeansConfig(c.K, c.Seed)
	if c.NInit > 0 {
		d.NInit = c.NInit
	}
	if c.MaxIter > 0 {
		d.MaxIter = c.MaxIter
	}
	if c.Tolerance > 0 {
		d.Tolerance = c.Tolerance
	}
	return d
}

// Model is a fitted partition.
type Model struct {
	K          int
	Centroids  *mat.Dense // K x d
	Labels     []int      // one per input row, in [0, K)
	Inertia    float64    // sum of squared distances to assigned centroid
	Iterations int        // Lloyd iterations of the winning restart
}

// Sizes returns the member count of each cluster.
func (m *Model) Sizes() []int {
	out := make([]int, m.K)
	for _, l := range m.Labels {
		out[l]++
	}
	return out
}

// Fit runs k-means++ seeded Lloyd iterations NInit times from one seeded
// generator and keeps the restart with the lowest inertia. Equal inputs and
// config give identical models.
func Fit(x mat.Matrix, cfg KMeansConfig) (*Model, error) {
	cfg = cfg.withDefaults()
	n, d := x.Dims()
	if n == 0 || d == 0 {
		return nil, errs.Dataf("matrix", "cannot cluster an empty matrix")
	}
	if cfg.K < 1 || cfg.K > n {
		return nil, errs.Configf("k", "k=%d outside [1, %d]", cfg.K, n)
	}
	rows := denseRows(x)
	tol := cfg.Tolerance * meanVariance(x)
	rng := rand.New(rand.NewSource(cfg.Seed))

	var best *Model
	for run := 0; run < cfg.NInit; run++ {
		m := lloyd(rows, seedCentroids(rows, cfg.K, rng), cfg.MaxIter, tol)
		if best == nil || m.Inertia < best.Inertia {
			best = m
		}
	}
	return best, nil
}

func denseRows(x mat.Matrix) [][]float64 {
	n, d := x.Dims()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, d)
		mat.Row(rows[i], i, x)
	}
	return rows
}

func meanVariance(x mat.Matrix) float64 {
	n, d := x.Dims()
	if n < 2 {
		return 0
	}
	col := make([]float64, n)
	var sum float64
	for j := 0; j < d; j++ {
		mat.Col(col, j, x)
		_, v := stat.PopMeanVariance(col, nil)
		sum += v
	}
	return sum / float64(d)
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		t := a[i] - b[i]
		s += t * t
	}
	return s
}

// seedCentroids picks k starting centroids with D² weighting.
func seedCentroids(rows [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(rows)
	cents := make([][]float64, 0, k)
	cents = append(cents, append([]float64(nil), rows[rng.Intn(n)]...))

	closest := make([]float64, n)
	for i, r := range rows {
		closest[i] = sqDist(r, cents[0])
	}
	for len(cents) < k {
		total := floats.Sum(closest)
		pick := -1
		if total > 0 {
			target := rng.Float64() * total
			var cum float64
			for i, w := range closest {
				if w == 0 {
					continue
				}
				cum += w
				pick = i
				if cum > target {
					break
				}
			}
		} else {
			pick = rng.Intn(n)
		}
		c := append([]float64(nil), rows[pick]...)
		cents = append(cents, c)
		for i, r := range rows {
			if dd := sqDist(r, c); dd < closest[i] {
				closest[i] = dd
			}
		}
	}
	return cents
}

// assign labels every row with its nearest centroid, lowest index on ties.
func assign(rows, cents [][]float64, labels []int) (inertia float64, changed bool) {
	for i, r := range rows {
		bestJ, bestD := 0, math.Inf(1)
		for j, c := range cents {
			if dd := sqDist(r, c); dd < bestD {
				bestJ, bestD = j, dd
			}
		}
		if labels[i] != bestJ {
			labels[i] = bestJ
			changed = true
		}
		inertia += bestD
	}
	return inertia, changed
}

// recompute moves each centroid to the mean of its members. An empty cluster
// takes the point farthest from its own centroid; if every point sits on its
// centroid the empty cluster keeps its position.
func recompute(rows, cents [][]float64, labels []int) [][]float64 {
	k, d := len(cents), len(rows[0])
	next := make([][]float64, k)
	counts := make([]int, k)
	for j := range next {
		next[j] = make([]float64, d)
	}
	for i, r := range rows {
		floats.Add(next[labels[i]], r)
		counts[labels[i]]++
	}
	taken := make(map[int]bool)
	for j := range next {
		if counts[j] > 0 {
			floats.Scale(1/float64(counts[j]), next[j])
			continue
		}
		far, farD := -1, 0.0
		for i, r := range rows {
			if taken[i] {
				continue
			}
			if dd := sqDist(r, cents[labels[i]]); dd > farD {
				far, farD = i, dd
			}
		}
		if far < 0 {
			copy(next[j], cents[j])
			continue
		}
		taken[far] = true
		copy(next[j], rows[far])
	}
	return next
}

func lloyd(rows, cents [][]float64, maxIter int, tol float64) *Model {
	labels := make([]int, len(rows))
	for i := range labels {
		labels[i] = -1
	}
	inertia, _ := assign(rows, cents, labels)
	iter := 0
	for iter < maxIter {
		iter++
		next := recompute(rows, cents, labels)
		var shift float64
		for j := range next {
			shift += sqDist(next[j], cents[j])
		}
		cents = next
		var changed bool
		inertia, changed = assign(rows, cents, labels)
		if !changed || shift <= tol {
			break
		}
	}

	k, d := len(cents), len(rows[0])
	cm := mat.NewDense(k, d, nil)
	for j, c := range cents {
		cm.SetRow(j, c)
	}
	return &Model{K: k, Centroids: cm, Labels: labels, Inertia: inertia, Iterations: iter}
}
