package cluster

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/KaramelBytes/retailseg/internal/errs"
)

const (
	MetricDaviesBouldin = "davies_bouldin"
	MetricSilhouette    = "silhouette"
)

// degenerate reports why labels cannot be scored, or "" when they can.
// Every cluster needs at least two members and the rows at least two
// distinct values.
func degenerate(rows [][]float64, labels []int, k int) string {
	if k < 2 {
		return "fewer than 2 clusters"
	}
	if k >= len(rows) {
		return fmt.Sprintf("k=%d is not below the number of points (%d)", k, len(rows))
	}
	sizes := make([]int, k)
	for _, l := range labels {
		sizes[l]++
	}
	for j, s := range sizes {
		if s < 2 {
			return fmt.Sprintf("cluster %d has %d member(s)", j, s)
		}
	}
	for i := 1; i < len(rows); i++ {
		if !floats.Equal(rows[i], rows[0]) {
			return ""
		}
	}
	return "fewer than 2 distinct points"
}

func checkLabels(n int, labels []int, k int) error {
	if len(labels) != n {
		return fmt.Errorf("labels: got %d, want %d", len(labels), n)
	}
	for i, l := range labels {
		if l < 0 || l >= k {
			return fmt.Errorf("labels[%d]=%d outside [0, %d)", i, l, k)
		}
	}
	return nil
}

func centroidsOf(rows [][]float64, labels []int, k int) [][]float64 {
	d := len(rows[0])
	cents := make([][]float64, k)
	counts := make([]float64, k)
	for j := range cents {
		cents[j] = make([]float64, d)
	}
	for i, r := range rows {
		floats.Add(cents[labels[i]], r)
		counts[labels[i]]++
	}
	for j := range cents {
		floats.Scale(1/counts[j], cents[j])
	}
	return cents
}

// DaviesBouldin averages, over clusters, the worst ratio of summed
// within-cluster scatter to centroid separation. Lower is better.
func DaviesBouldin(x mat.Matrix, labels []int, k int) (float64, error) {
	rows := denseRows(x)
	if err := checkLabels(len(rows), labels, k); err != nil {
		return 0, err
	}
	if why := degenerate(rows, labels, k); why != "" {
		return math.NaN(), &errs.DegenerateMetricError{K: k, Metric: MetricDaviesBouldin, Reason: why}
	}
	cents := centroidsOf(rows, labels, k)
	scatter := make([]float64, k)
	counts := make([]float64, k)
	for i, r := range rows {
		scatter[labels[i]] += floats.Distance(r, cents[labels[i]], 2)
		counts[labels[i]]++
	}
	for j := range scatter {
		scatter[j] /= counts[j]
	}

	var sum float64
	for i := 0; i < k; i++ {
		worst := 0.0
		for j := 0; j < k; j++ {
			if i == j {
				continue
			}
			sep := floats.Distance(cents[i], cents[j], 2)
			if sep == 0 {
				return math.NaN(), &errs.DegenerateMetricError{
					K: k, Metric: MetricDaviesBouldin,
					Reason: fmt.Sprintf("clusters %d and %d share a centroid", i, j),
				}
			}
			if r := (scatter[i] + scatter[j]) / sep; r > worst {
				worst = r
			}
		}
		sum += worst
	}
	return sum / float64(k), nil
}

// Silhouette is the mean over points of (b-a)/max(a,b), where a is the mean
// distance to the point's own cluster and b the mean distance to the nearest
// other cluster. Higher is better.
func Silhouette(x mat.Matrix, labels []int, k int) (float64, error) {
	rows := denseRows(x)
	if err := checkLabels(len(rows), labels, k); err != nil {
		return 0, err
	}
	if why := degenerate(rows, labels, k); why != "" {
		return math.NaN(), &errs.DegenerateMetricError{K: k, Metric: MetricSilhouette, Reason: why}
	}
	sizes := make([]float64, k)
	for _, l := range labels {
		sizes[l]++
	}

	n := len(rows)
	dist := make([]float64, k)
	var total float64
	for i := 0; i < n; i++ {
		for j := range dist {
			dist[j] = 0
		}
		for o := 0; o < n; o++ {
			if o != i {
				dist[labels[o]] += floats.Distance(rows[i], rows[o], 2)
			}
		}
		own := labels[i]
		a := dist[own] / (sizes[own] - 1)
		b := math.Inf(1)
		for j := 0; j < k; j++ {
			if j != own {
				b = math.Min(b, dist[j]/sizes[j])
			}
		}
		if m := math.Max(a, b); m > 0 {
			total += (b - a) / m
		}
	}
	return total / float64(n), nil
}
