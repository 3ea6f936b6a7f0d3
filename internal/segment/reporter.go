// Package segment turns the selected cluster count into the final customer
// labelling and a 2-D view of the encoded profiles.
package segment

import (
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/KaramelBytes/retailseg/internal/cluster"
	"github.com/KaramelBytes/retailseg/internal/features"
	"github.com/KaramelBytes/retailseg/internal/utils"
)

// Assignment is one output row.
type Assignment struct {
	CustomerID string
	Label      int
}

// Point is a customer placed on the projection.
type Point struct {
	CustomerID string
	PC1, PC2   float64
	Label      int
}

// Result is the final segmentation.
type Result struct {
	K                 int
	Model             *cluster.Model
	Assignments       []Assignment // profile order
	Points            []Point
	ExplainedVariance []float64
	Sizes             []int
}

// Report refits k-means with k and the sweep's seed, then projects x for
// plotting. The projection has no influence on the labels.
func Report(profiles []features.Profile, x *mat.Dense, k int, sweep cluster.SweepConfig, components int) (*Result, error) {
	n, _ := x.Dims()
	if n != len(profiles) {
		return nil, fmt.Errorf("report: %d profiles but %d matrix rows", len(profiles), n)
	}
	model, err := cluster.Fit(x, sweep.KMeans(k))
	if err != nil {
		return nil, fmt.Errorf("refit k=%d: %w", k, err)
	}
	proj, err := Project(x, components)
	if err != nil {
		return nil, err
	}

	res := &Result{
		K:                 k,
		Model:             model,
		Assignments:       make([]Assignment, n),
		Points:            make([]Point, n),
		ExplainedVariance: proj.ExplainedVariance,
		Sizes:             model.Sizes(),
	}
	_, pcs := proj.Coords.Dims()
	for i, p := range profiles {
		label := model.Labels[i]
		res.Assignments[i] = Assignment{CustomerID: p.CustomerID, Label: label}
		pt := Point{CustomerID: p.CustomerID, Label: label, PC1: proj.Coords.At(i, 0)}
		if pcs > 1 {
			pt.PC2 = proj.Coords.At(i, 1)
		}
		res.Points[i] = pt
	}
	return res, nil
}

// AssignmentsCSV encodes customer_id,cluster_label rows.
func AssignmentsCSV(as []Assignment) ([]byte, error) {
	rows := make([][]string, len(as))
	for i, a := range as {
		rows[i] = []string{a.CustomerID, strconv.Itoa(a.Label)}
	}
	return utils.EncodeCSV([]string{"customer_id", "cluster_label"}, rows)
}

// ProjectionCSV encodes customer_id,pc1,pc2,cluster_label rows.
func ProjectionCSV(pts []Point) ([]byte, error) {
	rows := make([][]string, len(pts))
	for i, p := range pts {
		rows[i] = []string{
			p.CustomerID,
			strconv.FormatFloat(p.PC1, 'f', 6, 64),
			strconv.FormatFloat(p.PC2, 'f', 6, 64),
			strconv.Itoa(p.Label),
		}
	}
	return utils.EncodeCSV([]string{"customer_id", "pc1", "pc2", "cluster_label"}, rows)
}
