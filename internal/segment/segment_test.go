package segment

import (
	"bytes"
	"encoding/csv"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/KaramelBytes/retailseg/internal/cluster"
	"github.com/KaramelBytes/retailseg/internal/dataset/datasettest"
	"github.com/KaramelBytes/retailseg/internal/errs"
	"github.com/KaramelBytes/retailseg/internal/features"
)

func TestProjectLine(t *testing.T) {
	x := mat.NewDense(4, 2, []float64{0, 0, 1, 2, 2, 4, 3, 6})
	p, err := Project(x, 2)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if math.Abs(p.ExplainedVariance[0]-1) > 1e-9 || p.ExplainedVariance[1] > 1e-9 {
		t.Fatalf("explained = %v", p.ExplainedVariance)
	}
	if want := -7.5 / math.Sqrt(5); math.Abs(p.Coords.At(0, 0)-want) > 1e-9 {
		t.Fatalf("pc1[0] = %v, want %v", p.Coords.At(0, 0), want)
	}
	if p.Coords.At(3, 0) <= 0 {
		t.Fatalf("sign not fixed: %v", p.Coords.At(3, 0))
	}
	for i := 0; i < 4; i++ {
		if math.Abs(p.Coords.At(i, 1)) > 1e-9 {
			t.Fatalf("pc2[%d] = %v, want 0", i, p.Coords.At(i, 1))
		}
	}
}

func TestProjectPadsMissingComponents(t *testing.T) {
	x := mat.NewDense(3, 1, []float64{1, 2, 3})
	p, err := Project(x, 2)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	r, c := p.Coords.Dims()
	if r != 3 || c != 2 {
		t.Fatalf("dims = %dx%d", r, c)
	}
	for i := 0; i < 3; i++ {
		if p.Coords.At(i, 1) != 0 {
			t.Fatalf("padded column not zero")
		}
	}
}

func TestProjectTooFewRows(t *testing.T) {
	if _, err := Project(mat.NewDense(1, 2, []float64{1, 2}), 2); !errs.IsData(err) {
		t.Fatalf("err = %v", err)
	}
}

func TestReportReproducesSweepFit(t *testing.T) {
	ds := datasettest.Load(t, datasettest.Options{Customers: 25})
	built, err := features.Build(ds.Customers, ds.Transactions, features.BuildOptions{})
	if err != nil {
		t.Fatal(err)
	}
	x, _, err := features.Encode(built.Profiles, nil)
	if err != nil {
		t.Fatal(err)
	}
	sweep := cluster.SweepConfig{KMin: 2, KMax: 10, Seed: 42}
	sel, err := cluster.Select(x, sweep)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	res, err := Report(built.Profiles, x, sel.K, sweep, 2)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if len(res.Assignments) != 25 || len(res.Points) != 25 {
		t.Fatalf("rows = %d/%d", len(res.Assignments), len(res.Points))
	}
	again, err := cluster.Fit(x, sweep.KMeans(sel.K))
	if err != nil {
		t.Fatal(err)
	}
	for i, a := range res.Assignments {
		if a.CustomerID != built.Profiles[i].CustomerID {
			t.Fatalf("row %d out of profile order", i)
		}
		if a.Label < 0 || a.Label >= sel.K || a.Label != again.Labels[i] {
			t.Fatalf("row %d label %d", i, a.Label)
		}
	}
	sum := 0
	for _, s := range res.Sizes {
		sum += s
	}
	if sum != 25 || len(res.Sizes) != sel.K {
		t.Fatalf("sizes = %v", res.Sizes)
	}

	b, err := AssignmentsCSV(res.Assignments)
	if err != nil {
		t.Fatalf("AssignmentsCSV: %v", err)
	}
	recs := readCSV(t, b)
	if len(recs) != 26 || recs[0][0] != "customer_id" || recs[0][1] != "cluster_label" {
		t.Fatalf("unexpected csv head %v, %d rows", recs[0], len(recs))
	}
	b, err = ProjectionCSV(res.Points)
	if err != nil {
		t.Fatalf("ProjectionCSV: %v", err)
	}
	if recs := readCSV(t, b); len(recs) != 26 || len(recs[1]) != 4 {
		t.Fatalf("projection csv shape wrong")
	}
}

func TestReportRowMismatch(t *testing.T) {
	x := mat.NewDense(3, 1, []float64{1, 2, 3})
	if _, err := Report(make([]features.Profile, 2), x, 2, cluster.SweepConfig{Seed: 1}, 2); err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func readCSV(t *testing.T, b []byte) [][]string {
	t.Helper()
	recs, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return recs
}
