package cluster

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/KaramelBytes/retailseg/internal/errs"
)

func blobs() *mat.Dense {
	centers := [][2]float64{{0, 0}, {10, 0}, {0, 10}}
	offsets := [][2]float64{{0, 0}, {0.1, 0}, {-0.1, 0}, {0, 0.1}, {0, -0.1}}
	x := mat.NewDense(len(centers)*len(offsets), 2, nil)
	i := 0
	for _, c := range centers {
		for _, o := range offsets {
			x.Set(i, 0, c[0]+o[0])
			x.Set(i, 1, c[1]+o[1])
			i++
		}
	}
	return x
}

func line(vals ...float64) *mat.Dense { return mat.NewDense(len(vals), 1, vals) }

func TestDaviesBouldinKnownValue(t *testing.T) {
	got, err := DaviesBouldin(line(0, 2, 10, 12), []int{0, 0, 1, 1}, 2)
	if err != nil {
		t.Fatalf("DaviesBouldin: %v", err)
	}
	if math.Abs(got-0.2) > 1e-12 {
		t.Fatalf("db = %v, want 0.2", got)
	}
}

func TestSilhouetteKnownValue(t *testing.T) {
	got, err := Silhouette(line(0, 2, 10, 12), []int{0, 0, 1, 1}, 2)
	if err != nil {
		t.Fatalf("Silhouette: %v", err)
	}
	if want := 158.0 / 198.0; math.Abs(got-want) > 1e-12 {
		t.Fatalf("silhouette = %v, want %v", got, want)
	}
}

func TestMetricsDegenerate(t *testing.T) {
	tests := []struct {
		name   string
		x      *mat.Dense
		labels []int
		k      int
	}{
		{"singleton cluster", line(0, 1, 2, 9), []int{0, 0, 0, 1}, 2},
		{"empty cluster", line(0, 1, 2, 3), []int{0, 0, 0, 0}, 2},
		{"identical points", line(4, 4, 4, 4), []int{0, 0, 1, 1}, 2},
		{"k equals n", line(0, 1, 2), []int{0, 1, 2}, 3},
		{"single cluster", line(0, 1, 2), []int{0, 0, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DaviesBouldin(tt.x, tt.labels, tt.k); !errs.IsDegenerate(err) {
				t.Fatalf("DaviesBouldin err = %v", err)
			}
			if _, err := Silhouette(tt.x, tt.labels, tt.k); !errs.IsDegenerate(err) {
				t.Fatalf("Silhouette err = %v", err)
			}
		})
	}
}

func TestDaviesBouldinSharedCentroid(t *testing.T) {
	// Both clusters are centred on 0.
	x := line(-1, 1, -2, 2)
	if _, err := DaviesBouldin(x, []int{0, 0, 1, 1}, 2); !errs.IsDegenerate(err) {
		t.Fatalf("err = %v, want degenerate", err)
	}
}

func TestMetricsRejectBadLabels(t *testing.T) {
	if _, err := DaviesBouldin(line(0, 1, 2, 3), []int{0, 1, 2, 0}, 2); err == nil || errs.IsDegenerate(err) {
		t.Fatalf("out of range label: err = %v", err)
	}
	if _, err := Silhouette(line(0, 1, 2, 3), []int{0, 1}, 2); err == nil {
		t.Fatalf("short labels accepted")
	}
}

func TestFitRecoversBlobs(t *testing.T) {
	m, err := Fit(blobs(), DefaultKMeansConfig(3, 42))
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	for b := 0; b < 3; b++ {
		want := m.Labels[b*5]
		for i := b * 5; i < b*5+5; i++ {
			if m.Labels[i] != want {
				t.Fatalf("blob %d split: %v", b, m.Labels)
			}
		}
	}
	for _, s := range m.Sizes() {
		if s != 5 {
			t.Fatalf("sizes = %v", m.Sizes())
		}
	}
	if m.Iterations < 1 || m.Inertia <= 0 || m.Inertia > 1 {
		t.Fatalf("iterations=%d inertia=%v", m.Iterations, m.Inertia)
	}
}

func TestFitDeterministic(t *testing.T) {
	cfg := DefaultKMeansConfig(4, 7)
	a, err := Fit(blobs(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Fit(blobs(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if a.Inertia != b.Inertia || !mat.Equal(a.Centroids, b.Centroids) {
		t.Fatalf("fits differ: %v vs %v", a.Inertia, b.Inertia)
	}
	for i := range a.Labels {
		if a.Labels[i] != b.Labels[i] {
			t.Fatalf("labels differ at %d", i)
		}
	}
}

func TestFitIdenticalPoints(t *testing.T) {
	m, err := Fit(line(3, 3, 3, 3, 3), DefaultKMeansConfig(2, 1))
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if m.Inertia != 0 {
		t.Fatalf("inertia = %v", m.Inertia)
	}
	for _, l := range m.Labels {
		if l != 0 {
			t.Fatalf("labels = %v, want all 0", m.Labels)
		}
	}
}

func TestFitRejectsBadK(t *testing.T) {
	if _, err := Fit(line(1, 2), DefaultKMeansConfig(3, 1)); !errs.IsConfig(err) {
		t.Fatalf("err = %v", err)
	}
}

func TestSelectPicksBlobCount(t *testing.T) {
	sel, err := Select(blobs(), SweepConfig{KMin: 2, KMax: 6, Seed: 42})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.K != 3 {
		t.Fatalf("k = %d, scores = %+v", sel.K, sel.Scores)
	}
	if len(sel.Scores) != 5 || sel.Scores[0].K != 2 || sel.Scores[4].K != 6 {
		t.Fatalf("scores not in sweep order: %+v", sel.Scores)
	}
	k, best, _ := chooseK(sel.Scores)
	if k != sel.K || best != sel.MinDaviesBouldin {
		t.Fatalf("selection inconsistent with scores")
	}
	for _, s := range sel.Scores {
		if !s.Degenerate && (s.Silhouette < -1 || s.Silhouette > 1) {
			t.Fatalf("silhouette out of range: %+v", s)
		}
	}
}

func TestChooseKTiesAndDegenerate(t *testing.T) {
	scores := []Score{
		{K: 2, DaviesBouldin: 0.5},
		{K: 3, DaviesBouldin: 0.5},
		{K: 4, DaviesBouldin: math.NaN(), Degenerate: true},
		{K: 5, DaviesBouldin: 0.7},
	}
	if k, best, ok := chooseK(scores); !ok || k != 2 || best != 0.5 {
		t.Fatalf("chooseK = %d %v %v", k, best, ok)
	}
	if _, _, ok := chooseK([]Score{{K: 2, Degenerate: true, DaviesBouldin: math.NaN()}}); ok {
		t.Fatalf("all degenerate should not select")
	}
}

func TestSelectConfigErrors(t *testing.T) {
	x := blobs()
	tests := []struct {
		name string
		cfg  SweepConfig
		key  string
	}{
		{"k_min below 2", SweepConfig{KMin: 1, KMax: 4}, "k_min"},
		{"k_max below k_min", SweepConfig{KMin: 5, KMax: 4}, "k_max"},
		{"k_max not below n", SweepConfig{KMin: 2, KMax: 15}, "k_max"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Select(x, tt.cfg)
			ce, ok := err.(*errs.ConfigError)
			if !ok || ce.Key != tt.key {
				t.Fatalf("err = %v, want ConfigError on %s", err, tt.key)
			}
		})
	}
}

func TestSelectAllDegenerate(t *testing.T) {
	_, err := Select(line(1, 1, 1, 1, 1, 1), SweepConfig{KMin: 2, KMax: 4, Seed: 42})
	if !errs.IsData(err) {
		t.Fatalf("err = %v, want DataError", err)
	}
}
