package pipeline

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/KaramelBytes/retailseg/internal/config"
	"github.com/KaramelBytes/retailseg/internal/dataset/datasettest"
	"github.com/KaramelBytes/retailseg/internal/errs"
	"github.com/KaramelBytes/retailseg/internal/report"
)

func defaults() *config.Global {
	c := config.Default()
	return &c
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	recs, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return recs
}

func assertMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("%s should not exist (stat err = %v)", path, err)
	}
}

func TestRunSegmentTwentyFiveCustomers(t *testing.T) {
	dir := t.TempDir()
	paths := datasettest.Write(t, dir, datasettest.Options{Customers: 25})
	out := filepath.Join(dir, "out", DefaultClustersFile)
	opt := SegmentOptions{
		Paths:         paths,
		Output:        out,
		ProjectionOut: filepath.Join(dir, "out", "projection.csv"),
		ReportOut:     filepath.Join(dir, "out", "summary.json"),
		ChartsDir:     filepath.Join(dir, "out", "charts"),
	}
	seg, err := RunSegment(opt, defaults())
	if err != nil {
		t.Fatalf("RunSegment: %v", err)
	}
	k := seg.Result.K
	if k < 2 || k > 10 {
		t.Fatalf("k = %d", k)
	}

	rows := readRows(t, out)
	if len(rows) != 26 || strings.Join(rows[0], ",") != "customer_id,cluster_label" {
		t.Fatalf("unexpected table: header %v, %d rows", rows[0], len(rows))
	}
	for i, r := range rows[1:] {
		label, err := strconv.Atoi(r[1])
		if err != nil || label < 0 || label >= k {
			t.Fatalf("row %d label %q outside [0,%d)", i+1, r[1], k)
		}
		if want := seg.Profiles[i].CustomerID; r[0] != want {
			t.Fatalf("row %d id %s, want %s", i+1, r[0], want)
		}
	}

	sum, err := report.Load(opt.ReportOut)
	if err != nil {
		t.Fatalf("load summary: %v", err)
	}
	if sum.SelectedK != k || len(sum.Scores) != 9 || sum.Profiles != 25 {
		t.Fatalf("summary = %+v", sum)
	}
	if len(sum.Outputs) != 3 || len(seg.Written) != 4 {
		t.Fatalf("outputs = %v, written = %v", sum.Outputs, seg.Written)
	}
	if _, err := os.Stat(filepath.Join(opt.ChartsDir, "clusters.html")); err != nil {
		t.Fatalf("chart missing: %v", err)
	}
}

func TestRunSegmentDeterministic(t *testing.T) {
	dir := t.TempDir()
	paths := datasettest.Write(t, dir, datasettest.Options{Customers: 30, PerCustomer: 4})
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	if _, err := RunSegment(SegmentOptions{Paths: paths, Output: a}, defaults()); err != nil {
		t.Fatal(err)
	}
	if _, err := RunSegment(SegmentOptions{Paths: paths, Output: b}, defaults()); err != nil {
		t.Fatal(err)
	}
	ab, _ := os.ReadFile(a)
	bb, _ := os.ReadFile(b)
	if !bytes.Equal(ab, bb) {
		t.Fatalf("runs with the same seed differ")
	}
}

func TestRunSegmentIdenticalProfiles(t *testing.T) {
	dir := t.TempDir()
	paths := datasettest.Write(t, dir, datasettest.Options{Customers: 25, Identical: true})
	out := filepath.Join(dir, DefaultClustersFile)
	_, err := RunSegment(SegmentOptions{Paths: paths, Output: out}, defaults())
	if !errs.IsData(err) {
		t.Fatalf("err = %v, want DataError", err)
	}
	assertMissing(t, out)
}

func TestRunSegmentUnmatchedTransactions(t *testing.T) {
	dir := t.TempDir()
	paths := datasettest.Write(t, dir, datasettest.Options{Customers: 12, OrphanCustomer: "C9999"})
	out := filepath.Join(dir, DefaultClustersFile)

	_, err := RunSegment(SegmentOptions{Paths: paths, Output: out}, defaults())
	if !errs.IsData(err) {
		t.Fatalf("reject: err = %v", err)
	}
	assertMissing(t, out)

	cfg := defaults()
	cfg.Features.Unmatched = "drop"
	seg, err := RunSegment(SegmentOptions{Paths: paths, Output: out}, cfg)
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	if seg.Dropped != 1 || len(seg.Profiles) != 12 {
		t.Fatalf("dropped=%d profiles=%d", seg.Dropped, len(seg.Profiles))
	}
}

func TestRunSegmentConfigErrors(t *testing.T) {
	dir := t.TempDir()
	paths := datasettest.Write(t, dir, datasettest.Options{Customers: 8})
	out := filepath.Join(dir, DefaultClustersFile)

	tests := []struct {
		name string
		mod  func(*config.Global)
		key  string
	}{
		{"k_max not below customers", func(c *config.Global) {}, "k_max"},
		{"k_min below 2", func(c *config.Global) { c.KMin = 1; c.KMax = 4 }, "k_min"},
		{"k_max below k_min", func(c *config.Global) { c.KMin = 5; c.KMax = 3 }, "k_max"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mod(cfg)
			_, err := RunSegment(SegmentOptions{Paths: paths, Output: out}, cfg)
			var ce *errs.ConfigError
			if !errors.As(err, &ce) || ce.Key != tt.key {
				t.Fatalf("err = %v, want ConfigError on %s", err, tt.key)
			}
			assertMissing(t, out)
		})
	}
}

func TestRunLookalike(t *testing.T) {
	dir := t.TempDir()
	paths := datasettest.Write(t, dir, datasettest.Options{Customers: 25})
	out := filepath.Join(dir, DefaultLookalikeFile)
	recs, err := RunLookalike(LookalikeOptions{Paths: paths, Output: out}, defaults())
	if err != nil {
		t.Fatalf("RunLookalike: %v", err)
	}
	if len(recs) != 20 {
		t.Fatalf("recs = %d", len(recs))
	}
	rows := readRows(t, out)
	if len(rows) != 21 || rows[0][0] != "cust_id" || rows[1][0] != "C0001" {
		t.Fatalf("unexpected lookalike table: %v", rows[:2])
	}
	if n := strings.Count(rows[1][1], "|"); n != 2 {
		t.Fatalf("expected 3 matches, got %q", rows[1][1])
	}
}

func TestRunEDA(t *testing.T) {
	dir := t.TempDir()
	paths := datasettest.Write(t, dir, datasettest.Options{Customers: 10})
	md := filepath.Join(dir, "eda.md")
	rep, written, err := RunEDA(EDAOptions{Paths: paths, Output: md, ChartsDir: filepath.Join(dir, "charts")}, defaults())
	if err != nil {
		t.Fatalf("RunEDA: %v", err)
	}
	if rep.Joined != 30 || len(written) != 2 {
		t.Fatalf("joined=%d written=%v", rep.Joined, written)
	}
	b, err := os.ReadFile(md)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(b), "[DATASET SUMMARY]") {
		t.Fatalf("markdown = %q", b[:40])
	}
}

func TestRunSegmentFailedWriteLeavesNoAssignments(t *testing.T) {
	dir := t.TempDir()
	paths := datasettest.Write(t, dir, datasettest.Options{Customers: 25})
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("not a directory"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out", DefaultClustersFile)
	opt := SegmentOptions{Paths: paths, Output: out, ChartsDir: blocker}
	if _, err := RunSegment(opt, defaults()); err == nil {
		t.Fatalf("expected chart write to fail")
	}
	assertMissing(t, out)
	assertMissing(t, out+".tmp")
}

func TestRunLookalikeRejectsUnknownCustomer(t *testing.T) {
	dir := t.TempDir()
	paths := datasettest.Write(t, dir, datasettest.Options{Customers: 25, OrphanCustomer: "C9999"})
	out := filepath.Join(dir, DefaultLookalikeFile)
	if _, err := RunLookalike(LookalikeOptions{Paths: paths, Output: out}, defaults()); !errs.IsData(err) {
		t.Fatalf("err = %v, want DataError", err)
	}
	assertMissing(t, out)

	cfg := defaults()
	cfg.Features.Unmatched = "drop"
	if _, err := RunLookalike(LookalikeOptions{Paths: paths, Output: out}, cfg); err != nil {
		t.Fatalf("drop: %v", err)
	}
}

func TestRunAll(t *testing.T) {
	dir := t.TempDir()
	paths := datasettest.Write(t, dir, datasettest.Options{Customers: 25})
	outDir := filepath.Join(dir, "results")
	res, err := RunAll(RunOptions{Paths: paths, OutDir: outDir, Charts: true}, defaults())
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if len(res.Written) != 6 {
		t.Fatalf("written = %v", res.Written)
	}
	for _, p := range res.Written {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("%s missing: %v", p, err)
		}
	}
	sum, err := report.Load(filepath.Join(outDir, SummaryFile))
	if err != nil {
		t.Fatalf("load summary: %v", err)
	}
	if len(sum.Outputs) != 5 || sum.Outputs[0] != filepath.Join(outDir, EDAFile) {
		t.Fatalf("summary outputs = %v", sum.Outputs)
	}
}

func TestRunAllFailureWritesNothing(t *testing.T) {
	tests := []struct {
		name string
		opt  datasettest.Options
	}{
		{"unknown customer", datasettest.Options{Customers: 25, OrphanCustomer: "C9999"}},
		{"identical profiles", datasettest.Options{Customers: 25, Identical: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			paths := datasettest.Write(t, dir, tt.opt)
			outDir := filepath.Join(dir, "results")
			_, err := RunAll(RunOptions{Paths: paths, OutDir: outDir, Charts: true}, defaults())
			if !errs.IsData(err) {
				t.Fatalf("err = %v, want DataError", err)
			}
			assertMissing(t, outDir)
		})
	}
}
