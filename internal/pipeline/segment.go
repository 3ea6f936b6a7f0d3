// Package pipeline wires the loader, feature, clustering and reporting stages
// into the runs exposed by the CLI. Every run computes and encodes all of its
// outputs before it writes any file.
package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/retailseg/internal/charts"
	"github.com/KaramelBytes/retailseg/internal/cluster"
	"github.com/KaramelBytes/retailseg/internal/config"
	"github.com/KaramelBytes/retailseg/internal/dataset"
	"github.com/KaramelBytes/retailseg/internal/features"
	"github.com/KaramelBytes/retailseg/internal/logging"
	"github.com/KaramelBytes/retailseg/internal/report"
	"github.com/KaramelBytes/retailseg/internal/segment"
	"github.com/KaramelBytes/retailseg/internal/utils"
)

// DefaultClustersFile is the assignment table written by segment and run.
const DefaultClustersFile = "Customer_Clusters.csv"

// SegmentOptions locates inputs and outputs of a segmentation run. Empty
// optional paths skip that output.
type SegmentOptions struct {
	Paths         dataset.Paths
	Output        string // customer_id,cluster_label table
	ProjectionOut string
	ReportOut     string
	ChartsDir     string
}

// Segmentation is the in-memory result of a run.
type Segmentation struct {
	Profiles  []features.Profile
	Columns   []string
	Dropped   int
	Selection *cluster.Selection
	Result    *segment.Result
	Summary   *report.Summary
	Written   []string
}

// Sweep builds the clustering sweep config from cfg.
func Sweep(cfg *config.Global) cluster.SweepConfig {
	return cluster.SweepConfig{
		KMin:      cfg.KMin,
		KMax:      cfg.KMax,
		Seed:      cfg.Seed,
		NInit:     cfg.NInit,
		MaxIter:   cfg.MaxIter,
		Tolerance: cfg.Tolerance,
	}
}

// Segment computes the segmentation of ds without touching the filesystem.
func Segment(ds *dataset.Dataset, cfg *config.Global) (*Segmentation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logging.With("pipeline")

	built, err := features.Build(ds.Customers, ds.Transactions, features.BuildOptions{
		Unmatched: features.UnmatchedPolicy(cfg.Features.Unmatched),
	})
	if err != nil {
		return nil, err
	}
	sweep := Sweep(cfg)
	if err := sweep.Validate(len(built.Profiles)); err != nil {
		return nil, err
	}
	x, enc, err := features.Encode(built.Profiles, cfg.Features.Numeric)
	if err != nil {
		return nil, err
	}
	log.Info().Int("profiles", len(built.Profiles)).Strs("columns", enc.Columns()).Msg("feature matrix ready")

	sel, err := cluster.Select(x, sweep)
	if err != nil {
		return nil, err
	}
	res, err := segment.Report(built.Profiles, x, sel.K, sweep, cfg.NComponents)
	if err != nil {
		return nil, err
	}
	return &Segmentation{
		Profiles:  built.Profiles,
		Columns:   enc.Columns(),
		Dropped:   built.Dropped,
		Selection: sel,
		Result:    res,
	}, nil
}

// RunSegment loads the tables, segments them and writes the requested
// outputs. The summary lists every other output. Files are committed together
// only after every output has been encoded.
func RunSegment(opt SegmentOptions, cfg *config.Global) (*Segmentation, error) {
	if opt.Output == "" {
		opt.Output = DefaultClustersFile
	}
	ds, err := dataset.Load(opt.Paths)
	if err != nil {
		return nil, err
	}
	seg, err := Segment(ds, cfg)
	if err != nil {
		return nil, err
	}
	var out utils.Staged
	if err := seg.stage(&out, opt, cfg); err != nil {
		return nil, err
	}
	if err := out.Commit(); err != nil {
		return nil, err
	}
	seg.Written = out.Paths()
	log := logging.With("pipeline")
	log.Info().Int("k", seg.Result.K).Strs("outputs", seg.Written).Msg("segmentation written")
	return seg, nil
}

// stage encodes the segmentation outputs into out. The summary is built from
// the paths already staged, so outputs staged earlier are listed in it.
func (seg *Segmentation) stage(out *utils.Staged, opt SegmentOptions, cfg *config.Global) error {
	b, err := segment.AssignmentsCSV(seg.Result.Assignments)
	if err != nil {
		return fmt.Errorf("encode assignments: %w", err)
	}
	out.Add(opt.Output, b)
	if opt.ProjectionOut != "" {
		b, err := segment.ProjectionCSV(seg.Result.Points)
		if err != nil {
			return fmt.Errorf("encode projection: %w", err)
		}
		out.Add(opt.ProjectionOut, b)
	}
	if opt.ChartsDir != "" {
		b, err := charts.RenderClusters(seg.Result.Points, seg.Result.K)
		if err != nil {
			return fmt.Errorf("render cluster chart: %w", err)
		}
		out.Add(filepath.Join(opt.ChartsDir, charts.ClustersFile), b)
	}

	seg.Summary = summarize(opt, cfg, seg, out.Paths())
	if opt.ReportOut != "" {
		b, err := seg.Summary.Encode()
		if err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
		out.Add(opt.ReportOut, b)
	}
	return nil
}

func summarize(opt SegmentOptions, cfg *config.Global, seg *Segmentation, outputs []string) *report.Summary {
	s := report.New(
		report.Inputs{Customers: opt.Paths.Customers, Products: opt.Paths.Products, Transactions: opt.Paths.Transactions},
		report.Settings{
			Seed:      cfg.Seed,
			KMin:      cfg.KMin,
			KMax:      cfg.KMax,
			NInit:     cfg.NInit,
			MaxIter:   cfg.MaxIter,
			Tolerance: cfg.Tolerance,
			Numeric:   cfg.Features.Numeric,
			Unmatched: cfg.Features.Unmatched,
		},
	)
	s.Profiles = len(seg.Profiles)
	s.Dropped = seg.Dropped
	s.Columns = seg.Columns
	s.SetSelection(seg.Selection)
	s.Sizes = seg.Result.Sizes
	s.ExplainedVariance = seg.Result.ExplainedVariance
	s.Outputs = outputs
	return s
}
