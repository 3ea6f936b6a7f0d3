package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/retailseg/internal/analysis"
	"github.com/KaramelBytes/retailseg/internal/config"
	"github.com/KaramelBytes/retailseg/internal/dataset"
	"github.com/KaramelBytes/retailseg/internal/logging"
	"github.com/KaramelBytes/retailseg/internal/lookalike"
	"github.com/KaramelBytes/retailseg/internal/utils"
)

// Files written by RunAll under the output directory.
const (
	EDAFile     = "EDA.md"
	SummaryFile = "segmentation.json"
	ChartsDir   = "charts"
)

// RunOptions configures an end-to-end run.
type RunOptions struct {
	Paths  dataset.Paths
	OutDir string
	Charts bool
}

// RunResult is everything an end-to-end run produced.
type RunResult struct {
	Report          *analysis.Report
	Recommendations []lookalike.Recommendation
	Segmentation    *Segmentation
	Written         []string
}

// RunAll loads the tables once and computes the exploratory report, the
// lookalike table and the segmentation. Any failure aborts the run before a
// single file is written.
func RunAll(opt RunOptions, cfg *config.Global) (*RunResult, error) {
	ds, err := dataset.Load(opt.Paths)
	if err != nil {
		return nil, err
	}
	// Segmentation runs first: it validates the config and enforces the
	// referential-integrity policy for the whole run.
	seg, err := Segment(ds, cfg)
	if err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}
	rep, err := EDA(ds, cfg)
	if err != nil {
		return nil, fmt.Errorf("eda: %w", err)
	}
	recs, err := Lookalike(ds, cfg)
	if err != nil {
		return nil, fmt.Errorf("lookalike: %w", err)
	}

	join := func(name string) string { return filepath.Join(opt.OutDir, name) }
	chartsDir := ""
	if opt.Charts {
		chartsDir = join(ChartsDir)
	}
	var out utils.Staged
	if err := stageEDA(&out, EDAOptions{Output: join(EDAFile), ChartsDir: chartsDir}, rep); err != nil {
		return nil, err
	}
	if err := stageLookalike(&out, join(DefaultLookalikeFile), recs); err != nil {
		return nil, err
	}
	segOpt := SegmentOptions{
		Paths:     opt.Paths,
		Output:    join(DefaultClustersFile),
		ReportOut: join(SummaryFile),
		ChartsDir: chartsDir,
	}
	if err := seg.stage(&out, segOpt, cfg); err != nil {
		return nil, err
	}
	if err := out.Commit(); err != nil {
		return nil, err
	}
	seg.Written = out.Paths()

	log := logging.With("pipeline")
	log.Info().Int("k", seg.Result.K).Int("targets", len(recs)).Strs("outputs", seg.Written).Msg("run complete")
	return &RunResult{Report: rep, Recommendations: recs, Segmentation: seg, Written: seg.Written}, nil
}
