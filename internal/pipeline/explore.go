package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/retailseg/internal/analysis"
	"github.com/KaramelBytes/retailseg/internal/charts"
	"github.com/KaramelBytes/retailseg/internal/config"
	"github.com/KaramelBytes/retailseg/internal/dataset"
	"github.com/KaramelBytes/retailseg/internal/features"
	"github.com/KaramelBytes/retailseg/internal/logging"
	"github.com/KaramelBytes/retailseg/internal/lookalike"
	"github.com/KaramelBytes/retailseg/internal/utils"
)

// DefaultLookalikeFile is the recommendation table written by lookalike and run.
const DefaultLookalikeFile = "Lookalike.csv"

// EDAOptions locates the outputs of an exploratory run. Empty paths skip
// that output.
type EDAOptions struct {
	Paths     dataset.Paths
	Output    string // markdown report
	ChartsDir string
}

// EDA builds the exploratory report. Unjoined transactions are reported as
// a data-quality finding rather than rejected.
func EDA(ds *dataset.Dataset, cfg *config.Global) (*analysis.Report, error) {
	return analysis.AnalyzeRetail(ds, analysis.Options{TopProducts: cfg.EDA.TopProducts})
}

func stageEDA(out *utils.Staged, opt EDAOptions, rep *analysis.Report) error {
	if opt.Output != "" {
		out.Add(opt.Output, []byte(rep.Markdown()))
	}
	if opt.ChartsDir != "" {
		b, err := charts.RenderEDA(rep)
		if err != nil {
			return fmt.Errorf("render eda charts: %w", err)
		}
		out.Add(filepath.Join(opt.ChartsDir, charts.EDAFile), b)
	}
	return nil
}

// RunEDA builds the exploratory report and writes the markdown and charts.
func RunEDA(opt EDAOptions, cfg *config.Global) (*analysis.Report, []string, error) {
	ds, err := dataset.Load(opt.Paths)
	if err != nil {
		return nil, nil, err
	}
	rep, err := EDA(ds, cfg)
	if err != nil {
		return nil, nil, err
	}
	var out utils.Staged
	if err := stageEDA(&out, opt, rep); err != nil {
		return nil, nil, err
	}
	if err := out.Commit(); err != nil {
		return nil, nil, err
	}
	written := out.Paths()
	log := logging.With("pipeline")
	log.Info().Int("transactions", rep.Joined).Strs("outputs", written).Msg("eda complete")
	return rep, written, nil
}

// LookalikeOptions locates inputs and the output table.
type LookalikeOptions struct {
	Paths  dataset.Paths
	Output string
}

// Lookalike recommends similar customers. Transactions with an unknown
// customer follow features.unmatched.
func Lookalike(ds *dataset.Dataset, cfg *config.Global) ([]lookalike.Recommendation, error) {
	ps, err := lookalike.BuildProfiles(ds, features.UnmatchedPolicy(cfg.Features.Unmatched))
	if err != nil {
		return nil, err
	}
	return lookalike.Recommend(ps, lookalike.Options{Targets: cfg.Lookalike.Targets, Top: cfg.Lookalike.Top})
}

func stageLookalike(out *utils.Staged, path string, recs []lookalike.Recommendation) error {
	b, err := lookalike.EncodeCSV(recs)
	if err != nil {
		return fmt.Errorf("encode lookalikes: %w", err)
	}
	out.Add(path, b)
	return nil
}

// RunLookalike recommends similar customers and writes the table.
func RunLookalike(opt LookalikeOptions, cfg *config.Global) ([]lookalike.Recommendation, error) {
	if opt.Output == "" {
		opt.Output = DefaultLookalikeFile
	}
	ds, err := dataset.Load(opt.Paths)
	if err != nil {
		return nil, err
	}
	recs, err := Lookalike(ds, cfg)
	if err != nil {
		return nil, err
	}
	var out utils.Staged
	if err := stageLookalike(&out, opt.Output, recs); err != nil {
		return nil, err
	}
	if err := out.Commit(); err != nil {
		return nil, err
	}
	log := logging.With("pipeline")
	log.Info().Int("targets", len(recs)).Str("output", opt.Output).Msg("lookalikes written")
	return recs, nil
}
