package cluster

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/KaramelBytes/retailseg/internal/errs"
	"github.com/KaramelBytes/retailseg/internal/logging"
)

// SweepConfig bounds the candidate cluster counts and fixes the k-means
// tunables shared by every candidate.
type SweepConfig struct {
	KMin      int
	KMax      int
	Seed      int64
	NInit     int
	MaxIter   int
	Tolerance float64
}

// KMeans returns the fit config for candidate k.
func (c SweepConfig) KMeans(k int) KMeansConfig {
	return KMeansConfig{K: k, Seed: c.Seed, NInit: c.NInit, MaxIter: c.MaxIter, Tolerance: c.Tolerance}
}

// Validate checks the range against n rows before any fit.
func (c SweepConfig) Validate(n int) error {
	switch {
	case c.KMin < 2:
		return errs.Configf("k_min", "must be at least 2, got %d", c.KMin)
	case c.KMax < c.KMin:
		return errs.Configf("k_max", "must be >= k_min (%d), got %d", c.KMin, c.KMax)
	case c.KMax >= n:
		return errs.Configf("k_max", "must be below the number of customers (%d), got %d", n, c.KMax)
	}
	return nil
}

// Score is the validity pair of one candidate. Degenerate candidates carry
// NaN metrics and the reason they were excluded.
type Score struct {
	K             int
	DaviesBouldin float64
	Silhouette    float64
	Inertia       float64
	Degenerate    bool
	Reason        string
}

// Selection is the sweep outcome.
type Selection struct {
	K                int
	MinDaviesBouldin float64
	Scores           []Score // ascending k, degenerate candidates included
}

// Select fits every k in [KMin, KMax] in order, scores it, and returns the k
// with the lowest Davies–Bouldin index. Silhouette is reported only. Ties go
// to the smaller k.
func Select(x mat.Matrix, cfg SweepConfig) (*Selection, error) {
	n, _ := x.Dims()
	if err := cfg.Validate(n); err != nil {
		return nil, err
	}
	log := logging.With("selector")
	sel := &Selection{}
	for k := cfg.KMin; k <= cfg.KMax; k++ {
		m, err := Fit(x, cfg.KMeans(k))
		if err != nil {
			return nil, err
		}
		sc, err := scoreCandidate(x, m)
		if err != nil {
			return nil, err
		}
		if sc.Degenerate {
			log.Warn().Int("k", k).Str("reason", sc.Reason).Msg("candidate excluded")
		} else {
			log.Debug().Int("k", k).Float64("davies_bouldin", sc.DaviesBouldin).
				Float64("silhouette", sc.Silhouette).Float64("inertia", sc.Inertia).Msg("candidate scored")
		}
		sel.Scores = append(sel.Scores, sc)
	}

	k, best, ok := chooseK(sel.Scores)
	if !ok {
		return nil, errs.Dataf("matrix", "every candidate k in [%d, %d] is degenerate", cfg.KMin, cfg.KMax)
	}
	sel.K, sel.MinDaviesBouldin = k, best
	log.Info().Int("k", k).Float64("davies_bouldin", best).Msg("cluster count selected")
	return sel, nil
}

func scoreCandidate(x mat.Matrix, m *Model) (Score, error) {
	sc := Score{K: m.K, Inertia: m.Inertia, DaviesBouldin: math.NaN(), Silhouette: math.NaN()}
	var dm *errs.DegenerateMetricError

	db, err := DaviesBouldin(x, m.Labels, m.K)
	if errors.As(err, &dm) {
		sc.Degenerate, sc.Reason = true, dm.Reason
		return sc, nil
	} else if err != nil {
		return sc, err
	}
	sil, err := Silhouette(x, m.Labels, m.K)
	if errors.As(err, &dm) {
		sc.Degenerate, sc.Reason = true, dm.Reason
		return sc, nil
	} else if err != nil {
		return sc, err
	}
	sc.DaviesBouldin, sc.Silhouette = db, sil
	return sc, nil
}

// chooseK scans scores in order and keeps the first strict minimum.
func chooseK(scores []Score) (int, float64, bool) {
	bestK, best, found := 0, math.Inf(1), false
	for _, s := range scores {
		if s.Degenerate || math.IsNaN(s.DaviesBouldin) {
			continue
		}
		if !found || s.DaviesBouldin < best {
			bestK, best, found = s.K, s.DaviesBouldin, true
		}
	}
	return bestK, best, found
}
