// Package report persists the machine-readable summary of a segmentation run.
package report

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/KaramelBytes/retailseg/internal/cluster"
	"github.com/KaramelBytes/retailseg/internal/utils"
)

// Summary describes one segmentation run.
type Summary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Inputs   Inputs   `json:"inputs"`
	Settings Settings `json:"settings"`

	Profiles int      `json:"profiles"`
	Dropped  int      `json:"dropped_transactions"`
	Columns  []string `json:"feature_columns"`

	Scores            []Score   `json:"scores"`
	SelectedK         int       `json:"selected_k"`
	MinDaviesBouldin  float64   `json:"min_davies_bouldin"`
	Sizes             []int     `json:"cluster_sizes"`
	ExplainedVariance []float64 `json:"explained_variance_ratio"`

	Outputs []string `json:"outputs"`
}

// Inputs are the table paths of the run.
type Inputs struct {
	Customers    string `json:"customers"`
	Products     string `json:"products,omitempty"`
	Transactions string `json:"transactions"`
}

// Settings are the tunables the run used.
type Settings struct {
	Seed      int64    `json:"seed"`
	KMin      int      `json:"k_min"`
	KMax      int      `json:"k_max"`
	NInit     int      `json:"n_init"`
	MaxIter   int      `json:"max_iter"`
	Tolerance float64  `json:"tolerance"`
	Numeric   []string `json:"numeric"`
	Unmatched string   `json:"unmatched"`
}

// Score is one swept candidate. Metrics are null when degenerate.
type Score struct {
	K             int      `json:"k"`
	DaviesBouldin *float64 `json:"davies_bouldin"`
	Silhouette    *float64 `json:"silhouette"`
	Inertia       float64  `json:"inertia"`
	Degenerate    bool     `json:"degenerate"`
	Reason        string   `json:"reason,omitempty"`
}

// New starts a summary with a fresh id.
func New(in Inputs, s Settings) *Summary {
	return &Summary{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Inputs:    in,
		Settings:  s,
	}
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// SetSelection copies the sweep outcome.
func (s *Summary) SetSelection(sel *cluster.Selection) {
	s.SelectedK = sel.K
	s.MinDaviesBouldin = sel.MinDaviesBouldin
	s.Scores = make([]Score, len(sel.Scores))
	for i, sc := range sel.Scores {
		s.Scores[i] = Score{
			K:             sc.K,
			DaviesBouldin: finite(sc.DaviesBouldin),
			Silhouette:    finite(sc.Silhouette),
			Inertia:       sc.Inertia,
			Degenerate:    sc.Degenerate,
			Reason:        sc.Reason,
		}
	}
}

// Encode renders the summary as indented JSON.
func (s *Summary) Encode() ([]byte, error) {
	return utils.PrettyJSON(s)
}

// Load reads a summary produced by Encode.
func Load(path string) (*Summary, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("summary not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read summary: %w", err)
	}
	var s Summary
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse summary: %w", err)
	}
	return &s, nil
}
