package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/retailseg/internal/pipeline"
)

var (
	segInputs     inputFlags
	segOutput     string
	segProjection string
	segReport     string
	segChartsDir  string
	segSeed       int64
	segKMin       int
	segKMax       int
	segNumeric    string
	segUnmatched  string
)

var segmentCmd = &cobra.Command{
	Use:   "segment",
	Short: "Segment customers with a seeded k-means sweep",
	Long: `Builds one profile per customer from the transactions, min-max scales the
numeric features, one-hot encodes the region, sweeps k over [k_min, k_max] and
keeps the k with the lowest Davies–Bouldin index. Silhouette is reported for
diagnosis only.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := effectiveConfig()
		if err != nil {
			return err
		}
		f := cmd.Flags()
		if f.Changed("seed") {
			c.Seed = segSeed
		}
		if f.Changed("k-min") {
			c.KMin = segKMin
		}
		if f.Changed("k-max") {
			c.KMax = segKMax
		}
		if f.Changed("numeric") {
			c.Features.Numeric = splitList(segNumeric)
		}
		if f.Changed("unmatched") {
			c.Features.Unmatched = segUnmatched
		}
		paths, err := segInputs.paths(false)
		if err != nil {
			return err
		}

		seg, err := pipeline.RunSegment(pipeline.SegmentOptions{
			Paths:         paths,
			Output:        segOutput,
			ProjectionOut: segProjection,
			ReportOut:     segReport,
			ChartsDir:     segChartsDir,
		}, c)
		if err != nil {
			return err
		}

		fmt.Printf("Profiles: %d", len(seg.Profiles))
		if seg.Dropped > 0 {
			fmt.Printf(" (%d unmatched transactions dropped)", seg.Dropped)
		}
		fmt.Println()
		for _, s := range seg.Selection.Scores {
			if s.Degenerate {
				fmt.Printf("  k=%-2d degenerate: %s\n", s.K, s.Reason)
				continue
			}
			fmt.Printf("  k=%-2d davies_bouldin=%.4f silhouette=%.4f\n", s.K, s.DaviesBouldin, s.Silhouette)
		}
		fmt.Printf("✓ Selected k=%d (davies_bouldin %.4f)\n", seg.Result.K, seg.Selection.MinDaviesBouldin)
		if len(seg.Result.ExplainedVariance) >= 2 {
			ev := seg.Result.ExplainedVariance
			fmt.Printf("  projection explains %.1f%% of variance\n", 100*(ev[0]+ev[1]))
		}
		for _, w := range seg.Written {
			fmt.Printf("✓ Wrote %s\n", w)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(segmentCmd)
	segInputs.register(segmentCmd)
	segmentCmd.Flags().StringVarP(&segOutput, "output", "o", pipeline.DefaultClustersFile, "customer_id,cluster_label output table")
	segmentCmd.Flags().StringVar(&segProjection, "projection-out", "", "optional 2-D projection table (customer_id,pc1,pc2,cluster_label)")
	segmentCmd.Flags().StringVar(&segReport, "report", "", "optional run summary JSON")
	segmentCmd.Flags().StringVar(&segChartsDir, "charts-dir", "", "optional directory for the cluster scatter chart")
	segmentCmd.Flags().Int64Var(&segSeed, "seed", 0, "random seed (overrides config)")
	segmentCmd.Flags().IntVar(&segKMin, "k-min", 0, "smallest cluster count to try (overrides config)")
	segmentCmd.Flags().IntVar(&segKMax, "k-max", 0, "largest cluster count to try (overrides config)")
	segmentCmd.Flags().StringVar(&segNumeric, "numeric", "", "comma-separated numeric features (overrides config)")
	segmentCmd.Flags().StringVar(&segUnmatched, "unmatched", "", "transactions with unknown customers: reject|drop (overrides config)")
}
