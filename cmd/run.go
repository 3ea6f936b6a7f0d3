package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/retailseg/internal/pipeline"
)

var (
	runDataDir string
	runOutDir  string
	runCharts  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run eda, lookalike and segment over one data directory",
	Long: `Loads Customers.csv, Products.csv and Transactions.csv from --data-dir once,
computes the EDA report, the lookalike table and the segmentation, and only then
writes EDA.md, Lookalike.csv, Customer_Clusters.csv and segmentation.json (plus
charts/ with --charts) under --out-dir. A failure in any stage writes nothing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if runDataDir == "" {
			return fmt.Errorf("--data-dir is required")
		}
		c, err := effectiveConfig()
		if err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return err
		}
		in := inputFlags{dataDir: runDataDir}
		paths, err := in.paths(true)
		if err != nil {
			return err
		}
		out := runOutDir
		if out == "" {
			out = runDataDir
		}

		res, err := pipeline.RunAll(pipeline.RunOptions{Paths: paths, OutDir: out, Charts: runCharts}, c)
		if err != nil {
			return err
		}
		seg := res.Segmentation
		fmt.Printf("✓ Selected k=%d (davies_bouldin %.4f)\n", seg.Result.K, seg.Selection.MinDaviesBouldin)
		fmt.Printf("✓ %d lookalike recommendations\n", len(res.Recommendations))
		for _, w := range res.Written {
			fmt.Printf("✓ Wrote %s\n", w)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runDataDir, "data-dir", "", "directory holding Customers.csv, Products.csv and Transactions.csv")
	runCmd.Flags().StringVar(&runOutDir, "out-dir", "", "directory for all outputs (default: the data directory)")
	runCmd.Flags().BoolVar(&runCharts, "charts", false, "also render HTML charts under <out-dir>/charts")
}
