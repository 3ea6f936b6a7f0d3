package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/retailseg/internal/pipeline"
)

var (
	edaInputs      inputFlags
	edaOutputPath  string
	edaChartsDir   string
	edaTopProducts int
)

var edaCmd = &cobra.Command{
	Use:   "eda",
	Short: "Explore the dataset: data quality, summary statistics and revenue breakdowns",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := effectiveConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("top-products") {
			c.EDA.TopProducts = edaTopProducts
		}
		if err := c.Validate(); err != nil {
			return err
		}
		paths, err := edaInputs.paths(true)
		if err != nil {
			return err
		}
		rep, written, err := pipeline.RunEDA(pipeline.EDAOptions{
			Paths:     paths,
			Output:    edaOutputPath,
			ChartsDir: edaChartsDir,
		}, c)
		if err != nil {
			return err
		}
		if edaOutputPath == "" {
			fmt.Println(rep.Markdown())
		}
		for _, w := range written {
			fmt.Printf("✓ Wrote %s\n", w)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(edaCmd)
	edaInputs.register(edaCmd)
	edaCmd.Flags().StringVarP(&edaOutputPath, "output", "o", "", "write the markdown report to file instead of stdout")
	edaCmd.Flags().StringVar(&edaChartsDir, "charts-dir", "", "optional directory for the HTML charts")
	edaCmd.Flags().IntVar(&edaTopProducts, "top-products", 0, "number of best-selling products to list (overrides config)")
}
