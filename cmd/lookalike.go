package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/retailseg/internal/pipeline"
)

var (
	lkInputs  inputFlags
	lkOutput  string
	lkTargets int
	lkTop     int
)

var lookalikeCmd = &cobra.Command{
	Use:   "lookalike",
	Short: "Recommend the most similar customers for the first customers",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := effectiveConfig()
		if err != nil {
			return err
		}
		f := cmd.Flags()
		if f.Changed("targets") {
			c.Lookalike.Targets = lkTargets
		}
		if f.Changed("top") {
			c.Lookalike.Top = lkTop
		}
		if err := c.Validate(); err != nil {
			return err
		}
		paths, err := lkInputs.paths(true)
		if err != nil {
			return err
		}
		recs, err := pipeline.RunLookalike(pipeline.LookalikeOptions{Paths: paths, Output: lkOutput}, c)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Wrote %d recommendations to %s\n", len(recs), lkOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lookalikeCmd)
	lkInputs.register(lookalikeCmd)
	lookalikeCmd.Flags().StringVarP(&lkOutput, "output", "o", pipeline.DefaultLookalikeFile, "cust_id,lookalikes output table")
	lookalikeCmd.Flags().IntVar(&lkTargets, "targets", 0, "number of target customers, 0 for all (overrides config)")
	lookalikeCmd.Flags().IntVar(&lkTop, "top", 0, "matches per target (overrides config)")
}
