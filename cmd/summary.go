package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/retailseg/internal/report"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <segmentation.json>",
	Short: "Show a saved segmentation run summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := report.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Run %s (%s)\n", s.ID, s.CreatedAt.Format("2006-01-02 15:04:05 MST"))
		fmt.Printf("Seed: %d  k range: [%d, %d]  features: %v\n", s.Settings.Seed, s.Settings.KMin, s.Settings.KMax, s.Columns)
		fmt.Printf("Profiles: %d", s.Profiles)
		if s.Dropped > 0 {
			fmt.Printf(" (%d unmatched transactions dropped)", s.Dropped)
		}
		fmt.Println()
		for _, sc := range s.Scores {
			if sc.Degenerate || sc.DaviesBouldin == nil || sc.Silhouette == nil {
				fmt.Printf("  k=%-2d degenerate: %s\n", sc.K, sc.Reason)
				continue
			}
			fmt.Printf("  k=%-2d davies_bouldin=%.4f silhouette=%.4f\n", sc.K, *sc.DaviesBouldin, *sc.Silhouette)
		}
		fmt.Printf("✓ Selected k=%d (davies_bouldin %.4f) sizes %v\n", s.SelectedK, s.MinDaviesBouldin, s.Sizes)
		for _, o := range s.Outputs {
			fmt.Printf("  output %s\n", o)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}
