package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	cfgpkg "github.com/KaramelBytes/retailseg/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set retailseg configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := effectiveConfig()
		if err != nil {
			return err
		}
		b, err := yaml.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		fmt.Print(string(b))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := effectiveConfig()
		if err != nil {
			return err
		}
		if err := setKey(c, key, val); err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		cfg = c
		fmt.Printf("✓ Saved %s\n", key)
		return nil
	},
}

func setKey(c *cfgpkg.Global, key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "seed":
		c.Seed, err = strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid int for seed: %v", val)
		}
	case "k_min":
		c.KMin, err = atoi()
	case "k_max":
		c.KMax, err = atoi()
	case "n_init":
		c.NInit, err = atoi()
	case "max_iter":
		c.MaxIter, err = atoi()
	case "tolerance":
		c.Tolerance, err = strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for tolerance: %v", val)
		}
	case "features.numeric":
		c.Features.Numeric = splitList(val)
	case "features.unmatched":
		c.Features.Unmatched = val
	case "lookalike.targets":
		c.Lookalike.Targets, err = atoi()
	case "lookalike.top":
		c.Lookalike.Top, err = atoi()
	case "eda.top_products":
		c.EDA.TopProducts, err = atoi()
	case "log_level":
		c.LogLevel = val
	case "log_format":
		c.LogFormat = val
	case "n_components":
		return fmt.Errorf("n_components is fixed at 2")
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
