package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/retailseg/internal/config"
	"github.com/KaramelBytes/retailseg/internal/logging"
)

var (
	// Global flags
	cfgFile   string
	debug     bool
	logLevel  string
	logFormat string

	// Loaded configuration; cfgErr holds the load failure, reported by the
	// commands that need a configuration.
	cfg    *cfgpkg.Global
	cfgErr error
)

var rootCmd = &cobra.Command{
	Use:           "retailseg",
	Short:         "retailseg: retail customer analytics and segmentation",
	Long:          `retailseg explores a retail customer/product/transaction dataset, recommends lookalike customers, and segments customers with a seeded k-means sweep scored by Davies–Bouldin and silhouette indices.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.retailseg/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace|debug|info|warn|error|disabled (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console|json (overrides config)")
}

func loadConfig() {
	cfg, cfgErr = cfgpkg.Load(cfgFile)

	lc := logging.DefaultConfig()
	if cfg != nil {
		lc.Level, lc.Format = cfg.LogLevel, cfg.LogFormat
	}
	if logLevel != "" {
		lc.Level = logLevel
	}
	if logFormat != "" {
		lc.Format = logFormat
	}
	if debug {
		lc.Level = "debug"
	}
	logging.Init(lc)
	if cfgErr != nil {
		logging.Debug().Err(cfgErr).Msg("config not loaded")
	}
}

// effectiveConfig returns a copy of the loaded configuration that a command
// may override with its own flags.
func effectiveConfig() (*cfgpkg.Global, error) {
	if cfgErr != nil {
		return nil, cfgErr
	}
	if cfg == nil {
		d := cfgpkg.Default()
		return &d, nil
	}
	c := *cfg
	c.Features.Numeric = append([]string(nil), cfg.Features.Numeric...)
	return &c, nil
}
