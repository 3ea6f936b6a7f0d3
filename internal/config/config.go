package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/retailseg/internal/errs"
	"github.com/KaramelBytes/retailseg/internal/utils"
)

// Global configuration structure.
type Global struct {
	// Clustering sweep
	Seed        int64   `mapstructure:"seed" yaml:"seed"`
	KMin        int     `mapstructure:"k_min" yaml:"k_min" validate:"min=2"`
	KMax        int     `mapstructure:"k_max" yaml:"k_max" validate:"gtefield=KMin"`
	NComponents int     `mapstructure:"n_components" yaml:"n_components" validate:"eq=2"`
	NInit       int     `mapstructure:"n_init" yaml:"n_init" validate:"min=1"`
	MaxIter     int     `mapstructure:"max_iter" yaml:"max_iter" validate:"min=1"`
	Tolerance   float64 `mapstructure:"tolerance" yaml:"tolerance" validate:"gte=0"`

	Features  Features  `mapstructure:"features" yaml:"features"`
	Lookalike Lookalike `mapstructure:"lookalike" yaml:"lookalike"`
	EDA       EDA       `mapstructure:"eda" yaml:"eda"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=trace debug info warn error disabled"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=console json"`
}

// Features controls profile construction and encoding.
type Features struct {
	Numeric   []string `mapstructure:"numeric" yaml:"numeric" validate:"min=1,unique,dive,oneof=total_spend mean_spend total_quantity transaction_count signup_year"`
	Unmatched string   `mapstructure:"unmatched" yaml:"unmatched" validate:"oneof=reject drop"`
}

// Lookalike controls the similarity recommender.
type Lookalike struct {
	Targets int `mapstructure:"targets" yaml:"targets" validate:"min=0"`
	Top     int `mapstructure:"top" yaml:"top" validate:"min=1"`
}

// EDA controls the exploratory report.
type EDA struct {
	TopProducts int `mapstructure:"top_products" yaml:"top_products" validate:"min=1"`
}

// Default returns the compiled-in configuration.
func Default() Global {
	return Global{
		Seed:        42,
		KMin:        2,
		KMax:        10,
		NComponents: 2,
		NInit:       10,
		MaxIter:     300,
		Tolerance:   1e-4,
		Features: Features{
			Numeric:   []string{"total_spend", "mean_spend", "total_quantity"},
			Unmatched: "reject",
		},
		Lookalike: Lookalike{Targets: 20, Top: 3},
		EDA:       EDA{TopProducts: 10},
		LogLevel:  "info",
		LogFormat: "console",
	}
}

// DefaultPath returns ~/.retailseg/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".retailseg", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.retailseg/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from the config file over compiled defaults.
// Precedence: flags (applied by the caller) > config file > defaults.
// Environment variables are not consulted.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	d := Default()
	v.SetDefault("seed", d.Seed)
	v.SetDefault("k_min", d.KMin)
	v.SetDefault("k_max", d.KMax)
	v.SetDefault("n_components", d.NComponents)
	v.SetDefault("n_init", d.NInit)
	v.SetDefault("max_iter", d.MaxIter)
	v.SetDefault("tolerance", d.Tolerance)
	v.SetDefault("features.numeric", d.Features.Numeric)
	v.SetDefault("features.unmatched", d.Features.Unmatched)
	v.SetDefault("lookalike.targets", d.Lookalike.Targets)
	v.SetDefault("lookalike.top", d.Lookalike.Top)
	v.SetDefault("eda.top_products", d.EDA.TopProducts)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, &errs.ConfigError{Key: "config", Msg: "read " + cfgFile, Err: err}
		}
	} else {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return nil, &errs.ConfigError{Key: "config", Msg: "read " + path, Err: err}
			}
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, &errs.ConfigError{Key: "config", Msg: "unmarshal config", Err: err}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report the yaml key instead of the Go field name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks every field and returns a *errs.ConfigError naming the
// first offending key.
func (c *Global) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &errs.ConfigError{Msg: "validate", Err: err}
	}
	fe := verrs[0]
	key := strings.TrimPrefix(fe.Namespace(), "Global.")
	msg := fmt.Sprintf("value %v fails %q", fe.Value(), fe.Tag())
	if fe.Param() != "" {
		msg = fmt.Sprintf("value %v fails %s=%s", fe.Value(), fe.Tag(), fe.Param())
	}
	return &errs.ConfigError{Key: key, Msg: msg}
}
