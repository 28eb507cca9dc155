package config

import "github.com/spf13/viper"

// Config holds all runtime configuration for a regroup invocation.
// Values are populated from .regroup.yaml, REGROUP_* env vars, and CLI flags.
type Config struct {
	WorkDir   string `mapstructure:"work_dir"`
	Journal   bool   `mapstructure:"journal"`
	Telemetry bool   `mapstructure:"telemetry"`
	Verbose   bool   `mapstructure:"verbose"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() Config {
	viper.SetDefault("work_dir", ".")
	viper.SetDefault("journal", true)
	viper.SetDefault("telemetry", false)
	viper.SetDefault("verbose", false)

	var cfg Config
	_ = viper.Unmarshal(&cfg)
	return cfg
}
