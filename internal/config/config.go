package config

import (
	"flag"
	"os"
	"strings"

	"codeberg.org/mutker/psumond/internal/errors"
	"github.com/spf13/viper"
)

const (
	DefaultInterval     = 3
	DefaultLogLevel     = "info"
	DefaultStateDB      = "/var/lib/psumond/state.db"
	DefaultPlatformPath = "/sys/devices/platform/psu"
	DefaultLegacyPath   = "/usr/share/psud"

	configName = "psumond"
	configType = "toml"
	configPath = "/etc"
	configEnv  = "PSUMOND_CONFIG"
	envPrefix  = "PSUMOND"
)

type Config struct {
	Interval     int    `mapstructure:"interval"`
	LogLevel     string `mapstructure:"log_level"`
	Debug        bool   `mapstructure:"debug"`
	Verbose      bool   `mapstructure:"verbose"`
	StateDB      string `mapstructure:"state_db"`
	PlatformPath string `mapstructure:"platform_path"`
	LegacyPath   string `mapstructure:"legacy_path"`
}

// Load merges defaults, the TOML config file, PSUMOND_* environment
// variables and command-line flags, in increasing order of precedence.
// args are the raw command-line arguments without the program name.
func Load(args ...string) (*Config, error) {
	errFactory := errors.New()

	v := viper.New()
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
	v.SetDefault("state_db", DefaultStateDB)
	v.SetDefault("platform_path", DefaultPlatformPath)
	v.SetDefault("legacy_path", DefaultLegacyPath)

	explicitFile := os.Getenv(configEnv)
	if explicitFile != "" {
		v.SetConfigFile(explicitFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(configPath)
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	fs := flag.NewFlagSet(configName, flag.ContinueOnError)
	fs.Int("interval", DefaultInterval, "Seconds between update cycles")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.Bool("debug", false, "Enable debugging mode")
	fs.Bool("verbose", false, "Enable verbose logging")
	fs.String("state-db", DefaultStateDB, "Path to the state database")
	fs.String("platform-path", DefaultPlatformPath, "Root of the platform PSU attribute tree")
	fs.String("legacy-path", DefaultLegacyPath, "Root of the legacy PSU attribute files")

	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	// Flags override the config file and environment
	fs.Visit(func(f *flag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		v.Set(key, f.Value.String())
	})

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the loaded configuration for invalid values
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}

	switch c.LogLevel {
	case "debug", "info", "warning", "warn", "error":
	default:
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if c.StateDB == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "state_db must not be empty")
	}

	return nil
}
