// Package config loads ctdprofile runtime configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of configuration environment variables.
const EnvPrefix = "CTD"

// Config represents the complete application configuration
type Config struct {
	Profile   ProfileConfig   `yaml:"profile" envconfig:"PROFILE"`
	Reference ReferenceConfig `yaml:"reference" envconfig:"REFERENCE"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Workers   int             `yaml:"workers" envconfig:"WORKERS" default:"4"`
}

// ProfileConfig contains profile modification settings
type ProfileConfig struct {
	LayoutFile         string `yaml:"layout_file" envconfig:"LAYOUT_FILE"`
	LineBreak          string `yaml:"line_break" envconfig:"LINE_BREAK" default:"lf"`
	Overwrite          bool   `yaml:"overwrite" envconfig:"OVERWRITE" default:"false"`
	UseLayoutFormat    bool   `yaml:"use_layout_format" envconfig:"USE_LAYOUT_FORMAT" default:"false"`
	BlankInactiveSpans bool   `yaml:"blank_inactive_spans" envconfig:"BLANK_INACTIVE_SPANS" default:"false"`
}

// ReferenceConfig locates the sensor reference workbook
type ReferenceConfig struct {
	Workbook string `yaml:"workbook" envconfig:"WORKBOOK"`
	Sheet    string `yaml:"sheet" envconfig:"SHEET" default:"Sensor_info"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// Load builds the configuration from defaults, the optional YAML file at
// path and the environment, in increasing precedence.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// envconfig only applies defaults to unset variables, so file values
	// have to be re-applied over its defaults.
	var env Config
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	cfg = merge(cfg, env)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// merge overlays env on file. Values explicitly set in the environment win;
// otherwise file values win over defaults.
func merge(file, env Config) Config {
	out := env
	if file.Workers != 0 && !isSet("WORKERS") {
		out.Workers = file.Workers
	}

	if file.Profile.LayoutFile != "" && !isSet("PROFILE_LAYOUT_FILE") {
		out.Profile.LayoutFile = file.Profile.LayoutFile
	}
	if file.Profile.LineBreak != "" && !isSet("PROFILE_LINE_BREAK") {
		out.Profile.LineBreak = file.Profile.LineBreak
	}
	if file.Profile.Overwrite && !isSet("PROFILE_OVERWRITE") {
		out.Profile.Overwrite = true
	}
	if file.Profile.UseLayoutFormat && !isSet("PROFILE_USE_LAYOUT_FORMAT") {
		out.Profile.UseLayoutFormat = true
	}
	if file.Profile.BlankInactiveSpans && !isSet("PROFILE_BLANK_INACTIVE_SPANS") {
		out.Profile.BlankInactiveSpans = true
	}

	if file.Reference.Workbook != "" && !isSet("REFERENCE_WORKBOOK") {
		out.Reference.Workbook = file.Reference.Workbook
	}
	if file.Reference.Sheet != "" && !isSet("REFERENCE_SHEET") {
		out.Reference.Sheet = file.Reference.Sheet
	}

	if file.Logging.Level != "" && !isSet("LOGGING_LEVEL") {
		out.Logging.Level = file.Logging.Level
	}
	if file.Logging.Development && !isSet("LOGGING_DEVELOPMENT") {
		out.Logging.Development = true
	}
	return out
}

func isSet(name string) bool {
	_, ok := os.LookupEnv(EnvPrefix + "_" + name)
	return ok
}

// LineBreakString returns the configured line separator.
func (c *Config) LineBreakString() string {
	if strings.EqualFold(c.Profile.LineBreak, "crlf") {
		return "\r\n"
	}
	return "\n"
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Profile.LineBreak) {
	case "lf", "crlf":
	default:
		return fmt.Errorf("invalid line_break %q (must be lf or crlf)", c.Profile.LineBreak)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}
