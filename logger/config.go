package logger

import (
	"fmt"
	"slices"
)

var (
	levels  = []string{"trace", "debug", "info", "warn", "error", "fatal", "disabled"}
	formats = []string{"json", "console", "text", FormatPretty}
	outputs = []string{"stdout", "stderr", "file", "discard"}
)

// Config contains logging configuration. Search binaries log to stdout by
// default; the process worker logs JSON to stderr because stdout carries
// its protocol.
type Config struct {
	Level     string `yaml:"level" mapstructure:"level"`
	Format    string `yaml:"format" mapstructure:"format"`
	Output    string `yaml:"output" mapstructure:"output"` // stdout, stderr, file, discard
	File      string `yaml:"file" mapstructure:"file"`
	NoColor   bool   `yaml:"no_color" mapstructure:"no_color"`
	Timestamp bool   `yaml:"timestamp" mapstructure:"timestamp"`
	Caller    bool   `yaml:"caller" mapstructure:"caller"`

	// Rotation of Output "file", in megabytes, files and days.
	MaxSize    int  `yaml:"max_size" mapstructure:"max_size"`
	MaxBackups int  `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAge     int  `yaml:"max_age" mapstructure:"max_age"`
	Compress   bool `yaml:"compress" mapstructure:"compress"`
	LocalTime  bool `yaml:"local_time" mapstructure:"local_time"`
}

// ApplyDefaults applies default values to logging configuration.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
	if c.MaxSize == 0 {
		c.MaxSize = 100
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = 3
	}
	if c.MaxAge == 0 {
		c.MaxAge = 28
	}
	c.Timestamp = true
}

// Validate validates logging configuration.
func (c *Config) Validate() error {
	for _, check := range []struct {
		field, value string
		allowed      []string
	}{
		{"level", c.Level, levels},
		{"format", c.Format, formats},
		{"output", c.Output, outputs},
	} {
		if !slices.Contains(check.allowed, check.value) {
			return fmt.Errorf("logging.%s must be one of %v (got: %s)", check.field, check.allowed, check.value)
		}
	}
	if c.Output == "file" && c.File == "" {
		return fmt.Errorf("logging.file is required when logging.output is file")
	}
	return nil
}
