package database

import (
	"time"

	"github.com/kbukum/automl/errors"
)

// DriverSQLite is the only driver linked into the module.
const DriverSQLite = "sqlite"

// Config holds database connection configuration.
type Config struct {
	// Enabled controls whether Open connects at all.
	Enabled bool `mapstructure:"enabled"`

	// Driver selects the dialector. Defaults to sqlite.
	Driver string `mapstructure:"driver"`

	// DSN is the connection string; for sqlite a file path or ":memory:".
	DSN string `mapstructure:"dsn"`

	// MaxOpenConns sets the maximum number of open connections to the database.
	MaxOpenConns int `mapstructure:"max_open_conns"`

	// MaxIdleConns sets the maximum number of idle connections in the pool.
	MaxIdleConns int `mapstructure:"max_idle_conns"`

	// ConnMaxLifetime is the maximum time a connection may be reused (e.g. "1h").
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`

	// MaxRetries is the number of connection attempts before giving up.
	MaxRetries int `mapstructure:"max_retries"`

	// SlowQueryThreshold is the duration above which queries are logged as slow.
	SlowQueryThreshold string `mapstructure:"slow_query_threshold"`

	// LogLevel is the GORM log level: silent, error, warn or info.
	LogLevel string `mapstructure:"log_level"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Driver == "" {
		c.Driver = DriverSQLite
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 1
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 1
	}
	if c.ConnMaxLifetime == "" {
		c.ConnMaxLifetime = "1h"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.SlowQueryThreshold == "" {
		c.SlowQueryThreshold = "200ms"
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

// Validate checks that required fields are present and parseable.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.DSN == "" {
		return errors.MissingField("dsn")
	}
	if c.Driver != DriverSQLite {
		return errors.InvalidInput("driver", "unsupported driver "+c.Driver)
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.InvalidInput("max_idle_conns", "must be <= max_open_conns")
	}
	if _, err := time.ParseDuration(c.ConnMaxLifetime); err != nil {
		return errors.InvalidInput("conn_max_lifetime", err.Error())
	}
	if _, err := time.ParseDuration(c.SlowQueryThreshold); err != nil {
		return errors.InvalidInput("slow_query_threshold", err.Error())
	}
	if _, ok := gormLevels[c.LogLevel]; !ok {
		return errors.InvalidInput("log_level", "must be silent, error, warn or info")
	}
	return nil
}
