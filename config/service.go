package config

import (
	"slices"
	"strings"

	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/logger"
)

// Environments lists the accepted values of ServiceConfig.Environment.
var Environments = []string{"development", "staging", "production"}

// ServiceConfig holds what every automl binary needs regardless of its
// role: identity, environment and logging. Config embeds it; the process
// worker only reads this part.
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

// GetServiceConfig returns the base ServiceConfig.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig {
	return c
}

// ApplyDefaults names the binary "automl" and turns on debug logging in
// development unless a level is set.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "automl"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()
}

func (c *ServiceConfig) Validate() error {
	if c.Name == "" {
		return errors.MissingField("name")
	}
	if !slices.Contains(Environments, c.Environment) {
		return errors.Configurationf("config.environment must be one of [%s] (got: %s)", strings.Join(Environments, ", "), c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return errors.Configuration("config.logging").WithCause(err)
	}
	return nil
}
