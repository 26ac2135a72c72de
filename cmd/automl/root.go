package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/automl/config"
)

const serviceName = "automl"

type rootFlags struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Search pipelines for supervised learning problems",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "config file (defaults to config.yml lookup)")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", ".env file to load before the config")

	cmd.AddCommand(
		newSearchCmd(flags),
		newWorkerCmd(flags),
		newProcessCmd(),
		newVersionCmd(),
	)
	return cmd
}

// load reads the config file and environment into a Config.
func (f *rootFlags) load() (*config.Config, error) {
	var opts []config.LoaderOption
	if f.configFile != "" {
		opts = append(opts, config.WithConfigFile(f.configFile))
	}
	if f.envFile != "" {
		opts = append(opts, config.WithEnvFile(f.envFile))
	}
	cfg := &config.Config{}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}
