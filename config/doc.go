// Package config loads search, engine and ledger settings.
//
// It uses Viper to read a YAML file and environment variables, with an
// optional .env file loaded through godotenv. Environment variables override
// file values; AUTOML_SEARCH_MAX_BATCHES maps to search.max_batches.
//
// # Usage
//
//	var cfg config.Config
//	if err := config.LoadConfig("automl-worker", &cfg); err != nil {
//	    return err
//	}
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
