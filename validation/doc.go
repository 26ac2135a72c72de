// Package validation checks problem, search and engine configuration before
// a search starts.
//
// It supports struct tag validation (using the validator library) and
// programmatic validation with error collection for rules that tags cannot
// express. Both produce a CONFIGURATION_ERROR with per-field details.
//
// # Struct Tag Validation
//
//	type EngineConfig struct {
//	    Kind    string `validate:"oneof=sequential threads processes distributed"`
//	    Workers int    `validate:"gte=0"`
//	}
//	err := validation.Validate(cfg)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.RequiredInt("forecast_horizon", cfg.ForecastHorizon).
//	    Min("gap", cfg.Gap, 0)
//	err := v.Validate()
package validation
