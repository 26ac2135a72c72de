// Package problem describes the supervised problem a search solves.
package problem

import (
	"fmt"
	"strings"

	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/validation"
)

// Type is a supervised problem type.
type Type string

const (
	Binary               Type = "binary"
	Multiclass           Type = "multiclass"
	Regression           Type = "regression"
	TimeSeriesBinary     Type = "time_series_binary"
	TimeSeriesMulticlass Type = "time_series_multiclass"
	TimeSeriesRegression Type = "time_series_regression"
)

// All lists every problem type in declaration order.
var All = []Type{Binary, Multiclass, Regression, TimeSeriesBinary, TimeSeriesMulticlass, TimeSeriesRegression}

// Parse resolves a problem type name. Spaces, dashes and case are ignored.
func Parse(s string) (Type, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	for _, t := range All {
		if string(t) == norm {
			return t, nil
		}
	}
	return "", errors.Configurationf("unknown problem type %q", s)
}

func (t Type) String() string { return string(t) }

// IsTimeSeries reports whether rows are ordered in time.
func (t Type) IsTimeSeries() bool {
	return t == TimeSeriesBinary || t == TimeSeriesMulticlass || t == TimeSeriesRegression
}

// IsClassification reports whether the target is categorical.
func (t Type) IsClassification() bool {
	return t.IsBinary() || t.IsMulticlass()
}

func (t Type) IsBinary() bool     { return t == Binary || t == TimeSeriesBinary }
func (t Type) IsMulticlass() bool { return t == Multiclass || t == TimeSeriesMulticlass }
func (t Type) IsRegression() bool { return t == Regression || t == TimeSeriesRegression }

// Base strips the time-series qualifier.
func (t Type) Base() Type {
	switch {
	case t.IsBinary():
		return Binary
	case t.IsMulticlass():
		return Multiclass
	default:
		return Regression
	}
}

// Config is a problem type together with its time-series settings.
// The pointer fields distinguish "not provided" from zero.
type Config struct {
	Type            Type   `json:"type" yaml:"type"`
	Gap             *int   `json:"gap,omitempty" yaml:"gap,omitempty"`
	MaxDelay        *int   `json:"max_delay,omitempty" yaml:"max_delay,omitempty"`
	ForecastHorizon *int   `json:"forecast_horizon,omitempty" yaml:"forecast_horizon,omitempty"`
	TimeIndex       string `json:"time_index,omitempty" yaml:"time_index,omitempty"`
}

// New returns a Config for a non time-series problem type.
func New(t Type) Config {
	return Config{Type: t}
}

// NewTimeSeries returns a Config for a time-series problem type.
func NewTimeSeries(t Type, gap, maxDelay, forecastHorizon int) Config {
	return Config{Type: t, Gap: &gap, MaxDelay: &maxDelay, ForecastHorizon: &forecastHorizon}
}

// Validate checks that the time-series settings are present exactly when the
// problem type is a time-series variant.
func (c Config) Validate() error {
	v := validation.New()
	known := false
	for _, t := range All {
		if c.Type == t {
			known = true
		}
	}
	if !known {
		v.AddError("problem_type", fmt.Sprintf("unknown problem type %q", c.Type))
		return v.Err()
	}

	if c.Type.IsTimeSeries() {
		v.RequiredInt("gap", c.Gap).
			RequiredInt("max_delay", c.MaxDelay).
			RequiredInt("forecast_horizon", c.ForecastHorizon)
		if c.Gap != nil {
			v.Min("gap", *c.Gap, 0)
		}
		if c.MaxDelay != nil {
			v.Min("max_delay", *c.MaxDelay, 0)
		}
		if c.ForecastHorizon != nil {
			v.Min("forecast_horizon", *c.ForecastHorizon, 1)
		}
		return v.Err()
	}

	reason := "for non time series problems"
	v.Forbidden("gap", c.Gap != nil, reason).
		Forbidden("max_delay", c.MaxDelay != nil, reason).
		Forbidden("forecast_horizon", c.ForecastHorizon != nil, reason)
	return v.Err()
}

// Window returns gap, max_delay and forecast_horizon with unset values as zero.
func (c Config) Window() (gap, maxDelay, forecastHorizon int) {
	if c.Gap != nil {
		gap = *c.Gap
	}
	if c.MaxDelay != nil {
		maxDelay = *c.MaxDelay
	}
	if c.ForecastHorizon != nil {
		forecastHorizon = *c.ForecastHorizon
	}
	return gap, maxDelay, forecastHorizon
}

// Lookback is the number of rows before t needed to build features for t.
func (c Config) Lookback() int {
	if !c.Type.IsTimeSeries() {
		return 0
	}
	gap, maxDelay, horizon := c.Window()
	return maxDelay + horizon + gap
}
