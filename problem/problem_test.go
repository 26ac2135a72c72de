package problem

import (
	"strings"
	"testing"

	"github.com/kbukum/automl/errors"
)

func TestParse(t *testing.T) {
	tests := map[string]Type{
		"binary":                 Binary,
		"Time Series Regression": TimeSeriesRegression,
		"time-series-multiclass": TimeSeriesMulticlass,
		" REGRESSION ":           Regression,
	}
	for in, want := range tests {
		got, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", in, err)
		}
		if got != want {
			t.Errorf("Parse(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := Parse("clustering"); errors.CodeOf(err) != errors.ErrCodeConfiguration {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestTypePredicates(t *testing.T) {
	if !TimeSeriesBinary.IsBinary() || !TimeSeriesBinary.IsTimeSeries() || !TimeSeriesBinary.IsClassification() {
		t.Error("time series binary predicates are wrong")
	}
	if Regression.IsClassification() || Regression.IsTimeSeries() {
		t.Error("regression predicates are wrong")
	}
	if TimeSeriesMulticlass.Base() != Multiclass {
		t.Errorf("unexpected base %q", TimeSeriesMulticlass.Base())
	}
}

// --- Config tests ---

func TestConfigValidate_TimeSeriesRequiresFields(t *testing.T) {
	err := Config{Type: TimeSeriesRegression}.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, field := range []string{"gap", "max_delay", "forecast_horizon"} {
		if !strings.Contains(err.Error(), field+": is required") {
			t.Errorf("expected %s to be required, got %v", field, err)
		}
	}
	if errors.CodeOf(err) != errors.ErrCodeConfiguration {
		t.Errorf("expected configuration error, got %s", errors.CodeOf(err))
	}
}

func TestConfigValidate_NonTimeSeriesForbidsFields(t *testing.T) {
	gap := 1
	err := Config{Type: Binary, Gap: &gap}.Validate()
	if err == nil || !strings.Contains(err.Error(), "gap: must not be set") {
		t.Errorf("expected gap to be rejected, got %v", err)
	}
}

func TestConfigValidate_Bounds(t *testing.T) {
	if err := NewTimeSeries(TimeSeriesRegression, 0, 7, 0).Validate(); err == nil {
		t.Error("expected forecast_horizon=0 to fail")
	}
	if err := NewTimeSeries(TimeSeriesRegression, -1, 7, 7).Validate(); err == nil {
		t.Error("expected negative gap to fail")
	}
	if err := NewTimeSeries(TimeSeriesRegression, 0, 7, 7).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := New(Multiclass).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := New("ranking").Validate(); err == nil {
		t.Error("expected unknown type to fail")
	}
}

func TestConfigLookback(t *testing.T) {
	cfg := NewTimeSeries(TimeSeriesRegression, 1, 7, 7)
	if got := cfg.Lookback(); got != 15 {
		t.Errorf("expected lookback 15, got %d", got)
	}
	if got := New(Regression).Lookback(); got != 0 {
		t.Errorf("expected lookback 0, got %d", got)
	}
}
