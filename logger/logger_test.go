package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func jsonLogger(buf *bytes.Buffer, level string) *Logger {
	return NewWithWriter(&Config{Level: level, Format: "json"}, "automl", buf)
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("invalid json log line %q: %v", lines[len(lines)-1], err)
	}
	return entry
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewWithWriter_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "debug")
	l.Info("batch submitted", Fields(FieldBatch, 2, "tasks", 5))

	entry := lastEntry(t, &buf)
	if entry["message"] != "batch submitted" {
		t.Errorf("unexpected message %v", entry["message"])
	}
	if entry[FieldBatch] != float64(2) {
		t.Errorf("expected batch=2, got %v", entry[FieldBatch])
	}
	if entry["service"] != "automl" {
		t.Errorf("expected service field, got %v", entry["service"])
	}
}

func TestNewWithWriter_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "warn")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered at warn level, got %q", buf.String())
	}
	l.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("expected warn to be written")
	}
}

func TestNewInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "invalid-level")
	l.Info("fallback")
	if !strings.Contains(buf.String(), "fallback") {
		t.Error("expected info level fallback for invalid level")
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Error("nothing happens", Fields("k", "v"))
	l.WithComponent("x").Info("still nothing")
}

func TestNewFromEnv(t *testing.T) {
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("LOG_FORMAT", "json")
	defer os.Unsetenv("LOG_LEVEL")
	defer os.Unsetenv("LOG_FORMAT")

	l := NewFromEnv("env-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestFileOutputRotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search.log")
	cfg := &Config{Level: "info", Format: "json", Output: "file", File: path}
	cfg.ApplyDefaults()
	l := New(cfg, "automl")
	l.Info("written to file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("unexpected file contents %q", data)
	}
}

// --- derived logger tests ---

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	jsonLogger(&buf, "info").WithComponent("engine").Info("x")
	if lastEntry(t, &buf)[FieldComponent] != "engine" {
		t.Error("expected component field")
	}
}

func TestWithContext_SearchAndTrace(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithSearchID(context.Background(), "s-1")
	ctx = ContextWithTrace(ctx, "t-1", "sp-1")
	jsonLogger(&buf, "info").WithContext(ctx).Info("x")

	entry := lastEntry(t, &buf)
	if entry[FieldSearchID] != "s-1" || entry[FieldTraceID] != "t-1" || entry[FieldSpanID] != "sp-1" {
		t.Errorf("expected context ids, got %v", entry)
	}
}

func TestWithFieldsAndError(t *testing.T) {
	var buf bytes.Buffer
	jsonLogger(&buf, "info").WithFields(Fields(FieldFamily, "linear_model")).WithError(fmt.Errorf("boom")).Error("failed")
	entry := lastEntry(t, &buf)
	if entry[FieldFamily] != "linear_model" {
		t.Errorf("expected family field, got %v", entry)
	}
	if entry["error"] != "boom" {
		t.Errorf("expected error field, got %v", entry)
	}
}

// --- global and registry tests ---

func TestInitAndRegistry(t *testing.T) {
	Init(Config{Level: "info", Format: "json", Output: "discard"})
	defer SetGlobalLogger(nil)

	first := Get("algorithm")
	second := Get("algorithm")
	if first != second {
		t.Error("expected Get to cache component loggers")
	}

	custom := NewNop()
	Register("engine", custom)
	if Get("engine") != custom {
		t.Error("expected registered logger to be returned")
	}

	names := Names()
	if len(names) != 2 || names[0] != "algorithm" || names[1] != "engine" {
		t.Errorf("unexpected names %v", names)
	}

	Reset()
	if len(Names()) != 0 {
		t.Error("expected Reset to clear the registry")
	}
}

func TestPackageLevelFunctions(t *testing.T) {
	var buf bytes.Buffer
	SetGlobalLogger(jsonLogger(&buf, "debug"))
	defer SetGlobalLogger(nil)

	Debug("d")
	Info("i")
	Warn("w")
	Error("e")
	WithComponent("c").Info("tagged")
	if strings.Count(buf.String(), "\n") != 5 {
		t.Errorf("expected 5 lines, got %q", buf.String())
	}
}

// --- config tests ---

func TestConfigApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != "console" || cfg.Output != "stdout" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.MaxSize != 100 || cfg.MaxBackups != 3 || cfg.MaxAge != 28 {
		t.Errorf("unexpected rotation defaults %+v", cfg)
	}
	if !cfg.Timestamp {
		t.Error("expected Timestamp=true")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "info", Format: "json", Output: "stdout"}, false},
		{"bad level", Config{Level: "loud", Format: "json", Output: "stdout"}, true},
		{"bad format", Config{Level: "info", Format: "xml", Output: "stdout"}, true},
		{"bad output", Config{Level: "info", Format: "json", Output: "syslog"}, true},
		{"file without path", Config{Level: "info", Format: "json", Output: "file"}, true},
		{"file with path", Config{Level: "info", Format: "json", Output: "file", File: "x.log"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("expected error=%v, got %v", tc.wantErr, err)
			}
		})
	}
}

// --- fields tests ---

func TestFields(t *testing.T) {
	m := Fields("a", 1, "b", "two", 3, "ignored", "dangling")
	if len(m) != 2 || m["a"] != 1 || m["b"] != "two" {
		t.Errorf("unexpected fields %v", m)
	}
}

func TestErrorAndDurationFields(t *testing.T) {
	e := ErrorFields("fit", fmt.Errorf("bad"))
	if e[FieldOperation] != "fit" || e[FieldError] != "bad" {
		t.Errorf("unexpected error fields %v", e)
	}
	d := DurationFields("fold", 1500*time.Millisecond)
	if d[FieldDuration] != int64(1500) {
		t.Errorf("unexpected duration fields %v", d)
	}
	merged := MergeWithDuration(MergeWithError(nil, fmt.Errorf("x")), time.Second)
	if merged[FieldError] != "x" || merged[FieldDuration] != int64(1000) {
		t.Errorf("unexpected merged fields %v", merged)
	}
}

// --- summary tests ---

func TestSummary_Lines(t *testing.T) {
	s := NewSummary("Rankings", "id", "pipeline", "score")
	s.AddRow(0, "Baseline", 0.5)
	s.AddRow(3, "Decision Tree", nil)

	lines := s.Lines()
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d: %v", len(lines), lines)
	}
	if lines[0] != "Rankings" {
		t.Errorf("unexpected title %q", lines[0])
	}
	if !strings.HasPrefix(lines[3], "0   Baseline       0.5000") {
		t.Errorf("unexpected row %q", lines[3])
	}
	if !strings.HasSuffix(lines[4], "-") {
		t.Errorf("expected nil to render as '-', got %q", lines[4])
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 rows, got %d", s.Len())
	}
}
