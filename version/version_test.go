package version

import (
	"strings"
	"testing"
)

func saveAndRestore() func() {
	origVersion, origCommit, origBranch, origBuildTime, origGoVersion :=
		Version, GitCommit, GitBranch, BuildTime, GoVersion
	return func() {
		Version = origVersion
		GitCommit = origCommit
		GitBranch = origBranch
		BuildTime = origBuildTime
		GoVersion = origGoVersion
	}
}

// --- Info tests ---

func TestGetDefaults(t *testing.T) {
	defer saveAndRestore()()
	Version, GitCommit, GitBranch, BuildTime, GoVersion = "dev", "", "", "", ""

	info := Get()
	if info.Version != "dev" {
		t.Errorf("expected version 'dev', got %q", info.Version)
	}
	if info.IsRelease {
		t.Error("dev should not be a release")
	}
	if info.GoVersion == "" {
		t.Error("expected the toolchain version from build info")
	}
}

func TestGetWithLdflags(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.0.0"
	BuildTime = "2024-01-15T10:30:00Z"
	GitCommit = "abc1234def"
	GoVersion = "go1.22.0"

	info := Get()
	if !info.IsRelease {
		t.Error("1.0.0 should be a release")
	}
	if info.GitCommit != "abc1234" {
		t.Errorf("expected commit shortened to 'abc1234', got %q", info.GitCommit)
	}
	if info.GoVersion != "go1.22.0" {
		t.Errorf("expected 'go1.22.0', got %q", info.GoVersion)
	}
	if info.BuildDate.Year() != 2024 {
		t.Errorf("expected build year 2024, got %d", info.BuildDate.Year())
	}
}

func TestGetDirtyVersion(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.0.0-dirty"
	if Get().IsRelease {
		t.Error("dirty version should not be a release")
	}
}

func TestShortAndFull(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.0.0"
	GitCommit = "abc1234"
	GitBranch = "feature/thresholds"
	BuildTime = "2024-01-15T10:30:00Z"

	if s := Short(); !strings.HasPrefix(s, "1.0.0-abc1234") {
		t.Errorf("expected short version to start with '1.0.0-abc1234', got %q", s)
	}
	full := Full()
	for _, want := range []string{"1.0.0-abc1234", "feature/thresholds", "built 2024-01-15"} {
		if !strings.Contains(full, want) {
			t.Errorf("expected full version to contain %q, got %q", want, full)
		}
	}

	GitBranch = "main"
	if strings.Contains(Full(), "main") {
		t.Errorf("main branch should not appear in full version, got %q", Full())
	}
}

// --- Release tests ---

func TestSameRelease(t *testing.T) {
	tests := []struct {
		a, b string
		same bool
	}{
		{"1.4.2", "1.4.0", true},
		{"v1.4.2-abc1234", "1.4.9-dirty", true},
		{"1.4.2", "1.5.0", false},
		{"2.0.0", "1.0.0", false},
		{"dev", "dev", true},
		{"dev-abc1234", "dev-def5678", false},
		{"dev", "1.0.0", false},
	}
	for _, tc := range tests {
		if got := SameRelease(tc.a, tc.b); got != tc.same {
			t.Errorf("SameRelease(%q, %q) = %v, expected %v", tc.a, tc.b, got, tc.same)
		}
	}
}
