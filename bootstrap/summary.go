package bootstrap

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// InfrastructureInfo describes a resource opened for the run.
type InfrastructureInfo struct {
	Name    string
	Type    string // e.g. "redis", "ledger", "tracer"
	Status  string
	Details string
	Healthy bool
}

// SettingInfo is a key setting of the run, such as the engine or objective.
type SettingInfo struct {
	Name  string
	Value string
}

// Summary tracks and displays what the application started with.
type Summary struct {
	mu              sync.Mutex
	serviceName     string
	version         string
	startupDuration time.Duration
	infrastructure  []InfrastructureInfo
	settings        []SettingInfo
}

// NewSummary creates a new bootstrap summary tracker.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{
		serviceName: serviceName,
		version:     version,
	}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startupDuration = d
}

// TrackInfrastructure adds an infrastructure resource.
func (s *Summary) TrackInfrastructure(name, resourceType, status, details string, healthy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.infrastructure = append(s.infrastructure, InfrastructureInfo{
		Name:    name,
		Type:    resourceType,
		Status:  status,
		Details: details,
		Healthy: healthy,
	})
}

// TrackSetting records a setting shown under the run section.
func (s *Summary) TrackSetting(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = append(s.settings, SettingInfo{Name: name, Value: value})
}

// Display writes the summary to w.
func (s *Summary) Display(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	version := s.version
	if version == "" {
		version = "dev"
	}
	fmt.Fprintf(w, "\n🚀 %s %s started in %.2fs\n\n", s.serviceName, version, s.startupDuration.Seconds())

	fmt.Fprintf(w, "📊 Infrastructure\n")
	if len(s.infrastructure) == 0 {
		fmt.Fprintf(w, "   └── In-process only\n")
	}
	for i, inf := range s.infrastructure {
		details := inf.Details
		if details == "" {
			details = inf.Type
		}
		fmt.Fprintf(w, "   %s %s %s: %s\n", treePrefix(i, len(s.infrastructure)), statusIcon(inf.Status, inf.Healthy), inf.Name, details)
	}

	if len(s.settings) > 0 {
		fmt.Fprintf(w, "\n🔎 Search\n")
		for i, st := range s.settings {
			fmt.Fprintf(w, "   %s %s: %s\n", treePrefix(i, len(s.settings)), st.Name, st.Value)
		}
	}
	fmt.Fprintf(w, "\n")
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func statusIcon(status string, healthy bool) string {
	if !healthy {
		return "❌"
	}
	switch status {
	case "active", "connected", "healthy":
		return "✅"
	case "disabled":
		return "⏸️"
	case "error", "failed":
		return "❌"
	default:
		return "⚠️"
	}
}
