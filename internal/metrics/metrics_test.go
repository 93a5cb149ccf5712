package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// Register latches package-level state, so a single test exercises the
// full surface against one registry.
func TestRegisterAndRecord(t *testing.T) {
	r := prometheus.NewRegistry()
	if err := Register(r); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := Register(r); err != nil {
		t.Fatalf("second register must be a no-op: %v", err)
	}

	IncStart("web")
	IncStop("web")
	IncRestart("web")
	IncSpawnFailure("web")
	SetRunning("web", true)
	SetUsage("web", 12.5, 64)

	mfs, err := r.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := make(map[string]bool)
	for _, mf := range mfs {
		found[mf.GetName()] = true
	}
	for _, want := range []string{
		"deployr_project_starts_total",
		"deployr_project_stops_total",
		"deployr_project_restarts_total",
		"deployr_project_spawn_failures_total",
		"deployr_project_running",
		"deployr_project_cpu_percent",
		"deployr_project_memory_mb",
	} {
		if !found[want] {
			t.Errorf("metric %s not gathered", want)
		}
	}
}
