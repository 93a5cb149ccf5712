package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStatusNonDetailed(t *testing.T) {
	s, st := newTestSupervisor(t)
	ctx := context.Background()
	proj := seedProject(t, st, "web")
	writeVenvStub(t, proj, "sleep 5")

	view := s.Status(ctx, "web", false)
	if view.Running {
		t.Fatal("stopped project reported running")
	}
	if view.PID != 0 || view.RunCommand != "" {
		t.Fatalf("non-detailed view must omit detail fields: %+v", view)
	}

	// Unknown projects are simply "not running", never an error.
	if view := s.Status(ctx, "ghost", false); view.Running {
		t.Fatal("unknown project reported running")
	}

	if _, err := s.Start(ctx, "web"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if view := s.Status(ctx, "web", false); !view.Running {
		t.Fatal("running project reported stopped")
	}
}

func TestStatusDetailed(t *testing.T) {
	s, st := newTestSupervisor(t)
	ctx := context.Background()
	proj := seedProject(t, st, "web")
	writeVenvStub(t, proj, "sleep 5")

	pid, err := s.Start(ctx, "web")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	view := s.Status(ctx, "web", true)
	if !view.Running {
		t.Fatal("running project reported stopped")
	}
	if view.PID != pid {
		t.Fatalf("pid %d, want %d", view.PID, pid)
	}
	if !view.UptimeKnown || view.Uptime < 0 {
		t.Fatalf("uptime should be derivable for a live child: %+v", view)
	}
	if view.LastRunAt == nil {
		t.Fatal("last run time should come from the store")
	}
	if view.RunCommand != proj.RunCommand {
		t.Fatalf("run command %q, want %q", view.RunCommand, proj.RunCommand)
	}
}

// Status must reflect a child that exited on its own, even before any
// reconcile pass runs.
func TestStatusDetectsExitedChild(t *testing.T) {
	s, st := newTestSupervisor(t)
	ctx := context.Background()
	proj := seedProject(t, st, "quick")
	writeVenvStub(t, proj, "exit 0")

	if _, err := s.Start(ctx, "quick"); err != nil {
		t.Fatalf("start: %v", err)
	}
	h, _ := s.reg.Lookup("quick")
	if !h.AwaitExit(2 * time.Second) {
		t.Fatal("child did not exit")
	}
	if view := s.Status(ctx, "quick", false); view.Running {
		t.Fatal("exited child still reported running")
	}
}

func TestUsage(t *testing.T) {
	s, st := newTestSupervisor(t)
	ctx := context.Background()
	proj := seedProject(t, st, "web")
	writeVenvStub(t, proj, "sleep 5")

	if _, err := s.Usage(ctx, "web"); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("usage of stopped project: want ErrNotRunning, got %v", err)
	}

	pid, err := s.Start(ctx, "web")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	sample, err := s.Usage(ctx, "web")
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if sample.PID != pid {
		t.Fatalf("sampled pid %d, want %d", sample.PID, pid)
	}
	if sample.MemoryRSS == 0 {
		t.Fatal("live child should report nonzero resident memory")
	}
	if sample.CPUPercent < 0 {
		t.Fatalf("negative cpu percent: %f", sample.CPUPercent)
	}
	if sample.SampledAt.IsZero() {
		t.Fatal("sample timestamp missing")
	}
}

func TestUsageOnExitedChild(t *testing.T) {
	s, st := newTestSupervisor(t)
	ctx := context.Background()
	proj := seedProject(t, st, "quick")
	writeVenvStub(t, proj, "exit 0")

	if _, err := s.Start(ctx, "quick"); err != nil {
		t.Fatalf("start: %v", err)
	}
	h, _ := s.reg.Lookup("quick")
	if !h.AwaitExit(2 * time.Second) {
		t.Fatal("child did not exit")
	}
	if _, err := s.Usage(ctx, "quick"); !errors.Is(err, ErrSampleUnavailable) {
		t.Fatalf("want ErrSampleUnavailable, got %v", err)
	}
}

func TestLogsAndList(t *testing.T) {
	s, st := newTestSupervisor(t)
	ctx := context.Background()
	proj := seedProject(t, st, "web")
	writeVenvStub(t, proj, "sleep 5")

	path, err := s.Logs(ctx, "web")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if path != proj.LogFile() {
		t.Fatalf("log path %q, want %q", path, proj.LogFile())
	}
	if _, err := s.Logs(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("logs of unknown project: want ErrNotFound, got %v", err)
	}

	seedProject(t, st, "idle")
	if _, err := s.Start(ctx, "web"); err != nil {
		t.Fatalf("start: %v", err)
	}
	states, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("want 2 projects, got %d", len(states))
	}
	byID := map[string]bool{}
	for _, st := range states {
		byID[st.Project.ID] = st.Running
	}
	if !byID["web"] || byID["idle"] {
		t.Fatalf("liveness flags wrong: %v", byID)
	}
}
