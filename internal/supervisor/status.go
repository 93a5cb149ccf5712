package supervisor

import (
	"context"
	"fmt"
	"time"

	gopsproc "github.com/shirou/gopsutil/v4/process"

	"github.com/loykin/deployr/internal/metrics"
	"github.com/loykin/deployr/internal/project"
)

// StatusView is a point-in-time view of a project's lifecycle state.
// Running is always re-derived from the registry plus an OS liveness
// check, never from the store. The detail fields are advisory and degrade
// individually instead of failing the call.
type StatusView struct {
	ProjectID string `json:"project_id"`
	Running   bool   `json:"running"`

	// Detailed-mode fields.
	PID         int           `json:"pid,omitempty"`
	Uptime      time.Duration `json:"uptime,omitempty"`
	UptimeKnown bool          `json:"uptime_known,omitempty"`
	LastRunAt   *time.Time    `json:"last_run_time,omitempty"`
	RunCommand  string        `json:"run_command,omitempty"`
}

// ResourceSample is one CPU/memory observation of a project's process.
type ResourceSample struct {
	PID        int       `json:"pid"`
	CPUPercent float64   `json:"cpu_percent"`
	MemoryRSS  uint64    `json:"memory_rss"`
	MemoryMB   float64   `json:"memory_mb"`
	SampledAt  time.Time `json:"sampled_at"`
}

// Status reports whether the project is running. Non-detailed mode answers
// from the registry and the OS alone and never touches the store, so it
// works even when persistence is down. Detailed mode adds the PID, uptime
// derived from the OS process's own start timestamp (an externally
// restarted PID would otherwise be indistinguishable), and the last
// recorded run time and launch command from the store.
func (s *Supervisor) Status(ctx context.Context, id string, detailed bool) StatusView {
	view := StatusView{ProjectID: id}

	h, ok := s.reg.Lookup(id)
	alive := ok && h.Alive()
	view.Running = alive
	if !detailed {
		return view
	}

	if alive {
		view.PID = h.PID
		if p, err := gopsproc.NewProcess(int32(h.PID)); err == nil {
			if createMS, err := p.CreateTime(); err == nil {
				view.Uptime = time.Since(time.UnixMilli(createMS))
				view.UptimeKnown = true
			}
		}
		if !view.UptimeKnown {
			s.logger.Debug("uptime unavailable", "project", id, "pid", h.PID)
		}
	}

	// Store data is advisory; unreachable persistence degrades these
	// fields rather than failing the status call.
	if proj, err := s.st.GetProject(ctx, id); err == nil {
		view.LastRunAt = proj.Exec.LastRunAt
		view.RunCommand = proj.RunCommand
	} else {
		s.logger.Debug("store unavailable for detailed status", "project", id, "error", err)
	}
	return view
}

// Usage samples CPU and resident memory for the project's process. CPU is
// measured over the configured window, so the call blocks for that long;
// callers needing non-blocking behavior run it on a worker. An entry whose
// process exited between the liveness check and sampling yields
// ErrSampleUnavailable, not a crash.
func (s *Supervisor) Usage(ctx context.Context, id string) (ResourceSample, error) {
	h, ok := s.reg.Lookup(id)
	if !ok {
		return ResourceSample{}, ErrNotRunning
	}
	if !h.Alive() {
		return ResourceSample{}, fmt.Errorf("%w: process exited", ErrSampleUnavailable)
	}

	p, err := gopsproc.NewProcess(int32(h.PID))
	if err != nil {
		return ResourceSample{}, fmt.Errorf("%w: %v", ErrSampleUnavailable, err)
	}
	cpu, err := p.Percent(s.sampleWindow)
	if err != nil {
		return ResourceSample{}, fmt.Errorf("%w: %v", ErrSampleUnavailable, err)
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		return ResourceSample{}, fmt.Errorf("%w: %v", ErrSampleUnavailable, err)
	}

	sample := ResourceSample{
		PID:        h.PID,
		CPUPercent: cpu,
		MemoryRSS:  mem.RSS,
		MemoryMB:   float64(mem.RSS) / 1024 / 1024,
		SampledAt:  time.Now().UTC(),
	}
	metrics.SetUsage(id, sample.CPUPercent, sample.MemoryMB)
	return sample, nil
}

// Logs returns the project's configured log file path.
func (s *Supervisor) Logs(ctx context.Context, id string) (string, error) {
	proj, err := s.st.GetProject(ctx, id)
	if err != nil {
		return "", err
	}
	return proj.LogFile(), nil
}

// ProjectState pairs a stored project with its live running flag.
type ProjectState struct {
	Project project.Config `json:"project"`
	Running bool           `json:"running"`
}

// List returns all stored projects with liveness re-derived per entry.
func (s *Supervisor) List(ctx context.Context) ([]ProjectState, error) {
	projects, err := s.st.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProjectState, 0, len(projects))
	for _, p := range projects {
		h, ok := s.reg.Lookup(p.ID)
		out = append(out, ProjectState{Project: p, Running: ok && h.Alive()})
	}
	return out, nil
}
