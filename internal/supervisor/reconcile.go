package supervisor

import (
	"context"
	"time"

	"github.com/loykin/deployr/internal/metrics"
	"github.com/loykin/deployr/internal/project"
	"github.com/loykin/deployr/internal/store"
)

// ReconcileOnce drops registry entries whose process exited without the
// supervisor noticing (crash, external kill) and records them as stopped
// in the store. It never starts anything; stale-entry detection on stop or
// status remains the baseline behavior and this pass only makes it
// proactive.
func (s *Supervisor) ReconcileOnce(ctx context.Context) {
	for id, h := range s.reg.Snapshot() {
		if h.Alive() {
			continue
		}
		l := s.projLock(id)
		l.Lock()
		// Re-check under the transition lock: a concurrent stop or
		// restart may already have acted on this entry.
		cur, ok := s.reg.Lookup(id)
		if !ok || cur != h {
			l.Unlock()
			continue
		}
		s.reg.Remove(id)
		running := false
		status := project.StatusStopped
		if err := s.st.UpdateExecutionInfo(ctx, id, store.ExecUpdate{
			IsRunning: &running,
			Status:    &status,
		}); err != nil {
			s.logger.Warn("failed to persist reconciled stop", "project", id, "error", err)
		}
		metrics.SetRunning(id, false)
		s.logger.Info("reconciled crashed project", "project", id, "pid", h.PID, "exit_error", h.ExitErr())
		l.Unlock()
	}
}

// StartReconciler runs ReconcileOnce on a fixed interval until
// StopReconciler is called. Calling it twice is a no-op.
func (s *Supervisor) StartReconciler(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	s.mu.Lock()
	if s.reconStop != nil {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.reconStop = stop
	s.mu.Unlock()

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				s.ReconcileOnce(context.Background())
			case <-stop:
				return
			}
		}
	}()
}

// StopReconciler stops the background loop if running.
func (s *Supervisor) StopReconciler() {
	s.mu.Lock()
	ch := s.reconStop
	s.reconStop = nil
	s.mu.Unlock()
	if ch != nil {
		close(ch)
	}
}
