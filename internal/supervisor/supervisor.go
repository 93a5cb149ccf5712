// Package supervisor implements the process supervision engine: the
// start/stop/restart state machine over the process registry, with status
// and usage queries built on OS process introspection. Lifecycle
// transitions are mirrored into the store best-effort; the registry plus a
// live OS check stay authoritative.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/loykin/deployr/internal/env"
	"github.com/loykin/deployr/internal/metrics"
	"github.com/loykin/deployr/internal/project"
	"github.com/loykin/deployr/internal/registry"
	"github.com/loykin/deployr/internal/store"
)

const (
	defaultGracePeriod  = 5 * time.Second
	defaultSettleDelay  = 1 * time.Second
	defaultSampleWindow = 1 * time.Second
	killReapWindow      = 200 * time.Millisecond
)

type Supervisor struct {
	reg    *registry.Registry
	st     store.Store
	envM   *env.Env
	logger *slog.Logger

	gracePeriod  time.Duration
	settleDelay  time.Duration
	sampleWindow time.Duration

	mu        sync.Mutex
	locks     map[string]*sync.Mutex // per-project transition locks
	reconStop chan struct{}
}

type Option func(*Supervisor)

// WithGracePeriod overrides the SIGTERM-to-SIGKILL escalation window.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Supervisor) { s.gracePeriod = d }
}

// WithSettleDelay overrides the pause between stop and start on restart.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Supervisor) { s.settleDelay = d }
}

// WithSampleWindow overrides the CPU sampling interval used by Usage.
func WithSampleWindow(d time.Duration) Option {
	return func(s *Supervisor) { s.sampleWindow = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) { s.logger = l }
}

func New(st store.Store, opts ...Option) *Supervisor {
	s := &Supervisor{
		reg:          registry.New(),
		st:           st,
		envM:         env.New(),
		logger:       slog.Default(),
		gracePeriod:  defaultGracePeriod,
		settleDelay:  defaultSettleDelay,
		sampleWindow: defaultSampleWindow,
		locks:        make(map[string]*sync.Mutex),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// projLock returns the transition lock for one project. Start and stop for
// the same project must never interleave; per-project locking serializes
// them without blocking operations on other projects. The registry's own
// mutex is never held across slow OS waits.
func (s *Supervisor) projLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// Start launches the project's run command as a detached child.
//
// Fixed convention inherited from the original deployment tooling: the
// first token of run_command is always discarded and replaced by the
// project's isolated interpreter, so "python main.py" launches
// "<project>/.venv/bin/python main.py". The remaining tokens pass through
// verbatim.
func (s *Supervisor) Start(ctx context.Context, id string) (int, error) {
	l := s.projLock(id)
	l.Lock()
	defer l.Unlock()

	if h, ok := s.reg.Lookup(id); ok && h.Alive() {
		return 0, ErrAlreadyRunning
	}

	proj, err := s.st.GetProject(ctx, id)
	if err != nil {
		return 0, err
	}

	venvPython := proj.VenvPython()
	if _, err := os.Stat(venvPython); err != nil {
		return 0, ErrEnvironmentMissing
	}

	tokens := strings.Fields(proj.RunCommand)
	if len(tokens) == 0 {
		tokens = []string{"python", "main.py"}
	}
	argv := append([]string{venvPython}, tokens[1:]...)

	// Environment merge is read-only; computing it outside any lock-held
	// OS wait is safe. Per-line overlay problems are skipped inside
	// LoadOverlay; a corrupt file degrades to inherit-only.
	overlay, err := env.LoadOverlay(proj.EnvFile())
	if err != nil {
		s.logger.Warn("failed to read project .env overlay", "project", id, "error", err)
		overlay = nil
	}
	environ := s.envM.Merge(overlay)

	// Combined stdout+stderr, truncated on every start.
	logPath := proj.LogFile()
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("%w: open log file: %v", ErrSpawnFailed, err)
	}

	// #nosec G204 -- argv is built from operator-owned project config
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = proj.Path
	cmd.Env = environ
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	// New session: the child must outlive supervisor termination.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		_ = logFile.Close()
		metrics.IncSpawnFailure(id)
		return 0, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}
	// The child owns its copy of the descriptor.
	_ = logFile.Close()

	h := registry.NewHandle(id, cmd)
	go h.Reap()
	if err := s.reg.Register(h); err != nil {
		// Lost a race despite the project lock (stale entry revived
		// out-of-band). Kill our child rather than leave two running.
		_ = h.Signal(syscall.SIGKILL)
		h.AwaitExit(killReapWindow)
		return 0, err
	}

	pid := h.PID
	now := time.Now().UTC()
	running := true
	status := project.StatusRunning
	logName := logPath
	if err := s.st.UpdateExecutionInfo(ctx, id, store.ExecUpdate{
		IsRunning: &running,
		PID:       &pid,
		LastRunAt: &now,
		Status:    &status,
		LogFile:   &logName,
	}); err != nil {
		// Soft: the process is up; metadata catches up on the next
		// transition or reconcile pass.
		s.logger.Warn("failed to persist execution info after start", "project", id, "pid", pid, "error", err)
	}

	metrics.IncStart(id)
	metrics.SetRunning(id, true)
	s.logger.Info("project started", "project", id, "pid", pid)
	return pid, nil
}

// StopResult reports how a stop concluded. AlreadyStopped means the child
// had exited before we signaled it; the stale entry was still removed and
// the store updated. A non-empty Warning records a soft persistence
// failure after the OS-level stop succeeded.
type StopResult struct {
	AlreadyStopped bool
	Warning        string
}

// Stop terminates the project's child: remove the registry entry first,
// then SIGTERM the process group, wait out the grace period, and escalate
// to SIGKILL. Only the registry removal happens under lock; the grace wait
// does not block other operations.
func (s *Supervisor) Stop(ctx context.Context, id string) (StopResult, error) {
	l := s.projLock(id)
	l.Lock()
	defer l.Unlock()

	h, ok := s.reg.Remove(id)
	if !ok {
		return StopResult{}, ErrNotRunning
	}

	var res StopResult
	if !h.Alive() {
		res.AlreadyStopped = true
		s.logger.Info("project already stopped; removed stale entry", "project", id, "pid", h.PID)
	} else {
		if err := h.Signal(syscall.SIGTERM); err != nil {
			s.logger.Warn("failed to signal process group", "project", id, "pid", h.PID, "error", err)
		}
		if !h.AwaitExit(s.gracePeriod) {
			s.logger.Warn("grace period elapsed, killing", "project", id, "pid", h.PID)
			_ = h.Signal(syscall.SIGKILL)
			h.AwaitExit(killReapWindow)
		}
		s.logger.Info("project stopped", "project", id, "pid", h.PID)
	}

	running := false
	status := project.StatusStopped
	if err := s.st.UpdateExecutionInfo(ctx, id, store.ExecUpdate{
		IsRunning: &running,
		Status:    &status,
	}); err != nil {
		// The OS-level stop already succeeded; report it as such with a
		// warning instead of failing the whole call.
		res.Warning = fmt.Sprintf("process stopped but execution info not persisted: %v", err)
		s.logger.Warn("failed to persist execution info after stop", "project", id, "error", err)
	}

	metrics.IncStop(id)
	metrics.SetRunning(id, false)
	return res, nil
}

// Restart stops the project (treating "was not running" as benign), waits
// the settle delay so the OS releases ports and other resources the old
// child held, then starts it again.
func (s *Supervisor) Restart(ctx context.Context, id string) (int, error) {
	if _, err := s.Stop(ctx, id); err != nil && !errors.Is(err, ErrNotRunning) {
		return 0, err
	}
	time.Sleep(s.settleDelay)
	pid, err := s.Start(ctx, id)
	if err == nil {
		metrics.IncRestart(id)
	}
	return pid, err
}
