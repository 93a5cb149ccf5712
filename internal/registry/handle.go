package registry

import (
	"bytes"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"syscall"
	"time"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// Handle is the in-memory reference to a live OS process owned by the
// supervisor. It is created after a successful spawn and holds the only
// *exec.Cmd for the child; the Reap goroutine is the single waiter.
type Handle struct {
	ProjectID string
	PID       int
	StartedAt time.Time

	cmd      *exec.Cmd
	waitDone chan struct{} // closed by Reap when cmd.Wait returns

	mu      sync.Mutex
	exited  bool
	exitErr error
}

// NewHandle wraps a started command. cmd.Process must be non-nil.
func NewHandle(projectID string, cmd *exec.Cmd) *Handle {
	return &Handle{
		ProjectID: projectID,
		PID:       cmd.Process.Pid,
		StartedAt: time.Now(),
		cmd:       cmd,
		waitDone:  make(chan struct{}),
	}
}

// Reap waits for the child and records its exit. Run it in its own
// goroutine right after NewHandle; without it a quickly-exiting child
// lingers as a zombie until the supervisor exits.
func (h *Handle) Reap() {
	err := h.cmd.Wait()
	h.mu.Lock()
	h.exited = true
	h.exitErr = err
	h.mu.Unlock()
	close(h.waitDone)
}

// Exited reports whether the reaper has observed the child's exit.
func (h *Handle) Exited() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exited
}

// ExitErr returns the error recorded by Reap, if any.
func (h *Handle) ExitErr() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitErr
}

// AwaitExit blocks until the child has been reaped or d elapses.
// It returns true when the child exited within the window.
func (h *Handle) AwaitExit(d time.Duration) bool {
	select {
	case <-h.waitDone:
		return true
	case <-time.After(d):
		return false
	}
}

// Signal delivers sig to the child's process group. The child is spawned
// as a session leader, so -PID addresses it and its descendants.
func (h *Handle) Signal(sig syscall.Signal) error {
	return syscall.Kill(-h.PID, sig)
}

// Alive re-verifies liveness against the OS. The registry entry alone is
// never trusted: the child may have exited or been killed out-of-band, and
// PIDs recycle. A reaped or zombie child counts as dead.
func (h *Handle) Alive() bool {
	if h.Exited() {
		return false
	}
	if runtime.GOOS == "linux" {
		if isZombieLinux(h.PID) {
			return false
		}
		if syscall.Kill(h.PID, 0) == nil {
			return true
		}
	} else {
		if syscall.Kill(-h.PID, 0) == nil {
			return true
		}
	}
	ok, err := gopsproc.PidExists(int32(h.PID))
	return err == nil && ok
}

// isZombieLinux reports whether /proc/<pid>/status shows state Z.
func isZombieLinux(pid int) bool {
	b, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/status")
	if err != nil {
		return false
	}
	return bytes.Contains(b, []byte("State:\tZ"))
}
