package registry

import (
	"errors"
	"os/exec"
	"syscall"
	"testing"
	"time"
)

func spawn(t *testing.T, args ...string) *Handle {
	t.Helper()
	cmd := exec.Command(args[0], args[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		t.Fatalf("start %v: %v", args, err)
	}
	h := NewHandle("demo", cmd)
	go h.Reap()
	t.Cleanup(func() {
		_ = h.Signal(syscall.SIGKILL)
		h.AwaitExit(2 * time.Second)
	})
	return h
}

func TestRegisterLookupRemove(t *testing.T) {
	r := New()
	h := spawn(t, "sleep", "2")
	if err := r.Register(h); err != nil {
		t.Fatalf("register: %v", err)
	}
	got, ok := r.Lookup("demo")
	if !ok || got != h {
		t.Fatalf("lookup returned %v %v", got, ok)
	}
	removed, ok := r.Remove("demo")
	if !ok || removed != h {
		t.Fatalf("remove returned %v %v", removed, ok)
	}
	if _, ok := r.Lookup("demo"); ok {
		t.Fatal("entry should be gone after remove")
	}
	if _, ok := r.Remove("demo"); ok {
		t.Fatal("second remove must be a no-op")
	}
}

func TestRegisterRejectsLiveDuplicate(t *testing.T) {
	r := New()
	h1 := spawn(t, "sleep", "2")
	if err := r.Register(h1); err != nil {
		t.Fatalf("register: %v", err)
	}
	h2 := spawn(t, "sleep", "2")
	if err := r.Register(h2); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("want ErrAlreadyRunning, got %v", err)
	}
}

func TestRegisterReplacesStaleEntry(t *testing.T) {
	r := New()
	h1 := spawn(t, "true")
	if !h1.AwaitExit(2 * time.Second) {
		t.Fatal("child did not exit")
	}
	if err := r.Register(h1); err != nil {
		t.Fatalf("register stale: %v", err)
	}
	h2 := spawn(t, "sleep", "2")
	if err := r.Register(h2); err != nil {
		t.Fatalf("stale entry must be replaceable: %v", err)
	}
	got, _ := r.Lookup("demo")
	if got != h2 {
		t.Fatal("registry should hold the fresh handle")
	}
}

func TestHandleAliveness(t *testing.T) {
	h := spawn(t, "sleep", "2")
	if !h.Alive() {
		t.Fatal("freshly spawned child should be alive")
	}
	_ = h.Signal(syscall.SIGKILL)
	if !h.AwaitExit(2 * time.Second) {
		t.Fatal("child did not exit after SIGKILL")
	}
	if h.Alive() {
		t.Fatal("reaped child must not report alive")
	}
	if !h.Exited() {
		t.Fatal("Exited should be true after reap")
	}
}
