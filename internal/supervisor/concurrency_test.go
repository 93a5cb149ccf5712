package supervisor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// Two concurrent starts of the same project must produce exactly one
// child; the loser gets ErrAlreadyRunning.
func TestConcurrentStartSingleWinner(t *testing.T) {
	s, st := newTestSupervisor(t)
	ctx := context.Background()
	proj := seedProject(t, st, "web")
	writeVenvStub(t, proj, "sleep 5")

	const n = 4
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Start(ctx, "web")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var wins, losses int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrAlreadyRunning):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != n-1 {
		t.Fatalf("want 1 winner and %d losers, got %d/%d", n-1, wins, losses)
	}
	if s.reg.Len() != 1 {
		t.Fatalf("registry holds %d entries, want 1", s.reg.Len())
	}
}

// A slow stop of one project must not block operations on another.
func TestStopDoesNotBlockOtherProjects(t *testing.T) {
	s, st := newTestSupervisor(t)
	s.gracePeriod = 3 * time.Second
	ctx := context.Background()

	stubborn := seedProject(t, st, "stubborn")
	// The shell ignores SIGTERM and respawns its sleep when the group
	// signal kills it, so only SIGKILL ends this child.
	writeVenvStub(t, stubborn, "trap '' TERM\nwhile true; do sleep 1; done")
	other := seedProject(t, st, "other")
	writeVenvStub(t, other, "sleep 5")

	if _, err := s.Start(ctx, "stubborn"); err != nil {
		t.Fatalf("start stubborn: %v", err)
	}

	stopDone := make(chan struct{})
	go func() {
		defer close(stopDone)
		if _, err := s.Stop(ctx, "stubborn"); err != nil {
			t.Errorf("stop stubborn: %v", err)
		}
	}()

	// The stubborn child ignores SIGTERM, so its stop is riding out the
	// grace period right now. Starting another project must still be fast.
	time.Sleep(100 * time.Millisecond)
	begin := time.Now()
	if _, err := s.Start(ctx, "other"); err != nil {
		t.Fatalf("start other: %v", err)
	}
	if elapsed := time.Since(begin); elapsed > s.gracePeriod {
		t.Fatalf("start of unrelated project took %v, blocked behind a stop", elapsed)
	}

	select {
	case <-stopDone:
	case <-time.After(2 * s.gracePeriod):
		t.Fatal("stop never finished")
	}
	if view := s.Status(ctx, "stubborn", false); view.Running {
		t.Fatal("stubborn child survived escalation to SIGKILL")
	}
}
