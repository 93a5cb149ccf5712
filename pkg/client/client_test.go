package client

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/deployr/internal/provision"
	"github.com/loykin/deployr/internal/server"
	"github.com/loykin/deployr/internal/store"
	"github.com/loykin/deployr/internal/supervisor"
)

func newDaemon(t *testing.T) *Client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st, err := store.NewSQLiteStore(store.Config{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	sup := supervisor.New(st,
		supervisor.WithGracePeriod(2*time.Second),
		supervisor.WithSettleDelay(50*time.Millisecond),
		supervisor.WithSampleWindow(50*time.Millisecond),
		supervisor.WithLogger(quiet),
	)
	t.Cleanup(func() {
		states, _ := sup.List(context.Background())
		for _, s := range states {
			_, _ = sup.Stop(context.Background(), s.Project.ID)
		}
	})

	r := server.NewRouter(sup, provision.New(""), st, "/api")
	ts := httptest.NewServer(r.Handler())
	t.Cleanup(ts.Close)
	return New(Config{BaseURL: ts.URL + "/api", Logger: quiet})
}

func newProjectDir(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	bin := filepath.Join(dir, ".venv", "bin")
	if err := os.MkdirAll(bin, 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bin, "python"), []byte("#!/bin/sh\n"+script+"\n"), 0o700); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestClientRoundTrip(t *testing.T) {
	c := newDaemon(t)
	ctx := context.Background()

	if !c.IsReachable(ctx) {
		t.Fatal("daemon should be reachable")
	}

	dir := newProjectDir(t, "sleep 5")
	if err := c.RegisterProject(ctx, Project{ID: "web", Name: "Web", Path: dir, RunCommand: "python main.py"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	states, err := c.ListProjects(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(states) != 1 || states[0].Project.ID != "web" || states[0].Running {
		t.Fatalf("unexpected list: %+v", states)
	}

	pid, err := c.Start(ctx, "web")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if pid <= 0 {
		t.Fatalf("pid %d", pid)
	}

	st, err := c.Status(ctx, "web", true)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.Running || st.PID != pid || st.RunCommand != "python main.py" {
		t.Fatalf("status: %+v", st)
	}

	usage, err := c.Usage(ctx, "web")
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if usage.PID != pid || usage.MemoryRSS == 0 {
		t.Fatalf("usage: %+v", usage)
	}

	logPath, err := c.Logs(ctx, "web")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if logPath == "" {
		t.Fatal("empty log path")
	}

	res, err := c.Stop(ctx, "web")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !res.OK {
		t.Fatalf("stop result: %+v", res)
	}

	if err := c.DeleteProject(ctx, "web"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Start(ctx, "web"); err == nil {
		t.Fatal("start of deleted project should fail")
	}
}

func TestClientErrors(t *testing.T) {
	c := newDaemon(t)
	ctx := context.Background()

	if _, err := c.Start(ctx, "ghost"); err == nil {
		t.Fatal("start of unknown project should fail")
	}
	if _, err := c.Usage(ctx, "ghost"); err == nil {
		t.Fatal("usage of unknown project should fail")
	}

	unreachable := New(Config{BaseURL: "http://127.0.0.1:1/api", Timeout: time.Second, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if unreachable.IsReachable(ctx) {
		t.Fatal("closed port reported reachable")
	}
}
