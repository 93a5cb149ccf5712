package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/loykin/deployr/pkg/client"
)

// command implements CLI operations against a running daemon. All project
// operations go through the HTTP API; only serve runs in-process.
type command struct {
	out io.Writer
}

func newCommand() command { return command{out: os.Stdout} }

func (c command) newClient(apiURL string, timeout time.Duration) *client.Client {
	cfg := client.DefaultConfig()
	if apiURL != "" {
		cfg.BaseURL = apiURL
	}
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	return client.New(cfg)
}

func (c command) Register(f RegisterFlags) error {
	cl := c.newClient(f.APIUrl, f.APITimeout)
	err := cl.RegisterProject(context.Background(), client.Project{
		ID:         f.ID,
		Name:       f.Name,
		Path:       f.Path,
		RunCommand: f.RunCommand,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "registered project %s\n", f.ID)
	return nil
}

func (c command) Unregister(f ProjectFlags) error {
	cl := c.newClient(f.APIUrl, f.APITimeout)
	if err := cl.DeleteProject(context.Background(), f.ID); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "unregistered project %s\n", f.ID)
	return nil
}

func (c command) List(f ListFlags) error {
	cl := c.newClient(f.APIUrl, f.APITimeout)
	states, err := cl.ListProjects(context.Background())
	if err != nil {
		return err
	}
	if len(states) == 0 {
		fmt.Fprintln(c.out, "no projects registered")
		return nil
	}
	for _, s := range states {
		state := "stopped"
		if s.Running {
			state = "running"
		}
		fmt.Fprintf(c.out, "%-20s %-8s %s\n", s.Project.ID, state, s.Project.Path)
	}
	return nil
}

func (c command) Provision(f ProjectFlags) error {
	cl := c.newClient(f.APIUrl, f.APITimeout)
	msg, err := cl.Provision(context.Background(), f.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s: %s\n", f.ID, msg)
	return nil
}

func (c command) Start(f ProjectFlags) error {
	cl := c.newClient(f.APIUrl, f.APITimeout)
	pid, err := cl.Start(context.Background(), f.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "started %s (pid %d)\n", f.ID, pid)
	return nil
}

func (c command) Stop(f ProjectFlags) error {
	cl := c.newClient(f.APIUrl, f.APITimeout)
	res, err := cl.Stop(context.Background(), f.ID)
	if err != nil {
		return err
	}
	if res.Message != "" {
		fmt.Fprintf(c.out, "%s: %s\n", f.ID, res.Message)
	} else {
		fmt.Fprintf(c.out, "stopped %s\n", f.ID)
	}
	if res.Warning != "" {
		fmt.Fprintf(c.out, "warning: %s\n", res.Warning)
	}
	return nil
}

func (c command) Restart(f ProjectFlags) error {
	cl := c.newClient(f.APIUrl, f.APITimeout)
	pid, err := cl.Restart(context.Background(), f.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "restarted %s (pid %d)\n", f.ID, pid)
	return nil
}

func (c command) Status(f StatusFlags) error {
	cl := c.newClient(f.APIUrl, f.APITimeout)
	st, err := cl.Status(context.Background(), f.ID, f.Detailed)
	if err != nil {
		return err
	}
	state := "stopped"
	if st.Running {
		state = "running"
	}
	fmt.Fprintf(c.out, "%s: %s\n", st.ProjectID, state)
	if !f.Detailed {
		return nil
	}
	if st.Running {
		fmt.Fprintf(c.out, "  pid:         %d\n", st.PID)
		if st.UptimeKnown {
			fmt.Fprintf(c.out, "  uptime:      %s\n", st.Uptime.Round(time.Second))
		}
	}
	if st.LastRunAt != nil {
		fmt.Fprintf(c.out, "  last run:    %s\n", st.LastRunAt.Format(time.RFC3339))
	}
	if st.RunCommand != "" {
		fmt.Fprintf(c.out, "  run command: %s\n", st.RunCommand)
	}
	return nil
}

func (c command) Usage(f ProjectFlags) error {
	cl := c.newClient(f.APIUrl, f.APITimeout)
	u, err := cl.Usage(context.Background(), f.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s (pid %d): cpu %.1f%%, memory %.1f MB\n", f.ID, u.PID, u.CPUPercent, u.MemoryMB)
	return nil
}

func (c command) Logs(f ProjectFlags) error {
	cl := c.newClient(f.APIUrl, f.APITimeout)
	path, err := cl.Logs(context.Background(), f.ID)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, path)
	return nil
}
