// Package provision prepares a project's isolated runtime: it creates the
// virtual environment and installs declared dependencies. The supervisor
// only consumes the result; start checks the interpreter marker and fails
// when provisioning has not happened yet.
package provision

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/loykin/deployr/internal/project"
)

const defaultTimeout = 10 * time.Minute

// Provisioner shells out to the system interpreter to build per-project
// virtual environments.
type Provisioner struct {
	Python  string        // system interpreter used to create the venv (default "python3")
	Timeout time.Duration // per-command timeout
	logger  *slog.Logger
}

func New(python string) *Provisioner {
	if python == "" {
		python = "python3"
	}
	return &Provisioner{Python: python, Timeout: defaultTimeout, logger: slog.Default()}
}

// Ensure makes sure the project has a virtual environment with its
// requirements installed. It returns ok=false with a diagnostic message on
// failure; the pip self-upgrade is best-effort and never fails the run.
func (p *Provisioner) Ensure(ctx context.Context, proj project.Config) (bool, string) {
	venvPython := proj.VenvPython()
	if _, err := os.Stat(venvPython); err != nil {
		if out, err := p.run(ctx, proj.Path, p.Python, "-m", "venv", ".venv"); err != nil {
			return false, fmt.Sprintf("failed to create venv: %v\n%s", err, out)
		}
	}

	// pip upgrades fail on air-gapped hosts; that alone should not block a
	// project whose requirements are already satisfied.
	if out, err := p.run(ctx, proj.Path, venvPython, "-m", "pip", "install", "--upgrade", "pip"); err != nil {
		p.logger.Debug("pip self-upgrade failed", "project", proj.ID, "error", err, "output", out)
	}

	reqs := filepath.Join(proj.Path, "requirements.txt")
	if _, err := os.Stat(reqs); err == nil {
		if out, err := p.run(ctx, proj.Path, venvPython, "-m", "pip", "install", "-r", "requirements.txt"); err != nil {
			return false, fmt.Sprintf("pip install failed: %v\n%s", err, out)
		}
	}
	return true, "virtual environment ready and dependencies installed"
}

func (p *Provisioner) run(ctx context.Context, dir, name string, args ...string) (string, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var buf bytes.Buffer
	// #nosec G204 -- interpreter path comes from operator config
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.String(), err
}
