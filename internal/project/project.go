package project

import (
	"path/filepath"
	"time"
)

// Status values persisted in ExecutionInfo.Status.
const (
	StatusRunning = "running"
	StatusStopped = "stopped"
)

// Config describes a supervised project.
// ID is an opaque key, unique per project and stable across restarts.
type Config struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Path       string        `json:"path"`        // project root; also the child's working directory
	RunCommand string        `json:"run_command"` // whitespace-tokenized launch command, e.g. "python main.py"
	Exec       ExecutionInfo `json:"execution_info"`
}

// ExecutionInfo is the last-known execution metadata recorded in the store.
// It mirrors registry state best-effort so external viewers can see status
// even after a supervisor restart. PID is non-nil iff IsRunning.
type ExecutionInfo struct {
	IsRunning bool       `json:"is_running"`
	PID       *int       `json:"pid,omitempty"`
	LastRunAt *time.Time `json:"last_run_time,omitempty"`
	Status    string     `json:"status"`
	LogFile   string     `json:"log_file"`
}

// VenvPython returns the path of the project's isolated interpreter.
// Its presence is the marker that the environment has been provisioned.
func (c *Config) VenvPython() string {
	return filepath.Join(c.Path, ".venv", "bin", "python")
}

// EnvFile returns the path of the optional project-local .env overlay.
func (c *Config) EnvFile() string {
	return filepath.Join(c.Path, ".env")
}

// LogFile returns the configured log path, defaulting to <path>/<id>.log
// when the store has none recorded yet.
func (c *Config) LogFile() string {
	if c.Exec.LogFile != "" {
		return c.Exec.LogFile
	}
	return filepath.Join(c.Path, c.ID+".log")
}
