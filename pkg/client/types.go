package client

import "time"

// Project mirrors the daemon's project document.
type Project struct {
	ID         string        `json:"id"`
	Name       string        `json:"name,omitempty"`
	Path       string        `json:"path"`
	RunCommand string        `json:"run_command"`
	Exec       ExecutionInfo `json:"execution_info,omitempty"`
}

// ExecutionInfo is the last execution metadata recorded by the daemon.
type ExecutionInfo struct {
	IsRunning bool       `json:"is_running"`
	PID       *int       `json:"pid,omitempty"`
	LastRunAt *time.Time `json:"last_run_time,omitempty"`
	Status    string     `json:"status,omitempty"`
	LogFile   string     `json:"log_file,omitempty"`
}

// ProjectState pairs a project with its live running flag.
type ProjectState struct {
	Project Project `json:"project"`
	Running bool    `json:"running"`
}

// Status is a point-in-time view of one project's lifecycle state.
type Status struct {
	ProjectID   string        `json:"project_id"`
	Running     bool          `json:"running"`
	PID         int           `json:"pid,omitempty"`
	Uptime      time.Duration `json:"uptime,omitempty"`
	UptimeKnown bool          `json:"uptime_known,omitempty"`
	LastRunAt   *time.Time    `json:"last_run_time,omitempty"`
	RunCommand  string        `json:"run_command,omitempty"`
}

// Usage is one CPU/memory sample of a project's process.
type Usage struct {
	PID        int       `json:"pid"`
	CPUPercent float64   `json:"cpu_percent"`
	MemoryRSS  uint64    `json:"memory_rss"`
	MemoryMB   float64   `json:"memory_mb"`
	SampledAt  time.Time `json:"sampled_at"`
}

// OpResult is the daemon's response to a mutating operation.
type OpResult struct {
	OK      bool   `json:"ok"`
	PID     int    `json:"pid,omitempty"`
	Message string `json:"message,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
