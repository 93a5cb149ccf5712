// Package client talks to a running deployr daemon over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Client provides HTTP client functionality to communicate with the
// deployr daemon.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger
}

// DefaultConfig returns default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://127.0.0.1:8190/api",
		// Usage blocks for the server's CPU sample window and provision
		// can run pip installs; leave headroom beyond plain round trips.
		Timeout: 15 * time.Minute,
	}
}

// New creates a new deployr API client.
func New(config Config) *Client {
	def := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = def.Timeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL: config.BaseURL,
		logger:  config.Logger,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// IsReachable checks if the daemon is running and reachable.
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/projects", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("daemon unreachable", "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode != http.StatusNotFound
}

// RegisterProject registers or updates a project definition.
func (c *Client) RegisterProject(ctx context.Context, p Project) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	var out OpResult
	return c.do(ctx, http.MethodPost, c.baseURL+"/projects", data, &out)
}

// DeleteProject removes a stopped project from the daemon.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	var out OpResult
	return c.do(ctx, http.MethodDelete, c.opURL("/projects", id), nil, &out)
}

// ListProjects returns all registered projects with live running flags.
func (c *Client) ListProjects(ctx context.Context) ([]ProjectState, error) {
	var out []ProjectState
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/projects", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Provision prepares a project's virtual environment and installs its
// declared dependencies.
func (c *Client) Provision(ctx context.Context, id string) (string, error) {
	var out OpResult
	if err := c.do(ctx, http.MethodPost, c.opURL("/provision", id), nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Start launches the project and returns the new PID.
func (c *Client) Start(ctx context.Context, id string) (int, error) {
	var out OpResult
	if err := c.do(ctx, http.MethodPost, c.opURL("/start", id), nil, &out); err != nil {
		return 0, err
	}
	return out.PID, nil
}

// Stop terminates the project. The returned result may carry a warning
// when the process stopped but bookkeeping lagged behind.
func (c *Client) Stop(ctx context.Context, id string) (OpResult, error) {
	var out OpResult
	err := c.do(ctx, http.MethodPost, c.opURL("/stop", id), nil, &out)
	return out, err
}

// Restart stops and starts the project, returning the fresh PID.
func (c *Client) Restart(ctx context.Context, id string) (int, error) {
	var out OpResult
	if err := c.do(ctx, http.MethodPost, c.opURL("/restart", id), nil, &out); err != nil {
		return 0, err
	}
	return out.PID, nil
}

// Status reports the project's lifecycle state.
func (c *Client) Status(ctx context.Context, id string, detailed bool) (Status, error) {
	u := c.opURL("/status", id)
	if detailed {
		u += "&detailed=true"
	}
	var out Status
	err := c.do(ctx, http.MethodGet, u, nil, &out)
	return out, err
}

// Usage samples CPU and memory for the project's process. The server
// blocks for its sample window before answering.
func (c *Client) Usage(ctx context.Context, id string) (Usage, error) {
	var out Usage
	err := c.do(ctx, http.MethodGet, c.opURL("/usage", id), nil, &out)
	return out, err
}

// Logs returns the path of the project's log file on the daemon host.
func (c *Client) Logs(ctx context.Context, id string) (string, error) {
	var out struct {
		Path string `json:"path"`
	}
	if err := c.do(ctx, http.MethodGet, c.opURL("/logs", id), nil, &out); err != nil {
		return "", err
	}
	return out.Path, nil
}

func (c *Client) opURL(path, id string) string {
	return c.baseURL + path + "?id=" + url.QueryEscape(id)
}

// do performs an HTTP request, decoding the JSON body into out on success
// and surfacing the daemon's error message otherwise.
func (c *Client) do(ctx context.Context, method, u string, body []byte, out any) error {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	var req *http.Request
	var err error
	if reader != nil {
		req, err = http.NewRequestWithContext(ctx, method, u, reader)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, u, nil)
	}
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "url", u, "error", err)
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error == "" {
			return fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		return fmt.Errorf("API error: %s", errResp.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
