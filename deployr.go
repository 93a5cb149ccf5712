// Package deployr supervises user-supplied projects on a single host: it
// provisions each project's isolated Python runtime, launches the project
// detached with a per-project log file, and tracks lifecycle state in a
// durable store.
package deployr

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/loykin/deployr/internal/config"
	"github.com/loykin/deployr/internal/logger"
	"github.com/loykin/deployr/internal/metrics"
	"github.com/loykin/deployr/internal/project"
	"github.com/loykin/deployr/internal/provision"
	iapi "github.com/loykin/deployr/internal/server"
	"github.com/loykin/deployr/internal/store"
	"github.com/loykin/deployr/internal/supervisor"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Project = project.Config

type ExecutionInfo = project.ExecutionInfo

type Status = supervisor.StatusView

type ResourceSample = supervisor.ResourceSample

type ProjectState = supervisor.ProjectState

type StopResult = supervisor.StopResult

type Store = store.Store

type StoreConfig = store.Config

type LogConfig = logger.Config

type Config = cfg.FileConfig

// Operation errors, re-exported for errors.Is checks by embedders.
var (
	ErrNotFound           = supervisor.ErrNotFound
	ErrAlreadyRunning     = supervisor.ErrAlreadyRunning
	ErrNotRunning         = supervisor.ErrNotRunning
	ErrEnvironmentMissing = supervisor.ErrEnvironmentMissing
	ErrSpawnFailed        = supervisor.ErrSpawnFailed
	ErrSampleUnavailable  = supervisor.ErrSampleUnavailable
)

// Supervisor is a thin facade over the internal supervision engine.
// It provides a stable public API for embedding.
type Supervisor struct{ inner *supervisor.Supervisor }

// SupervisorOptions tunes timing behavior. Zero values keep the defaults
// (5s grace period, 1s settle delay, 1s CPU sample window).
type SupervisorOptions struct {
	GracePeriod  time.Duration
	SettleDelay  time.Duration
	SampleWindow time.Duration
	Logger       *slog.Logger
}

func New(st Store) *Supervisor { return &Supervisor{inner: supervisor.New(st)} }

func NewWithOptions(st Store, o SupervisorOptions) *Supervisor {
	var opts []supervisor.Option
	if o.GracePeriod > 0 {
		opts = append(opts, supervisor.WithGracePeriod(o.GracePeriod))
	}
	if o.SettleDelay > 0 {
		opts = append(opts, supervisor.WithSettleDelay(o.SettleDelay))
	}
	if o.SampleWindow > 0 {
		opts = append(opts, supervisor.WithSampleWindow(o.SampleWindow))
	}
	if o.Logger != nil {
		opts = append(opts, supervisor.WithLogger(o.Logger))
	}
	return &Supervisor{inner: supervisor.New(st, opts...)}
}

func (s *Supervisor) Start(ctx context.Context, id string) (int, error) {
	return s.inner.Start(ctx, id)
}

func (s *Supervisor) Stop(ctx context.Context, id string) (StopResult, error) {
	return s.inner.Stop(ctx, id)
}

func (s *Supervisor) Restart(ctx context.Context, id string) (int, error) {
	return s.inner.Restart(ctx, id)
}

func (s *Supervisor) Status(ctx context.Context, id string, detailed bool) Status {
	return s.inner.Status(ctx, id, detailed)
}

func (s *Supervisor) Usage(ctx context.Context, id string) (ResourceSample, error) {
	return s.inner.Usage(ctx, id)
}

func (s *Supervisor) Logs(ctx context.Context, id string) (string, error) {
	return s.inner.Logs(ctx, id)
}

func (s *Supervisor) List(ctx context.Context) ([]ProjectState, error) {
	return s.inner.List(ctx)
}

func (s *Supervisor) ReconcileOnce(ctx context.Context) { s.inner.ReconcileOnce(ctx) }

func (s *Supervisor) StartReconciler(interval time.Duration) { s.inner.StartReconciler(interval) }

func (s *Supervisor) StopReconciler() { s.inner.StopReconciler() }

// Provisioner facade
type Provisioner = provision.Provisioner

// NewProvisioner builds a provisioner around the given system Python
// interpreter ("python3" when empty).
func NewProvisioner(python string) *Provisioner { return provision.New(python) }

// NewStore opens the configured store backend (sqlite by default).
func NewStore(c StoreConfig) (Store, error) { return store.New(c) }

func LoadConfig(path string) (Config, error) { return cfg.Load(path) }

func DefaultConfig() Config { return cfg.Default() }

// SetupLogger installs the configured slog logger as the process default.
func SetupLogger(c LogConfig) (*slog.Logger, error) { return c.Setup() }

// NewHTTPServer starts an HTTP server exposing the internal API using the
// given supervisor, provisioner and store.
func NewHTTPServer(addr, basePath string, s *Supervisor, p *Provisioner, st Store) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, s.inner, p, st)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }
