package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	projectStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deployr",
			Subsystem: "project",
			Name:      "starts_total",
			Help:      "Number of successful project starts.",
		}, []string{"project"},
	)
	projectStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deployr",
			Subsystem: "project",
			Name:      "stops_total",
			Help:      "Number of project stops (graceful or kill).",
		}, []string{"project"},
	)
	projectRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deployr",
			Subsystem: "project",
			Name:      "restarts_total",
			Help:      "Number of project restarts.",
		}, []string{"project"},
	)
	spawnFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deployr",
			Subsystem: "project",
			Name:      "spawn_failures_total",
			Help:      "Number of failed spawn attempts.",
		}, []string{"project"},
	)
	projectRunning = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "deployr",
			Subsystem: "project",
			Name:      "running",
			Help:      "Whether a project is currently running (1) or not (0).",
		}, []string{"project"},
	)
	projectCPUPercent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "deployr",
			Subsystem: "project",
			Name:      "cpu_percent",
			Help:      "Last sampled CPU usage percentage for a project's process.",
		}, []string{"project"},
	)
	projectMemoryMB = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "deployr",
			Subsystem: "project",
			Name:      "memory_mb",
			Help:      "Last sampled resident memory in MB for a project's process.",
		}, []string{"project"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{projectStarts, projectStops, projectRestarts, spawnFailures, projectRunning, projectCPUPercent, projectMemoryMB}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler serving Prometheus metrics for the
// DefaultGatherer. The caller wires the route.
func Handler() http.Handler { return promhttp.Handler() }

// Lightweight helpers used by internal packages. They no-op until Register
// has been called.

func IncStart(project string) {
	if regOK.Load() {
		projectStarts.WithLabelValues(project).Inc()
	}
}

func IncStop(project string) {
	if regOK.Load() {
		projectStops.WithLabelValues(project).Inc()
	}
}

func IncRestart(project string) {
	if regOK.Load() {
		projectRestarts.WithLabelValues(project).Inc()
	}
}

func IncSpawnFailure(project string) {
	if regOK.Load() {
		spawnFailures.WithLabelValues(project).Inc()
	}
}

func SetRunning(project string, running bool) {
	if regOK.Load() {
		var v float64
		if running {
			v = 1
		}
		projectRunning.WithLabelValues(project).Set(v)
	}
}

func SetUsage(project string, cpuPercent, memoryMB float64) {
	if regOK.Load() {
		projectCPUPercent.WithLabelValues(project).Set(cpuPercent)
		projectMemoryMB.WithLabelValues(project).Set(memoryMB)
	}
}
