// Package server exposes the supervisor over HTTP.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/deployr/internal/metrics"
	"github.com/loykin/deployr/internal/project"
	"github.com/loykin/deployr/internal/provision"
	"github.com/loykin/deployr/internal/store"
	"github.com/loykin/deployr/internal/supervisor"
)

// Router provides embeddable HTTP handlers for managing projects.
// Endpoints, all under basePath:
//
//	POST   /projects          body: project JSON (register or update)
//	GET    /projects          list all projects with live running flags
//	DELETE /projects          query: id=... (refused while running)
//	POST   /provision         query: id=...
//	POST   /start             query: id=...
//	POST   /stop              query: id=...
//	POST   /restart           query: id=...
//	GET    /status            query: id=...&detailed=true
//	GET    /usage             query: id=...
//	GET    /logs              query: id=...
//	GET    /metrics           Prometheus exposition
type Router struct {
	sup      *supervisor.Supervisor
	prov     *provision.Provisioner
	st       store.Store
	basePath string
}

func NewRouter(sup *supervisor.Supervisor, prov *provision.Provisioner, st store.Store, basePath string) *Router {
	return &Router{sup: sup, prov: prov, st: st, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in
// any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.POST("/projects", r.handlePutProject)
	group.GET("/projects", r.handleListProjects)
	group.DELETE("/projects", r.handleDeleteProject)
	group.POST("/provision", r.handleProvision)
	group.POST("/start", r.handleStart)
	group.POST("/stop", r.handleStop)
	group.POST("/restart", r.handleRestart)
	group.GET("/status", r.handleStatus)
	group.GET("/usage", r.handleUsage)
	group.GET("/logs", r.handleLogs)
	group.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
// Shut it down via http.Server's Shutdown or Close.
func NewServer(addr, basePath string, sup *supervisor.Supervisor, prov *provision.Provisioner, st store.Store) (*http.Server, error) {
	r := NewRouter(sup, prov, st, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Usage blocks for the CPU sample window and provision can run
		// pip; keep the write timeout generous.
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK      bool   `json:"ok"`
	PID     int    `json:"pid,omitempty"`
	Message string `json:"message,omitempty"`
	Warning string `json:"warning,omitempty"`
}

func statusForErr(err error) int {
	switch {
	case errors.Is(err, supervisor.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, supervisor.ErrAlreadyRunning),
		errors.Is(err, supervisor.ErrNotRunning),
		errors.Is(err, supervisor.ErrEnvironmentMissing):
		return http.StatusConflict
	case errors.Is(err, supervisor.ErrSampleUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, supervisor.ErrSpawnFailed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// requireID pulls the id query parameter, writing a 400 when missing.
func requireID(c *gin.Context) (string, bool) {
	id := c.Query("id")
	if id == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "id query param required"})
		return "", false
	}
	return id, true
}

func (r *Router) handlePutProject(c *gin.Context) {
	var p project.Config
	if err := c.ShouldBindJSON(&p); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if !isSafeID(p.ID) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid id: allowed [A-Za-z0-9._-] and no '..' or path separators"})
		return
	}
	if !isSafeAbsPath(p.Path) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid path: must be absolute path without traversal"})
		return
	}
	// Execution info is owned by the supervisor, never by the caller.
	p.Exec = project.ExecutionInfo{}
	if err := r.st.PutProject(c.Request.Context(), p); err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleListProjects(c *gin.Context) {
	states, err := r.sup.List(c.Request.Context())
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, states)
}

func (r *Router) handleDeleteProject(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}
	if view := r.sup.Status(c.Request.Context(), id, false); view.Running {
		writeJSON(c, http.StatusConflict, errorResp{Error: "project is running; stop it first"})
		return
	}
	if err := r.st.DeleteProject(c.Request.Context(), id); err != nil {
		writeJSON(c, statusForErr(err), errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleProvision(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}
	proj, err := r.st.GetProject(c.Request.Context(), id)
	if err != nil {
		writeJSON(c, statusForErr(err), errorResp{Error: err.Error()})
		return
	}
	ok, msg := r.prov.Ensure(c.Request.Context(), proj)
	if !ok {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: msg})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true, Message: msg})
}

func (r *Router) handleStart(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}
	pid, err := r.sup.Start(c.Request.Context(), id)
	if err != nil {
		writeJSON(c, statusForErr(err), errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true, PID: pid})
}

func (r *Router) handleStop(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}
	res, err := r.sup.Stop(c.Request.Context(), id)
	if err != nil {
		writeJSON(c, statusForErr(err), errorResp{Error: err.Error()})
		return
	}
	resp := okResp{OK: true, Warning: res.Warning}
	if res.AlreadyStopped {
		resp.Message = "project was already stopped"
	}
	writeJSON(c, http.StatusOK, resp)
}

func (r *Router) handleRestart(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}
	pid, err := r.sup.Restart(c.Request.Context(), id)
	if err != nil {
		writeJSON(c, statusForErr(err), errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true, PID: pid})
}

func (r *Router) handleStatus(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}
	detailed := c.Query("detailed") == "true" || c.Query("detailed") == "1"
	writeJSON(c, http.StatusOK, r.sup.Status(c.Request.Context(), id, detailed))
}

func (r *Router) handleUsage(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}
	sample, err := r.sup.Usage(c.Request.Context(), id)
	if err != nil {
		writeJSON(c, statusForErr(err), errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, sample)
}

type logsResp struct {
	Path string `json:"path"`
}

func (r *Router) handleLogs(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}
	path, err := r.sup.Logs(c.Request.Context(), id)
	if err != nil {
		writeJSON(c, statusForErr(err), errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, logsResp{Path: path})
}
