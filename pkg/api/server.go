package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/modkit/modkit/pkg/events"
	"github.com/modkit/modkit/pkg/log"
	"github.com/modkit/modkit/pkg/metrics"
	"github.com/modkit/modkit/pkg/registry"
	"github.com/modkit/modkit/pkg/router"
	"github.com/rs/zerolog"
)

// Config holds admin server configuration
type Config struct {
	Registry  *registry.Registry
	Snapshots *router.Builder
	Broker    *events.Broker // optional; announces manual reloads
	Version   string

	// RateLimit applies per client IP; zero disables limiting.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// Server exposes the administrative surface over HTTP: module listing,
// the lifecycle operations, and a manual route reload. The server is
// thin glue over the registry; the state machine lives there.
type Server struct {
	registry  *registry.Registry
	snapshots *router.Builder
	broker    *events.Broker
	version   string
	limiter   *rateLimiter
	mux       *http.ServeMux
	server    *http.Server
	logger    zerolog.Logger
}

// NewServer creates an admin server for the given registry
func NewServer(cfg Config) *Server {
	s := &Server{
		registry:  cfg.Registry,
		snapshots: cfg.Snapshots,
		broker:    cfg.Broker,
		version:   cfg.Version,
		limiter:   newRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
		mux:       http.NewServeMux(),
		logger:    log.WithComponent("api"),
	}

	s.mux.HandleFunc("GET /{$}", s.listModules)
	s.mux.HandleFunc("POST /install/{id}", s.installModule)
	s.mux.HandleFunc("POST /uninstall/{id}", s.uninstallModule)
	s.mux.HandleFunc("POST /upgrade/{id}", s.upgradeModule)
	s.mux.HandleFunc("POST /path/{id}", s.updateModulePath)
	s.mux.HandleFunc("POST /reload", s.reloadRoutes)
	s.mux.HandleFunc("GET /health", s.health)

	return s
}

// Handler returns the admin handler, for mounting under the engine's
// module core path.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(r) {
			s.writeError(w, r, http.StatusTooManyRequests, fmt.Errorf("rate limit exceeded"))
			return
		}
		s.mux.ServeHTTP(w, r)
	})
}

// Start serves the admin surface on its own address. Most deployments
// mount Handler() on the engine listener instead.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("admin API listening")
	return s.server.ListenAndServe()
}

// Stop gracefully stops a server started with Start
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// ModuleResponse is one module in the admin listing
type ModuleResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	Version          string `json:"version"`
	Status           string `json:"status"`
	InstalledVersion string `json:"installed_version,omitempty"`
	Path             string `json:"path"`
	InstallDate      string `json:"install_date,omitempty"`
	UpdateDate       string `json:"update_date,omitempty"`
}

// ListResponse is the admin listing payload
type ListResponse struct {
	Modules []ModuleResponse `json:"modules"`
}

// ActionResponse reports the outcome of a lifecycle operation
type ActionResponse struct {
	Status   string `json:"status"`
	ModuleID string `json:"module_id,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ErrorResponse carries a user-visible failure
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}

func (s *Server) listModules(w http.ResponseWriter, r *http.Request) {
	views, err := s.registry.ActiveModules()
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	response := ListResponse{Modules: make([]ModuleResponse, 0, len(views))}
	for _, view := range views {
		module := ModuleResponse{
			ID:               view.ID,
			Name:             view.Name,
			Description:      view.Description,
			Version:          view.Version,
			Status:           string(view.Status),
			InstalledVersion: view.InstalledVersion,
			Path:             view.EffectivePath(),
		}
		if !view.InstallDate.IsZero() {
			module.InstallDate = view.InstallDate.Format(time.RFC3339)
		}
		if !view.UpdateDate.IsZero() {
			module.UpdateDate = view.UpdateDate.Format(time.RFC3339)
		}
		response.Modules = append(response.Modules, module)
	}

	s.writeJSON(w, r, http.StatusOK, response)
}

func (s *Server) installModule(w http.ResponseWriter, r *http.Request) {
	moduleID := r.PathValue("id")
	basePath := r.FormValue("base_path")

	if err := s.registry.Install(moduleID, basePath); err != nil {
		metrics.LifecycleOpsTotal.WithLabelValues("install", "failure").Inc()
		s.writeRegistryError(w, r, err)
		return
	}

	metrics.LifecycleOpsTotal.WithLabelValues("install", "success").Inc()
	s.writeJSON(w, r, http.StatusOK, ActionResponse{
		Status:   "ok",
		ModuleID: moduleID,
		Message:  fmt.Sprintf("module %s installed", moduleID),
	})
}

func (s *Server) uninstallModule(w http.ResponseWriter, r *http.Request) {
	moduleID := r.PathValue("id")

	if err := s.registry.Uninstall(moduleID); err != nil {
		metrics.LifecycleOpsTotal.WithLabelValues("uninstall", "failure").Inc()
		s.writeRegistryError(w, r, err)
		return
	}

	metrics.LifecycleOpsTotal.WithLabelValues("uninstall", "success").Inc()
	s.writeJSON(w, r, http.StatusOK, ActionResponse{
		Status:   "ok",
		ModuleID: moduleID,
		Message:  fmt.Sprintf("module %s uninstalled", moduleID),
	})
}

func (s *Server) upgradeModule(w http.ResponseWriter, r *http.Request) {
	moduleID := r.PathValue("id")

	if err := s.registry.Upgrade(moduleID); err != nil {
		metrics.LifecycleOpsTotal.WithLabelValues("upgrade", "failure").Inc()
		s.writeRegistryError(w, r, err)
		return
	}

	metrics.LifecycleOpsTotal.WithLabelValues("upgrade", "success").Inc()
	s.writeJSON(w, r, http.StatusOK, ActionResponse{
		Status:   "ok",
		ModuleID: moduleID,
		Message:  fmt.Sprintf("module %s upgraded", moduleID),
	})
}

func (s *Server) updateModulePath(w http.ResponseWriter, r *http.Request) {
	moduleID := r.PathValue("id")
	newBasePath := r.FormValue("base_path")

	if err := s.registry.UpdateModulePath(moduleID, newBasePath); err != nil {
		metrics.LifecycleOpsTotal.WithLabelValues("path_update", "failure").Inc()
		s.writeRegistryError(w, r, err)
		return
	}

	metrics.LifecycleOpsTotal.WithLabelValues("path_update", "success").Inc()
	s.writeJSON(w, r, http.StatusOK, ActionResponse{
		Status:   "ok",
		ModuleID: moduleID,
		Message:  fmt.Sprintf("module %s path updated", moduleID),
	})
}

func (s *Server) reloadRoutes(w http.ResponseWriter, r *http.Request) {
	s.snapshots.Reload()
	if s.broker != nil {
		s.broker.Publish(events.NewEvent(events.EventRoutesReloaded, "route snapshot rebuilt", nil))
	}

	s.writeJSON(w, r, http.StatusOK, ActionResponse{
		Status:  "ok",
		Message: "route snapshot rebuilt",
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   s.version,
	})
}

// writeRegistryError maps registry errors onto HTTP statuses:
// unknown module 404, invalid-state transitions 409, anything else a
// 500 infrastructure fault.
func (s *Server) writeRegistryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, registry.ErrUnknownModule):
		s.writeError(w, r, http.StatusNotFound, err)
	case errors.Is(err, registry.ErrModuleNotInstalled),
		errors.Is(err, registry.ErrNoUpgradeAvailable):
		s.writeError(w, r, http.StatusConflict, err)
	default:
		s.writeError(w, r, http.StatusInternalServerError, err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	metrics.APIRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.logger.Warn().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("admin request failed")
	s.writeJSON(w, r, status, ErrorResponse{Error: err.Error()})
}
