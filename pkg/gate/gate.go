package gate

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/modkit/modkit/pkg/log"
	"github.com/modkit/modkit/pkg/metrics"
	"github.com/modkit/modkit/pkg/registry"
	"github.com/modkit/modkit/pkg/router"
	"github.com/modkit/modkit/pkg/storage"
	"github.com/modkit/modkit/pkg/types"
	"github.com/rs/zerolog"
)

// defaultCorePaths always bypass module gating: the engine's own
// admin surface plus the host application's static asset prefixes.
var defaultCorePaths = []string{"admin", "module", "static", "media"}

// Config holds routing gate configuration, read once at startup.
type Config struct {
	Registry  *registry.Registry
	Store     storage.Store
	Snapshots *router.Builder

	// AvailableModules is an optional allow-list of module ids
	// eligible for routing. Empty means every registered module.
	AvailableModules []string

	// CorePaths extends the default set of first segments that bypass
	// module gating.
	CorePaths []string
}

// Gate is the per-request admission and dispatch layer. For every
// inbound request it resolves the first path segment to a module,
// re-reads that module's record from the store, and either forwards
// the request into the module's route table or rejects it with a 404
// indistinguishable from a genuinely absent route. Paths that are not
// module territory pass through to the host application untouched.
//
// The gate never mutates registry or record state.
type Gate struct {
	registry  *registry.Registry
	store     storage.Store
	snapshots *router.Builder
	available map[string]bool
	corePaths map[string]bool
	logger    zerolog.Logger
}

// New creates a routing gate
func New(cfg Config) *Gate {
	available := make(map[string]bool, len(cfg.AvailableModules))
	for _, id := range cfg.AvailableModules {
		available[id] = true
	}

	corePaths := make(map[string]bool)
	for _, p := range defaultCorePaths {
		corePaths[p] = true
	}
	for _, p := range cfg.CorePaths {
		corePaths[strings.Trim(p, "/")] = true
	}

	return &Gate{
		registry:  cfg.Registry,
		store:     cfg.Store,
		snapshots: cfg.Snapshots,
		available: available,
		corePaths: corePaths,
		logger:    log.WithComponent("gate"),
	}
}

// Middleware wraps the host application's handler with the gate
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.serveHTTP(w, r, next)
	})
}

func (g *Gate) serveHTTP(w http.ResponseWriter, r *http.Request, next http.Handler) {
	start := time.Now()
	defer func() {
		metrics.GateDecisionDuration.Observe(time.Since(start).Seconds())
	}()

	segment := firstSegment(r.URL.Path)

	// Core paths bypass module gating entirely.
	if g.corePaths[segment] {
		metrics.GateDecisionsTotal.WithLabelValues(metrics.OutcomePassthrough).Inc()
		next.ServeHTTP(w, r)
		return
	}

	snapshot := g.snapshots.Current()

	entry, mounted := snapshot.Lookup(segment)
	atRoot := false
	if !mounted {
		// A registered module id that is not mounted at this segment
		// is rejected rather than falling through: uninstalled, moved,
		// and blocked modules must all look identical to the client.
		if _, registered := g.registry.Descriptor(segment); registered {
			g.reject(w, r, segment, "module not mounted")
			return
		}

		root, ok := snapshot.Root()
		if !ok {
			metrics.GateDecisionsTotal.WithLabelValues(metrics.OutcomePassthrough).Inc()
			next.ServeHTTP(w, r)
			return
		}
		entry = root
		atRoot = true
	}

	if len(g.available) > 0 && !g.available[entry.ModuleID] {
		g.reject(w, r, entry.ModuleID, "module not in allow list")
		return
	}

	// Admission re-reads the record on every request: an
	// administrative change is visible to the very next request. A
	// store fault fails closed.
	readStart := time.Now()
	record, err := g.store.GetRecord(entry.ModuleID)
	metrics.StoreReadDuration.Observe(time.Since(readStart).Seconds())
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			g.logger.Error().Err(err).Str("module_id", entry.ModuleID).Msg("record store read failed, rejecting")
		}
		g.reject(w, r, entry.ModuleID, "no installed record")
		return
	}
	if record.Status != types.StatusInstalled {
		g.reject(w, r, entry.ModuleID, "module not installed")
		return
	}

	metrics.GateDecisionsTotal.WithLabelValues(metrics.OutcomeForwarded).Inc()
	g.logger.Debug().
		Str("module_id", entry.ModuleID).
		Str("path", r.URL.Path).
		Msg("request forwarded")

	if atRoot {
		// Root-mounted modules match their patterns with no prefix.
		entry.ServeHTTP(w, r)
		return
	}
	entry.ServeHTTP(w, stripSegment(r, segment))
}

func (g *Gate) reject(w http.ResponseWriter, r *http.Request, moduleID, reason string) {
	metrics.GateDecisionsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
	g.logger.Debug().
		Str("module_id", moduleID).
		Str("path", r.URL.Path).
		Str("reason", reason).
		Msg("request rejected")

	// All rejection paths converge on the same response.
	http.NotFound(w, r)
}

// firstSegment extracts the module-identifying segment of a path
func firstSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i != -1 {
		return path[:i]
	}
	return path
}

// stripSegment removes the mount segment so the module's route table
// sees paths relative to its mount point.
func stripSegment(r *http.Request, segment string) *http.Request {
	rest := strings.TrimPrefix(r.URL.Path, "/"+segment)
	if rest == "" {
		rest = "/"
	}

	r2 := new(http.Request)
	*r2 = *r
	r2.URL = new(url.URL)
	*r2.URL = *r.URL
	r2.URL.Path = rest
	return r2
}
