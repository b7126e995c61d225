package router

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/modkit/modkit/pkg/log"
	"github.com/modkit/modkit/pkg/metrics"
	"github.com/modkit/modkit/pkg/registry"
	"github.com/modkit/modkit/pkg/types"
	"github.com/rs/zerolog"
)

// Entry is one mounted module in a snapshot: the module id and the
// composed handler for its route table.
type Entry struct {
	ModuleID string
	handler  http.Handler
}

// ServeHTTP dispatches to the module's own route table
func (e *Entry) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.handler.ServeHTTP(w, r)
}

// Snapshot is an immutable mapping from effective path segment to
// mounted module. A root-mounted module is held separately under the
// empty segment. Snapshots are replaced wholesale, never mutated, so
// in-flight requests always observe one consistent route table.
type Snapshot struct {
	entries map[string]*Entry
	root    *Entry
	builtAt time.Time
}

// Lookup resolves a path segment to a mounted module
func (s *Snapshot) Lookup(segment string) (*Entry, bool) {
	entry, ok := s.entries[segment]
	return entry, ok
}

// Root returns the root-mounted module, if any
func (s *Snapshot) Root() (*Entry, bool) {
	return s.root, s.root != nil
}

// Segments returns the mounted path segments, for diagnostics
func (s *Snapshot) Segments() []string {
	segments := make([]string, 0, len(s.entries))
	for segment := range s.entries {
		segments = append(segments, segment)
	}
	return segments
}

// BuiltAt returns when the snapshot was generated
func (s *Snapshot) BuiltAt() time.Time {
	return s.builtAt
}

// Builder derives route snapshots from registry state and publishes
// them with an atomic pointer swap. It subscribes itself to the
// registry's change hook, so every install, uninstall, upgrade, and
// path update rebuilds the snapshot before the operation returns.
type Builder struct {
	registry *registry.Registry
	snapshot atomic.Pointer[Snapshot]
	logger   zerolog.Logger
}

// NewBuilder creates a builder wired to the registry and produces the
// initial snapshot.
func NewBuilder(reg *registry.Registry) *Builder {
	b := &Builder{
		registry: reg,
		logger:   log.WithComponent("router"),
	}
	// Seed an empty snapshot so Current never returns nil, even when
	// the first rebuild hits a store fault.
	b.snapshot.Store(&Snapshot{entries: make(map[string]*Entry), builtAt: time.Now()})
	reg.OnChanged(func() { b.Reload() })
	b.Reload()
	return b
}

// Current returns the live snapshot
func (b *Builder) Current() *Snapshot {
	return b.snapshot.Load()
}

// Reload rebuilds the snapshot from current registry state and
// publishes it. On a store fault the previous snapshot stays live;
// the gate's per-request admission check fails closed regardless.
func (b *Builder) Reload() {
	snapshot, statusCounts, err := b.build()
	if err != nil {
		b.logger.Error().Err(err).Msg("route snapshot rebuild failed, keeping previous snapshot")
		return
	}

	b.snapshot.Store(snapshot)
	metrics.SnapshotRebuildsTotal.Inc()
	for status, count := range statusCounts {
		metrics.ModulesTotal.WithLabelValues(status).Set(float64(count))
	}
	b.logger.Debug().
		Int("modules", len(snapshot.entries)).
		Bool("root_mounted", snapshot.root != nil).
		Msg("route snapshot published")
}

// build is a pure function of registry state: iterate registered
// modules, keep the installed ones, and mount each at its effective
// path. Collisions resolve first-registered-wins, deterministically.
func (b *Builder) build() (*Snapshot, map[string]int, error) {
	snapshot := &Snapshot{
		entries: make(map[string]*Entry),
		builtAt: time.Now(),
	}
	statusCounts := make(map[string]int)

	for _, moduleID := range b.registry.RegistrationOrder() {
		view, err := b.registry.ModuleView(moduleID)
		if err != nil {
			return nil, nil, err
		}
		statusCounts[string(view.Status)]++
		if !installed(view.Status) {
			continue
		}

		descriptor, ok := b.registry.Descriptor(moduleID)
		if !ok {
			continue
		}

		entry := &Entry{
			ModuleID: moduleID,
			handler:  moduleMux(descriptor),
		}

		segment := view.EffectivePath()
		if segment == "" {
			if snapshot.root != nil {
				b.logger.Warn().
					Str("module_id", moduleID).
					Str("mounted_module", snapshot.root.ModuleID).
					Msg("root mount conflict, first-registered module keeps the mount")
				continue
			}
			snapshot.root = entry
			continue
		}

		if existing, taken := snapshot.entries[segment]; taken {
			b.logger.Warn().
				Str("module_id", moduleID).
				Str("segment", segment).
				Str("mounted_module", existing.ModuleID).
				Msg("path conflict, first-registered module keeps the mount")
			continue
		}
		snapshot.entries[segment] = entry
	}

	return snapshot, statusCounts, nil
}

// moduleMux composes a module's route table into a sub-router. The
// engine treats patterns as opaque ServeMux patterns; matching inside
// the module is the module's own business.
func moduleMux(descriptor *types.ModuleDescriptor) http.Handler {
	mux := http.NewServeMux()
	for _, route := range descriptor.Routes {
		mux.Handle(route.Pattern, route.Handler)
	}
	return mux
}

// installed reports whether a derived status means the module's
// record says installed. upgrade_available is an installed module
// with a newer descriptor; its routes stay mounted.
func installed(status types.ModuleStatus) bool {
	return status == types.StatusInstalled || status == types.StatusUpgradeAvailable
}
