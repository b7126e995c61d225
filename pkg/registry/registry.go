package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/modkit/modkit/pkg/events"
	"github.com/modkit/modkit/pkg/log"
	"github.com/modkit/modkit/pkg/storage"
	"github.com/modkit/modkit/pkg/types"
	"github.com/rs/zerolog"
	"golang.org/x/mod/semver"
)

// Config holds registry configuration
type Config struct {
	Store  storage.Store
	Broker *events.Broker // optional; nil disables event publishing

	// ResetOnUninstall clears the installed version and base path when
	// a module is uninstalled. The default preserves them so a
	// reinstall picks up the previous configuration.
	ResetOnUninstall bool
}

// Registry is the process-wide catalog reconciling statically declared
// module descriptors with persisted installation records. It owns the
// install/uninstall/upgrade/path-update state transitions.
//
// Construct one Registry during bootstrap and inject it into the gate
// and the admin surface. Register must only be called before requests
// are routed; the lifecycle methods are safe for concurrent use and
// serialized per module id.
type Registry struct {
	store            storage.Store
	broker           *events.Broker
	resetOnUninstall bool
	logger           zerolog.Logger

	mu          sync.RWMutex
	descriptors map[string]*types.ModuleDescriptor
	order       []string // registration order, drives the collision policy

	locks sync.Map // module id -> *sync.Mutex

	changeMu  sync.Mutex
	onChanged []func()
}

// NewRegistry creates a registry backed by the given store
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		store:            cfg.Store,
		broker:           cfg.Broker,
		resetOnUninstall: cfg.ResetOnUninstall,
		logger:           log.WithComponent("registry"),
		descriptors:      make(map[string]*types.ModuleDescriptor),
	}
}

// Register adds a descriptor to the catalog. It must be called during
// process initialization, before any request is routed. Registering
// the same module id twice fails with ErrDuplicateModule.
func (r *Registry) Register(descriptor *types.ModuleDescriptor) error {
	if err := descriptor.Validate(); err != nil {
		return fmt.Errorf("invalid descriptor: %w", err)
	}
	if !semver.IsValid(canonical(descriptor.Version)) {
		return fmt.Errorf("module %s: version %q is not valid semver", descriptor.ID, descriptor.Version)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.descriptors[descriptor.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateModule, descriptor.ID)
	}

	r.descriptors[descriptor.ID] = descriptor
	r.order = append(r.order, descriptor.ID)

	r.logger.Info().
		Str("module_id", descriptor.ID).
		Str("version", descriptor.Version).
		Int("routes", len(descriptor.Routes)).
		Msg("module registered")

	return nil
}

// Descriptor returns the registered descriptor for a module id
func (r *Registry) Descriptor(moduleID string) (*types.ModuleDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.descriptors[moduleID]
	return d, ok
}

// RegistrationOrder returns module ids in the order they were
// registered. The route builder uses it for its
// first-registered-wins collision policy.
func (r *Registry) RegistrationOrder() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// OnChanged registers a hook invoked synchronously after every
// successful mutating operation. The route builder uses it to rebuild
// the snapshot without callers having to remember a reload.
func (r *Registry) OnChanged(fn func()) {
	r.changeMu.Lock()
	defer r.changeMu.Unlock()

	r.onChanged = append(r.onChanged, fn)
}

// ActiveModules returns the merged view of every registered
// descriptor, ordered by module id. Record state is read fresh from
// the store; a missing record defaults to not_installed.
func (r *Registry) ActiveModules() ([]types.ModuleView, error) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.descriptors))
	for id := range r.descriptors {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)

	views := make([]types.ModuleView, 0, len(ids))
	for _, id := range ids {
		view, err := r.moduleView(id)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// ModuleView returns the merged view for a single module id
func (r *Registry) ModuleView(moduleID string) (types.ModuleView, error) {
	if _, ok := r.Descriptor(moduleID); !ok {
		return types.ModuleView{}, fmt.Errorf("%w: %s", ErrUnknownModule, moduleID)
	}
	return r.moduleView(moduleID)
}

func (r *Registry) moduleView(moduleID string) (types.ModuleView, error) {
	descriptor, ok := r.Descriptor(moduleID)
	if !ok {
		return types.ModuleView{}, fmt.Errorf("%w: %s", ErrUnknownModule, moduleID)
	}

	view := types.ModuleView{
		ID:          descriptor.ID,
		Name:        descriptor.Name,
		Description: descriptor.Description,
		Version:     descriptor.Version,
		Status:      types.StatusNotInstalled,
	}

	record, err := r.store.GetRecord(moduleID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return view, nil
		}
		return types.ModuleView{}, fmt.Errorf("failed to read record for %s: %w", moduleID, err)
	}

	view.Status = record.Status
	view.InstalledVersion = record.InstalledVersion
	view.BasePath = record.BasePath
	view.InstallDate = record.InstallDate
	view.UpdateDate = record.UpdateDate

	// Status is derived at read time: an installed module with a newer
	// descriptor version is reported as upgrade_available, never
	// written back to the store.
	if record.Status == types.StatusInstalled && newerVersion(descriptor.Version, record.InstalledVersion) {
		view.Status = types.StatusUpgradeAvailable
	}

	return view, nil
}

// Install installs a module, creating or updating its record. An
// empty base path resolves to the module id at read time and is not
// persisted as resolved; reinstalling with an empty base path keeps
// the previously configured one. Installing an already-installed
// module at the same path and version is a no-op.
func (r *Registry) Install(moduleID, basePath string) error {
	descriptor, ok := r.Descriptor(moduleID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModule, moduleID)
	}

	lock := r.moduleLock(moduleID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC()

	record, err := r.store.GetRecord(moduleID)
	switch {
	case err == nil:
		if record.Status == types.StatusInstalled &&
			record.InstalledVersion == descriptor.Version &&
			(basePath == "" || basePath == record.BasePath) {
			r.logger.Debug().Str("module_id", moduleID).Msg("module already installed")
			return nil
		}
	case errors.Is(err, storage.ErrNotFound):
		record = &types.ModuleRecord{
			ModuleID:    moduleID,
			InstallDate: now,
		}
	default:
		return fmt.Errorf("failed to read record for %s: %w", moduleID, err)
	}

	if descriptor.SetupFunc != nil {
		if err := descriptor.SetupFunc(); err != nil {
			return fmt.Errorf("setup failed for %s: %w", moduleID, err)
		}
	}

	record.Status = types.StatusInstalled
	record.InstalledVersion = descriptor.Version
	if basePath != "" {
		record.BasePath = basePath
	}
	if !record.InstallDate.Equal(now) {
		record.UpdateDate = now
	}

	if err := r.store.PutRecord(record); err != nil {
		return fmt.Errorf("failed to persist record for %s: %w", moduleID, err)
	}

	r.logger.Info().
		Str("module_id", moduleID).
		Str("version", record.InstalledVersion).
		Str("base_path", record.BasePath).
		Msg("module installed")

	r.publish(events.EventModuleInstalled, fmt.Sprintf("module %s installed", moduleID), map[string]string{
		events.MetaModuleID: moduleID,
		events.MetaVersion:  record.InstalledVersion,
	})
	r.notifyChanged()

	return nil
}

// Uninstall marks a module as not installed. The record is kept so
// the configured base path and version survive for a reinstall,
// unless the registry was configured with ResetOnUninstall.
func (r *Registry) Uninstall(moduleID string) error {
	lock := r.moduleLock(moduleID)
	lock.Lock()
	defer lock.Unlock()

	record, err := r.store.GetRecord(moduleID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrUnknownModule, moduleID)
		}
		return fmt.Errorf("failed to read record for %s: %w", moduleID, err)
	}

	record.Status = types.StatusNotInstalled
	record.UpdateDate = time.Now().UTC()
	if r.resetOnUninstall {
		record.InstalledVersion = ""
		record.BasePath = ""
	}

	if err := r.store.PutRecord(record); err != nil {
		return fmt.Errorf("failed to persist record for %s: %w", moduleID, err)
	}

	r.logger.Info().Str("module_id", moduleID).Msg("module uninstalled")

	r.publish(events.EventModuleUninstalled, fmt.Sprintf("module %s uninstalled", moduleID), map[string]string{
		events.MetaModuleID: moduleID,
	})
	r.notifyChanged()

	return nil
}

// CheckUpgradeAvailable reports whether the descriptor version is
// strictly newer than the installed one. It is false for modules that
// are not currently installed.
func (r *Registry) CheckUpgradeAvailable(moduleID string) (bool, error) {
	descriptor, ok := r.Descriptor(moduleID)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownModule, moduleID)
	}

	record, err := r.store.GetRecord(moduleID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read record for %s: %w", moduleID, err)
	}

	if record.Status != types.StatusInstalled {
		return false, nil
	}
	return newerVersion(descriptor.Version, record.InstalledVersion), nil
}

// Upgrade moves an installed module to the descriptor's version.
// It fails with ErrNoUpgradeAvailable when the module is not
// installed or already current.
func (r *Registry) Upgrade(moduleID string) error {
	descriptor, ok := r.Descriptor(moduleID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModule, moduleID)
	}

	lock := r.moduleLock(moduleID)
	lock.Lock()
	defer lock.Unlock()

	available, err := r.CheckUpgradeAvailable(moduleID)
	if err != nil {
		return err
	}
	if !available {
		return fmt.Errorf("%w: %s", ErrNoUpgradeAvailable, moduleID)
	}

	record, err := r.store.GetRecord(moduleID)
	if err != nil {
		return fmt.Errorf("failed to read record for %s: %w", moduleID, err)
	}

	previous := record.InstalledVersion
	record.InstalledVersion = descriptor.Version
	record.Status = types.StatusInstalled
	record.UpdateDate = time.Now().UTC()

	if err := r.store.PutRecord(record); err != nil {
		return fmt.Errorf("failed to persist record for %s: %w", moduleID, err)
	}

	r.logger.Info().
		Str("module_id", moduleID).
		Str("from", previous).
		Str("to", record.InstalledVersion).
		Msg("module upgraded")

	r.publish(events.EventModuleUpgraded, fmt.Sprintf("module %s upgraded to %s", moduleID, record.InstalledVersion), map[string]string{
		events.MetaModuleID: moduleID,
		events.MetaVersion:  record.InstalledVersion,
	})
	r.notifyChanged()

	return nil
}

// UpdateModulePath changes the base path of an installed module and
// emits a path-changed event carrying the old and new effective paths.
// Paths are only meaningful for installed modules.
func (r *Registry) UpdateModulePath(moduleID, newBasePath string) error {
	if _, ok := r.Descriptor(moduleID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModule, moduleID)
	}

	lock := r.moduleLock(moduleID)
	lock.Lock()
	defer lock.Unlock()

	record, err := r.store.GetRecord(moduleID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrModuleNotInstalled, moduleID)
		}
		return fmt.Errorf("failed to read record for %s: %w", moduleID, err)
	}
	if record.Status != types.StatusInstalled {
		return fmt.Errorf("%w: %s", ErrModuleNotInstalled, moduleID)
	}

	oldPath := types.EffectivePath(moduleID, record.BasePath)
	record.BasePath = newBasePath
	record.UpdateDate = time.Now().UTC()

	if err := r.store.PutRecord(record); err != nil {
		return fmt.Errorf("failed to persist record for %s: %w", moduleID, err)
	}

	newPath := types.EffectivePath(moduleID, record.BasePath)

	r.logger.Info().
		Str("module_id", moduleID).
		Str("old_path", oldPath).
		Str("new_path", newPath).
		Msg("module path updated")

	r.publish(events.EventModulePathChanged, fmt.Sprintf("module %s moved from %q to %q", moduleID, oldPath, newPath), map[string]string{
		events.MetaModuleID: moduleID,
		events.MetaOldPath:  oldPath,
		events.MetaNewPath:  newPath,
	})
	r.notifyChanged()

	return nil
}

// Reconcile inspects the store against the registered descriptors at
// startup: orphaned records and pending upgrades are logged, nothing
// is mutated.
func (r *Registry) Reconcile() error {
	records, err := r.store.ListRecords()
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	for _, record := range records {
		descriptor, ok := r.Descriptor(record.ModuleID)
		if !ok {
			r.logger.Warn().
				Str("module_id", record.ModuleID).
				Str("status", string(record.Status)).
				Msg("orphaned record: no descriptor registered for module")
			continue
		}
		if record.Status == types.StatusInstalled && newerVersion(descriptor.Version, record.InstalledVersion) {
			r.logger.Info().
				Str("module_id", record.ModuleID).
				Str("installed", record.InstalledVersion).
				Str("available", descriptor.Version).
				Msg("upgrade available")
		}
	}

	return nil
}

func (r *Registry) moduleLock(moduleID string) *sync.Mutex {
	lock, _ := r.locks.LoadOrStore(moduleID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func (r *Registry) publish(eventType events.EventType, message string, metadata map[string]string) {
	if r.broker == nil {
		return
	}
	r.broker.Publish(events.NewEvent(eventType, message, metadata))
}

func (r *Registry) notifyChanged() {
	r.changeMu.Lock()
	hooks := append(([]func())(nil), r.onChanged...)
	r.changeMu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// canonical normalizes a version string to the form the semver
// package expects.
func canonical(version string) string {
	if !strings.HasPrefix(version, "v") {
		return "v" + version
	}
	return version
}

// newerVersion reports whether candidate is strictly newer than
// current under semantic version ordering.
func newerVersion(candidate, current string) bool {
	return semver.Compare(canonical(candidate), canonical(current)) > 0
}
