package registry

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/modkit/modkit/pkg/events"
	"github.com/modkit/modkit/pkg/log"
	"github.com/modkit/modkit/pkg/storage"
	"github.com/modkit/modkit/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, JSONOutput: true, Output: io.Discard})
	os.Exit(m.Run())
}

func testHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
}

func testDescriptor(id, version string) *types.ModuleDescriptor {
	return &types.ModuleDescriptor{
		ID:      id,
		Name:    id,
		Version: version,
		Routes:  []types.Route{{Pattern: "/", Handler: testHandler()}},
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(Config{Store: storage.NewMemStore()})
}

func TestRegisterDuplicate(t *testing.T) {
	r := newTestRegistry(t)

	require.NoError(t, r.Register(testDescriptor("product", "1.0.0")))

	err := r.Register(testDescriptor("product", "2.0.0"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateModule)
}

func TestRegisterRejectsInvalidVersion(t *testing.T) {
	r := newTestRegistry(t)

	err := r.Register(testDescriptor("product", "latest"))
	require.Error(t, err)
}

func TestActiveModulesDefaultsAndOrdering(t *testing.T) {
	r := newTestRegistry(t)

	require.NoError(t, r.Register(testDescriptor("crm", "1.0.0")))
	require.NoError(t, r.Register(testDescriptor("booking", "1.0.0")))
	require.NoError(t, r.Register(testDescriptor("product", "1.0.0")))

	views, err := r.ActiveModules()
	require.NoError(t, err)
	require.Len(t, views, 3)

	// Stable ordering by module id regardless of registration order.
	assert.Equal(t, "booking", views[0].ID)
	assert.Equal(t, "crm", views[1].ID)
	assert.Equal(t, "product", views[2].ID)

	for _, view := range views {
		assert.Equal(t, types.StatusNotInstalled, view.Status)
		assert.Empty(t, view.InstalledVersion)
	}
}

func TestInstall(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(testDescriptor("product", "1.0.0")))

	require.NoError(t, r.Install("product", ""))

	view, err := r.ModuleView("product")
	require.NoError(t, err)
	assert.Equal(t, types.StatusInstalled, view.Status)
	assert.Equal(t, "1.0.0", view.InstalledVersion)
	assert.Empty(t, view.BasePath)
	assert.Equal(t, "product", view.EffectivePath())
	assert.False(t, view.InstallDate.IsZero())
}

func TestInstallUnknownModule(t *testing.T) {
	r := newTestRegistry(t)

	err := r.Install("ghost", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownModule)
}

func TestInstallWithBasePath(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(testDescriptor("product", "1.0.0")))

	require.NoError(t, r.Install("product", "shop"))

	view, err := r.ModuleView("product")
	require.NoError(t, err)
	assert.Equal(t, "shop", view.BasePath)
	assert.Equal(t, "shop", view.EffectivePath())
}

func TestInstallIdempotent(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(testDescriptor("product", "1.0.0")))

	require.NoError(t, r.Install("product", "shop"))
	first, err := r.ModuleView("product")
	require.NoError(t, err)

	require.NoError(t, r.Install("product", "shop"))
	second, err := r.ModuleView("product")
	require.NoError(t, err)

	assert.Equal(t, first.UpdateDate, second.UpdateDate, "no-op reinstall must not touch the record")
}

func TestInstallSetupFailureLeavesNoRecord(t *testing.T) {
	r := newTestRegistry(t)

	descriptor := testDescriptor("product", "1.0.0")
	descriptor.SetupFunc = func() error { return fmt.Errorf("schema migration failed") }
	require.NoError(t, r.Register(descriptor))

	err := r.Install("product", "")
	require.Error(t, err)

	view, err := r.ModuleView("product")
	require.NoError(t, err)
	assert.Equal(t, types.StatusNotInstalled, view.Status)
	assert.True(t, view.InstallDate.IsZero())
}

func TestUninstallPreservesConfiguration(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(testDescriptor("product", "1.0.0")))

	require.NoError(t, r.Install("product", "shop"))
	require.NoError(t, r.Uninstall("product"))

	view, err := r.ModuleView("product")
	require.NoError(t, err)
	assert.Equal(t, types.StatusNotInstalled, view.Status)
	assert.Equal(t, "shop", view.BasePath)
	assert.Equal(t, "1.0.0", view.InstalledVersion)

	// Reinstall with no explicit path restores the configured one.
	require.NoError(t, r.Install("product", ""))
	view, err = r.ModuleView("product")
	require.NoError(t, err)
	assert.Equal(t, types.StatusInstalled, view.Status)
	assert.Equal(t, "shop", view.EffectivePath())
}

func TestUninstallWithReset(t *testing.T) {
	r := NewRegistry(Config{Store: storage.NewMemStore(), ResetOnUninstall: true})
	require.NoError(t, r.Register(testDescriptor("product", "1.0.0")))

	require.NoError(t, r.Install("product", "shop"))
	require.NoError(t, r.Uninstall("product"))

	view, err := r.ModuleView("product")
	require.NoError(t, err)
	assert.Empty(t, view.BasePath)
	assert.Empty(t, view.InstalledVersion)
}

func TestUninstallWithoutRecord(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(testDescriptor("product", "1.0.0")))

	err := r.Uninstall("product")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownModule)
}

func TestUpgradeFlow(t *testing.T) {
	r := newTestRegistry(t)

	descriptor := testDescriptor("product", "1.0.0")
	require.NoError(t, r.Register(descriptor))
	require.NoError(t, r.Install("product", ""))

	available, err := r.CheckUpgradeAvailable("product")
	require.NoError(t, err)
	assert.False(t, available)

	// The descriptor later reports a newer version.
	descriptor.Version = "1.1.0"

	available, err = r.CheckUpgradeAvailable("product")
	require.NoError(t, err)
	assert.True(t, available)

	views, err := r.ActiveModules()
	require.NoError(t, err)
	assert.Equal(t, types.StatusUpgradeAvailable, views[0].Status)

	require.NoError(t, r.Upgrade("product"))

	available, err = r.CheckUpgradeAvailable("product")
	require.NoError(t, err)
	assert.False(t, available)

	view, err := r.ModuleView("product")
	require.NoError(t, err)
	assert.Equal(t, types.StatusInstalled, view.Status)
	assert.Equal(t, "1.1.0", view.InstalledVersion)
}

func TestUpgradeNotAvailable(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(testDescriptor("product", "1.0.0")))
	require.NoError(t, r.Install("product", ""))

	err := r.Upgrade("product")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoUpgradeAvailable)
}

func TestUpgradeNotInstalled(t *testing.T) {
	r := newTestRegistry(t)

	descriptor := testDescriptor("product", "1.0.0")
	require.NoError(t, r.Register(descriptor))
	descriptor.Version = "2.0.0"

	err := r.Upgrade("product")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoUpgradeAvailable)
}

func TestCheckUpgradeOlderDescriptorVersion(t *testing.T) {
	r := newTestRegistry(t)

	descriptor := testDescriptor("product", "2.0.0")
	require.NoError(t, r.Register(descriptor))
	require.NoError(t, r.Install("product", ""))

	// A downgraded descriptor is not an upgrade.
	descriptor.Version = "1.9.0"

	available, err := r.CheckUpgradeAvailable("product")
	require.NoError(t, err)
	assert.False(t, available)
}

func TestUpdateModulePath(t *testing.T) {
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()

	r := NewRegistry(Config{Store: storage.NewMemStore(), Broker: broker})
	require.NoError(t, r.Register(testDescriptor("product", "1.0.0")))
	require.NoError(t, r.Install("product", ""))

	var changed bool
	r.OnChanged(func() { changed = true })

	require.NoError(t, r.UpdateModulePath("product", "shop"))
	assert.True(t, changed, "OnChanged hook must fire on path update")

	view, err := r.ModuleView("product")
	require.NoError(t, err)
	assert.Equal(t, "shop", view.EffectivePath())

	deadline := time.After(time.Second)
	for {
		select {
		case event := <-sub:
			if event.Type != events.EventModulePathChanged {
				continue
			}
			assert.Equal(t, "product", event.Metadata[events.MetaModuleID])
			assert.Equal(t, "product", event.Metadata[events.MetaOldPath])
			assert.Equal(t, "shop", event.Metadata[events.MetaNewPath])
			return
		case <-deadline:
			t.Fatal("timed out waiting for path-changed event")
		}
	}
}

func TestUpdateModulePathNotInstalled(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(testDescriptor("product", "1.0.0")))

	err := r.UpdateModulePath("product", "shop")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModuleNotInstalled)

	require.NoError(t, r.Install("product", ""))
	require.NoError(t, r.Uninstall("product"))

	err = r.UpdateModulePath("product", "shop")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModuleNotInstalled)
}

func TestConcurrentInstallsSingleFinalState(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(testDescriptor("product", "1.0.0")))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		path := fmt.Sprintf("path-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Install("product", path)
		}()
	}
	wg.Wait()

	view, err := r.ModuleView("product")
	require.NoError(t, err)

	// Exactly one of the two writes wins; the record is never torn.
	assert.Equal(t, types.StatusInstalled, view.Status)
	assert.Equal(t, "1.0.0", view.InstalledVersion)
	assert.Contains(t, []string{"path-0", "path-1"}, view.BasePath)
}

func TestReconcileLogsOrphans(t *testing.T) {
	store := storage.NewMemStore()
	require.NoError(t, store.PutRecord(&types.ModuleRecord{
		ModuleID: "legacy",
		Status:   types.StatusInstalled,
	}))

	r := NewRegistry(Config{Store: store})
	require.NoError(t, r.Register(testDescriptor("product", "1.0.0")))

	require.NoError(t, r.Reconcile())

	// The orphaned record survives in the store but never surfaces in
	// the active module list.
	views, err := r.ActiveModules()
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "product", views[0].ID)

	_, err = store.GetRecord("legacy")
	require.NoError(t, err)
}

func TestModuleViewSurfacesStoreFault(t *testing.T) {
	r := NewRegistry(Config{Store: failingStore{}})
	require.NoError(t, r.Register(testDescriptor("product", "1.0.0")))

	_, err := r.ActiveModules()
	require.Error(t, err)
}

// failingStore simulates an unavailable record store.
type failingStore struct{}

func (failingStore) GetRecord(string) (*types.ModuleRecord, error) {
	return nil, errors.New("store unavailable")
}
func (failingStore) PutRecord(*types.ModuleRecord) error { return errors.New("store unavailable") }
func (failingStore) ListRecords() ([]*types.ModuleRecord, error) {
	return nil, errors.New("store unavailable")
}
func (failingStore) Close() error { return nil }
