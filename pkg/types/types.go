package types

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ModuleStatus represents the installation state of a module
type ModuleStatus string

const (
	StatusNotInstalled     ModuleStatus = "not_installed"
	StatusInstalled        ModuleStatus = "installed"
	StatusUpgradeAvailable ModuleStatus = "upgrade_available"
)

// RootPath is the sentinel base path that mounts a module at the
// root of the engine, with no prefix segment.
const RootPath = "/"

// Route binds a path pattern to a handler inside a module's own
// route table. Patterns are opaque to the engine; the module's
// sub-router owns their matching rules.
type Route struct {
	Pattern string
	Handler http.Handler
}

// ModuleDescriptor is the static declaration a module author supplies
// at process start. Descriptors are immutable after registration.
type ModuleDescriptor struct {
	ID          string
	Name        string
	Description string
	Version     string
	Routes      []Route

	// SetupFunc, if set, runs during install before the record is
	// written. A setup error aborts the install.
	SetupFunc func() error
}

// Validate checks that a descriptor is well-formed for registration.
func (d *ModuleDescriptor) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("module id is required")
	}
	if strings.ContainsAny(d.ID, "/ \t") {
		return fmt.Errorf("module id %q must not contain path separators or whitespace", d.ID)
	}
	if d.Version == "" {
		return fmt.Errorf("module %s: version is required", d.ID)
	}
	for _, r := range d.Routes {
		if r.Handler == nil {
			return fmt.Errorf("module %s: route %q has no handler", d.ID, r.Pattern)
		}
	}
	return nil
}

// ModuleRecord is the persisted installation state for a module.
// Records are created on first install and never hard-deleted;
// uninstall only transitions the status.
type ModuleRecord struct {
	ModuleID         string
	Status           ModuleStatus
	InstalledVersion string
	BasePath         string // empty means "use module id as path segment"
	InstallDate      time.Time
	UpdateDate       time.Time
}

// ModuleView is the merged read-through view of a descriptor and its
// record, produced per listing. Status is derived at read time:
// an installed module whose descriptor carries a strictly newer
// version is reported as upgrade_available.
type ModuleView struct {
	ID               string
	Name             string
	Description      string
	Version          string // descriptor (latest) version
	Status           ModuleStatus
	InstalledVersion string
	BasePath         string
	InstallDate      time.Time
	UpdateDate       time.Time
}

// EffectivePath resolves the path segment a module is mounted at:
// the configured base path if set, the module id otherwise. RootPath
// resolves to the empty segment.
func (v *ModuleView) EffectivePath() string {
	return EffectivePath(v.ID, v.BasePath)
}

// EffectivePath applies the base-path resolution rule for a module id.
func EffectivePath(moduleID, basePath string) string {
	switch basePath {
	case "":
		return moduleID
	case RootPath:
		return ""
	default:
		return strings.Trim(basePath, "/")
	}
}
