/*
Package types defines the core data structures used throughout modkit.

This package contains the fundamental types that represent modkit's domain
model: module descriptors, persisted installation records, and the merged
views the registry serves to callers. These types are used by all other
packages for persistence, routing decisions, and the administrative surface.

# Core Types

ModuleDescriptor:
  - Static declaration supplied by a module author at process start
  - Identity (ID), display metadata, version, route table
  - Immutable after registration; validated before it enters the registry

ModuleRecord:
  - Persisted per-module installation state
  - Status, installed version, configured base path, install/update dates
  - Never hard-deleted: uninstall transitions status so configuration
    survives uninstall/reinstall cycles

ModuleView:
  - Read-through join of a descriptor and its record
  - Status is derived at read time (upgrade_available when the descriptor
    version is strictly newer than the installed one)

# Path Resolution

A module's effective path segment is resolved from its record:

	base path ""  -> module ID
	base path "/" -> root mount (empty segment)
	otherwise     -> the base path verbatim, surrounding slashes trimmed

# See Also

  - pkg/registry for lifecycle state transitions
  - pkg/router for the route snapshot built from ModuleViews
  - pkg/storage for ModuleRecord persistence
*/
package types
