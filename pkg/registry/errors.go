package registry

import "errors"

var (
	// ErrDuplicateModule is returned when Register is called twice for
	// the same module id. This is fatal during process init.
	ErrDuplicateModule = errors.New("module already registered")

	// ErrUnknownModule is returned for lifecycle operations on a module
	// id with no registered descriptor or no record.
	ErrUnknownModule = errors.New("unknown module")

	// ErrModuleNotInstalled is returned when an operation requires an
	// installed module, such as a base path update.
	ErrModuleNotInstalled = errors.New("module not installed")

	// ErrNoUpgradeAvailable is returned by Upgrade when the installed
	// version is not older than the descriptor version.
	ErrNoUpgradeAvailable = errors.New("no upgrade available")
)
