/*
Package router builds the live route snapshot from registry state.

The route table changes at runtime: modules are installed, uninstalled,
upgraded, and remounted without a process restart. Rather than mutating a
live table in place, the builder constructs a fresh immutable Snapshot off
to the side and publishes it with a single atomic pointer swap. In-flight
requests always see one fully consistent table.

# Rebuild Triggers

	install / uninstall / upgrade / path update
	        │ (registry OnChanged hook, synchronous)
	        ▼
	  Builder.Reload ──► build() ──► atomic swap
	        ▲
	        │ manual reload (admin surface)

Building is a pure read over registry and store state and is safe to run
repeatedly and concurrently with request traffic.

# Collision Policy

Two installed modules can resolve to the same effective path, including two
modules both requesting the root mount. The policy is deterministic
first-registered-wins: the earlier-registered module keeps the mount and
the conflict is logged. Registration order is fixed at bootstrap, so the
outcome never depends on install timing.

# See Also

  - pkg/gate, which consults the snapshot per request
  - pkg/registry for the change hooks that trigger rebuilds
*/
package router
