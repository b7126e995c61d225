/*
Package registry implements the process-wide module catalog and its
lifecycle state machine.

The registry reconciles two sources of truth: module descriptors, declared
statically at process start, and module records, persisted per module in the
record store. Descriptors say what a module is; records say whether its
routes are currently reachable.

# State Machine

	             Install
	NOT_INSTALLED ──────────────► INSTALLED
	      ▲                          │  ▲
	      │ Uninstall                │  │ Upgrade
	      └──────────────────────────┘  │
	                                    │
	              descriptor version > installed version
	                     (derived, read time only)
	                                    │
	                          UPGRADE_AVAILABLE

UPGRADE_AVAILABLE is never written by a caller: listings derive it by
comparing the installed version with the descriptor version. Uninstall
keeps the record, preserving the configured base path and version for a
later reinstall (ResetOnUninstall makes that a deployment choice).

# Freshness

The registry holds no record cache. Every view and every admission check in
pkg/gate reads the store directly, so an administrative change is visible to
the very next request with no propagation delay.

# Concurrency

Lifecycle operations are serialized per module id with a striped mutex;
operations on different modules do not contend. Register is only legal
during bootstrap, before requests are routed.

# Change Notification

Two mechanisms fire after each successful mutation:

  - OnChanged hooks run synchronously; the route builder uses one to
    rebuild its snapshot before the operation returns.
  - Lifecycle events go through the events.Broker, fire-and-forget, for
    audit logging and other observers.

# See Also

  - pkg/router for the snapshot built from registry state
  - pkg/gate for the admission decision
  - pkg/storage for record persistence
*/
package registry
