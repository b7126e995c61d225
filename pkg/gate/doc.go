/*
Package gate implements the per-request routing gate.

The gate sits in front of the host application's handler chain and decides,
for every inbound request, whether the request belongs to a module and
whether that module is currently reachable.

# Decision Flow

	request path
	     │
	     ├── first segment is a core path ────────────► PASSTHROUGH
	     │
	     ├── segment mounted in route snapshot
	     │        │
	     │        ├── allow-list excludes module ─────► REJECT 404
	     │        ├── record missing / not installed ─► REJECT 404
	     │        ├── record store fault ─────────────► REJECT 404 (fail closed)
	     │        └── otherwise ──────────────────────► FORWARD to module routes
	     │
	     ├── segment is a registered module id
	     │   not mounted here ────────────────────────► REJECT 404
	     │
	     ├── a module is mounted at root ─────────────► admission as above,
	     │                                              patterns matched with no prefix
	     │
	     └── otherwise ───────────────────────────────► PASSTHROUGH

# Freshness and Information Hiding

The admission decision never uses cached record state: the module's record
is read from the store on every request, so install and uninstall take
effect on the very next request. Every rejection produces the same 404; a
client cannot distinguish a module that is uninstalled, remounted
elsewhere, excluded by the allow-list, or simply unknown.

The gate performs no writes. Its read path takes no locks beyond the
store's own read transaction.
*/
package gate
