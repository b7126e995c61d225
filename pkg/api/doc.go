/*
Package api exposes modkit's administrative surface over HTTP.

The admin API is thin glue over the registry: every endpoint delegates to a
registry operation and translates its result to JSON. The handler is
normally mounted under the engine's "module" core path so the routing gate
never gates it.

# Endpoints

	GET  /               list modules (ordered by module id)
	POST /install/{id}   install, optional base_path form value
	POST /uninstall/{id} uninstall
	POST /upgrade/{id}   upgrade to the descriptor version
	POST /path/{id}      update base path (base_path form value)
	POST /reload         manual route snapshot rebuild
	GET  /health         liveness

# Error Mapping

	unknown module                  404
	not installed / no upgrade      409
	record store fault              500

Failures are user-visible admin errors, returned as {"error": "..."}.

# Rate Limiting

An optional per-client-IP token bucket protects the surface; clients over
budget receive 429. Limits come from the engine configuration.
*/
package api
