/*
Package config loads the engine's YAML configuration.

Configuration is read once during bootstrap and treated as immutable for
the process lifetime. A minimal file:

	listen: ":8080"
	data_dir: /var/lib/modkit

	available_modules:
	  - product
	  - booking

	core_paths:
	  - healthz

	log:
	  level: info
	  json: true

	rate_limit:
	  requests_per_second: 10
	  burst: 20

available_modules and core_paths feed the routing gate; reset_on_uninstall
feeds the registry; rate_limit applies to the admin API only.
*/
package config
