/*
Package log provides structured logging for modkit using zerolog.

The package wraps a single global zerolog logger configured once at process
start. Components take child loggers with a fixed component field so log
lines can be filtered per subsystem, and module-scoped code can attach the
module id the same way.

# Usage

Initialize once during bootstrap:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
	})

Take a child logger per component:

	logger := log.WithComponent("registry")
	logger.Info().Str("module_id", "product").Msg("module installed")

# Output Formats

JSON output is intended for production; console output (RFC3339 timestamps,
colorized) for development.
*/
package log
