/*
Package metrics provides Prometheus instrumentation for modkit.

Metrics are registered once via init and exposed through the standard
promhttp handler, mounted by the serve command at /module/metrics.

# Metric Groups

Registry:
  - modkit_modules_total{status}: registered modules by derived status
  - modkit_lifecycle_operations_total{operation,outcome}: install,
    uninstall, upgrade, and path-update attempts

Routing Gate:
  - modkit_gate_decisions_total{outcome}: forwarded, rejected, passthrough
  - modkit_gate_decision_duration_seconds: admission decision latency
  - modkit_store_read_duration_seconds: record read latency on admission

Route Snapshot:
  - modkit_route_snapshot_rebuilds_total: rebuild count (implicit + manual)

Admin API:
  - modkit_api_requests_total{method,status}
*/
package metrics
