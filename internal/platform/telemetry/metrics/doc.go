// Package metrics provides operational metrics for the publishing core.
//
// # Metric Categories
//
//   - Edits: sessions opened, committed, discarded, and discard failures
//   - Retries: transient upstream failures retried, by HTTP status
//   - Mutations: orchestrated operations by name and outcome
//
// # Integration
//
// Metrics live in a private Prometheus registry owned by the process and are
// exposed in text format at /metrics on the HTTP transports. A nil *Metrics
// is valid and records nothing, so tests and stdio runs can skip wiring.
package metrics
