// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Source reads per asset and outcome
//   - Policy decisions per trigger
//   - Sweep and submission latencies
//   - Last submitted value and timestamp per asset
//   - Handoff queue depth
//
// All recording methods are safe on a nil *Metrics, so components can run
// with metrics disabled.
package metrics
