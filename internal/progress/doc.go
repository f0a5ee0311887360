// Package progress carries scan events from workers to pluggable sinks. The
// Hub accepts events without blocking, batches them on a background goroutine,
// and fans each batch out to sinks such as Prometheus metrics, run counters,
// or the persistent run ledger.
package progress
