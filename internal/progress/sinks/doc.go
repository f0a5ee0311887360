// Package sinks implements progress consumers: structured logging, Prometheus
// collectors, in-process run counters, and the persistent run ledger.
package sinks
