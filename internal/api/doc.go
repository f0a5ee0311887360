// Package api hosts the optional status server for a running scan:
//   - GET /healthz for liveness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/progress for live counters of the current run.
//   - GET /v1/runs/{run_id} for a run recorded in the ledger.
package api
