// Package httpserver runs an http.Server until its context is cancelled and
// then shuts it down gracefully. It also provides liveness and readiness
// handlers for orchestrator probes.
package httpserver
