// Package httpserver provides the HTTP server shell around the NSM API
// handler: request logging, health and readiness probes, drain/undrain for
// rolling deploys, optional pprof, and the Prometheus metrics sidecar. It
// owns server lifecycle (background start, graceful shutdown) and nothing
// else; all NSM semantics live in api/nsmhandler.
package httpserver
