// Package transport manages the single authenticated HTTP session against a
// Celcat backend. It attaches session cookies automatically through a shared
// cookie jar, applies the configured request timeout, and maps failures into
// a small error taxonomy (transport, timeout, HTTP status). Retry policy is
// deliberately not implemented here; it belongs to the orchestrator.
package transport
