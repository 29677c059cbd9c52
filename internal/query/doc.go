// Package query translates a calendar query (date range plus resource
// identifiers) into the form-encoded requests the Celcat backend expects.
// Ranges longer than the service's maximum span are split into contiguous,
// non-overlapping windows whose union covers the range exactly; each window
// keeps its index so responses can be correlated back for deduplication.
package query
