// Package cli wires the scraper into a cobra command: it loads
// configuration, runs one schedule fetch, and renders the result as text,
// JSON, or an iCalendar file, including the per-window status report.
package cli
