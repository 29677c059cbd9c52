// Package scraper drives the end-to-end schedule fetch: authenticate once,
// split the query into service-sized windows, issue them concurrently under
// a bounded limit, recover expired sessions through a shared re-login, retry
// transient failures with exponential backoff, and hand everything that
// parsed through the normalizer. Window failures are isolated: the caller
// always receives the events that could be retrieved plus a per-window
// status report saying what was not and why.
package scraper
