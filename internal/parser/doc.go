// Package parser decodes raw Celcat responses into intermediate event
// records. GetCalendarData answers with a JSON array whose optional fields
// come and go between deployments, and whose description field is an HTML
// fragment; both shapes are handled by structural traversal rather than
// string offsets. Parsing is pure and deterministic: the same bytes always
// produce the same records, which the deduplicator relies on.
package parser
