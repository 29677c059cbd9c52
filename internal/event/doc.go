// Package event defines the canonical calendar event and the normalizer
// that turns parsed records into a stable, deduplicated, sorted sequence.
package event
