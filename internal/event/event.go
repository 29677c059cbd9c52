package event

import (
	"crypto/sha1"
	"fmt"
	"time"
)

// Event is the canonical, immutable calendar entry returned to callers.
// Start and End are always UTC.
type Event struct {
	ID         string    `json:"id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	AllDay     bool      `json:"all_day,omitempty"`
	Title      string    `json:"title"`
	Category   string    `json:"category,omitempty"`
	Location   string    `json:"location,omitempty"`
	Professors []string  `json:"professors,omitempty"`
	Notes      string    `json:"notes,omitempty"`
}

// GenerateID creates a deterministic identifier from the dedup key fields.
// Two records describing the same underlying event, even when they arrive
// through different request windows, hash to the same ID.
func GenerateID(start, end time.Time, title, category string) string {
	h := sha1.New()
	fmt.Fprintf(h, "%d|%d|%s|%s", start.UTC().Unix(), end.UTC().Unix(), title, category)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Key is the identity an event is deduplicated on.
type Key struct {
	Start    int64
	End      int64
	Title    string
	Category string
}

// DedupKey returns the event's identity for merging.
func (e Event) DedupKey() Key {
	return Key{
		Start:    e.Start.UTC().Unix(),
		End:      e.End.UTC().Unix(),
		Title:    e.Title,
		Category: e.Category,
	}
}

// completeness scores how much optional detail an event carries; the merge
// policy keeps the richer duplicate.
func (e Event) completeness() int {
	score := 0
	if e.Location != "" {
		score++
	}
	if e.Notes != "" {
		score++
	}
	if len(e.Professors) > 0 {
		score++
	}
	return score
}
