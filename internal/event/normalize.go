package event

import (
	"sort"
	"strings"

	"github.com/tleroy/celcat-fetch/internal/parser"
)

// Normalize maps parsed records onto canonical Events, merges duplicates
// arising from overlapping request windows, and sorts the result by start
// time ascending with ties broken by title. The output is independent of
// record arrival order apart from the documented window tie-break.
func Normalize(records []parser.RawEvent) []Event {
	type candidate struct {
		ev     Event
		window int
	}

	best := make(map[Key]candidate, len(records))
	for _, rec := range records {
		ev := fromRecord(rec)
		key := ev.DedupKey()

		cur, exists := best[key]
		if !exists {
			best[key] = candidate{ev: ev, window: rec.WindowIndex}
			continue
		}
		// Prefer the more complete record; equally complete duplicates go
		// to the earlier-built window.
		if ev.completeness() > cur.ev.completeness() ||
			(ev.completeness() == cur.ev.completeness() && rec.WindowIndex < cur.window) {
			best[key] = candidate{ev: ev, window: rec.WindowIndex}
		}
	}

	events := make([]Event, 0, len(best))
	for _, c := range best {
		events = append(events, c.ev)
	}
	Sort(events)
	return events
}

// Dedupe merges duplicates in an already-normalized sequence, keeping the
// more complete event and otherwise the earlier one. Running it over
// Normalize output is a no-op.
func Dedupe(events []Event) []Event {
	best := make(map[Key]Event, len(events))
	order := make([]Key, 0, len(events))
	for _, ev := range events {
		key := ev.DedupKey()
		cur, exists := best[key]
		if !exists {
			best[key] = ev
			order = append(order, key)
			continue
		}
		if ev.completeness() > cur.completeness() {
			best[key] = ev
		}
	}

	out := make([]Event, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	Sort(out)
	return out
}

// Sort orders events by start time ascending, then title, then end time.
func Sort(events []Event) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		if events[i].Title != events[j].Title {
			return events[i].Title < events[j].Title
		}
		return events[i].End.Before(events[j].End)
	})
}

// fromRecord builds the candidate Event for one record. Missing identifiers
// are derived from the dedup key so they stay stable across windows.
func fromRecord(rec parser.RawEvent) Event {
	title := rec.Course
	if title == "" && len(rec.Modules) > 0 {
		title = rec.Modules[0]
	}

	location := strings.Join(rec.Rooms, ", ")
	if location == "" {
		location = strings.Join(rec.Sites, ", ")
	}

	ev := Event{
		ID:         rec.ID,
		Start:      rec.Start.UTC(),
		End:        rec.End.UTC(),
		AllDay:     rec.AllDay,
		Title:      title,
		Category:   rec.Category,
		Location:   location,
		Professors: append([]string(nil), rec.Professors...),
		Notes:      rec.Notes,
	}
	if ev.ID == "" {
		ev.ID = GenerateID(ev.Start, ev.End, ev.Title, ev.Category)
	}
	return ev
}
