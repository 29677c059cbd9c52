// Package ics renders a fetched schedule as an iCalendar document so the
// result can be imported into any calendar client.
package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/tleroy/celcat-fetch/internal/event"
)

const prodID = "-//celcat-fetch//github.com/tleroy/celcat-fetch//EN"

// Encode writes one VEVENT per event. UIDs reuse the deterministic event ID,
// so re-running an export updates entries instead of duplicating them.
func Encode(events []event.Event, w io.Writer) error {
	cal := ical.NewCalendar()
	cal.SetProductId(prodID)
	cal.SetMethod(ical.MethodPublish)

	stamp := time.Now().UTC()
	for _, ev := range events {
		ve := cal.AddEvent(ev.ID + "@celcat-fetch")
		ve.SetDtStampTime(stamp)
		if ev.AllDay {
			ve.SetAllDayStartAt(ev.Start)
			ve.SetAllDayEndAt(ev.End)
		} else {
			ve.SetStartAt(ev.Start)
			ve.SetEndAt(ev.End)
		}
		ve.SetSummary(ev.Title)
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}
		if desc := description(ev); desc != "" {
			ve.SetDescription(desc)
		}
	}

	if err := cal.SerializeTo(w); err != nil {
		return fmt.Errorf("serializing calendar: %w", err)
	}
	return nil
}

func description(ev event.Event) string {
	var parts []string
	if ev.Category != "" {
		parts = append(parts, ev.Category)
	}
	if len(ev.Professors) > 0 {
		parts = append(parts, strings.Join(ev.Professors, ", "))
	}
	if ev.Notes != "" {
		parts = append(parts, ev.Notes)
	}
	return strings.Join(parts, "\n")
}
