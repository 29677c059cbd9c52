package query

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tleroy/celcat-fetch/internal/transport"
)

const (
	// DefaultMaxSpan keeps each window within what Celcat backends accept
	// for a single GetCalendarData call: a month view plus spill-over weeks.
	DefaultMaxSpan = 35 * 24 * time.Hour

	// dateFormat is the wire format for the start/end form fields.
	dateFormat = "2006-01-02"

	calendarDataPath = "/Home/GetCalendarData"
	sideBarPath      = "/Home/GetSideBarEvent"

	// resTypeStudentGroup selects student-group calendars; rooms and staff
	// use different codes but the reference deployments only expose 104.
	resTypeStudentGroup = "104"
)

// Query describes one schedule lookup: an inclusive date range, the resource
// (federation) identifiers to enumerate, and the timezone the service's
// naive timestamps should be interpreted in.
type Query struct {
	Start       time.Time
	End         time.Time
	ResourceIDs []string
	Location    *time.Location
}

// Validate rejects queries the service would refuse anyway.
func (q Query) Validate() error {
	if q.Start.IsZero() || q.End.IsZero() {
		return fmt.Errorf("query start and end are required")
	}
	if q.End.Before(q.Start) {
		return fmt.Errorf("query end %s precedes start %s",
			q.End.Format(dateFormat), q.Start.Format(dateFormat))
	}
	if len(q.ResourceIDs) == 0 {
		return fmt.Errorf("query needs at least one resource identifier")
	}
	return nil
}

// Window is one bounded sub-range of a query. Index records the build order,
// which the deduplicator uses as a tie-breaker.
type Window struct {
	Index int
	Start time.Time
	End   time.Time
}

// Split cuts [start, end] into contiguous windows of at most maxSpan each.
// Window boundaries meet exactly (w[i].End == w[i+1].Start) and the final
// window is truncated to end, so the union covers the range with no gap and
// no overlap.
func Split(start, end time.Time, maxSpan time.Duration) []Window {
	if maxSpan <= 0 {
		maxSpan = DefaultMaxSpan
	}

	var windows []Window
	for cursor := start; cursor.Before(end); {
		next := cursor.Add(maxSpan)
		if next.After(end) {
			next = end
		}
		windows = append(windows, Window{Index: len(windows), Start: cursor, End: next})
		cursor = next
	}
	if len(windows) == 0 {
		// Degenerate single-instant range still produces one window.
		windows = append(windows, Window{Start: start, End: end})
	}
	return windows
}

// CalendarRequest builds the GetCalendarData request for one window. The
// federationIds[] field repeats once per resource, matching the service's
// jQuery-style array encoding.
func CalendarRequest(w Window, resourceIDs []string) transport.RequestSpec {
	form := url.Values{}
	form.Set("start", w.Start.Format(dateFormat))
	form.Set("end", w.End.Format(dateFormat))
	form.Set("resType", resTypeStudentGroup)
	form.Set("calView", "agendaWeek")
	for _, id := range resourceIDs {
		form.Add("federationIds[]", id)
	}
	return transport.RequestSpec{Method: http.MethodPost, Path: calendarDataPath, Form: form}
}

// SideBarRequest builds the per-event detail request.
func SideBarRequest(eventID string) transport.RequestSpec {
	form := url.Values{}
	form.Set("eventId", eventID)
	return transport.RequestSpec{Method: http.MethodPost, Path: sideBarPath, Form: form}
}
