package parser

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Time layouts Celcat emits. Timestamps are naive; the query's location
// decides what they mean.
const (
	timestampLayout = "2006-01-02T15:04:05"
	dateLayout      = "2006-01-02"
)

// RawEvent is the as-decoded shape of a single calendar item, before
// normalization. String fields are entity-decoded plain text.
type RawEvent struct {
	ID          string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Category    string
	Course      string
	Department  string
	Modules     []string
	Rooms       []string
	Sites       []string
	Professors  []string
	Notes       string
	WindowIndex int
}

// ParseError reports one record that could not be decoded. The record is
// dropped; the rest of the payload is unaffected.
type ParseError struct {
	EventID  string
	Field    string
	RawValue string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("unparseable %s %q in event %q", e.Field, e.RawValue, e.EventID)
}

// calendarItem mirrors one GetCalendarData array element. Every field
// except start is optional in practice; absent fields decode to zero values.
type calendarItem struct {
	ID            string   `json:"id"`
	Start         string   `json:"start"`
	End           string   `json:"end"`
	AllDay        bool     `json:"allDay"`
	Description   string   `json:"description"`
	EventCategory string   `json:"eventCategory"`
	Department    string   `json:"department"`
	Sites         []string `json:"sites"`
	Modules       []string `json:"modules"`
}

// ParseCalendarData decodes one GetCalendarData response body. A payload
// that is not a JSON array fails as a whole; a single bad record only
// produces a ParseError and is skipped. windowIndex tags every record with
// its originating request window.
func ParseCalendarData(body []byte, windowIndex int, loc *time.Location) ([]RawEvent, []ParseError, error) {
	if loc == nil {
		loc = time.UTC
	}

	var items []calendarItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, nil, fmt.Errorf("decoding calendar payload: %w", err)
	}

	records := make([]RawEvent, 0, len(items))
	var parseErrs []ParseError

	for _, item := range items {
		start, err := parseTimestamp(item.Start, loc)
		if err != nil {
			parseErrs = append(parseErrs, ParseError{EventID: item.ID, Field: "start", RawValue: item.Start})
			continue
		}

		var end time.Time
		switch {
		case item.End != "":
			end, err = parseTimestamp(item.End, loc)
			if err != nil {
				parseErrs = append(parseErrs, ParseError{EventID: item.ID, Field: "end", RawValue: item.End})
				continue
			}
		case item.AllDay:
			// All-day items omit the end; they span the civil day.
			end = start.Add(24 * time.Hour)
		default:
			parseErrs = append(parseErrs, ParseError{EventID: item.ID, Field: "end", RawValue: ""})
			continue
		}

		course, rooms, professors := splitDescription(item.Description)

		records = append(records, RawEvent{
			ID:          item.ID,
			Start:       start,
			End:         end,
			AllDay:      item.AllDay,
			Category:    item.EventCategory,
			Course:      course,
			Department:  item.Department,
			Modules:     item.Modules,
			Rooms:       rooms,
			Sites:       dropEmpty(item.Sites),
			Professors:  professors,
			WindowIndex: windowIndex,
		})
	}

	return records, parseErrs, nil
}

func parseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(timestampLayout, raw, loc); err == nil {
		return t, nil
	}
	return time.ParseInLocation(dateLayout, raw, loc)
}

// splitDescription decomposes the HTML description fragment. The fragment is
// a <br>-separated stack of lines: the course name first, then rooms and
// staff in deployment-dependent order. Lines carrying a digit are treated as
// rooms, the rest as staff; the rule is crude but deterministic, and the
// sidebar detail endpoint provides the authoritative assignment when
// enrichment is enabled.
func splitDescription(desc string) (course string, rooms, professors []string) {
	lines := fragmentLines(desc)
	if len(lines) == 0 {
		return "", nil, nil
	}

	course = lines[0]
	for _, line := range lines[1:] {
		if strings.IndexFunc(line, isDigit) >= 0 {
			rooms = append(rooms, line)
		} else {
			professors = append(professors, line)
		}
	}
	return course, rooms, professors
}

// fragmentLines renders an HTML fragment to plain text lines. <br> elements
// become line breaks through tree manipulation, never string surgery, and
// the HTML parser decodes entities on the way.
func fragmentLines(fragment string) []string {
	if strings.TrimSpace(fragment) == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil
	}
	doc.Find("br").ReplaceWithHtml("\n")

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func dropEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
