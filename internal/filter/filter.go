// Package filter cleans up normalized events for presentation: Celcat
// deployments shout course names in caps, suffix them with module codes and
// category labels, and append building wings to room numbers. Every rule is
// optional and off-by-default behavior is the identity.
package filter

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/tleroy/celcat-fetch/internal/event"
)

// Config selects which cleanup rules run.
type Config struct {
	TitleCaseCourses bool `koanf:"title_case_courses"`
	StripModules     bool `koanf:"strip_modules"`
	StripCategories  bool `koanf:"strip_categories"`
	TitleCaseRooms   bool `koanf:"title_case_rooms"`
	TrimRoomSuffixes bool `koanf:"trim_room_suffixes"`
}

// Default enables the full cleanup, matching what the reference deployments
// need to look presentable.
func Default() Config {
	return Config{
		TitleCaseCourses: true,
		StripModules:     true,
		StripCategories:  true,
		TitleCaseRooms:   true,
		TrimRoomSuffixes: true,
	}
}

// moduleCode matches a bracketed module code, e.g. " [INFO4_M1]". Not
// anchored: deployments put it before or after the category label.
var moduleCode = regexp.MustCompile(`\s*\[[^\]\[]+\]`)

// Apply rewrites titles and locations in place and returns the slice for
// chaining. Events themselves stay value types; callers hold the only copy.
func (c Config) Apply(events []event.Event) []event.Event {
	for i := range events {
		events[i].Title = c.cleanTitle(events[i].Title, events[i].Category)
		events[i].Location = c.cleanLocation(events[i].Location)
		for j, p := range events[i].Professors {
			events[i].Professors[j] = titleCase(p)
		}
	}
	return events
}

func (c Config) cleanTitle(title, category string) string {
	if c.StripModules {
		title = moduleCode.ReplaceAllString(title, "")
	}
	if c.StripCategories && category != "" {
		if cut, ok := trimSuffixFold(title, category); ok {
			title = cut
		}
	}
	if c.TitleCaseCourses {
		title = titleCase(title)
	}
	return strings.TrimSpace(title)
}

func (c Config) cleanLocation(location string) string {
	if location == "" {
		return location
	}
	rooms := strings.Split(location, ", ")
	for i, room := range rooms {
		if c.TrimRoomSuffixes {
			room = trimAfterNumber(room)
		}
		if c.TitleCaseRooms {
			room = titleCase(room)
		}
		rooms[i] = room
	}
	return strings.Join(rooms, ", ")
}

// trimSuffixFold removes a case-insensitive " <suffix>" from the end of s.
func trimSuffixFold(s, suffix string) (string, bool) {
	want := " " + suffix
	if len(s) > len(want) && strings.EqualFold(s[len(s)-len(want):], want) {
		return strings.TrimSpace(s[:len(s)-len(want)]), true
	}
	return s, false
}

// trimAfterNumber keeps a room name up to and including its room number,
// dropping trailing wing/floor qualifiers: "AMPHI 12 BAT B" -> "AMPHI 12".
func trimAfterNumber(room string) string {
	i := 0
	for i < len(room) && !unicode.IsDigit(rune(room[i])) {
		i++
	}
	if i == len(room) {
		return room
	}
	for i < len(room) && !unicode.IsLetter(rune(room[i])) {
		i++
	}
	return strings.TrimSpace(room[:i])
}

// titleCase lowercases a string and capitalizes the first letter of each
// word. Apostrophes stay inside their word so "L'Amphi" survives.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) && !prevLetter {
			r = unicode.ToUpper(r)
		}
		prevLetter = unicode.IsLetter(r) || r == '\''
		b.WriteRune(r)
	}
	return b.String()
}
