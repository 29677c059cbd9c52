package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tleroy/celcat-fetch/internal/event"
)

func TestEncode(t *testing.T) {
	events := []event.Event{
		{
			ID:         "abc123",
			Start:      time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC),
			End:        time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC),
			Title:      "Algorithms And Data Structures",
			Category:   "CM",
			Location:   "Amphi 12",
			Professors: []string{"Dupont Jean"},
		},
		{
			ID:     "def456",
			Start:  time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			End:    time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC),
			AllDay: true,
			Title:  "Journée Portes Ouvertes",
		},
	}

	var b strings.Builder
	require.NoError(t, Encode(events, &b))
	out := b.String()

	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "END:VCALENDAR")
	assert.Contains(t, out, "UID:abc123@celcat-fetch")
	assert.Contains(t, out, "UID:def456@celcat-fetch")
	assert.Contains(t, out, "SUMMARY:Algorithms And Data Structures")
	assert.Contains(t, out, "LOCATION:Amphi 12")
	assert.Contains(t, out, "DTSTART:20240304T080000Z")
	// All-day entries use date values, not timestamps.
	assert.Contains(t, out, "VALUE=DATE:20240305")
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
}

func TestEncodeEmpty(t *testing.T) {
	var b strings.Builder
	require.NoError(t, Encode(nil, &b))
	assert.Contains(t, b.String(), "BEGIN:VCALENDAR")
	assert.NotContains(t, b.String(), "BEGIN:VEVENT")
}
