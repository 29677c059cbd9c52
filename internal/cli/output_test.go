package cli

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tleroy/celcat-fetch/internal/event"
	"github.com/tleroy/celcat-fetch/internal/parser"
	"github.com/tleroy/celcat-fetch/internal/query"
	"github.com/tleroy/celcat-fetch/internal/scraper"
)

func sampleResult() *scraper.Result {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	return &scraper.Result{
		Events: []event.Event{
			{
				ID:       "aaa",
				Start:    day.Add(8 * time.Hour),
				End:      day.Add(9*time.Hour + 30*time.Minute),
				Title:    "Algorithms",
				Category: "CM",
				Location: "Amphi 12",
			},
			{
				ID:    "bbb",
				Start: day.Add(10 * time.Hour),
				End:   day.Add(11 * time.Hour),
				Title: "Biology",
			},
		},
		Windows: []scraper.WindowStatus{
			{
				Window: query.Window{Index: 0, Start: day, End: day.AddDate(0, 0, 7)},
				Status: scraper.StatusSucceeded,
			},
			{
				Window: query.Window{Index: 1, Start: day.AddDate(0, 0, 7), End: day.AddDate(0, 0, 14)},
				Status: scraper.StatusFailed,
				Err:    errors.New("server unreachable"),
			},
		},
		ParseErrors: []parser.ParseError{{EventID: "ccc", Field: "start", RawValue: "garbage"}},
	}
}

func TestWriteOutputText(t *testing.T) {
	var b strings.Builder
	require.NoError(t, WriteOutput(&b, sampleResult(), FormatText))
	out := b.String()

	assert.Contains(t, out, "Mon 2024-03-04")
	assert.Contains(t, out, "08:00-09:30  Algorithms [CM] @ Amphi 12")
	assert.Contains(t, out, "10:00-11:00  Biology")
	assert.Contains(t, out, "1 window(s) incomplete:")
	assert.Contains(t, out, "2024-03-11 to 2024-03-18: failed (server unreachable)")
	assert.Contains(t, out, "1 record(s) dropped as unparseable.")
}

func TestWriteOutputTextEmpty(t *testing.T) {
	var b strings.Builder
	require.NoError(t, WriteOutput(&b, &scraper.Result{}, FormatText))
	assert.Contains(t, b.String(), "No events found.")
}

func TestWriteOutputJSON(t *testing.T) {
	var b strings.Builder
	require.NoError(t, WriteOutput(&b, sampleResult(), FormatJSON))

	var decoded struct {
		Events []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"events"`
		Windows []struct {
			Index  int    `json:"index"`
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"windows"`
		ParseErrors []string `json:"parse_errors"`
	}
	require.NoError(t, json.Unmarshal([]byte(b.String()), &decoded))

	require.Len(t, decoded.Events, 2)
	assert.Equal(t, "Algorithms", decoded.Events[0].Title)
	require.Len(t, decoded.Windows, 2)
	assert.Equal(t, "succeeded", decoded.Windows[0].Status)
	assert.Equal(t, "failed", decoded.Windows[1].Status)
	assert.Equal(t, "server unreachable", decoded.Windows[1].Error)
	require.Len(t, decoded.ParseErrors, 1)
	assert.Contains(t, decoded.ParseErrors[0], "garbage")
}

func TestWriteOutputICS(t *testing.T) {
	var b strings.Builder
	require.NoError(t, WriteOutput(&b, sampleResult(), FormatICS))
	assert.Contains(t, b.String(), "BEGIN:VCALENDAR")
	assert.Contains(t, b.String(), "SUMMARY:Algorithms")
}

func TestWriteOutputUnknownFormat(t *testing.T) {
	var b strings.Builder
	assert.Error(t, WriteOutput(&b, sampleResult(), OutputFormat("xml")))
}
