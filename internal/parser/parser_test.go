package parser

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("../../testdata/fixtures/calendar_data.json")
	require.NoError(t, err, "failed to load test fixture")
	return data
}

func paris(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	return loc
}

func TestParseCalendarData(t *testing.T) {
	loc := paris(t)
	records, parseErrs, err := ParseCalendarData(loadFixture(t), 0, loc)
	require.NoError(t, err)

	// Three good records; the one with the broken start is dropped and
	// reported, not fatal.
	require.Len(t, records, 3)
	require.Len(t, parseErrs, 1)
	assert.Equal(t, "start", parseErrs[0].Field)
	assert.Equal(t, "not-a-timestamp", parseErrs[0].RawValue)
	assert.Equal(t, "-2099171537", parseErrs[0].EventID)

	algo := records[0]
	assert.Equal(t, "-2099171534", algo.ID)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, loc), algo.Start)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 30, 0, 0, loc), algo.End)
	assert.Equal(t, "CM", algo.Category)
	assert.Equal(t, "ALGORITHMS AND DATA STRUCTURES [INFO4_M1]", algo.Course)
	assert.Equal(t, []string{"AMPHI 12 BAT B"}, algo.Rooms)
	assert.Equal(t, []string{"DUPONT JEAN"}, algo.Professors)
	assert.Equal(t, []string{"CAMPUS NORD"}, algo.Sites)
	assert.Equal(t, 0, algo.WindowIndex)

	// HTML entities in the description decode before use.
	assert.Equal(t, "BIOLOGY & CHEMISTRY LAB", records[1].Course)

	// All-day item without an end spans the civil day.
	holiday := records[2]
	assert.True(t, holiday.AllDay)
	assert.Equal(t, holiday.Start.Add(24*time.Hour), holiday.End)
	assert.Empty(t, holiday.Sites)
}

func TestParseCalendarDataDeterministic(t *testing.T) {
	loc := paris(t)
	body := loadFixture(t)

	first, firstErrs, err := ParseCalendarData(body, 3, loc)
	require.NoError(t, err)
	second, secondErrs, err := ParseCalendarData(body, 3, loc)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstErrs, secondErrs)
}

func TestParseCalendarDataWindowTag(t *testing.T) {
	records, _, err := ParseCalendarData(loadFixture(t), 7, time.UTC)
	require.NoError(t, err)
	for _, rec := range records {
		assert.Equal(t, 7, rec.WindowIndex)
	}
}

func TestParseCalendarDataNotJSON(t *testing.T) {
	_, _, err := ParseCalendarData([]byte("<html>Maintenance</html>"), 0, time.UTC)
	assert.Error(t, err)
}

func TestParseCalendarDataMissingEnd(t *testing.T) {
	payload := []byte(`[{"id":"x","start":"2024-03-01T09:00:00","allDay":false,"description":"LECTURE"}]`)
	records, parseErrs, err := ParseCalendarData(payload, 0, time.UTC)
	require.NoError(t, err)
	assert.Empty(t, records)
	require.Len(t, parseErrs, 1)
	assert.Equal(t, "end", parseErrs[0].Field)
}

func TestSplitDescription(t *testing.T) {
	tests := []struct {
		name       string
		desc       string
		course     string
		rooms      []string
		professors []string
	}{
		{
			name:       "course room staff",
			desc:       "MATHS DISCRETES<br />SALLE 204<br />MARTIN CLAIRE",
			course:     "MATHS DISCRETES",
			rooms:      []string{"SALLE 204"},
			professors: []string{"MARTIN CLAIRE"},
		},
		{
			name:   "course only",
			desc:   "PROJET TUTORE",
			course: "PROJET TUTORE",
		},
		{
			name:       "multiple rooms",
			desc:       "EXAM<br/>AMPHI 1<br/>AMPHI 2<br/>SURVEILLANT A",
			course:     "EXAM",
			rooms:      []string{"AMPHI 1", "AMPHI 2"},
			professors: []string{"SURVEILLANT A"},
		},
		{
			name:   "nested markup and entities",
			desc:   "<b>PHYSIQUE &amp; CHIMIE</b><br /><i>LABO 3</i>",
			course: "PHYSIQUE & CHIMIE",
			rooms:  []string{"LABO 3"},
		},
		{name: "empty", desc: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			course, rooms, professors := splitDescription(tt.desc)
			assert.Equal(t, tt.course, course)
			assert.Equal(t, tt.rooms, rooms)
			assert.Equal(t, tt.professors, professors)
		})
	}
}

func TestParseSideBar(t *testing.T) {
	body := []byte(`{
		"federationId": "INFO4-G1",
		"elements": [
			{"label": "Category", "content": "CM", "isNotes": false},
			{"label": "Room", "content": "AMPHI 12, AMPHI 13", "isNotes": false},
			{"label": "Staff", "content": "DUPONT JEAN<br />MARTIN CLAIRE", "isNotes": false},
			{"label": "", "content": "Bring your &quot;lab notebook&quot;", "isNotes": true}
		]
	}`)

	detail, err := ParseSideBar("-2099171534", body)
	require.NoError(t, err)
	assert.Equal(t, "-2099171534", detail.EventID)
	assert.Equal(t, "CM", detail.Category)
	assert.Equal(t, []string{"AMPHI 12", "AMPHI 13"}, detail.Rooms)
	assert.Equal(t, []string{"DUPONT JEAN", "MARTIN CLAIRE"}, detail.Professors)
	assert.Equal(t, `Bring your "lab notebook"`, detail.Notes)
}

func TestParseSideBarFrenchLabels(t *testing.T) {
	body := []byte(`{"elements": [
		{"label": "Salle", "content": "SALLE 204", "isNotes": false},
		{"label": "Enseignant", "content": "MARTIN CLAIRE", "isNotes": false}
	]}`)

	detail, err := ParseSideBar("x", body)
	require.NoError(t, err)
	assert.Equal(t, []string{"SALLE 204"}, detail.Rooms)
	assert.Equal(t, []string{"MARTIN CLAIRE"}, detail.Professors)
}

func TestParseSideBarNotJSON(t *testing.T) {
	_, err := ParseSideBar("x", []byte("<div>sidebar</div>"))
	assert.Error(t, err)
}
