package ics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffreylongo/lodge-api/internal/models"
)

var testSource = models.CalendarSource{ID: 1, Name: "Lodge Calendar", Active: true}

const sampleFeed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:abc-123\r\n" +
	"SUMMARY:Stated Communication\r\n" +
	"DTSTART;TZID=America/New_York:20250311T193000\r\n" +
	"DTEND;TZID=America/New_York:20250311T210000\r\n" +
	"LOCATION:Main Hall\r\n" +
	"DESCRIPTION:Monthly business\\, all welcome\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"SUMMARY:Fellowship Dinner\r\n" +
	"DTSTART:20250311T183000\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParseSampleFeed(t *testing.T) {
	events := Parse(sampleFeed, testSource)
	require.Len(t, events, 2)

	meeting := events[0]
	assert.Equal(t, "Stated Communication", meeting.Title)
	assert.Equal(t, "abc-123", meeting.UID)
	assert.Equal(t, time.Date(2025, 3, 11, 19, 30, 0, 0, time.Local), meeting.Date)
	assert.Equal(t, "7:30 PM", meeting.StartTime)
	assert.Equal(t, "9:00 PM", meeting.EndTime)
	assert.Equal(t, "Main Hall", meeting.Location)
	assert.Equal(t, "Monthly business, all welcome", meeting.Description)
	assert.Equal(t, models.CategoryMeeting, meeting.Category)
	assert.Equal(t, testSource.ID, meeting.CalendarID)
	assert.Equal(t, testSource.Name, meeting.CalendarName)

	dinner := events[1]
	assert.Equal(t, "Fellowship Dinner", dinner.Title)
	assert.Equal(t, models.CategoryDinner, dinner.Category)
	assert.Empty(t, dinner.UID)
}

func TestParseIDsAreStableAcrossRuns(t *testing.T) {
	first := Parse(sampleFeed, testSource)
	second := Parse(sampleFeed, testSource)
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Positive(t, first[i].ID)
	}
}

func TestParseDropsBlockWithoutSummary(t *testing.T) {
	raw := "BEGIN:VEVENT\nDTSTART:20250311T193000\nEND:VEVENT\n"
	assert.Empty(t, Parse(raw, testSource))
}

func TestParseDropsBlockWithoutParseableStart(t *testing.T) {
	raw := "BEGIN:VEVENT\nSUMMARY:Mystery\nDTSTART:whenever\nEND:VEVENT\n"
	assert.Empty(t, Parse(raw, testSource))
}

func TestParseDropsTruncatedTrailingBlock(t *testing.T) {
	raw := "BEGIN:VEVENT\n" +
		"SUMMARY:Complete Event\n" +
		"DTSTART:20250311T193000\n" +
		"END:VEVENT\n" +
		"BEGIN:VEVENT\n" +
		"SUMMARY:Cut Off Event\n" +
		"DTSTART:20250312T193000\n"
	events := Parse(raw, testSource)
	require.Len(t, events, 1)
	assert.Equal(t, "Complete Event", events[0].Title)
}

func TestParseAllDayEvent(t *testing.T) {
	// Google Calendar emits DTSTART;VALUE=DATE:YYYYMMDD for all-day events.
	raw := "BEGIN:VEVENT\n" +
		"UID:allday-1\n" +
		"SUMMARY:Lodge Cleanup Day\n" +
		"DTSTART;VALUE=DATE:20250305\n" +
		"DTEND;VALUE=DATE:20250306\n" +
		"END:VEVENT\n"
	events := Parse(raw, testSource)
	require.Len(t, events, 1)
	assert.Equal(t, "Lodge Cleanup Day", events[0].Title)
	assert.Equal(t, time.Date(2025, 3, 5, 0, 0, 0, 0, time.Local), events[0].Date)
	require.NotNil(t, events[0].EndDate)
	assert.Equal(t, time.Date(2025, 3, 6, 0, 0, 0, 0, time.Local), *events[0].EndDate)
}

func TestParseDuplicatePropertyLastWins(t *testing.T) {
	raw := "BEGIN:VEVENT\n" +
		"SUMMARY:First Title\n" +
		"SUMMARY:Second Title\n" +
		"DTSTART:20250311T193000\n" +
		"END:VEVENT\n"
	events := Parse(raw, testSource)
	require.Len(t, events, 1)
	assert.Equal(t, "Second Title", events[0].Title)
}

func TestParseRecurringRule(t *testing.T) {
	raw := "BEGIN:VEVENT\n" +
		"SUMMARY:Stated Meeting\n" +
		"DTSTART:20250311T193000\n" +
		"RRULE:FREQ=MONTHLY;BYDAY=2TU\n" +
		"END:VEVENT\n"
	events := Parse(raw, testSource)
	require.Len(t, events, 1)
	assert.True(t, events[0].Recurring)
	assert.Equal(t, "FREQ=MONTHLY;BYDAY=2TU", events[0].RRule)
}

func TestEventIDFallbackWithoutUID(t *testing.T) {
	date := time.Date(2025, 3, 11, 19, 30, 0, 0, time.Local)
	withUID := EventID("abc", "Stated Meeting", date)
	without := EventID("", "Stated Meeting", date)
	assert.NotEqual(t, withUID, without)
	assert.Equal(t, without, EventID("", "Stated Meeting", date.Add(2*time.Hour)))
}
