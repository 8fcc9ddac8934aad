package service

import (
	"time"

	"github.com/jeffreylongo/lodge-api/internal/ics"
	"github.com/jeffreylongo/lodge-api/internal/models"
)

const fallbackCalendarName = "Lodge Schedule (offline)"

// fallbackSchedule builds the synthetic dataset shown when every source
// failed, so the calendar page is never empty. It reflects the lodge's
// standing schedule: stated communication on the second Tuesday with dinner
// before, education night on the fourth Tuesday.
func fallbackSchedule(now time.Time) []models.Event {
	events := make([]models.Event, 0, 6)

	for monthOffset := 0; monthOffset < 2; monthOffset++ {
		base := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, monthOffset, 0)

		stated := nthWeekday(base, time.Tuesday, 2)
		dinner := time.Date(stated.Year(), stated.Month(), stated.Day(), 18, 30, 0, 0, now.Location())
		meeting := time.Date(stated.Year(), stated.Month(), stated.Day(), 19, 30, 0, 0, now.Location())
		education := nthWeekday(base, time.Tuesday, 4)
		educationAt := time.Date(education.Year(), education.Month(), education.Day(), 19, 0, 0, 0, now.Location())

		events = append(events,
			fallbackEvent("Fellowship Dinner", dinner),
			fallbackEvent("Stated Communication", meeting),
			fallbackEvent("Masonic Education Night", educationAt),
		)
	}

	// Only keep entries that are still ahead of us.
	upcoming := events[:0]
	for _, ev := range events {
		if !ev.Date.Before(now) {
			upcoming = append(upcoming, ev)
		}
	}
	return upcoming
}

func fallbackEvent(title string, at time.Time) models.Event {
	return models.Event{
		ID:           ics.EventID("", title, at),
		Title:        title,
		Date:         at,
		StartTime:    at.Format(models.TimeLayout),
		Category:     ics.Classify(title),
		CalendarID:   0,
		CalendarName: fallbackCalendarName,
	}
}

// nthWeekday returns the nth given weekday of the month containing base.
func nthWeekday(base time.Time, day time.Weekday, n int) time.Time {
	first := time.Date(base.Year(), base.Month(), 1, 0, 0, 0, 0, base.Location())
	offset := (int(day) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+(n-1)*7)
}
