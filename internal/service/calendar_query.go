package service

import (
	"sort"
	"strconv"
	"time"

	"github.com/jeffreylongo/lodge-api/internal/models"
)

// The query layer: read-only views over a snapshot of the merged
// collection. Nothing here mutates service state, and every result is
// sorted ascending by date regardless of merge order.

// UpcomingEvents returns events within the next `days` days, counted from
// the start of the current day, both endpoints inclusive.
func (s *CalendarService) UpcomingEvents(days int) []models.Event {
	now := s.now()
	start := startOfDay(now)
	end := start.AddDate(0, 0, days+1)
	return s.eventsBetween(start, end)
}

// EventsInRange returns events whose date falls within [from, to],
// inclusive of both whole days.
func (s *CalendarService) EventsInRange(from, to time.Time) []models.Event {
	return s.eventsBetween(startOfDay(from), startOfDay(to).AddDate(0, 0, 1))
}

// EventsForMonth returns all events within one calendar month.
func (s *CalendarService) EventsForMonth(year int, month time.Month) []models.Event {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	return s.eventsBetween(start, start.AddDate(0, 1, 0))
}

// EventsBySource returns the events owned by a single source id.
func (s *CalendarService) EventsBySource(id int) []models.Event {
	snapshot := s.Snapshot()
	out := make([]models.Event, 0)
	for _, ev := range snapshot.Events {
		if ev.CalendarID == id {
			out = append(out, ev)
		}
	}
	sortByDate(out)
	return out
}

// DisplayEvents filters by the active view selector: a numeric source id or
// "all" (anything unrecognized falls back to the combined view).
func (s *CalendarService) DisplayEvents(view string) []models.Event {
	if id, err := strconv.Atoi(view); err == nil {
		return s.EventsBySource(id)
	}
	snapshot := s.Snapshot()
	out := append([]models.Event(nil), snapshot.Events...)
	sortByDate(out)
	return out
}

// eventsBetween returns events with start <= date < end, sorted ascending.
func (s *CalendarService) eventsBetween(start, end time.Time) []models.Event {
	snapshot := s.Snapshot()
	out := make([]models.Event, 0)
	for _, ev := range snapshot.Events {
		if !ev.Date.Before(start) && ev.Date.Before(end) {
			out = append(out, ev)
		}
	}
	sortByDate(out)
	return out
}

func sortByDate(events []models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
