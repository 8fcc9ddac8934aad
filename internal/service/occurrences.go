package service

import (
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/jeffreylongo/lodge-api/internal/models"
)

// maxOccurrencesPerEvent caps recurrence expansion so a malformed RRULE
// cannot blow up a response.
const maxOccurrencesPerEvent = 500

// Occurrences expands the collection into concrete instances within
// [from, to] inclusive. Non-recurring events pass through unchanged;
// events carrying an RRULE are expanded with each instance keeping the
// original event's id, title and times. The underlying collection is not
// modified.
func (s *CalendarService) Occurrences(from, to time.Time) []models.Event {
	windowStart := startOfDay(from)
	windowEnd := startOfDay(to).AddDate(0, 0, 1)

	snapshot := s.Snapshot()
	out := make([]models.Event, 0, len(snapshot.Events))

	for _, ev := range snapshot.Events {
		if !ev.Recurring || ev.RRule == "" {
			if !ev.Date.Before(windowStart) && ev.Date.Before(windowEnd) {
				out = append(out, ev)
			}
			continue
		}

		r, err := rrule.StrToRRule(ev.RRule)
		if err != nil {
			s.logger.Warn("unparseable RRULE, keeping base instance",
				zap.Int64("event", ev.ID),
				zap.String("rrule", ev.RRule),
				zap.Error(err),
			)
			if !ev.Date.Before(windowStart) && ev.Date.Before(windowEnd) {
				out = append(out, ev)
			}
			continue
		}
		r.DTStart(ev.Date)

		times := r.Between(windowStart, windowEnd.Add(-time.Nanosecond), true)
		if len(times) > maxOccurrencesPerEvent {
			times = times[:maxOccurrencesPerEvent]
		}
		for _, at := range times {
			instance := ev
			instance.Date = at
			instance.StartTime = at.Format(models.TimeLayout)
			if ev.EndDate != nil {
				end := at.Add(ev.EndAt().Sub(ev.Date))
				instance.EndDate = &end
			}
			out = append(out, instance)
		}
	}

	sortByDate(out)
	return out
}
