package ics

import (
	"hash/fnv"
	"strings"
	"time"

	"github.com/jeffreylongo/lodge-api/internal/models"
)

const (
	beginEvent = "BEGIN:VEVENT"
	endEvent   = "END:VEVENT"
)

// Parse converts raw iCalendar text into normalized events for the given
// source. Malformed blocks are skipped, never surfaced as errors: a block is
// kept only when it carries a parseable start time and a summary. A trailing
// block missing END:VEVENT (truncated feed) is dropped while every complete
// block before it is retained.
func Parse(raw string, src models.CalendarSource) []models.Event {
	events := make([]models.Event, 0)
	if raw == "" {
		return events
	}

	var rec *RawRecord

	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		switch trimmed {
		case beginEvent:
			rec = newRawRecord()
			continue
		case endEvent:
			if rec != nil {
				if ev, ok := buildEvent(rec, src); ok {
					events = append(events, ev)
				}
			}
			rec = nil
			continue
		}

		if rec == nil {
			continue
		}

		idx := strings.Index(trimmed, ":")
		if idx <= 0 {
			continue
		}
		name := trimmed[:idx]
		value := trimmed[idx+1:]

		params := ""
		if semi := strings.Index(name, ";"); semi >= 0 {
			params = name[semi:]
			name = name[:semi]
		}

		// Date properties keep a TZID parameter suffix so the normalizer
		// can see it. Other parameters (VALUE=DATE on all-day events) are
		// stripped like everywhere else.
		upper := strings.ToUpper(name)
		if (upper == string(PropStart) || upper == string(PropEnd)) && strings.Contains(strings.ToUpper(params), "TZID=") {
			value = params + ":" + value
		}

		rec.set(upper, value)
	}

	return events
}

// buildEvent converts an accepted block into a normalized event. The second
// result is false when the block lacks a usable start time or summary.
func buildEvent(rec *RawRecord, src models.CalendarSource) (models.Event, bool) {
	summary, ok := rec.Get(PropSummary)
	if !ok || strings.TrimSpace(summary) == "" {
		return models.Event{}, false
	}
	startRaw, ok := rec.Get(PropStart)
	if !ok {
		return models.Event{}, false
	}
	start, ok := ParseDateTime(startRaw)
	if !ok {
		return models.Event{}, false
	}

	title := unescapeText(summary)
	uid, _ := rec.Get(PropUID)

	ev := models.Event{
		ID:           EventID(uid, title, start),
		Title:        title,
		Date:         start,
		StartTime:    start.Format(models.TimeLayout),
		Category:     Classify(title),
		CalendarID:   src.ID,
		CalendarName: src.Name,
		UID:          uid,
	}

	if endRaw, ok := rec.Get(PropEnd); ok {
		if end, ok := ParseDateTime(endRaw); ok {
			ev.EndTime = end.Format(models.TimeLayout)
			ev.EndDate = &end
		}
	}
	if loc, ok := rec.Get(PropLocation); ok {
		ev.Location = unescapeText(loc)
	}
	if desc, ok := rec.Get(PropDescription); ok {
		ev.Description = unescapeText(desc)
	}
	if rrule, ok := rec.Get(PropRRule); ok && rrule != "" {
		ev.Recurring = true
		ev.RRule = rrule
	}

	return ev, true
}

// EventID derives a stable numeric id from the record's UID so re-parsing
// the same feed yields the same id. Records without a UID fall back to
// title plus calendar date, accepting that two same-titled same-day entries
// collapse together.
func EventID(uid, title string, date time.Time) int64 {
	input := uid
	if input == "" {
		input = title + "|" + date.Format("2006-01-02")
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(input))
	return int64(h.Sum64() & 0x7fffffffffffffff)
}

// unescapeText reverses the RFC 5545 TEXT escapes the feeds actually use.
func unescapeText(s string) string {
	replacer := strings.NewReplacer(
		`\n`, "\n",
		`\N`, "\n",
		`\,`, ",",
		`\;`, ";",
		`\\`, `\`,
	)
	return replacer.Replace(s)
}
