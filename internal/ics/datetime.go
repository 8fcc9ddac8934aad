package ics

import (
	"strings"
	"time"
)

// genericLayouts are tried as a last resort when the numeric form is not
// recognized.
var genericLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDateTime interprets an iCalendar date-time encoding into an absolute
// local instant. It accepts either a bare property value or the full
// "DTSTART;TZID=...:value" form, applying rules in priority order:
//
//   - a ;TZID= parameter: the value after the final colon is read as local
//     wall-clock time. No time-zone database conversion is performed; this
//     mirrors the behaviour the site has always had and is kept for
//     compatibility with feeds produced in the lodge's own zone.
//   - a trailing Z: the numeric prefix is read as UTC and converted to
//     local time.
//   - anything else: local wall-clock time.
//
// The boolean result is false when no interpretation succeeds; callers drop
// the owning record rather than storing a zero date.
func ParseDateTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	if strings.Contains(strings.ToUpper(raw), ";TZID=") {
		if i := strings.LastIndex(raw, ":"); i >= 0 {
			raw = raw[i+1:]
		}
		return parseClock(raw, time.Local)
	}

	if strings.HasSuffix(raw, "Z") {
		t, ok := parseClock(raw, time.UTC)
		if !ok {
			return time.Time{}, false
		}
		return t.In(time.Local), true
	}

	return parseClock(raw, time.Local)
}

// parseClock parses the numeric date-time forms in the given location.
// Everything that is not a digit or the T separator is stripped first.
func parseClock(raw string, loc *time.Location) (time.Time, bool) {
	cleaned := stripNonNumeric(raw)

	switch {
	case len(cleaned) == 8:
		t, err := time.ParseInLocation("20060102", cleaned, loc)
		if err != nil {
			return time.Time{}, false
		}
		return t, true

	case len(cleaned) >= 13 && cleaned[8] == 'T':
		// YYYYMMDDTHHMM with optional seconds.
		seconds := "00"
		if len(cleaned) >= 15 {
			seconds = cleaned[13:15]
		}
		t, err := time.ParseInLocation("20060102T150405", cleaned[:13]+seconds, loc)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}

	for _, layout := range genericLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func stripNonNumeric(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == 'T' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
