package models

// CalendarSource is the static configuration for one upstream calendar
// feed. Sources are defined at startup and live for the whole process;
// Active is the only field that changes afterwards.
type CalendarSource struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Active      bool   `json:"active"`
	Color       string `json:"color"`
	Description string `json:"description,omitempty"`

	// MultiMonth marks feeds that expose only one month per request; the
	// fetcher substitutes {year}/{month} placeholders across a rolling
	// window instead of issuing a single fetch.
	MultiMonth bool `json:"multi_month"`
}

// DefaultSources is the lodge's calendar roster. IDs are referenced by
// merged events (CalendarID) and by the per-source API routes.
func DefaultSources() []CalendarSource {
	return []CalendarSource{
		{
			ID:          1,
			Name:        "Lodge Trestleboard",
			URL:         "https://calendar.google.com/calendar/ical/lodge140%40gmail.com/public/basic.ics",
			Active:      true,
			Color:       "#1f4e79",
			Description: "Stated communications, degrees and lodge events",
		},
		{
			ID:          2,
			Name:        "Grand Lodge",
			URL:         "https://grandlodgefl.com/events/?ical=1&tribe_display=month&eventDate={year}-{month}",
			Active:      true,
			Color:       "#7a1f1f",
			Description: "Grand Lodge district and state events",
			MultiMonth:  true,
		},
		{
			ID:          3,
			Name:        "Appendant Bodies",
			URL:         "https://calendar.google.com/calendar/ical/yorkrite140%40gmail.com/public/basic.ics",
			Active:      true,
			Color:       "#3a6b35",
			Description: "York Rite, Eastern Star and affiliated bodies",
		},
	}
}
