package models

import "time"

// EventCategory is the semantic bucket derived from an event title.
type EventCategory string

const (
	CategoryMeeting   EventCategory = "meeting"
	CategoryDegree    EventCategory = "degree"
	CategoryDinner    EventCategory = "dinner"
	CategoryEducation EventCategory = "education"
	CategoryOther     EventCategory = "other"
)

// Event is the canonical internal representation of one calendar entry,
// normalized from a raw VEVENT block. Events are never mutated in place;
// a source re-sync replaces all of its events wholesale.
type Event struct {
	ID           int64         `json:"id"`
	Title        string        `json:"title"`
	Date         time.Time     `json:"date"`
	StartTime    string        `json:"start_time"`
	EndTime      string        `json:"end_time"`
	Location     string        `json:"location,omitempty"`
	Description  string        `json:"description,omitempty"`
	Category     EventCategory `json:"category"`
	CalendarID   int           `json:"calendar_id"`
	CalendarName string        `json:"calendar_name"`
	UID          string        `json:"uid"`
	Recurring    bool          `json:"recurring"`
	RRule        string        `json:"rrule,omitempty"`

	// EndDate is set when the feed carried a parseable DTEND; it survives
	// the cache round-trip so EndAt stays stable across restores.
	EndDate *time.Time `json:"end_date,omitempty"`
}

// TimeLayout is the wall-clock format used for StartTime / EndTime.
const TimeLayout = "3:04 PM"

// StartAt returns the event's absolute start instant.
func (e Event) StartAt() time.Time {
	return e.Date
}

// EndAt returns the event's absolute end instant. When the feed carried a
// parseable DTEND it was recorded at normalization time; otherwise a one
// hour default duration applies.
func (e Event) EndAt() time.Time {
	if e.EndDate != nil && !e.EndDate.Before(e.Date) {
		return *e.EndDate
	}
	return e.Date.Add(time.Hour)
}

// DayKey returns the YYYY-MM-DD key for title+date deduplication.
func (e Event) DayKey() string {
	return e.Date.Format("2006-01-02")
}

// MergedCollection is the aggregator's current set of events plus the
// instant of the last completed sync.
type MergedCollection struct {
	Events   []Event   `json:"events"`
	LastSync time.Time `json:"last_sync"`
}

// CachedCollection is the persisted form of MergedCollection: the same
// payload plus an expiry horizon. Restored on startup when unexpired.
type CachedCollection struct {
	Events    []Event   `json:"events"`
	LastSync  time.Time `json:"lastSync"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the cached payload is past its horizon.
func (c CachedCollection) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// SyncResult is the outcome of one sync attempt. Transient, never persisted.
type SyncResult struct {
	RunID       string    `json:"run_id"`
	Success     bool      `json:"success"`
	EventCount  int       `json:"event_count"`
	Message     string    `json:"message"`
	Errors      []string  `json:"errors,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
