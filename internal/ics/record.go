// Package ics converts raw iCalendar text from the lodge's upstream feeds
// into normalized events. The grammar it accepts is the pragmatic subset the
// feeds actually emit, not full RFC 5545.
package ics

import "strings"

// PropertyName enumerates the VEVENT properties the parser recognizes.
type PropertyName string

const (
	PropStart       PropertyName = "DTSTART"
	PropEnd         PropertyName = "DTEND"
	PropSummary     PropertyName = "SUMMARY"
	PropLocation    PropertyName = "LOCATION"
	PropDescription PropertyName = "DESCRIPTION"
	PropUID         PropertyName = "UID"
	PropRRule       PropertyName = "RRULE"
)

var recognized = map[PropertyName]struct{}{
	PropStart:       {},
	PropEnd:         {},
	PropSummary:     {},
	PropLocation:    {},
	PropDescription: {},
	PropUID:         {},
	PropRRule:       {},
}

// RawRecord is one VEVENT block as a flat property mapping. Recognized
// properties live in a closed set; anything else lands in Extra so a later
// consumer can still see it. Last occurrence wins on duplicate keys.
type RawRecord struct {
	props map[PropertyName]string
	Extra map[string]string
}

func newRawRecord() *RawRecord {
	return &RawRecord{
		props: make(map[PropertyName]string),
		Extra: make(map[string]string),
	}
}

func (r *RawRecord) set(name, value string) {
	key := PropertyName(strings.ToUpper(name))
	if _, ok := recognized[key]; ok {
		r.props[key] = value
		return
	}
	r.Extra[string(key)] = value
}

// Get returns the raw value for a recognized property.
func (r *RawRecord) Get(name PropertyName) (string, bool) {
	v, ok := r.props[name]
	return v, ok
}
