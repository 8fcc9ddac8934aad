package export

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/jeffreylongo/lodge-api/internal/models"
)

// ICSExporter serializes the merged event collection back into a single
// iCalendar feed so visitors can subscribe to the lodge calendar.
type ICSExporter struct {
	calName string
}

// NewICSExporter builds an ICS exporter with the given calendar name.
func NewICSExporter(calName string) *ICSExporter {
	if calName == "" {
		calName = "Lodge Calendar"
	}
	return &ICSExporter{calName: calName}
}

// Render produces an iCalendar document containing the given events.
func (e *ICSExporter) Render(events []models.Event) ([]byte, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//lodge-api//calendar//EN")
	cal.SetXWRCalName(e.calName)

	for _, ev := range events {
		uid := ev.UID
		if uid == "" {
			uid = fmt.Sprintf("%d@lodge-api", ev.ID)
		}
		ve := cal.AddEvent(uid)
		ve.SetSummary(ev.Title)
		ve.SetStartAt(ev.StartAt())
		ve.SetEndAt(ev.EndAt())
		ve.SetDtStampTime(time.Now().UTC())
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
	}

	return []byte(cal.Serialize()), nil
}
