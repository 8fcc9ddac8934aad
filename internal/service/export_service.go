package service

import (
	"time"

	"github.com/jeffreylongo/lodge-api/internal/models"
	"github.com/jeffreylongo/lodge-api/pkg/export"
	appErrors "github.com/jeffreylongo/lodge-api/pkg/errors"
)

// eventQuerier is the slice of the calendar service the exporter reads.
type eventQuerier interface {
	UpcomingEvents(days int) []models.Event
	EventsInRange(from, to time.Time) []models.Event
	Snapshot() models.MergedCollection
}

// ExportService renders the merged collection into downloadable formats:
// the printable trestleboard PDF, a CSV table, and a combined ICS feed.
type ExportService struct {
	calendar eventQuerier
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	ics      *export.ICSExporter
}

// NewExportService constructs the export service.
func NewExportService(calendar eventQuerier, calName string) *ExportService {
	return &ExportService{
		calendar: calendar,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		ics:      export.NewICSExporter(calName),
	}
}

var exportHeaders = []string{"Date", "Time", "Event", "Category", "Location", "Calendar"}

// TrestleboardPDF renders the upcoming schedule as a printable PDF.
func (s *ExportService) TrestleboardPDF(days int) ([]byte, error) {
	if days <= 0 {
		days = 60
	}
	events := s.calendar.UpcomingEvents(days)
	data := datasetFor(events)
	out, err := s.pdf.Render(data, "Trestleboard")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "pdf export failed")
	}
	return out, nil
}

// EventsCSV renders a date range as CSV.
func (s *ExportService) EventsCSV(from, to time.Time) ([]byte, error) {
	events := s.calendar.EventsInRange(from, to)
	out, err := s.csv.Render(datasetFor(events))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "csv export failed")
	}
	return out, nil
}

// CombinedICS renders the whole merged collection as one iCalendar feed.
func (s *ExportService) CombinedICS() ([]byte, error) {
	snapshot := s.calendar.Snapshot()
	out, err := s.ics.Render(snapshot.Events)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "ics export failed")
	}
	return out, nil
}

func datasetFor(events []models.Event) export.Dataset {
	rows := make([]map[string]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, map[string]string{
			"Date":     ev.Date.Format("Mon Jan 2, 2006"),
			"Time":     ev.StartTime,
			"Event":    ev.Title,
			"Category": string(ev.Category),
			"Location": ev.Location,
			"Calendar": ev.CalendarName,
		})
	}
	return export.Dataset{Headers: exportHeaders, Rows: rows}
}
