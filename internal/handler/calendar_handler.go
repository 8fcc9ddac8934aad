package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jeffreylongo/lodge-api/internal/models"
	"github.com/jeffreylongo/lodge-api/internal/service"
	appErrors "github.com/jeffreylongo/lodge-api/pkg/errors"
	"github.com/jeffreylongo/lodge-api/pkg/response"
)

const dateParamLayout = "2006-01-02"

// CalendarHandler exposes the merged calendar read surface plus the admin
// sync commands.
type CalendarHandler struct {
	calendar *service.CalendarService
	exports  *service.ExportService
}

// NewCalendarHandler constructs handler.
func NewCalendarHandler(calendar *service.CalendarService, exports *service.ExportService) *CalendarHandler {
	return &CalendarHandler{calendar: calendar, exports: exports}
}

// Events lists merged events. Filters are mutually layered: an explicit
// from/to range wins, then year/month, then days, then source, then view.
func (h *CalendarHandler) Events(c *gin.Context) {
	var events []models.Event

	switch {
	case c.Query("from") != "" || c.Query("to") != "":
		from, to, err := rangeParams(c)
		if err != nil {
			response.Error(c, err)
			return
		}
		events = h.calendar.EventsInRange(from, to)
	case c.Query("year") != "" && c.Query("month") != "":
		year, err1 := strconv.Atoi(c.Query("year"))
		month, err2 := strconv.Atoi(c.Query("month"))
		if err1 != nil || err2 != nil || month < 1 || month > 12 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year and month must be numeric, month 1-12"))
			return
		}
		events = h.calendar.EventsForMonth(year, time.Month(month))
	case c.Query("days") != "":
		days, err := strconv.Atoi(c.Query("days"))
		if err != nil || days < 1 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "days must be a positive integer"))
			return
		}
		events = h.calendar.UpcomingEvents(days)
	case c.Query("source") != "":
		id, err := strconv.Atoi(c.Query("source"))
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "source must be numeric"))
			return
		}
		events = h.calendar.EventsBySource(id)
	default:
		events = h.calendar.DisplayEvents(c.DefaultQuery("view", "all"))
	}

	response.JSON(c, http.StatusOK, events, nil, map[string]interface{}{
		"last_sync": h.calendar.LastSync(),
		"count":     len(events),
	})
}

// Occurrences expands recurring events into concrete instances inside the
// requested window. The window defaults to the next 60 days.
func (h *CalendarHandler) Occurrences(c *gin.Context) {
	from := time.Now()
	to := from.AddDate(0, 0, 60)

	if c.Query("from") != "" || c.Query("to") != "" {
		parsedFrom, parsedTo, err := rangeParams(c)
		if err != nil {
			response.Error(c, err)
			return
		}
		from, to = parsedFrom, parsedTo
	}

	events := h.calendar.Occurrences(from, to)
	response.JSON(c, http.StatusOK, events, nil, map[string]interface{}{"count": len(events)})
}

// Status reports the aggregation state for dashboards.
func (h *CalendarHandler) Status(c *gin.Context) {
	snapshot := h.calendar.Snapshot()
	response.JSON(c, http.StatusOK, gin.H{
		"busy":        h.calendar.Busy(),
		"last_sync":   h.calendar.LastSync(),
		"event_count": len(snapshot.Events),
		"errors":      h.calendar.SourceErrors(),
		"sources":     h.calendar.Sources(),
	}, nil)
}

// Sources lists the configured calendar sources.
func (h *CalendarHandler) Sources(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.calendar.Sources(), nil)
}

// DownloadFeed streams one source's raw ICS text as an attachment.
func (h *CalendarHandler) DownloadFeed(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "source id must be numeric"))
		return
	}

	raw, src, err := h.calendar.DownloadFeed(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.ics\"", src.Name))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(raw))
}

// Export renders the merged collection as pdf, csv or ics.
func (h *CalendarHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "pdf")

	switch format {
	case "pdf":
		days := 60
		if raw := c.Query("days"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				response.Error(c, appErrors.Clone(appErrors.ErrValidation, "days must be a positive integer"))
				return
			}
			days = parsed
		}
		data, err := h.exports.TrestleboardPDF(days)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", "attachment; filename=\"trestleboard.pdf\"")
		c.Data(http.StatusOK, "application/pdf", data)
	case "csv":
		from := time.Now()
		to := from.AddDate(0, 6, 0)
		if c.Query("from") != "" || c.Query("to") != "" {
			parsedFrom, parsedTo, err := rangeParams(c)
			if err != nil {
				response.Error(c, err)
				return
			}
			from, to = parsedFrom, parsedTo
		}
		data, err := h.exports.EventsCSV(from, to)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", "attachment; filename=\"events.csv\"")
		c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
	case "ics":
		data, err := h.exports.CombinedICS()
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", "attachment; filename=\"lodge-calendar.ics\"")
		c.Data(http.StatusOK, "text/calendar; charset=utf-8", data)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be pdf, csv or ics"))
	}
}

// Stream pushes collection snapshots over SSE as syncs complete, starting
// with the current state so clients render immediately.
func (h *CalendarHandler) Stream(c *gin.Context) {
	updates, cancel := h.calendar.Subscribe()
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	initial := h.calendar.Snapshot()
	c.SSEvent("calendar", initial)
	c.Writer.Flush()

	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case snapshot, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("calendar", snapshot)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// Sync triggers a full progressive resync.
func (h *CalendarHandler) Sync(c *gin.Context) {
	result := h.calendar.Sync(c.Request.Context())
	status := http.StatusOK
	if !result.Success {
		status = http.StatusAccepted
	}
	response.JSON(c, status, result, nil)
}

// ClearCache drops the persisted collection and resyncs from scratch.
func (h *CalendarHandler) ClearCache(c *gin.Context) {
	result, err := h.calendar.ClearCacheAndResync(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// RefreshSource re-fetches a single source and splices it in.
func (h *CalendarHandler) RefreshSource(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "source id must be numeric"))
		return
	}

	result, err := h.calendar.RefreshSource(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

type updateSourceRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// UpdateSource toggles a source's active flag.
func (h *CalendarHandler) UpdateSource(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "source id must be numeric"))
		return
	}

	var req updateSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "active flag required"))
		return
	}

	src, err := h.calendar.ToggleSource(id, *req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, src, nil)
}

// rangeParams parses the from/to query pair; both are required together.
func rangeParams(c *gin.Context) (time.Time, time.Time, error) {
	from, err := time.ParseInLocation(dateParamLayout, c.Query("from"), time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD")
	}
	to, err := time.ParseInLocation(dateParamLayout, c.Query("to"), time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD")
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "to must not precede from")
	}
	return from, to, nil
}
