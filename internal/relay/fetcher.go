// Package relay fetches upstream calendar feeds through a chain of public
// CORS relays. The relays are interchangeable; the chain exists because any
// one of them can be down or rate-limited at a given moment.
package relay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeffreylongo/lodge-api/internal/ics"
	"github.com/jeffreylongo/lodge-api/internal/models"
)

const acceptHeader = "text/calendar, text/plain, */*"

// Fetcher retrieves one calendar source's raw text through an ordered relay
// chain, advancing to the next relay on failure. A source that requires
// month-by-month access is fetched across a rolling window and deduplicated.
type Fetcher struct {
	client      *http.Client
	relays      []string
	timeout     time.Duration
	monthsAhead int
	logger      *zap.Logger
	now         func() time.Time
}

// NewFetcher constructs a Fetcher. The http client is injected so tests can
// point it at local servers.
func NewFetcher(client *http.Client, relays []string, timeout time.Duration, monthsAhead int, logger *zap.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if monthsAhead <= 0 {
		monthsAhead = 6
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		client:      client,
		relays:      relays,
		timeout:     timeout,
		monthsAhead: monthsAhead,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock overrides the clock, for tests exercising the month window.
func (f *Fetcher) WithClock(now func() time.Time) *Fetcher {
	f.now = now
	return f
}

// FetchRaw retrieves the target URL through the relay chain and returns the
// response body. Every relay is tried in order; the error of the final
// attempt is returned only when the whole chain is exhausted.
func (f *Fetcher) FetchRaw(ctx context.Context, target string) (string, error) {
	if len(f.relays) == 0 {
		return f.attempt(ctx, target)
	}

	var lastErr error
	for i, prefix := range f.relays {
		body, err := f.attempt(ctx, prefix+url.QueryEscape(target))
		if err == nil {
			return body, nil
		}
		lastErr = err
		f.logger.Warn("relay attempt failed",
			zap.Int("relay", i),
			zap.String("target", target),
			zap.Error(err),
		)
	}
	return "", fmt.Errorf("all %d relays failed: %w", len(f.relays), lastErr)
}

func (f *Fetcher) attempt(ctx context.Context, fullURL string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, fullURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FetchSource returns the normalized events for one source. Failure is
// terminal for the source only: the caller records the error and carries on
// with the other sources.
func (f *Fetcher) FetchSource(ctx context.Context, src models.CalendarSource) ([]models.Event, error) {
	if src.MultiMonth {
		return f.fetchMonths(ctx, src)
	}

	raw, err := f.FetchRaw(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	return ics.Parse(raw, src), nil
}

// fetchMonths substitutes the {year}/{month} placeholders for the current
// month plus the forward window, fetches each month independently, then
// deduplicates the concatenation.
func (f *Fetcher) fetchMonths(ctx context.Context, src models.CalendarSource) ([]models.Event, error) {
	// Anchor the window to the first of the current month. Adding months to
	// the current instant would normalize Jan 31 + 1 month to Mar 3 and skip
	// February entirely.
	now := f.now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	collected := make([]models.Event, 0)
	var lastErr error
	failures := 0

	for i := 0; i < f.monthsAhead; i++ {
		month := start.AddDate(0, i, 0)
		target := ExpandMonthURL(src.URL, month)

		raw, err := f.FetchRaw(ctx, target)
		if err != nil {
			failures++
			lastErr = err
			f.logger.Warn("month fetch failed",
				zap.Int("source", src.ID),
				zap.String("month", month.Format("2006-01")),
				zap.Error(err),
			)
			continue
		}
		collected = append(collected, ics.Parse(raw, src)...)
	}

	if failures == f.monthsAhead {
		return nil, fmt.Errorf("source %d: every month fetch failed: %w", src.ID, lastErr)
	}
	return Dedupe(collected), nil
}

// Dedupe collapses events sharing a UID, falling back to title+date equality
// when a UID is absent. The fallback can merge two distinct same-titled
// same-day entries; that is long-standing documented behaviour.
func Dedupe(events []models.Event) []models.Event {
	seen := make(map[string]struct{}, len(events))
	out := make([]models.Event, 0, len(events))
	for _, ev := range events {
		key := ev.UID
		if key == "" {
			key = ev.Title + "|" + ev.DayKey()
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ev)
	}
	return out
}

// ExpandMonthURL substitutes {year} and {month} placeholders. Month is
// zero-padded the way the upstream calendar plugins expect.
func ExpandMonthURL(template string, month time.Time) string {
	replaced := strings.ReplaceAll(template, "{year}", fmt.Sprintf("%04d", month.Year()))
	return strings.ReplaceAll(replaced, "{month}", fmt.Sprintf("%02d", int(month.Month())))
}
