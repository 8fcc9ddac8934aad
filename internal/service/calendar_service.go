package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeffreylongo/lodge-api/internal/models"
	"github.com/jeffreylongo/lodge-api/internal/relay"
	"github.com/jeffreylongo/lodge-api/pkg/config"
	appErrors "github.com/jeffreylongo/lodge-api/pkg/errors"
)

// sourceFetcher retrieves one source's events or raw feed text.
type sourceFetcher interface {
	FetchSource(ctx context.Context, src models.CalendarSource) ([]models.Event, error)
	FetchRaw(ctx context.Context, target string) (string, error)
}

// collectionStore persists the merged collection between sessions.
type collectionStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CalendarService owns the configured calendar sources and the merged event
// collection. It drives per-source fetches, splices results in as each
// source completes, persists the collection with an expiry horizon, and
// republishes snapshots to subscribers progressively.
//
// All dependencies are injected; construct as many instances as tests need.
type CalendarService struct {
	fetcher  sourceFetcher
	store    collectionStore
	metrics  *MetricsService
	logger   *zap.Logger
	cacheKey string
	cacheTTL time.Duration
	now      func() time.Time

	mu       sync.RWMutex
	sources  []models.CalendarSource
	events   []models.Event
	lastSync time.Time
	busy     bool
	errors   []string

	subMu   sync.Mutex
	subs    map[int]chan models.MergedCollection
	nextSub int
}

// NewCalendarService constructs the aggregator.
func NewCalendarService(fetcher sourceFetcher, store collectionStore, cfg config.CalendarConfig, sources []models.CalendarSource, metrics *MetricsService, logger *zap.Logger) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	cacheKey := cfg.CacheKey
	if cacheKey == "" {
		cacheKey = "lodge:calendar:merged"
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 12 * time.Hour
	}
	return &CalendarService{
		fetcher:  fetcher,
		store:    store,
		metrics:  metrics,
		logger:   logger,
		cacheKey: cacheKey,
		cacheTTL: cacheTTL,
		now:      time.Now,
		sources:  append([]models.CalendarSource(nil), sources...),
		events:   make([]models.Event, 0),
		subs:     make(map[int]chan models.MergedCollection),
	}
}

// WithClock overrides the service clock, for tests.
func (s *CalendarService) WithClock(now func() time.Time) *CalendarService {
	s.now = now
	return s
}

// Start restores a non-expired cached collection so the first render has
// data with zero network latency, then begins a re-sync. Without a usable
// cache it syncs directly.
func (s *CalendarService) Start(ctx context.Context) models.SyncResult {
	var cached models.CachedCollection
	err := s.store.Get(ctx, s.cacheKey, &cached)
	if err == nil && !cached.Expired(s.now()) {
		s.metrics.RecordCacheLookup(true)
		s.mu.Lock()
		s.events = cached.Events
		s.lastSync = cached.LastSync
		s.mu.Unlock()
		s.publish()
		s.logger.Info("calendar cache restored",
			zap.Int("events", len(cached.Events)),
			zap.Time("last_sync", cached.LastSync),
		)
		go s.Sync(context.WithoutCancel(ctx))
		return models.SyncResult{
			RunID:      uuid.NewString(),
			Success:    true,
			EventCount: len(cached.Events),
			Message:    "restored from cache; background refresh started",
		}
	}
	s.metrics.RecordCacheLookup(false)
	return s.Sync(ctx)
}

// Sync runs a full progressive sync: every active source is fetched
// concurrently and the collection is republished as each source lands.
func (s *CalendarService) Sync(ctx context.Context) models.SyncResult {
	return s.run(ctx, true)
}

// ClearCacheAndResync drops the persisted collection and re-runs a full
// non-progressive sync, publishing once with the complete result.
func (s *CalendarService) ClearCacheAndResync(ctx context.Context) (models.SyncResult, error) {
	if err := s.store.Delete(ctx, s.cacheKey); err != nil {
		s.logger.Warn("cache delete failed", zap.Error(err))
	}
	return s.run(ctx, false), nil
}

type sourceResult struct {
	source models.CalendarSource
	events []models.Event
	err    error
}

func (s *CalendarService) run(ctx context.Context, progressive bool) models.SyncResult {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return models.SyncResult{
			RunID:   uuid.NewString(),
			Success: false,
			Message: "sync already in progress",
		}
	}
	s.busy = true
	s.errors = nil
	active := make([]models.CalendarSource, 0, len(s.sources))
	for _, src := range s.sources {
		if src.Active {
			active = append(active, src)
		}
	}
	// A full resync is the point where a deactivated source's previously
	// merged events finally leave the collection. Active sources keep their
	// cached events visible until their own fetch lands.
	activeIDs := make(map[int]struct{}, len(active))
	for _, src := range active {
		activeIDs[src.ID] = struct{}{}
	}
	kept := make([]models.Event, 0, len(s.events))
	for _, ev := range s.events {
		if _, ok := activeIDs[ev.CalendarID]; ok {
			kept = append(kept, ev)
		}
	}
	s.events = kept
	s.mu.Unlock()
	s.publish()

	started := s.now()
	result := models.SyncResult{RunID: uuid.NewString()}

	if len(active) == 0 {
		s.applyFallback()
		s.finish(ctx, false)
		result.Message = "no calendar sources configured"
		result.CompletedAt = s.now()
		s.metrics.RecordSync(false, s.now().Sub(started), s.eventCount())
		return result
	}

	results := make(chan sourceResult, len(active))
	for _, src := range active {
		go func(src models.CalendarSource) {
			events, err := s.fetcher.FetchSource(ctx, src)
			results <- sourceResult{source: src, events: events, err: err}
		}(src)
	}

	var errs []string
	yielded := 0

	// Not-yet-progressive results accumulate here and land in one splice.
	pending := make(map[int][]models.Event, len(active))

	for i := 0; i < len(active); i++ {
		res := <-results
		if res.err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", res.source.Name, res.err))
			s.metrics.RecordSourceFailure(res.source.Name)
			s.logger.Warn("source fetch failed",
				zap.Int("source", res.source.ID),
				zap.String("name", res.source.Name),
				zap.Error(res.err),
			)
			res.events = nil
		}
		if len(res.events) > 0 {
			yielded += len(res.events)
		}
		if progressive {
			s.splice(res.source.ID, res.events)
			s.publish()
		} else {
			pending[res.source.ID] = res.events
		}
		s.logger.Info("source sync completed",
			zap.Int("source", res.source.ID),
			zap.String("name", res.source.Name),
			zap.Int("events", len(res.events)),
		)
	}

	if !progressive {
		s.mu.Lock()
		merged := make([]models.Event, 0, yielded)
		for _, src := range active {
			merged = append(merged, pending[src.ID]...)
		}
		s.events = relay.Dedupe(merged)
		s.mu.Unlock()
	}

	success := yielded > 0
	if !success {
		s.applyFallback()
		result.Message = "all calendar sources failed; showing fallback schedule"
	} else if len(errs) > 0 {
		result.Message = fmt.Sprintf("synced with %d of %d sources", len(active)-len(errs), len(active))
	} else {
		result.Message = "all sources synced"
	}

	s.mu.Lock()
	s.errors = errs
	s.mu.Unlock()

	s.finish(ctx, success)

	result.Success = success
	result.Errors = errs
	result.EventCount = s.eventCount()
	result.CompletedAt = s.now()
	s.metrics.RecordSync(success, s.now().Sub(started), result.EventCount)
	return result
}

// finish stamps lastSync, persists the collection and clears the busy flag.
// The cache is only written after a successful run; a run that fell back to
// the synthetic schedule must not poison the next startup.
func (s *CalendarService) finish(ctx context.Context, persist bool) {
	now := s.now()

	s.mu.Lock()
	s.lastSync = now
	s.busy = false
	snapshot := append([]models.Event(nil), s.events...)
	s.mu.Unlock()

	if persist {
		cached := models.CachedCollection{
			Events:    snapshot,
			LastSync:  now,
			ExpiresAt: now.Add(s.cacheTTL),
		}
		if err := s.store.Set(ctx, s.cacheKey, cached, s.cacheTTL); err != nil {
			s.logger.Warn("cache persist failed", zap.Error(err))
		}
	}

	s.publish()
}

// splice replaces all events owned by the source id with the given batch.
// The swap happens under one lock acquisition so readers never observe a
// partially applied source.
func (s *CalendarService) splice(sourceID int, events []models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]models.Event, 0, len(s.events)+len(events))
	for _, ev := range s.events {
		if ev.CalendarID != sourceID {
			kept = append(kept, ev)
		}
	}
	kept = append(kept, events...)
	s.events = relay.Dedupe(kept)
}

// RefreshSource fetches a single source and splices its events into the
// collection in place of any prior events from that source.
func (s *CalendarService) RefreshSource(ctx context.Context, id int) (models.SyncResult, error) {
	src, ok := s.findSource(id)
	if !ok {
		return models.SyncResult{}, appErrors.Clone(appErrors.ErrNotFound, "unknown calendar source")
	}

	result := models.SyncResult{RunID: uuid.NewString()}

	events, err := s.fetcher.FetchSource(ctx, src)
	if err != nil {
		s.metrics.RecordSourceFailure(src.Name)
		result.Message = fmt.Sprintf("refresh failed for %s", src.Name)
		result.Errors = []string{fmt.Sprintf("%s: %v", src.Name, err)}
		result.CompletedAt = s.now()
		return result, nil
	}

	s.splice(src.ID, events)
	s.finish(ctx, true)

	result.Success = true
	result.EventCount = len(events)
	result.Message = fmt.Sprintf("refreshed %s", src.Name)
	result.CompletedAt = s.now()
	return result, nil
}

// ToggleSource flips a source's active flag. Deactivating removes the
// source from future syncs but leaves its already-merged events in place
// until the next full resync.
func (s *CalendarService) ToggleSource(id int, active bool) (models.CalendarSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.sources {
		if s.sources[i].ID == id {
			s.sources[i].Active = active
			return s.sources[i], nil
		}
	}
	return models.CalendarSource{}, appErrors.Clone(appErrors.ErrNotFound, "unknown calendar source")
}

// DownloadFeed fetches one source's raw ICS text for user download.
// Multi-month templates are expanded to the current month.
func (s *CalendarService) DownloadFeed(ctx context.Context, id int) (string, models.CalendarSource, error) {
	src, ok := s.findSource(id)
	if !ok {
		return "", models.CalendarSource{}, appErrors.Clone(appErrors.ErrNotFound, "unknown calendar source")
	}

	target := src.URL
	if src.MultiMonth {
		target = relay.ExpandMonthURL(target, s.now())
	}

	raw, err := s.fetcher.FetchRaw(ctx, target)
	if err != nil {
		return "", src, appErrors.Wrap(err, appErrors.ErrSourceUnavailable.Code, appErrors.ErrSourceUnavailable.Status, "feed fetch failed")
	}
	return raw, src, nil
}

// Sources returns a snapshot of the configured sources.
func (s *CalendarService) Sources() []models.CalendarSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.CalendarSource(nil), s.sources...)
}

// Snapshot returns the current merged collection.
func (s *CalendarService) Snapshot() models.MergedCollection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.MergedCollection{
		Events:   append([]models.Event(nil), s.events...),
		LastSync: s.lastSync,
	}
}

// Busy reports whether a sync is in flight.
func (s *CalendarService) Busy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.busy
}

// LastSync returns the instant of the last completed sync.
func (s *CalendarService) LastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync
}

// SourceErrors returns the error strings recorded by the last sync.
func (s *CalendarService) SourceErrors() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.errors...)
}

// Subscribe registers a listener for collection snapshots. The returned
// cancel func must be called to release the subscription. Slow consumers
// miss intermediate snapshots rather than blocking the publisher.
func (s *CalendarService) Subscribe() (<-chan models.MergedCollection, func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan models.MergedCollection, 8)
	s.subs[id] = ch
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
		s.subMu.Unlock()
	}
	return ch, cancel
}

func (s *CalendarService) publish() {
	snapshot := s.Snapshot()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

func (s *CalendarService) findSource(id int) (models.CalendarSource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, src := range s.sources {
		if src.ID == id {
			return src, true
		}
	}
	return models.CalendarSource{}, false
}

func (s *CalendarService) eventCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func (s *CalendarService) applyFallback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) > 0 {
		return
	}
	s.events = fallbackSchedule(s.now())
	s.logger.Warn("using fallback schedule", zap.Int("events", len(s.events)))
}
