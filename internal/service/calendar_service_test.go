package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffreylongo/lodge-api/internal/models"
	"github.com/jeffreylongo/lodge-api/pkg/config"
	appErrors "github.com/jeffreylongo/lodge-api/pkg/errors"
)

// fakeFetcher scripts per-source outcomes.
type fakeFetcher struct {
	mu      sync.Mutex
	events  map[int][]models.Event
	errs    map[int]error
	raw     string
	rawErr  error
	calls   []int
	blockCh chan struct{}
}

func (f *fakeFetcher) FetchSource(ctx context.Context, src models.CalendarSource) ([]models.Event, error) {
	if f.blockCh != nil {
		<-f.blockCh
	}
	f.mu.Lock()
	f.calls = append(f.calls, src.ID)
	f.mu.Unlock()
	if err, ok := f.errs[src.ID]; ok {
		return nil, err
	}
	return f.events[src.ID], nil
}

func (f *fakeFetcher) FetchRaw(ctx context.Context, target string) (string, error) {
	return f.raw, f.rawErr
}

// memStore is an in-memory collectionStore.
type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	setErr  error
	deletes int
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return appErrors.ErrCacheMiss
	}
	return nil
}

func (m *memStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	delete(m.data, key)
	return nil
}

var testClock = func() time.Time {
	return time.Date(2025, 6, 10, 12, 0, 0, 0, time.Local)
}

func testSources() []models.CalendarSource {
	return []models.CalendarSource{
		{ID: 1, Name: "Lodge", Active: true},
		{ID: 2, Name: "District", Active: true},
	}
}

func eventFor(source int, title string, date time.Time) models.Event {
	return models.Event{
		ID:         int64(source*1000) + date.Unix()%1000,
		Title:      title,
		Date:       date,
		CalendarID: source,
		UID:        title,
	}
}

func newTestCalendar(fetcher *fakeFetcher, store *memStore, sources []models.CalendarSource) *CalendarService {
	cfg := config.CalendarConfig{CacheKey: "test:calendar", CacheTTL: 12 * time.Hour}
	return NewCalendarService(fetcher, store, cfg, sources, nil, nil).WithClock(testClock)
}

func TestSyncMergesSurvivingSources(t *testing.T) {
	day := testClock().AddDate(0, 0, 1)
	fetcher := &fakeFetcher{
		events: map[int][]models.Event{1: {
			eventFor(1, "Stated Communication", day),
			eventFor(1, "Fellowship Dinner", day.Add(-time.Hour)),
			eventFor(1, "Education Night", day.AddDate(0, 0, 7)),
		}},
		errs: map[int]error{2: errors.New("boom")},
	}
	store := newMemStore()
	svc := newTestCalendar(fetcher, store, testSources())

	result := svc.Sync(context.Background())

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.EventCount)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "District")

	snapshot := svc.Snapshot()
	assert.Len(t, snapshot.Events, 3)
	assert.Equal(t, testClock(), snapshot.LastSync)
	assert.False(t, svc.Busy())

	// A partially successful run still persists the merged collection.
	var cached models.CachedCollection
	require.NoError(t, store.Get(context.Background(), "test:calendar", &cached))
	assert.Len(t, cached.Events, 3)
	assert.True(t, testClock().Add(12*time.Hour).Equal(cached.ExpiresAt))
}

func TestSyncAllSourcesFailedShowsFallback(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[int]error{1: errors.New("down"), 2: errors.New("down")}}
	store := newMemStore()
	svc := newTestCalendar(fetcher, store, testSources())

	result := svc.Sync(context.Background())

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "fallback")
	assert.Len(t, result.Errors, 2)

	snapshot := svc.Snapshot()
	require.NotEmpty(t, snapshot.Events)
	for _, ev := range snapshot.Events {
		assert.Equal(t, "Lodge Schedule (offline)", ev.CalendarName)
		assert.False(t, ev.Date.Before(testClock()))
	}

	// The synthetic schedule must never be persisted.
	var cached models.CachedCollection
	err := store.Get(context.Background(), "test:calendar", &cached)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
}

func TestSyncPublishesProgressively(t *testing.T) {
	day := testClock().AddDate(0, 0, 1)
	fetcher := &fakeFetcher{events: map[int][]models.Event{
		1: {eventFor(1, "Stated Communication", day)},
		2: {eventFor(2, "District School", day)},
	}}
	svc := newTestCalendar(fetcher, newMemStore(), testSources())

	updates, cancel := svc.Subscribe()
	defer cancel()

	svc.Sync(context.Background())

	var counts []int
	for done := false; !done; {
		select {
		case snapshot := <-updates:
			counts = append(counts, len(snapshot.Events))
			if len(snapshot.Events) == 2 {
				done = true
			}
		case <-time.After(time.Second):
			t.Fatalf("never observed the complete collection, saw %v", counts)
		}
	}
	// Intermediate snapshots never exceed the final one.
	for _, n := range counts {
		assert.LessOrEqual(t, n, 2)
	}
}

func TestSyncRejectedWhileBusy(t *testing.T) {
	block := make(chan struct{})
	fetcher := &fakeFetcher{
		events:  map[int][]models.Event{1: {eventFor(1, "Stated Communication", testClock())}},
		blockCh: block,
	}
	svc := newTestCalendar(fetcher, newMemStore(), testSources()[:1])

	firstDone := make(chan models.SyncResult, 1)
	go func() { firstDone <- svc.Sync(context.Background()) }()

	require.Eventually(t, svc.Busy, time.Second, 5*time.Millisecond)

	second := svc.Sync(context.Background())
	assert.False(t, second.Success)
	assert.Equal(t, "sync already in progress", second.Message)

	close(block)
	first := <-firstDone
	assert.True(t, first.Success)
}

func TestStartRestoresUnexpiredCache(t *testing.T) {
	day := testClock().AddDate(0, 0, 2)
	restored := eventFor(1, "Stated Communication", day)

	store := newMemStore()
	require.NoError(t, store.Set(context.Background(), "test:calendar", models.CachedCollection{
		Events:    []models.Event{restored},
		LastSync:  testClock().Add(-time.Hour),
		ExpiresAt: testClock().Add(11 * time.Hour),
	}, 0))

	// The background refresh returns the same event, so the collection is
	// stable regardless of when it lands.
	fetcher := &fakeFetcher{events: map[int][]models.Event{1: {restored}}}
	svc := newTestCalendar(fetcher, store, testSources()[:1])

	result := svc.Start(context.Background())

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.EventCount)
	assert.Contains(t, result.Message, "restored from cache")

	snapshot := svc.Snapshot()
	require.Len(t, snapshot.Events, 1)
	assert.Equal(t, restored.ID, snapshot.Events[0].ID)
	assert.True(t, restored.Date.Equal(snapshot.Events[0].Date))
}

func TestStartExpiredCacheFallsThroughToSync(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Set(context.Background(), "test:calendar", models.CachedCollection{
		Events:    []models.Event{eventFor(1, "Stale", testClock())},
		LastSync:  testClock().Add(-24 * time.Hour),
		ExpiresAt: testClock().Add(-12 * time.Hour),
	}, 0))

	fresh := eventFor(1, "Stated Communication", testClock().AddDate(0, 0, 1))
	fetcher := &fakeFetcher{events: map[int][]models.Event{1: {fresh}}}
	svc := newTestCalendar(fetcher, store, testSources()[:1])

	result := svc.Start(context.Background())

	assert.True(t, result.Success)
	snapshot := svc.Snapshot()
	require.Len(t, snapshot.Events, 1)
	assert.Equal(t, "Stated Communication", snapshot.Events[0].Title)
}

func TestToggleSourceKeepsEventsUntilNextFullSync(t *testing.T) {
	day := testClock().AddDate(0, 0, 1)
	fetcher := &fakeFetcher{events: map[int][]models.Event{
		1: {eventFor(1, "Stated Communication", day)},
		2: {eventFor(2, "District School", day)},
	}}
	svc := newTestCalendar(fetcher, newMemStore(), testSources())

	svc.Sync(context.Background())
	require.Len(t, svc.Snapshot().Events, 2)

	src, err := svc.ToggleSource(2, false)
	require.NoError(t, err)
	assert.False(t, src.Active)

	// Deactivation alone leaves the merged collection untouched.
	assert.Len(t, svc.Snapshot().Events, 2)

	svc.Sync(context.Background())

	events := svc.Snapshot().Events
	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].CalendarID)
}

func TestToggleSourceUnknownID(t *testing.T) {
	svc := newTestCalendar(&fakeFetcher{}, newMemStore(), testSources())
	_, err := svc.ToggleSource(99, false)
	require.Error(t, err)
}

func TestRefreshSourceSplicesSingleSource(t *testing.T) {
	day := testClock().AddDate(0, 0, 1)
	fetcher := &fakeFetcher{events: map[int][]models.Event{
		1: {eventFor(1, "Stated Communication", day)},
		2: {eventFor(2, "District School", day)},
	}}
	svc := newTestCalendar(fetcher, newMemStore(), testSources())
	svc.Sync(context.Background())

	fetcher.mu.Lock()
	fetcher.events[2] = []models.Event{
		eventFor(2, "District School", day),
		eventFor(2, "Grand Master Visit", day.AddDate(0, 0, 3)),
	}
	fetcher.mu.Unlock()

	result, err := svc.RefreshSource(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.EventCount)

	events := svc.Snapshot().Events
	assert.Len(t, events, 3)
}

func TestRefreshSourceFetchFailureKeepsCollection(t *testing.T) {
	day := testClock().AddDate(0, 0, 1)
	fetcher := &fakeFetcher{events: map[int][]models.Event{
		1: {eventFor(1, "Stated Communication", day)},
		2: {eventFor(2, "District School", day)},
	}}
	svc := newTestCalendar(fetcher, newMemStore(), testSources())
	svc.Sync(context.Background())

	fetcher.mu.Lock()
	fetcher.errs = map[int]error{2: errors.New("down")}
	fetcher.mu.Unlock()

	result, err := svc.RefreshSource(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)

	assert.Len(t, svc.Snapshot().Events, 2)
}

func TestClearCacheAndResync(t *testing.T) {
	day := testClock().AddDate(0, 0, 1)
	fetcher := &fakeFetcher{events: map[int][]models.Event{
		1: {eventFor(1, "Stated Communication", day)},
	}}
	store := newMemStore()
	svc := newTestCalendar(fetcher, store, testSources()[:1])

	result, err := svc.ClearCacheAndResync(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, store.deletes)

	var cached models.CachedCollection
	require.NoError(t, store.Get(context.Background(), "test:calendar", &cached))
	assert.Len(t, cached.Events, 1)
}

func TestDownloadFeed(t *testing.T) {
	fetcher := &fakeFetcher{raw: "BEGIN:VCALENDAR\nEND:VCALENDAR\n"}
	svc := newTestCalendar(fetcher, newMemStore(), testSources())

	raw, src, err := svc.DownloadFeed(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Lodge", src.Name)
	assert.Contains(t, raw, "BEGIN:VCALENDAR")

	_, _, err = svc.DownloadFeed(context.Background(), 42)
	require.Error(t, err)
}

func TestSubscribeCancelStopsDelivery(t *testing.T) {
	svc := newTestCalendar(&fakeFetcher{}, newMemStore(), nil)

	updates, cancel := svc.Subscribe()
	cancel()

	_, open := <-updates
	assert.False(t, open)
}
