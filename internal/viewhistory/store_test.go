package viewhistory

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestStore(t *testing.T, backend storage.Backend) (*Store, *fakeClock, *bytes.Buffer) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	buf := &bytes.Buffer{}
	store, err := NewStore(Params{
		Backend: backend,
		Logger:  logger.New(logger.Options{ServiceName: "history-test", Output: buf}),
		Clock:   clock.Now,
	})
	require.NoError(t, err)
	return store, clock, buf
}

func product(id string) catalog.Product {
	return catalog.Product{ID: catalog.ID(id), Name: "product " + id, Price: "1.00"}
}

func ids(entries []Entry) []catalog.ID {
	out := make([]catalog.ID, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestNewStoreValidatesParams(t *testing.T) {
	_, err := NewStore(Params{})
	require.Error(t, err)
	_, err = NewStore(Params{Backend: storage.NewMemory(0), MaxEntries: -1})
	require.Error(t, err)
}

func TestRecordViewTwiceKeepsOneEntryWithLatestTimestamp(t *testing.T) {
	ctx := context.Background()
	store, clock, _ := newTestStore(t, storage.NewMemory(0))
	store.Load(ctx)

	store.RecordView(ctx, product("1"))
	clock.Advance(time.Minute)
	store.RecordView(ctx, product("1"))

	entries := store.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, clock.Now(), entries[0].ViewedAt)
}

func TestRecordViewMovesToFront(t *testing.T) {
	ctx := context.Background()
	store, clock, _ := newTestStore(t, storage.NewMemory(0))
	for _, id := range []string{"a", "b", "c"} {
		store.RecordView(ctx, product(id))
		clock.Advance(time.Second)
	}
	store.RecordView(ctx, product("a"))

	assert.Equal(t, []catalog.ID{"a", "c", "b"}, ids(store.Entries()))
}

func TestHistoryIsBounded(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory(0)
	store, clock, _ := newTestStore(t, backend)
	store.Load(ctx)

	for i := 1; i <= 25; i++ {
		store.RecordView(ctx, product(fmt.Sprint(i)))
		clock.Advance(time.Second)
	}

	entries := store.Entries()
	require.Len(t, entries, DefaultMaxEntries)
	expected := make([]catalog.ID, 0, 20)
	for i := 25; i >= 6; i-- {
		expected = append(expected, catalog.ID(fmt.Sprint(i)))
	}
	assert.Equal(t, expected, ids(entries))
	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i-1].ViewedAt.After(entries[i].ViewedAt))
	}

	reloaded, _, _ := newTestStore(t, backend)
	reloaded.Load(ctx)
	assert.Equal(t, expected, ids(reloaded.Entries()))
}

func TestRecentDefaultsAndLimits(t *testing.T) {
	ctx := context.Background()
	store, clock, _ := newTestStore(t, storage.NewMemory(0))
	for i := 0; i < 15; i++ {
		store.RecordView(ctx, product(fmt.Sprint(i)))
		clock.Advance(time.Second)
	}

	assert.Len(t, store.Recent(0), DefaultRecentLimit)
	assert.Len(t, store.Recent(-1), DefaultRecentLimit)
	assert.Len(t, store.Recent(3), 3)
	assert.Len(t, store.Recent(50), 15)
	assert.Equal(t, catalog.ID("14"), store.Recent(1)[0].ID)
}

func TestRoundTripPersistence(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory(0)
	first, clock, _ := newTestStore(t, backend)
	first.RecordView(ctx, product("1"))
	clock.Advance(90 * time.Second)
	withExtra := product("2")
	withExtra.ShopName = "Clay"
	first.RecordView(ctx, withExtra)

	second, _, _ := newTestStore(t, backend)
	second.Load(ctx)
	assert.Equal(t, first.Entries(), second.Entries())

	raw, err := backend.Get(ctx, storage.KeyViewHistory)
	require.NoError(t, err)
	assert.Contains(t, raw, `"viewedAt":"2026-03-01T12:01:30.000Z"`)
}

func TestLoadCorruptValueClearsKey(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory(0)
	require.NoError(t, backend.Set(ctx, storage.KeyViewHistory, "not-json"))
	store, _, logs := newTestStore(t, backend)

	require.NotPanics(t, func() { store.Load(ctx) })

	assert.True(t, store.Ready())
	assert.Empty(t, store.Entries())
	_, err := backend.Get(ctx, storage.KeyViewHistory)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Contains(t, logs.String(), "corrupt view history")
}

func TestLoadNormalizesForeignList(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory(0)
	require.NoError(t, backend.Set(ctx, storage.KeyViewHistory, `[
		{"id":1,"name":"old","price":"1","viewedAt":"2026-01-01T00:00:00.000Z"},
		{"id":2,"name":"new","price":"1","viewedAt":"2026-02-01T00:00:00.000Z"},
		{"id":1,"name":"dup","price":"1","viewedAt":"2025-12-01T00:00:00.000Z"}
	]`))
	store, _, _ := newTestStore(t, backend)
	store.Load(ctx)

	entries := store.Entries()
	assert.Equal(t, []catalog.ID{"2", "1"}, ids(entries))
	assert.Equal(t, "old", entries[1].Name)
}

func TestRemoveMissingLeavesPersistedValue(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory(0)
	store, _, _ := newTestStore(t, backend)
	store.RecordView(ctx, product("1"))
	before, err := backend.Get(ctx, storage.KeyViewHistory)
	require.NoError(t, err)

	notified := 0
	store.Subscribe(func([]Entry) { notified++ })
	store.Remove(ctx, "missing")

	after, err := backend.Get(ctx, storage.KeyViewHistory)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Zero(t, notified)
	assert.Equal(t, 1, store.Len())
}

func TestRemoveDeletesEntry(t *testing.T) {
	ctx := context.Background()
	store, clock, _ := newTestStore(t, storage.NewMemory(0))
	store.RecordView(ctx, product("1"))
	clock.Advance(time.Second)
	store.RecordView(ctx, product("2"))

	store.Remove(ctx, "1")
	assert.Equal(t, []catalog.ID{"2"}, ids(store.Entries()))
}

func TestClearDeletesPersistedKey(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory(0)
	store, _, _ := newTestStore(t, backend)
	store.RecordView(ctx, product("1"))

	var seen []Entry
	store.Subscribe(func(entries []Entry) { seen = entries })
	store.Clear(ctx)

	assert.Empty(t, store.Entries())
	assert.NotNil(t, seen)
	assert.Empty(t, seen)
	_, err := backend.Get(ctx, storage.KeyViewHistory)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMutationBeforeLoadKeepsPersistedEntries(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory(0)
	require.NoError(t, backend.Set(ctx, storage.KeyViewHistory,
		`[{"id":9,"name":"kept","price":"1","viewedAt":"2026-02-01T00:00:00.000Z"}]`))
	store, _, _ := newTestStore(t, backend)
	assert.False(t, store.Ready())

	store.RecordView(ctx, product("1"))

	assert.True(t, store.Ready())
	assert.Equal(t, []catalog.ID{"1", "9"}, ids(store.Entries()))
}

func TestPersistenceFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	store, _, logs := newTestStore(t, storage.NewMemory(16))
	store.Load(ctx)

	store.RecordView(ctx, product("1"))

	assert.Equal(t, 1, store.Len())
	assert.Contains(t, logs.String(), "failed to persist view history")
}

func TestEntryAge(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cases := map[time.Duration]string{
		10 * time.Second:   "just now",
		time.Minute:        "1 minute ago",
		45 * time.Minute:   "45 minutes ago",
		3 * time.Hour:      "3 hours ago",
		24 * time.Hour:     "1 day ago",
		6 * 24 * time.Hour: "6 days ago",
		8 * 24 * time.Hour: "2 Mar 2026",
	}
	for ago, want := range cases {
		entry := Entry{ViewedAt: now.Add(-ago)}
		assert.Equal(t, want, entry.Age(now), ago.String())
	}
}
