// Package viewhistory keeps the recently viewed products: newest first, one entry per
// product, bounded in length, persisted to durable storage.
package viewhistory

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/observer"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/storage"
)

const (
	DefaultMaxEntries  = 20
	DefaultRecentLimit = 10

	storeName = "view_history"
)

// Params groups dependencies for the view history store.
type Params struct {
	Backend    storage.Backend
	Logger     *logger.Logger
	MaxEntries int
	// RecentLimit is used by Recent when the caller passes no positive limit.
	RecentLimit int
	Clock       func() time.Time
}

type Store struct {
	mu          sync.Mutex
	slot        *storage.Slot[Entry]
	logg        *logger.Logger
	maxEntries  int
	recentLimit int
	now         func() time.Time
	entries     []Entry
	ready       bool
	subs        observer.Registry[[]Entry]
}

func NewStore(params Params) (*Store, error) {
	if params.Backend == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "storage backend is required")
	}
	if params.MaxEntries < 0 || params.RecentLimit < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "history limits must not be negative")
	}
	s := &Store{
		slot:        storage.NewSlot[Entry](params.Backend, storage.KeyViewHistory),
		logg:        params.Logger,
		maxEntries:  params.MaxEntries,
		recentLimit: params.RecentLimit,
		now:         params.Clock,
	}
	if s.logg == nil {
		s.logg = logger.Nop()
	}
	if s.maxEntries == 0 {
		s.maxEntries = DefaultMaxEntries
	}
	if s.recentLimit == 0 {
		s.recentLimit = DefaultRecentLimit
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Load replaces the in-memory history with the persisted one. A corrupt value is
// deleted from storage and the history starts empty.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	s.loadLocked(ctx)
	snapshot := s.snapshotLocked(0)
	s.mu.Unlock()

	s.subs.Notify(snapshot)
}

// RecordView moves product to the front with a fresh timestamp, dropping the oldest
// entries beyond the maximum length.
func (s *Store) RecordView(ctx context.Context, product catalog.Product) {
	if product.ID.IsZero() {
		return
	}
	s.mutate(ctx, func(entries []Entry) ([]Entry, bool) {
		entries = slices.DeleteFunc(entries, func(e Entry) bool { return e.ID == product.ID })
		next := make([]Entry, 0, min(len(entries)+1, s.maxEntries))
		next = append(next, Entry{Product: product.Clone(), ViewedAt: s.now().UTC().Truncate(time.Millisecond)})
		for _, entry := range entries {
			if len(next) == s.maxEntries {
				break
			}
			next = append(next, entry)
		}
		return next, true
	})
}

// Remove deletes the entry for id; an absent id is a no-op.
func (s *Store) Remove(ctx context.Context, id catalog.ID) {
	s.mutate(ctx, func(entries []Entry) ([]Entry, bool) {
		i := slices.IndexFunc(entries, func(e Entry) bool { return e.ID == id })
		if i < 0 {
			return entries, false
		}
		return slices.Delete(entries, i, i+1), true
	})
}

// Clear empties the history and deletes the persisted key.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.entries = nil
	s.ready = true
	if err := s.slot.Delete(ctx); err != nil {
		s.logg.Error(s.logg.WithStore(ctx, storeName, s.slot.Key()), "failed to delete view history", err)
	}
	s.mu.Unlock()

	s.subs.Notify([]Entry{})
}

// Recent returns up to limit entries, newest first. A limit of zero or less uses the
// configured default.
func (s *Store) Recent(limit int) []Entry {
	if limit <= 0 {
		limit = s.recentLimit
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(limit)
}

// Entries returns every entry, newest first.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(0)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Ready reports whether the persisted history has been loaded.
func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *Store) Subscribe(fn func([]Entry)) func() {
	return s.subs.Subscribe(fn)
}

func (s *Store) mutate(ctx context.Context, fn func([]Entry) ([]Entry, bool)) {
	s.mu.Lock()
	if !s.ready {
		s.loadLocked(ctx)
	}
	next, changed := fn(s.entries)
	if !changed {
		s.mu.Unlock()
		return
	}
	s.entries = next
	if err := s.slot.Save(ctx, s.entries); err != nil {
		s.logg.Error(s.logg.WithStore(ctx, storeName, s.slot.Key()), "failed to persist view history", err)
	}
	snapshot := s.snapshotLocked(0)
	s.mu.Unlock()

	s.subs.Notify(snapshot)
}

func (s *Store) loadLocked(ctx context.Context) {
	ctx = s.logg.WithStore(ctx, storeName, s.slot.Key())
	entries, err := s.slot.Load(ctx)
	switch {
	case err == nil:
		s.entries = normalize(entries, s.maxEntries)
	case errors.Is(err, storage.ErrNotFound):
		s.entries = nil
	case errors.Is(err, storage.ErrCorrupt):
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "corrupt view history in storage, clearing it")
		s.entries = nil
		if err := s.slot.Delete(ctx); err != nil {
			s.logg.Error(ctx, "failed to delete corrupt view history", err)
		}
	default:
		s.logg.Error(ctx, "failed to read view history from storage, starting empty", err)
		s.entries = nil
	}
	s.ready = true
}

func (s *Store) snapshotLocked(limit int) []Entry {
	n := len(s.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Entry, n)
	for i := range out {
		entry := s.entries[i]
		entry.Product = entry.Product.Clone()
		out[i] = entry
	}
	return out
}

// normalize restores the ordering and bounds of a persisted list written by an older
// or foreign client: newest first, one entry per product, at most limit entries.
func normalize(entries []Entry, limit int) []Entry {
	slices.SortStableFunc(entries, func(a, b Entry) int { return b.ViewedAt.Compare(a.ViewedAt) })
	out := entries[:0]
	seen := make(map[catalog.ID]struct{}, len(entries))
	for _, entry := range entries {
		if _, dup := seen[entry.ID]; dup {
			continue
		}
		seen[entry.ID] = struct{}{}
		out = append(out, entry)
		if len(out) == limit {
			break
		}
	}
	return out
}
