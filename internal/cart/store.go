// Package cart keeps the shopping cart: one entry per product identity, persisted
// to durable storage after every mutation.
package cart

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/observer"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/storage"
	"github.com/shopspring/decimal"
)

const storeName = "cart"

// MaxQuantity caps a single entry's quantity. Adds beyond it saturate.
const MaxQuantity = 99_999

// Params groups dependencies for the cart store.
type Params struct {
	Backend storage.Backend
	Logger  *logger.Logger
}

// Store is the authoritative cart for a session. Mutations never fail: storage
// errors are logged and the in-memory cart stays the source of truth.
type Store struct {
	mu      sync.Mutex
	slot    *storage.Slot[Entry]
	logg    *logger.Logger
	entries []Entry
	ready   bool
	subs    observer.Registry[[]Entry]
}

func NewStore(params Params) (*Store, error) {
	if params.Backend == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "storage backend is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Store{
		slot: storage.NewSlot[Entry](params.Backend, storage.KeyCart),
		logg: logg,
	}, nil
}

// Load replaces the in-memory cart with the persisted one. A missing or corrupt
// value yields an empty cart.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	s.loadLocked(ctx)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.subs.Notify(snapshot)
}

// Add puts one unit of product into the cart. An existing entry keeps its original
// snapshot and only gains quantity.
func (s *Store) Add(ctx context.Context, product catalog.Product) {
	s.AddQuantity(ctx, product, 1)
}

// AddQuantity adds n units in a single mutation; n <= 0 is a no-op. The resulting
// quantity saturates at MaxQuantity.
func (s *Store) AddQuantity(ctx context.Context, product catalog.Product, n int) {
	if n <= 0 || product.ID.IsZero() {
		return
	}
	if _, ok := product.UnitPrice(); !ok {
		ctx := s.logg.WithFields(ctx, map[string]any{"store": storeName, "product_id": product.ID.String(), "price": string(product.Price)})
		s.logg.Warn(ctx, "product price is not a decimal, it will not count towards the total")
	}
	s.mutate(ctx, func(entries []Entry) ([]Entry, bool) {
		if i := indexOf(entries, product.ID); i >= 0 {
			next := addCapped(entries[i].Quantity, n)
			if next == entries[i].Quantity {
				return entries, false
			}
			entries[i].Quantity = next
			return entries, true
		}
		return append(entries, Entry{Product: product.Clone(), Quantity: min(n, MaxQuantity)}), true
	})
}

// Remove deletes the entry for id; an absent id is a no-op.
func (s *Store) Remove(ctx context.Context, id catalog.ID) {
	s.mutate(ctx, func(entries []Entry) ([]Entry, bool) {
		i := indexOf(entries, id)
		if i < 0 {
			return entries, false
		}
		return slices.Delete(entries, i, i+1), true
	})
}

// SetQuantity overwrites the quantity of an existing entry. A quantity of zero or
// less removes the entry; one above MaxQuantity is capped.
func (s *Store) SetQuantity(ctx context.Context, id catalog.ID, quantity int) {
	if quantity <= 0 {
		s.Remove(ctx, id)
		return
	}
	quantity = min(quantity, MaxQuantity)
	s.mutate(ctx, func(entries []Entry) ([]Entry, bool) {
		i := indexOf(entries, id)
		if i < 0 || entries[i].Quantity == quantity {
			return entries, false
		}
		entries[i].Quantity = quantity
		return entries, true
	})
}

func (s *Store) Clear(ctx context.Context) {
	s.mutate(ctx, func(entries []Entry) ([]Entry, bool) {
		return entries[:0], true
	})
}

// Total is the sum of price times quantity. Entries whose price cannot be parsed
// contribute zero.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalOf(s.entries)
}

// Count is the sum of quantities.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return countOf(s.entries)
}

// Summary is the cart's entries with their count and total, taken in one read.
type Summary struct {
	Items []Entry
	Count int
	Total decimal.Decimal
}

func (s *Store) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{Items: s.snapshotLocked(), Count: countOf(s.entries), Total: totalOf(s.entries)}
}

// Items returns a copy of the entries in insertion order.
func (s *Store) Items() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) Get(id catalog.ID) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.entries, id); i >= 0 {
		return cloneEntry(s.entries[i]), true
	}
	return Entry{}, false
}

// Ready reports whether the persisted cart has been loaded.
func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Subscribe registers fn to receive the cart after every load and effective mutation.
func (s *Store) Subscribe(fn func([]Entry)) func() {
	return s.subs.Subscribe(fn)
}

// mutate applies fn under the lock, persists when fn reports a change, and notifies
// subscribers once the lock is released.
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
	s.persistLocked(ctx)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.subs.Notify(snapshot)
}

func (s *Store) loadLocked(ctx context.Context) {
	ctx = s.logg.WithStore(ctx, storeName, s.slot.Key())
	entries, dropped, err := s.slot.LoadEach(ctx)
	for _, bad := range dropped {
		s.logg.Warn(s.logg.WithField(ctx, "error", bad.Error()), "dropped invalid cart entry")
	}
	switch {
	case err == nil:
		s.entries = dedupe(entries)
	case errors.Is(err, storage.ErrNotFound):
		s.entries = nil
	case errors.Is(err, storage.ErrCorrupt):
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "corrupt cart in storage, starting empty")
		s.entries = nil
	default:
		s.logg.Error(ctx, "failed to read cart from storage, starting empty", err)
		s.entries = nil
	}
	s.ready = true
}

func (s *Store) persistLocked(ctx context.Context) {
	if err := s.slot.Save(ctx, s.entries); err != nil {
		ctx = s.logg.WithStore(ctx, storeName, s.slot.Key())
		s.logg.Error(s.logg.WithField(ctx, "entries", len(s.entries)), "failed to persist cart", err)
	}
}

func (s *Store) snapshotLocked() []Entry {
	out := make([]Entry, len(s.entries))
	for i, entry := range s.entries {
		out[i] = cloneEntry(entry)
	}
	return out
}

// dedupe folds repeated identities in a persisted cart into the first entry.
func dedupe(entries []Entry) []Entry {
	out := entries[:0]
	for _, entry := range entries {
		entry.Quantity = min(entry.Quantity, MaxQuantity)
		if i := indexOf(out, entry.ID); i >= 0 {
			out[i].Quantity = addCapped(out[i].Quantity, entry.Quantity)
			continue
		}
		out = append(out, entry)
	}
	return out
}

func totalOf(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, entry := range entries {
		if sub, ok := entry.Subtotal(); ok {
			total = total.Add(sub)
		}
	}
	return total
}

func countOf(entries []Entry) int {
	count := 0
	for _, entry := range entries {
		count += entry.Quantity
	}
	return count
}

// addCapped adds two quantities in [1, MaxQuantity] without passing MaxQuantity.
func addCapped(a, b int) int {
	if b > MaxQuantity-a {
		return MaxQuantity
	}
	return a + b
}

func indexOf(entries []Entry, id catalog.ID) int {
	return slices.IndexFunc(entries, func(e Entry) bool { return e.ID == id })
}

func cloneEntry(entry Entry) Entry {
	entry.Product = entry.Product.Clone()
	return entry
}
