package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Slot reads and writes a JSON-encoded list under a single key.
type Slot[T any] struct {
	backend Backend
	key     string
}

func NewSlot[T any](backend Backend, key string) *Slot[T] {
	return &Slot[T]{backend: backend, key: key}
}

func (s *Slot[T]) Key() string { return s.key }

// Load decodes the stored list. A missing key yields ErrNotFound and an undecodable
// value yields an error wrapping ErrCorrupt.
func (s *Slot[T]) Load(ctx context.Context) ([]T, error) {
	raw, err := s.backend.Get(ctx, s.key)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.key, err)
	}
	return items, nil
}

// LoadEach decodes the stored list element by element. Elements that fail to decode
// are skipped and reported in dropped; only a value that is not a JSON list yields
// ErrCorrupt.
func (s *Slot[T]) LoadEach(ctx context.Context) (items []T, dropped []error, err error) {
	raw, err := s.backend.Get(ctx, s.key)
	if err != nil {
		return nil, nil, err
	}
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.key, err)
	}
	items = make([]T, 0, len(elems))
	for i, elem := range elems {
		var item T
		if err := json.Unmarshal(elem, &item); err != nil {
			dropped = append(dropped, fmt.Errorf("%s[%d]: %w", s.key, i, err))
			continue
		}
		items = append(items, item)
	}
	return items, dropped, nil
}

// Save encodes items (nil encodes as an empty list) and writes them.
func (s *Slot[T]) Save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.key, err)
	}
	if err := s.backend.Set(ctx, s.key, string(payload)); err != nil {
		return fmt.Errorf("write %s: %w", s.key, err)
	}
	return nil
}

// Delete removes the key entirely.
func (s *Slot[T]) Delete(ctx context.Context) error {
	if err := s.backend.Remove(ctx, s.key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("remove %s: %w", s.key, err)
	}
	return nil
}
