// Package observer is the subscribe/notify registry the client-side stores share.
package observer

import (
	"slices"
	"sync"
)

// Registry holds subscriber callbacks. The zero value is ready to use.
type Registry[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]func(T)
}

// Subscribe registers fn and returns a function that removes it. The returned
// function is safe to call more than once.
func (r *Registry[T]) Subscribe(fn func(T)) func() {
	if fn == nil {
		return func() {}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subs == nil {
		r.subs = make(map[uint64]func(T))
	}
	id := r.nextID
	r.nextID++
	r.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

// Notify calls every subscriber in registration order. Callbacks run on the caller's
// goroutine without the registry lock held, so they may subscribe or unsubscribe.
func (r *Registry[T]) Notify(value T) {
	r.mu.Lock()
	ids := make([]uint64, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	fns := make(map[uint64]func(T), len(r.subs))
	for id, fn := range r.subs {
		fns[id] = fn
	}
	r.mu.Unlock()

	slices.Sort(ids)
	for _, id := range ids {
		fns[id](value)
	}
}

// Len reports the number of active subscribers.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
