// Package reactive provides a small observable state container.
package reactive

import "sync"

// Value holds a snapshot of type T and notifies subscribers after every update.
// Snapshots are handed out by value; callers that store slices inside T must treat
// them as immutable and replace rather than mutate them.
type Value[T any] struct {
	mu      sync.RWMutex
	current T
	nextID  int
	subs    map[int]func(T)

	// notifyMu keeps listeners seeing updates in the order they were applied.
	notifyMu sync.Mutex
	version  uint64
}

// New creates a Value holding initial.
func New[T any](initial T) *Value[T] {
	return &Value[T]{current: initial, subs: make(map[int]func(T))}
}

// Get returns the current snapshot.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// Update applies fn to the current snapshot under the write lock, stores the result
// and notifies subscribers outside the lock. It returns the stored snapshot.
func (v *Value[T]) Update(fn func(T) T) T {
	v.notifyMu.Lock()
	defer v.notifyMu.Unlock()

	v.mu.Lock()
	v.current = fn(v.current)
	v.version++
	next := v.current
	listeners := make([]func(T), 0, len(v.subs))
	for _, sub := range v.subs {
		listeners = append(listeners, sub)
	}
	v.mu.Unlock()

	for _, listener := range listeners {
		listener(next)
	}
	return next
}

// Set replaces the snapshot.
func (v *Value[T]) Set(next T) {
	v.Update(func(T) T { return next })
}

// Version counts applied updates.
func (v *Value[T]) Version() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.version
}

// Subscribe registers fn for future updates and returns a function that removes it.
// Listeners must not call Update on the same Value.
func (v *Value[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.subs[id] = fn
	v.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.subs, id)
			v.mu.Unlock()
		})
	}
}
