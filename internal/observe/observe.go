// Package observe provides the reactive state primitives shared by the
// client stores: a mutable Value with subscribe/notify semantics, computed
// views derived from it, and Outcome for errors that were recorded but not
// returned.
package observe

import (
	"slices"
	"sync"
)

// Readable is anything that holds a current value and can be subscribed to.
type Readable[T any] interface {
	Get() T
	Subscribe(fn func(T)) (unsubscribe func())
}

// Value holds a value of type T and notifies subscribers synchronously after
// every write. Values handed out must be treated as immutable; writers
// replace rather than mutate.
type Value[T any] struct {
	mu   sync.RWMutex
	v    T
	subs map[int]func(T)
	next int
}

// NewValue creates a Value holding initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{v: initial, subs: make(map[int]func(T))}
}

// Get returns the current value.
func (o *Value[T]) Get() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.v
}

// Set replaces the value and notifies subscribers.
func (o *Value[T]) Set(v T) {
	o.mu.Lock()
	o.v = v
	subs := o.snapshotSubsLocked()
	o.mu.Unlock()
	notify(subs, v)
}

// Update atomically replaces the value with fn(current) and notifies
// subscribers with the result.
func (o *Value[T]) Update(fn func(T) T) T {
	o.mu.Lock()
	o.v = fn(o.v)
	v := o.v
	subs := o.snapshotSubsLocked()
	o.mu.Unlock()
	notify(subs, v)
	return v
}

// Subscribe registers fn and calls it immediately with the current value.
// The returned function removes the subscription.
func (o *Value[T]) Subscribe(fn func(T)) func() {
	o.mu.Lock()
	id := o.next
	o.next++
	o.subs[id] = fn
	v := o.v
	o.mu.Unlock()

	fn(v)

	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}

func (o *Value[T]) snapshotSubsLocked() []func(T) {
	if len(o.subs) == 0 {
		return nil
	}
	ids := make([]int, 0, len(o.subs))
	for id := range o.subs {
		ids = append(ids, id)
	}
	// Notify in registration order.
	slices.Sort(ids)
	out := make([]func(T), len(ids))
	for i, id := range ids {
		out[i] = o.subs[id]
	}
	return out
}

func notify[T any](subs []func(T), v T) {
	for _, fn := range subs {
		fn(v)
	}
}

// Computed is a read-only value recomputed from a source on every change.
type Computed[T any] struct {
	val  *Value[T]
	stop func()
}

// Derive returns a Computed whose value is fn(src) and which recomputes
// synchronously whenever src changes.
func Derive[S, T any](src Readable[S], fn func(S) T) *Computed[T] {
	c := &Computed[T]{val: NewValue(fn(src.Get()))}
	// Recompute from the source's latest value so concurrent writers that
	// notify out of order still converge on the newest state.
	c.stop = src.Subscribe(func(S) {
		c.val.Set(fn(src.Get()))
	})
	return c
}

// Get returns the most recently computed value.
func (c *Computed[T]) Get() T { return c.val.Get() }

// Subscribe registers fn for recomputations; it is called immediately with
// the current value.
func (c *Computed[T]) Subscribe(fn func(T)) func() { return c.val.Subscribe(fn) }

// Detach stops tracking the source.
func (c *Computed[T]) Detach() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
}
