package sched

import "sync"

// Shared is a lockable resource that can be listed in Task.Shared.
type Shared interface {
	core() *resourceCore
}

type resourceCore struct {
	name string
	rank int

	// ceiling is the highest priority of any task sharing the resource; it is
	// fixed when the runtime is built.
	ceiling Priority

	mu sync.Mutex
}

// Resource is a value owned by the runtime and reachable only inside a lock.
//
// Resources are nested in increasing rank order only; taking a lower or equal
// rank while holding another resource fails with ErrLockOrder.
type Resource[T any] struct {
	c     resourceCore
	value T
}

// NewResource wraps v.
func NewResource[T any](name string, rank int, v T) *Resource[T] {
	return &Resource[T]{c: resourceCore{name: name, rank: rank}, value: v}
}

func (r *Resource[T]) core() *resourceCore { return &r.c }

// Name returns the resource name.
func (r *Resource[T]) Name() string { return r.c.name }

// Ceiling returns the resource's priority ceiling.
func (r *Resource[T]) Ceiling() Priority { return r.c.ceiling }

// Lock runs fn with exclusive access to the value. The lock is released on
// every exit from fn, including a panic. While held, the task runs at the
// resource's ceiling: no task at or below it is started.
func (r *Resource[T]) Lock(cx *Context, fn func(v *T) error) error {
	if err := cx.acquire(&r.c); err != nil {
		return err
	}
	defer cx.release(&r.c)
	return fn(&r.value)
}

// Exclusive gives the runtime's owner access outside any task, e.g. during
// bring-up or once Run has returned.
func (r *Resource[T]) Exclusive(fn func(v *T) error) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	return fn(&r.value)
}
