package sched

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Priority orders tasks; higher runs first. Zero is reserved for idle.
type Priority uint8

// Handler is a task body. msg is the spawn argument (nil for periodic
// releases). A non-nil error, or a panic, halts the runtime.
type Handler func(cx *Context, msg any) error

// Task is one row of the fixed task table.
type Task struct {
	Name     string
	Priority Priority

	// Period > 0 makes the task periodic: the runtime releases it Offset after
	// Run starts and again Period after each completion. Periodic tasks cannot
	// be spawned.
	Period time.Duration
	Offset time.Duration

	// Capacity bounds pending instances of a triggered task. Zero means 1.
	Capacity int

	// Shared lists every resource the body may lock.
	Shared []Shared

	Run Handler
}

type taskState struct {
	Task
	level  *level
	shared map[*resourceCore]bool

	// guarded by Runtime.mu
	pending int
	runs    uint64
}

func (t *taskState) periodic() bool { return t.Period > 0 }

// Context is handed to a running task. It is only valid for the duration of
// the call and must not be retained.
type Context struct {
	rt   *Runtime
	task *taskState
	held []*resourceCore
}

// Task returns the running task's name.
func (cx *Context) Task() string { return cx.task.Name }

// Priority returns the effective priority: the task's own, raised to the
// highest ceiling among the resources it holds.
func (cx *Context) Priority() Priority {
	p := cx.task.Priority
	for _, c := range cx.held {
		if c.ceiling > p {
			p = c.ceiling
		}
	}
	return p
}

// Now reads the runtime clock.
func (cx *Context) Now() time.Time { return cx.rt.clk.Now() }

// Logger returns the runtime logger tagged with the task name.
func (cx *Context) Logger() *zap.SugaredLogger {
	return cx.rt.logger.With("task", cx.task.Name)
}

// Spawn queues a triggered task for immediate dispatch.
func (cx *Context) Spawn(name string, msg any) error {
	return cx.rt.Spawn(name, msg)
}

// SpawnAfter queues a triggered task for dispatch after d.
func (cx *Context) SpawnAfter(name string, d time.Duration, msg any) error {
	return cx.rt.SpawnAfter(name, d, msg)
}

func (cx *Context) acquire(c *resourceCore) error {
	if !cx.task.shared[c] {
		return fmt.Errorf("%w: task %s, resource %s", ErrUndeclared, cx.task.Name, c.name)
	}
	for _, h := range cx.held {
		if h == c {
			return fmt.Errorf("%w: task %s, resource %s", ErrRecursiveLock, cx.task.Name, c.name)
		}
	}
	if n := len(cx.held); n > 0 && c.rank <= cx.held[n-1].rank {
		return fmt.Errorf("%w: task %s takes %s while holding %s", ErrLockOrder, cx.task.Name, c.name, cx.held[n-1].name)
	}
	c.mu.Lock()
	cx.rt.raiseCeiling(c.ceiling)
	cx.held = append(cx.held, c)
	return nil
}

func (cx *Context) release(c *resourceCore) {
	cx.held = cx.held[:len(cx.held)-1]
	cx.rt.lowerCeiling(c.ceiling)
	c.mu.Unlock()
}
