// Package sched is a fixed-priority run-to-completion task runtime.
//
// Tasks are declared once in a table handed to New. Each priority level has
// its own executor, so a higher level never waits behind a lower one, and a
// level starts nothing while a higher level has an instance queued or running;
// within a level, instances run in the order they were released. Shared state lives
// in Resources guarded by the immediate priority ceiling protocol: while a
// resource is held, no task at or below its ceiling is started.
package sched

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

var (
	ErrHalted        = errors.New("sched: runtime halted")
	ErrQueueFull     = errors.New("sched: task queue full")
	ErrUnknownTask   = errors.New("sched: unknown task")
	ErrPeriodic      = errors.New("sched: periodic task cannot be spawned")
	ErrUndeclared    = errors.New("sched: resource not declared by task")
	ErrLockOrder     = errors.New("sched: resource locked out of rank order")
	ErrRecursiveLock = errors.New("sched: resource already held")
)

type dispatch struct {
	task *taskState
	msg  any
}

type level struct {
	prio  Priority
	queue []dispatch // guarded by Runtime.mu
	busy  bool       // guarded by Runtime.mu
	cx    Context
}

// TaskStats is a point-in-time view of one task.
type TaskStats struct {
	Name     string
	Priority Priority
	Periodic bool
	Runs     uint64
	Pending  int
}

// Runtime owns the task table, the resources it shares and the timer queue.
type Runtime struct {
	clk    clock.Clock
	logger *zap.SugaredLogger

	tasks  map[string]*taskState
	order  []*taskState
	levels []*level // highest priority first

	mu       sync.Mutex
	cond     *sync.Cond
	timers   timerQueue
	seq      uint64
	held     [256]int // active lock count per ceiling
	started  bool
	stopping bool
	halted   bool
	haltErr  error
	done     chan struct{}
	wake     chan struct{}
}

// New validates the task table and computes resource ceilings. A nil clock
// uses the wall clock; a nil logger discards output.
func New(clk clock.Clock, logger *zap.SugaredLogger, tasks []Task) (*Runtime, error) {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if len(tasks) == 0 {
		return nil, errors.New("sched: task table is empty")
	}

	rt := &Runtime{
		clk:    clk,
		logger: logger,
		tasks:  make(map[string]*taskState, len(tasks)),
		done:   make(chan struct{}),
		wake:   make(chan struct{}, 1),
	}
	rt.cond = sync.NewCond(&rt.mu)

	levels := map[Priority]*level{}
	ceilings := map[*resourceCore]Priority{}
	total := 0
	for i := range tasks {
		t := tasks[i]
		switch {
		case t.Name == "":
			return nil, fmt.Errorf("sched: task %d: name is required", i)
		case rt.tasks[t.Name] != nil:
			return nil, fmt.Errorf("sched: task %s: duplicate name", t.Name)
		case t.Priority == 0:
			return nil, fmt.Errorf("sched: task %s: priority must be >= 1", t.Name)
		case t.Run == nil:
			return nil, fmt.Errorf("sched: task %s: handler is required", t.Name)
		case t.Period < 0 || t.Offset < 0:
			return nil, fmt.Errorf("sched: task %s: period and offset must be >= 0", t.Name)
		case t.Capacity < 0:
			return nil, fmt.Errorf("sched: task %s: capacity must be >= 0", t.Name)
		case t.Period == 0 && t.Offset != 0:
			return nil, fmt.Errorf("sched: task %s: offset requires a period", t.Name)
		case t.Period > 0 && t.Capacity > 1:
			return nil, fmt.Errorf("sched: task %s: periodic tasks have capacity 1", t.Name)
		}
		if t.Capacity == 0 {
			t.Capacity = 1
		}

		ts := &taskState{Task: t, shared: make(map[*resourceCore]bool, len(t.Shared))}
		for _, s := range t.Shared {
			if s == nil {
				return nil, fmt.Errorf("sched: task %s: nil shared resource", t.Name)
			}
			c := s.core()
			ts.shared[c] = true
			if t.Priority > ceilings[c] {
				ceilings[c] = t.Priority
			}
		}

		lv := levels[t.Priority]
		if lv == nil {
			lv = &level{prio: t.Priority}
			levels[t.Priority] = lv
			rt.levels = append(rt.levels, lv)
		}
		ts.level = lv
		rt.tasks[t.Name] = ts
		rt.order = append(rt.order, ts)
		total += t.Capacity
	}

	for c, p := range ceilings {
		c.ceiling = p
	}
	slices.SortFunc(rt.levels, func(a, b *level) int { return int(b.prio) - int(a.prio) })
	for _, lv := range rt.levels {
		n := 0
		for _, ts := range rt.order {
			if ts.level == lv {
				n += ts.Capacity
			}
		}
		lv.queue = make([]dispatch, 0, n)
		lv.cx = Context{rt: rt, held: make([]*resourceCore, 0, len(ceilings))}
	}
	rt.timers = make(timerQueue, 0, total)
	return rt, nil
}

// Spawn queues an instance of the named triggered task. It may be called
// before Run; queued instances start once Run does.
func (rt *Runtime) Spawn(name string, msg any) error {
	return rt.SpawnAfter(name, 0, msg)
}

// SpawnAfter queues an instance of the named triggered task d from now.
func (rt *Runtime) SpawnAfter(name string, d time.Duration, msg any) error {
	ts := rt.tasks[name]
	if ts == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	if ts.periodic() {
		return fmt.Errorf("%w: %s", ErrPeriodic, name)
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.halted {
		return ErrHalted
	}
	if ts.pending >= ts.Capacity {
		return fmt.Errorf("%w: %s (capacity %d)", ErrQueueFull, name, ts.Capacity)
	}
	ts.pending++
	if d <= 0 {
		rt.enqueueLocked(dispatch{task: ts, msg: msg})
		return nil
	}
	rt.armLocked(rt.clk.Now().Add(d), ts, msg)
	return nil
}

// Run starts the executors and the timer loop, and blocks until ctx is done
// or the runtime halts. It returns nil on a clean stop and the halt error
// otherwise.
func (rt *Runtime) Run(ctx context.Context) error {
	rt.mu.Lock()
	if rt.started {
		rt.mu.Unlock()
		return errors.New("sched: runtime already started")
	}
	rt.started = true
	if rt.halted {
		err := rt.haltErr
		rt.mu.Unlock()
		return err
	}
	now := rt.clk.Now()
	for _, ts := range rt.order {
		if ts.periodic() {
			ts.pending++
			rt.armLocked(now.Add(ts.Offset), ts, nil)
		}
	}
	rt.mu.Unlock()

	var wg sync.WaitGroup
	for _, lv := range rt.levels {
		wg.Add(1)
		go func(lv *level) {
			defer wg.Done()
			rt.serve(lv)
		}(lv)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		rt.timerLoop()
	}()
	rt.logger.Infow("runtime started", "tasks", len(rt.order), "levels", len(rt.levels))

	select {
	case <-ctx.Done():
		rt.stop()
	case <-rt.done:
	}
	wg.Wait()

	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.haltErr
}

// Halt stops dispatching for good. Pending instances are dropped, running ones
// finish, and later spawns fail with ErrHalted. Only the first cause is kept.
func (rt *Runtime) Halt(cause error) {
	rt.mu.Lock()
	if rt.halted {
		rt.mu.Unlock()
		return
	}
	rt.halted = true
	rt.haltErr = fmt.Errorf("%w: %w", ErrHalted, cause)
	rt.dropPendingLocked()
	rt.closeDoneLocked()
	rt.cond.Broadcast()
	rt.mu.Unlock()

	rt.logger.Errorw("runtime halted", "error", cause)
}

// Halted reports whether Halt has been called.
func (rt *Runtime) Halted() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.halted
}

// Stats returns per-task counters in table order.
func (rt *Runtime) Stats() []TaskStats {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make([]TaskStats, 0, len(rt.order))
	for _, ts := range rt.order {
		out = append(out, TaskStats{
			Name:     ts.Name,
			Priority: ts.Priority,
			Periodic: ts.periodic(),
			Runs:     ts.runs,
			Pending:  ts.pending,
		})
	}
	return out
}

func (rt *Runtime) stop() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.stopping = true
	rt.closeDoneLocked()
	rt.cond.Broadcast()
}

func (rt *Runtime) closeDoneLocked() {
	select {
	case <-rt.done:
	default:
		close(rt.done)
	}
}

func (rt *Runtime) dropPendingLocked() {
	rt.timers = rt.timers[:0]
	for _, lv := range rt.levels {
		clear(lv.queue)
		lv.queue = lv.queue[:0]
	}
	for _, ts := range rt.order {
		ts.pending = 0
	}
}

func (rt *Runtime) enqueueLocked(d dispatch) {
	lv := d.task.level
	lv.queue = append(lv.queue, d)
	rt.cond.Broadcast()
}

// ceilingLocked is the highest ceiling among held resources, or 0.
func (rt *Runtime) ceilingLocked() Priority {
	for i := len(rt.held) - 1; i > 0; i-- {
		if rt.held[i] > 0 {
			return Priority(i)
		}
	}
	return 0
}

func (rt *Runtime) raiseCeiling(p Priority) {
	rt.mu.Lock()
	rt.held[p]++
	rt.mu.Unlock()
}

func (rt *Runtime) lowerCeiling(p Priority) {
	rt.mu.Lock()
	rt.held[p]--
	rt.cond.Broadcast()
	rt.mu.Unlock()
}

func (rt *Runtime) serve(lv *level) {
	for {
		d, ok := rt.take(lv)
		if !ok {
			return
		}
		rt.execute(lv, d)
	}
}

// higherActiveLocked reports whether a level above lv has an instance queued
// or running.
func (rt *Runtime) higherActiveLocked(lv *level) bool {
	for _, o := range rt.levels {
		if o == lv {
			return false
		}
		if o.busy || len(o.queue) > 0 {
			return true
		}
	}
	return false
}

// take blocks until lv may start its oldest instance.
func (rt *Runtime) take(lv *level) (dispatch, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	for {
		if rt.halted || rt.stopping {
			return dispatch{}, false
		}
		if len(lv.queue) > 0 && lv.prio > rt.ceilingLocked() && !rt.higherActiveLocked(lv) {
			d := lv.queue[0]
			copy(lv.queue, lv.queue[1:])
			lv.queue[len(lv.queue)-1] = dispatch{}
			lv.queue = lv.queue[:len(lv.queue)-1]
			d.task.pending--
			d.task.runs++
			lv.busy = true
			return d, true
		}
		rt.cond.Wait()
	}
}

func (rt *Runtime) execute(lv *level, d dispatch) {
	cx := &lv.cx
	cx.task = d.task
	cx.held = cx.held[:0]

	err := invoke(cx, d.msg)
	if err != nil {
		rt.Halt(fmt.Errorf("task %s: %w", d.task.Name, err))
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	lv.busy = false
	rt.cond.Broadcast()
	if err != nil || !d.task.periodic() || rt.halted || rt.stopping {
		return
	}
	d.task.pending++
	rt.armLocked(rt.clk.Now().Add(d.task.Period), d.task, nil)
}

func invoke(cx *Context, msg any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return cx.task.Run(cx, msg)
}
