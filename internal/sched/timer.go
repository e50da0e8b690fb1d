package sched

import (
	"time"

	"github.com/benbjohnson/clock"
)

type timerEntry struct {
	at   time.Time
	seq  uint64
	task *taskState
	msg  any
}

// timerQueue is kept sorted by (at, seq) so equal deadlines release in the
// order they were armed.
type timerQueue []timerEntry

func (q timerQueue) insert(e timerEntry) timerQueue {
	i := len(q)
	for i > 0 {
		p := q[i-1]
		if p.at.Before(e.at) || (p.at.Equal(e.at) && p.seq < e.seq) {
			break
		}
		i--
	}
	q = append(q, timerEntry{})
	copy(q[i+1:], q[i:])
	q[i] = e
	return q
}

func (rt *Runtime) armLocked(at time.Time, ts *taskState, msg any) {
	rt.seq++
	rt.timers = rt.timers.insert(timerEntry{at: at, seq: rt.seq, task: ts, msg: msg})
	select {
	case rt.wake <- struct{}{}:
	default:
	}
}

// releaseLocked moves every entry due at now onto its level queue.
func (rt *Runtime) releaseLocked(now time.Time) {
	n := 0
	for n < len(rt.timers) && !rt.timers[n].at.After(now) {
		e := rt.timers[n]
		rt.enqueueLocked(dispatch{task: e.task, msg: e.msg})
		n++
	}
	if n == 0 {
		return
	}
	copy(rt.timers, rt.timers[n:])
	clear(rt.timers[len(rt.timers)-n:])
	rt.timers = rt.timers[:len(rt.timers)-n]
}

func (rt *Runtime) timerLoop() {
	for {
		rt.mu.Lock()
		if rt.halted || rt.stopping {
			rt.mu.Unlock()
			return
		}
		now := rt.clk.Now()
		rt.releaseLocked(now)
		wait := time.Duration(-1)
		if len(rt.timers) > 0 {
			wait = rt.timers[0].at.Sub(now)
		}
		rt.mu.Unlock()

		var (
			t  *clock.Timer
			tc <-chan time.Time
		)
		if wait >= 0 {
			t = rt.clk.Timer(wait)
			tc = t.C
		}
		select {
		case <-tc:
		case <-rt.wake:
		case <-rt.done:
		}
		if t != nil {
			t.Stop()
		}
	}
}
