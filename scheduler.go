// scheduler.go - cross-clock scheduler and per-clock cycle counters (spec §3, §4.1).
//
// Grounded on valerio-go-jeebie's jeebie/events package: the same
// EventType/cycle/opaque-data event shape and Schedule/ScheduleRelative
// naming, and the same use of log/slog for progress/housekeeping messages.
// That source keeps pending events in a buffered channel, which is FIFO and
// therefore does not honor spec invariant 4 (events must fire in
// non-decreasing `when` order relative to the clock) - scheduling two events
// out of cycle order there would dequeue them in arrival order, not `when`
// order. This implementation instead keeps a container/heap min-heap keyed
// by `when`, with insertion order as the tie-break spec §4.1 requires.

package dcore

import (
	"container/heap"
	"log/slog"
)

// CycleStamp is a 64-bit monotonic counter, one per clock (spec §3).
type CycleStamp uint64

// EventHandle identifies a scheduled event for cancellation/rescheduling.
type EventHandle uint64

// EventFunc is invoked when a scheduled event fires. It receives the
// event's scheduled `when` (the clock's own stamp may already be later)
// and may re-arm itself by calling Clock.Schedule again.
type EventFunc func(when CycleStamp, arg any)

type scheduledEvent struct {
	handle EventHandle
	when   CycleStamp
	seq    uint64 // insertion sequence, breaks ties in `when` order
	fn     EventFunc
	arg    any
	index  int // heap index, maintained by container/heap
}

// eventHeap implements container/heap.Interface ordered by (when, seq).
type eventHeap []*scheduledEvent

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].when != h[j].when {
		return h[i].when < h[j].when
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *eventHeap) Push(x any) {
	e := x.(*scheduledEvent)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Clock drives one dimension of virtual time: a monotonic cycle stamp, a
// target stamp for the next preempt, a countdown, a priority queue of
// future events, and the dispatch function that consumes cycles between
// events (spec §3 "Clock").
type Clock struct {
	name         string
	cycleStamp   CycleStamp
	targetStamp  CycleStamp
	heap         eventHeap
	nextHandle   EventHandle
	nextSeq      uint64
	byHandle     map[EventHandle]*scheduledEvent
	dispatchFn   func(countdown uint64) (consumed uint64)
	housekeepFn  EventFunc
	housekeepDiv uint64 // scheduler frequency / 100, per spec §4.1
}

// NewClock creates a clock ticking against its own cycle stamp. dispatchFn
// must run instructions (or otherwise consume virtual time) until it has
// consumed "countdown" cycles, returning however many it actually consumed
// (it may overrun slightly if an instruction straddles the horizon; callers
// tolerate a small overshoot exactly as real hardware would finish the
// instruction in flight).
func NewClock(name string, frequencyHz uint64, dispatchFn func(countdown uint64) uint64) *Clock {
	c := &Clock{
		name:         name,
		byHandle:     make(map[EventHandle]*scheduledEvent),
		dispatchFn:   dispatchFn,
		housekeepDiv: frequencyHz / 100,
	}
	heap.Init(&c.heap)
	return c
}

// Now returns the clock's current cycle stamp.
func (c *Clock) Now() CycleStamp { return c.cycleStamp }

// Schedule arms a new event at absolute cycle stamp `when`. An event armed
// in the past from inside a firing handler runs in the same pump; one still
// pending in the past when RunTimeslice starts a slice makes it panic.
func (c *Clock) Schedule(when CycleStamp, fn EventFunc, arg any) EventHandle {
	c.nextHandle++
	c.nextSeq++
	e := &scheduledEvent{handle: c.nextHandle, when: when, seq: c.nextSeq, fn: fn, arg: arg}
	heap.Push(&c.heap, e)
	c.byHandle[e.handle] = e
	return e.handle
}

// ScheduleRelative arms an event `delta` cycles from now.
func (c *Clock) ScheduleRelative(delta uint64, fn EventFunc, arg any) EventHandle {
	return c.Schedule(c.cycleStamp+CycleStamp(delta), fn, arg)
}

// Cancel removes a previously scheduled event by handle. Cancelling an
// already-fired or unknown handle is a no-op.
func (c *Clock) Cancel(h EventHandle) {
	e, ok := c.byHandle[h]
	if !ok {
		return
	}
	heap.Remove(&c.heap, e.index)
	delete(c.byHandle, h)
}

// Reschedule cancels `h` (if still pending) and arms a new event, returning
// the new handle. Spec §3 describes rescheduling as remove-then-reinsert.
func (c *Clock) Reschedule(h EventHandle, when CycleStamp) EventHandle {
	e, ok := c.byHandle[h]
	if !ok {
		return c.Schedule(when, nil, nil)
	}
	fn, arg := e.fn, e.arg
	c.Cancel(h)
	return c.Schedule(when, fn, arg)
}

func (c *Clock) nextWhen() (CycleStamp, bool) {
	if c.heap.Len() == 0 {
		return 0, false
	}
	return c.heap[0].when, true
}

// pumpDue fires every event whose `when` has been reached by the clock's
// current cycle stamp, in (when, insertion) order. Handlers may schedule
// new events, including ones that fire immediately (when <= now).
func (c *Clock) pumpDue() {
	for {
		when, ok := c.nextWhen()
		if !ok || when > c.cycleStamp {
			return
		}
		e := heap.Pop(&c.heap).(*scheduledEvent)
		delete(c.byHandle, e.handle)
		if e.fn != nil {
			e.fn(when, e.arg)
		}
	}
}

// RunTimeslice advances the clock through exactly one timeslice: the
// interval between now and the next scheduled event (or, if none is
// pending, the periodic housekeeping cadence). It runs the dispatch
// function for that many cycles, then fires due events. Returns whether a
// preempt occurred before the full timeslice was consumed (dispatchFn may
// return less than requested if a mid-slice condition, e.g. a pending
// guest exception, forces an early return).
func (c *Clock) RunTimeslice() (didPreempt bool) {
	when, ok := c.nextWhen()
	if !ok {
		if c.housekeepDiv == 0 {
			c.housekeepDiv = 1
		}
		when = c.cycleStamp + CycleStamp(c.housekeepDiv)
	}
	if when < c.cycleStamp {
		panic(integrityViolation("scheduler.when-in-past",
			"clock "+c.name+" was asked to target a cycle stamp before its current stamp"))
	}
	c.targetStamp = when
	countdown := uint64(c.targetStamp - c.cycleStamp)
	var consumed uint64
	if c.dispatchFn != nil && countdown > 0 {
		consumed = c.dispatchFn(countdown)
	} else {
		consumed = countdown
	}
	if consumed < countdown {
		didPreempt = true
	}
	c.cycleStamp += CycleStamp(consumed)
	c.pumpDue()
	return didPreempt
}

// Scheduler coordinates the host and audio clocks and the top-level frame
// loop (spec §4.1 "Cross-clock coordination").
type Scheduler struct {
	Host  *Clock
	Audio *Clock

	endOfFrame bool
	kill       bool
	frameStop  bool
}

// NewScheduler wires the host and audio clocks together; each clock keeps
// its own frequency.
func NewScheduler(host, audio *Clock) *Scheduler {
	return &Scheduler{Host: host, Audio: audio}
}

// SignalEndOfFrame is the graphics hook spec §4.1 describes: setting it
// stops RunFrame at the next check.
func (s *Scheduler) SignalEndOfFrame() { s.endOfFrame = true }

// Kill requests termination of the run loop at the next frame boundary.
func (s *Scheduler) Kill() { s.kill = true }

// RequestFrameStop suspends the loop at the next end-of-frame (spec §5).
func (s *Scheduler) RequestFrameStop() { s.frameStop = true }

// RunFrame alternates one timeslice on each clock until the end-of-frame
// flag is raised, per spec §4.1. Returns the termination reason: Normal if
// a frame boundary was reached without a kill/stop request taking effect.
func (s *Scheduler) RunFrame() TerminationReason {
	s.endOfFrame = false
	for !s.endOfFrame {
		if s.kill {
			return TerminationInterrupted
		}
		s.Host.RunTimeslice()
		s.Audio.RunTimeslice()
	}
	if s.frameStop {
		s.frameStop = false
		slog.Debug("scheduler: frame stop requested, suspending at frame boundary")
		return TerminationInterrupted
	}
	return TerminationNormal
}
