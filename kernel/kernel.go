// Package kernel implements the cooperative, single-threaded discrete-event
// scheduler that every actor in the simulation (car, door, passenger,
// dispatcher, traffic source) runs on top of.
//
// Each actor runs in its own goroutine, but only one actor's goroutine is
// ever runnable at a time: an actor that calls Sleep, Await, or returns
// (finishes) hands control back to the coordinator loop in Run, which then
// advances the virtual clock to the next scheduled event and wakes exactly
// one task. This gives deterministic (scheduled-time, spawn-order)
// resumption without requiring any locking of simulation state from inside
// actor code.
package kernel

import (
	"container/heap"
	"log"
	"time"
)

// Signal is delivered to a task when it resumes from Sleep or Await.
type Signal int

const (
	// SignalTimeout means a Sleep duration elapsed normally.
	SignalTimeout Signal = iota
	// SignalEvent means an Await was satisfied by a matching Signal.
	SignalEvent
	// SignalInterrupted means the task was interrupted before its awaited
	// condition was satisfied. The task must handle this explicitly.
	SignalInterrupted
)

func (s Signal) String() string {
	switch s {
	case SignalTimeout:
		return "timeout"
	case SignalEvent:
		return "event"
	case SignalInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// EventID names a one-shot or repeated await/signal rendezvous point.
// msgbus topics, door permissions, and car new-call wakeups all allocate
// EventIDs from the same kernel.
type EventID uint64

type reqKind int

const (
	reqParked reqKind = iota
	reqDone
)

type request struct {
	kind reqKind
	task *Task
}

type wakeup struct {
	task    *Task
	signal  Signal
	payload any
}

// timerItem is a scheduled resumption, ordered by (at, seq).
type timerItem struct {
	at        time.Duration
	seq       uint64
	task      *Task
	cancelled bool
	wake      wakeup
	index     int
}

type timerHeap []*timerItem

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *timerHeap) Push(x any) {
	item := x.(*timerItem)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Kernel owns the virtual clock and the timer heap. It is not safe for
// concurrent use from outside an actor's own goroutine; the coordination
// guarantee described in the package doc is what makes single-threaded
// access to simulation state safe.
type Kernel struct {
	now      time.Duration
	seq      uint64
	timers   timerHeap
	waiters  map[EventID][]*Task
	yield    chan request
	rtFactor float64
	live     int
	log      *log.Logger
}

// New creates a kernel. rtFactor is the real-time throttle speed factor;
// 0 disables wall-clock throttling (the default for batch simulation runs).
func New(rtFactor float64, logger *log.Logger) *Kernel {
	if logger == nil {
		logger = log.Default()
	}
	return &Kernel{
		waiters:  make(map[EventID][]*Task),
		yield:    make(chan request, 8),
		rtFactor: rtFactor,
		log:      logger,
	}
}

// Now returns the current virtual-clock timestamp.
func (k *Kernel) Now() time.Duration { return k.now }

// NewEventID allocates a fresh rendezvous identifier for Await/Signal.
func (k *Kernel) NewEventID() EventID {
	k.seq++
	return EventID(k.seq)
}

func (k *Kernel) nextSeq() uint64 {
	k.seq++
	return k.seq
}

// Spawn creates a new task running fn and schedules its first resumption at
// the current virtual time, ordered after every task already scheduled at
// this timestamp (spawn-order tie-break). fn is not invoked until the
// coordinator loop reaches that scheduled point, so Spawn never yields the
// calling task's turn.
func (k *Kernel) Spawn(fn func(t *Task)) *Task {
	nt := &Task{k: k, resumeCh: make(chan Signal, 1)}
	k.live++
	go func() {
		sig := <-nt.resumeCh
		if sig != SignalInterrupted {
			fn(nt)
		}
		k.yield <- request{kind: reqDone, task: nt}
	}()
	heap.Push(&k.timers, &timerItem{at: k.now, seq: k.nextSeq(), task: nt, wake: wakeup{task: nt, signal: SignalTimeout}})
	return nt
}

// Run drains the event queue until no task is alive or no timer is
// pending, i.e. the simulation has quiesced. Tasks still parked on an
// Await when the timer queue empties are left parked.
func (k *Kernel) Run() {
	for k.live > 0 {
		if k.timers.Len() == 0 {
			// Every live task is parked on an Await that will never fire
			// (e.g. waiting for a new call that never arrives). Nothing
			// further can happen.
			return
		}
		item := heap.Pop(&k.timers).(*timerItem)
		if item.cancelled {
			continue
		}
		k.advanceTo(item.at)
		if item.wake.signal != SignalEvent {
			item.task.payload = nil
		}
		item.task.resumeCh <- item.wake.signal
		req := <-k.yield
		switch req.kind {
		case reqDone:
			k.live--
		case reqParked:
			// task has already registered its own future wakeup (timer
			// push or waiter registration) before yielding.
		}
	}
}

func (k *Kernel) advanceTo(at time.Duration) {
	if at <= k.now {
		k.now = k.now
		return
	}
	if k.rtFactor > 0 {
		delta := at - k.now
		real := time.Duration(float64(delta) / k.rtFactor)
		if real > 0 {
			time.Sleep(real)
		}
	}
	k.now = at
}

// cancelPending removes t's outstanding timer item, if any, from the heap.
// Lazy deletion: the item is marked cancelled and skipped when popped.
func (k *Kernel) cancelPending(t *Task) {
	for _, item := range k.timers {
		if item.task == t && !item.cancelled {
			item.cancelled = true
		}
	}
	for id, list := range k.waiters {
		out := list[:0]
		for _, w := range list {
			if w != t {
				out = append(out, w)
			}
		}
		k.waiters[id] = out
	}
}
