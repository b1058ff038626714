package kernel

import (
	"container/heap"
	"time"
)

// Task is the handle an actor body receives from Spawn. All blocking
// primitives are methods on Task and may only be called from the
// goroutine that owns it.
type Task struct {
	k        *Kernel
	resumeCh chan Signal
	payload  any
}

// Now returns the kernel's current virtual time.
func (t *Task) Now() time.Duration { return t.k.Now() }

// Spawn creates a sibling task. See Kernel.Spawn.
func (t *Task) Spawn(fn func(t *Task)) *Task { return t.k.Spawn(fn) }

// Sleep parks the task until d of virtual time has elapsed, or until it is
// interrupted, whichever happens first.
func (t *Task) Sleep(d time.Duration) Signal {
	if d < 0 {
		d = 0
	}
	item := &timerItem{at: t.k.now + d, seq: t.k.nextSeq(), task: t, wake: wakeup{task: t, signal: SignalTimeout}}
	heap.Push(&t.k.timers, item)
	t.k.yield <- request{kind: reqParked, task: t}
	return <-t.resumeCh
}

// Await parks the task until another task calls Signal with the same
// EventID, or until it is interrupted. The payload passed to Signal is
// retrievable via Payload() after resumption.
func (t *Task) Await(id EventID) Signal {
	t.k.waiters[id] = append(t.k.waiters[id], t)
	t.k.yield <- request{kind: reqParked, task: t}
	sig := <-t.resumeCh
	return sig
}

// Payload returns the value delivered by the Signal that woke
// this task from its most recent Await, or nil if the wakeup was a timeout
// or an interrupt.
func (t *Task) Payload() any { return t.payload }

// Signal wakes the single longest-waiting task parked on id (FIFO,
// at-most-one delivery), handing it payload. It is a no-op if nobody is
// waiting — callers that need guaranteed delivery should queue messages
// themselves (see msgbus), since Signal never blocks and never buffers.
func (t *Task) Signal(id EventID, payload any) {
	list := t.k.waiters[id]
	if len(list) == 0 {
		return
	}
	target := list[0]
	t.k.waiters[id] = list[1:]
	target.payload = payload
	heap.Push(&t.k.timers, &timerItem{at: t.k.now, seq: t.k.nextSeq(), task: target, wake: wakeup{task: target, signal: SignalEvent}})
}

// Interrupt cancels other's pending Sleep/Await and delivers
// SignalInterrupted at its next resumption point, cutting ahead of
// whatever it was waiting for. Interrupting a task that is not currently
// parked (e.g. already resumed this instant) has no effect.
func (t *Task) Interrupt(other *Task) {
	t.k.cancelPending(other)
	heap.Push(&t.k.timers, &timerItem{at: t.k.now, seq: t.k.nextSeq(), task: other, wake: wakeup{task: other, signal: SignalInterrupted}})
}
