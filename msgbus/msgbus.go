// Package msgbus implements the topic-addressed publish/subscribe bus that
// is the sole channel of inter-actor communication in the simulator, and
// the sole source of truth for the event log (every publish is mirrored to
// a broadcast stream consumed only by the logger).
package msgbus

import (
	"sync"
	"time"

	"elevatorsim/kernel"
)

// Envelope is the broadcast-mirror copy of a published message; it carries
// the topic alongside the payload so a single consumer (the event logger)
// can demultiplex without subscribing to every topic individually.
type Envelope struct {
	Topic string
	Time  time.Duration
	Msg   any
}

type topicQueue struct {
	id      kernel.EventID
	pending []any
}

// Bus is a topic-addressed FIFO message bus. publish is non-blocking;
// receive parks the caller until a message is available on that topic.
// Messages are delivered point-to-point (at-most-one receiver per
// message), never fanned out, and in per-topic publish order.
type Bus struct {
	k        *kernel.Kernel
	mu       sync.Mutex // not locked by any Bus method
	topics   map[string]*topicQueue
	nextID   kernel.EventID
	idSeq    uint64
	mirror   chan Envelope
	closedMu sync.Mutex
	closed   bool
}

// New creates a bus bound to the given kernel. mirrorBuf sizes the
// broadcast channel; the logger should drain it promptly since publish
// does not block on a full mirror (a mirror send is dropped whenever the
// channel has no free buffer slot and nobody is receiving — callers should
// always attach a logger before running the simulation).
func New(k *kernel.Kernel, mirrorBuf int) *Bus {
	return &Bus{
		k:      k,
		topics: make(map[string]*topicQueue),
		mirror: make(chan Envelope, mirrorBuf),
	}
}

func (b *Bus) topic(name string) *topicQueue {
	tq, ok := b.topics[name]
	if !ok {
		b.idSeq++
		tq = &topicQueue{id: kernel.EventID(1<<32 | b.idSeq)}
		b.topics[name] = tq
	}
	return tq
}

// Publish enqueues msg on topic's FIFO and mirrors it to the broadcast
// stream. Unknown topics are materialized on first use.
func (b *Bus) Publish(t *kernel.Task, topic string, msg any) {
	tq := b.topic(topic)
	tq.pending = append(tq.pending, msg)
	t.Signal(tq.id, nil) // wake one waiting receiver, if any; pending queue is authoritative either way
	b.emitMirror(topic, t.Now(), msg)
}

func (b *Bus) emitMirror(topic string, at time.Duration, msg any) {
	b.closedMu.Lock()
	closed := b.closed
	b.closedMu.Unlock()
	if closed {
		return
	}
	select {
	case b.mirror <- Envelope{Topic: topic, Time: at, Msg: msg}:
	default:
		// Mirror consumer (logger) is falling behind; drop rather than
		// block the simulation clock. This never affects per-topic
		// delivery, only the live broadcast.
	}
}

// Receive parks the caller until a message arrives on topic, then returns
// it. Delivery is exactly once and FIFO per topic.
func (b *Bus) Receive(t *kernel.Task, topic string) any {
	for {
		tq := b.topic(topic)
		if len(tq.pending) > 0 {
			msg := tq.pending[0]
			tq.pending = tq.pending[1:]
			return msg
		}
		sig := t.Await(tq.id)
		if sig == kernel.SignalInterrupted {
			return nil
		}
		// Loop: another receiver may have raced on the same topic between
		// the signal firing and this task's resumption (shouldn't happen
		// under the single-threaded kernel, but re-check defensively in
		// case Publish added more than one pending item).
	}
}

// TryReceive returns the next pending message on topic without blocking.
// It reports false if the topic currently has nothing queued.
func (b *Bus) TryReceive(t *kernel.Task, topic string) (any, bool) {
	tq := b.topic(topic)
	if len(tq.pending) == 0 {
		return nil, false
	}
	msg := tq.pending[0]
	tq.pending = tq.pending[1:]
	return msg, true
}

// BroadcastPipe returns the channel the event logger drains for every
// message published on any topic, each tagged with its originating topic.
func (b *Bus) BroadcastPipe() <-chan Envelope { return b.mirror }

// Close stops mirroring further publishes and closes the broadcast
// channel. Call once the kernel has quiesced.
func (b *Bus) Close() {
	b.closedMu.Lock()
	if !b.closed {
		b.closed = true
		close(b.mirror)
	}
	b.closedMu.Unlock()
}
