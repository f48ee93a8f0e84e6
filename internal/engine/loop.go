// Package engine implements the bidirectional-streaming Transform call:
// a single-threaded cooperative EventLoop (this file) that serializes
// every mutation of a CallSession's state (session.go), and the Service
// (server.go) that accepts new calls and wires them to an EventLoop, a
// pipeline.Factory and a config.ServicePolicy.
//
// The design is grounded on go.gazette.dev/core/broker's appendFSM: an
// explicit state machine dispatched by a small enum, favored here over a
// web of captured closures reacting to each other. Two asynchronous
// event sources, gRPC stream completions and the media pipeline's own
// callbacks, are serialized onto the EventLoop exactly as appendFSM
// serializes replication-pipeline and Etcd watch events onto a single
// logical thread via posted closures.
package engine

import (
	"sync"
	"sync/atomic"
)

// EventLoop is a single-threaded cooperative executor. Every mutation of
// CallSession state happens here, so session fields need no locks: the
// RPC transport's completion goroutines and the pipeline's callback
// goroutines only ever Post onto the loop and return.
type EventLoop struct {
	tasks chan func()

	stopOnce sync.Once
	stopCh   chan struct{}
	stopped  chan struct{}

	onLoop atomic.Bool
}

// NewEventLoop constructs and starts an EventLoop. backlog bounds the
// number of tasks that may be queued before Post blocks; 256 is a
// generous default for a single call's worth of read/write/callback
// traffic, matching broker/append_fsm.go's own modest buffering of a
// handful of chunks ahead of its consumer.
func NewEventLoop(backlog int) *EventLoop {
	if backlog <= 0 {
		backlog = 256
	}
	var l = &EventLoop{
		tasks:   make(chan func(), backlog),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *EventLoop) run() {
	defer close(l.stopped)
	for {
		select {
		case fn := <-l.tasks:
			l.invoke(fn)
		case <-l.stopCh:
			// Drain whatever is already queued before exiting, so
			// in-flight teardown continuations (eg a pipeline's final
			// onTerminated) still run.
			for {
				select {
				case fn := <-l.tasks:
					l.invoke(fn)
				default:
					return
				}
			}
		}
	}
}

func (l *EventLoop) invoke(fn func()) {
	l.onLoop.Store(true)
	defer l.onLoop.Store(false)
	fn()
}

// Post enqueues fn for execution on the loop. Safe to call from any
// goroutine, including the loop's own: a Post issued while already on
// the loop still defers to the next tick, decoupling callback reentry.
func (l *EventLoop) Post(fn func()) {
	select {
	case l.tasks <- fn:
	case <-l.stopped:
		// The loop has fully drained and stopped; there's nobody left to
		// run fn. This only happens during/after shutdown, where losing
		// a late callback (eg a race between pipeline teardown and a
		// final sample) is expected and harmless.
	}
}

// PostImmediate runs fn inline if called from the loop goroutine, or
// defers it via Post otherwise.
func (l *EventLoop) PostImmediate(fn func()) {
	if l.IsOnLoop() {
		fn()
		return
	}
	l.Post(fn)
}

// IsOnLoop reports whether the loop is currently executing a task. It
// does not identify the calling goroutine: a call from another goroutine
// while a task is running also reports true.
func (l *EventLoop) IsOnLoop() bool { return l.onLoop.Load() }

// AssertOnLoop panics if the loop is not currently executing a task (see
// IsOnLoop). CallSession handlers call this at their top, mirroring
// appendFSM.mustState's defensive pattern.
func (l *EventLoop) AssertOnLoop() {
	if !l.IsOnLoop() {
		panic("engine: called off EventLoop")
	}
}

// Stop drains pending items, refuses new ones, and blocks until the loop
// goroutine has exited.
func (l *EventLoop) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
	<-l.stopped
}
