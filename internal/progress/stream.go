// Package progress turns a long-running operation's progress callback into a
// pull-based event sequence.
//
// The operation runs on its own goroutine and hands each event to the
// consumer through an unbuffered channel, so the operation does not advance
// past an event until the consumer has taken it. Events are delivered in
// order, none are dropped while someone is pulling, and the sequence can be
// ranged over only once.
package progress

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"
)

// Stream is a running operation producing events of type T and a final
// result of type R.
type Stream[T, R any] struct {
	events   chan T
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	consumed atomic.Bool

	result R
	err    error
}

// Start runs op in the background. op reports progress through emit, the
// same callback shape the scanner and executor accept directly.
func Start[T, R any](ctx context.Context, op func(ctx context.Context, emit func(T)) (R, error)) *Stream[T, R] {
	s := &Stream[T, R]{
		events: make(chan T),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		defer close(s.events)
		s.result, s.err = op(ctx, s.emit)
	}()
	return s
}

func (s *Stream[T, R]) emit(event T) {
	select {
	case s.events <- event:
	case <-s.stop:
	}
}

// Events yields progress events until the operation finishes. Breaking out
// of the loop detaches the consumer; the operation keeps running and later
// events are discarded. A second call yields nothing.
func (s *Stream[T, R]) Events() iter.Seq[T] {
	return func(yield func(T) bool) {
		if !s.consumed.CompareAndSwap(false, true) {
			return
		}
		for event := range s.events {
			if !yield(event) {
				s.detach()
				return
			}
		}
	}
}

// Wait blocks until the operation returns. Events nobody pulled are
// discarded.
func (s *Stream[T, R]) Wait() (R, error) {
	s.detach()
	<-s.done
	return s.result, s.err
}

// Done is closed once the operation has returned.
func (s *Stream[T, R]) Done() <-chan struct{} {
	return s.done
}

func (s *Stream[T, R]) detach() {
	s.stopOnce.Do(func() { close(s.stop) })
}
