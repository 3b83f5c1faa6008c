package transport

import (
	"sync"

	"github.com/lipsumar/graphql-tools/pkg/graphql"
)

// Stream is a lazy, ordered sequence of execution results. All streaming
// sources (websocket subscriptions, SSE events, multipart parts) are
// adapted onto it, so consumers never distinguish the origin transport.
//
// Consumption follows the iterator shape:
//
//	for stream.Next() {
//	    result := stream.Get()
//	    ...
//	}
//	if err := stream.Err(); err != nil { ... }
//
// Close cancels the underlying operation (aborts the HTTP connection,
// unsubscribes the socket, or closes the SSE connection). It is safe to
// call any number of times; the abort fires exactly once.
type Stream struct {
	events   chan streamEvent
	closed   chan struct{}
	finished chan struct{}

	closeOnce sync.Once
	cancel    func()

	current *graphql.Result
	err     error
}

type streamEvent struct {
	result *graphql.Result
	err    error
}

// NewStream creates a stream whose Close invokes cancel exactly once.
// The internal buffer holds a single element so the producer never runs
// ahead of the consumer by more than one result.
func NewStream(cancel func()) *Stream {
	return &Stream{
		events:   make(chan streamEvent, 1),
		closed:   make(chan struct{}),
		finished: make(chan struct{}),
		cancel:   cancel,
	}
}

// Next blocks until the next result is available. It returns false when
// the sequence terminates: on normal completion, on error (see Err), or
// after Close. Close wins over a buffered element: once the stream is
// closed no further elements are delivered.
func (s *Stream) Next() bool {
	select {
	case <-s.closed:
		return false
	default:
	}
	select {
	case ev, ok := <-s.events:
		if !ok {
			return false
		}
		if ev.err != nil {
			s.err = ev.err
			s.Close()
			return false
		}
		s.current = ev.result
		return true
	case <-s.closed:
		return false
	}
}

// Get returns the result most recently produced by Next.
func (s *Stream) Get() *graphql.Result {
	return s.current
}

// Err returns the error that terminated the sequence, if any.
func (s *Stream) Err() error {
	return s.err
}

// Close cancels the stream. Further Next calls return false immediately.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Emit delivers one result to the consumer, blocking until there is buffer
// space. It reports false once the stream has been closed; producers should
// stop on false.
func (s *Stream) Emit(result *graphql.Result) bool {
	select {
	case s.events <- streamEvent{result: result}:
		return true
	case <-s.closed:
		return false
	}
}

// Fail terminates the sequence with err. Remaining elements are not
// delivered; the consumer observes the error via Err.
func (s *Stream) Fail(err error) {
	select {
	case s.events <- streamEvent{err: err}:
	case <-s.closed:
	}
}

// End terminates the sequence normally. Must be called exactly once by the
// producer, after its last Emit; no Emit or Fail may follow. Buffered
// elements are still delivered; finished lets watchers (see Subscribe's
// context watcher) unblock without waiting for the consumer to Close.
func (s *Stream) End() {
	close(s.events)
	close(s.finished)
}

// singleStream wraps an already-materialized result as a one-element
// sequence, used when a subscription protocol receives a non-streaming
// response.
func singleStream(result *graphql.Result) *Stream {
	s := NewStream(nil)
	s.events <- streamEvent{result: result}
	s.End()
	return s
}
