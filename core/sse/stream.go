package sse

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/searchktools/fire-server/core/http"
)

// Preamble is written once when a stream opens.
const Preamble = "HTTP/1.1 200 OK\r\nContent-Type: text/event-stream\r\nCache-Control: no-cache\r\n\r\n"

const streamBuffer = 64

var (
	// ErrNoSocket is returned for requests that did not come off a connection.
	ErrNoSocket = errors.New("sse: request has no socket")
	// ErrStreamClosed is returned when sending on a closed or failed stream.
	ErrStreamClosed = errors.New("sse: stream closed")
)

// Stream owns a request's socket after Open. A dedicated goroutine writes
// queued events in order until Close or a write error, then closes the
// socket.
type Stream struct {
	socket *http.Socket
	events chan *Event
	done   chan struct{}

	mu     sync.RWMutex // guards closed against concurrent sends
	closed bool

	nextID atomic.Uint64
	err    error // set by the writer before done is closed
}

// Open hijacks the request's socket and writes the event-stream preamble.
// The connection handler will neither write the route's response nor reuse
// the connection.
func Open(req *http.Request) (*Stream, error) {
	socket := req.Socket()
	if socket == nil {
		return nil, ErrNoSocket
	}
	if err := socket.Hijack(); err != nil {
		return nil, err
	}

	// Streams outlive the per-request socket timeout.
	_ = socket.SetDeadline(time.Time{})
	if _, err := socket.Write([]byte(Preamble)); err != nil {
		socket.Close()
		return nil, err
	}

	s := &Stream{
		socket: socket,
		events: make(chan *Event, streamBuffer),
		done:   make(chan struct{}),
	}
	go s.run()
	return s, nil
}

func (s *Stream) run() {
	defer close(s.done)
	defer s.socket.Close()

	for ev := range s.events {
		if _, err := s.socket.Write(ev.Format()); err != nil {
			s.err = err
			return
		}
	}
}

// Send queues an event, blocking while the buffer is full.
func (s *Stream) Send(ev *Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStreamClosed
	}

	select {
	case <-s.done:
		return ErrStreamClosed
	default:
	}
	select {
	case s.events <- ev:
		return nil
	case <-s.done:
		return ErrStreamClosed
	}
}

// TrySend queues an event without blocking. It reports false when the
// buffer is full or the stream is gone.
func (s *Stream) TrySend(ev *Event) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}

	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	default:
		return false
	}
}

// Emit sends an event of the given type with the next sequential id.
func (s *Stream) Emit(eventType, data string) error {
	return s.Send(NewEvent(eventType).WithID(s.nextID.Add(1)).WithData(data))
}

// Close flushes queued events, closes the socket and returns the first
// write error, if any.
func (s *Stream) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	s.mu.Unlock()

	<-s.done
	return s.err
}

// Done is closed once the writer has stopped and the socket is closed.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Err returns the write error that stopped the stream. Valid after Done.
func (s *Stream) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}
