package http

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// ErrHijacked is returned when a socket is taken over twice.
var ErrHijacked = errors.New("http: socket already hijacked")

// Socket is the connection a request arrived on. Writes are serialized so a
// streaming producer can share it with the connection handler.
type Socket struct {
	mu        sync.Mutex
	conn      net.Conn
	hijacked  atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewSocket wraps conn.
func NewSocket(conn net.Conn) *Socket {
	return &Socket{conn: conn}
}

// Write writes p while holding the socket lock.
func (s *Socket) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Write(p)
}

// Exclusive runs fn with the socket lock held, so several writes reach the
// wire without interleaving.
func (s *Socket) Exclusive(fn func(w io.Writer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.conn)
}

// Hijack hands the socket to a long-lived producer. The connection handler
// will not write the route's response and will not close the socket.
func (s *Socket) Hijack() error {
	if !s.hijacked.CompareAndSwap(false, true) {
		return ErrHijacked
	}
	return nil
}

// Hijacked reports whether Hijack was called.
func (s *Socket) Hijacked() bool {
	return s.hijacked.Load()
}

// SetDeadline sets the read/write deadline on the underlying connection.
func (s *Socket) SetDeadline(t time.Time) error {
	return s.conn.SetDeadline(t)
}

// RemoteAddr returns the peer address.
func (s *Socket) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// Close shuts the connection down in both directions. It is safe to call
// more than once.
func (s *Socket) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
