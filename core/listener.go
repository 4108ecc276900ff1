package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/net/netutil"
	"golang.org/x/time/rate"

	"github.com/searchktools/fire-server/core/pools"
)

const maxAcceptDelay = time.Second

// ListenAndServe validates the server, binds host:port and serves until ctx
// is cancelled.
func (s *Server[S]) ListenAndServe(ctx context.Context) error {
	if err := s.Validate(); err != nil {
		return err
	}

	lc := net.ListenConfig{Control: controlListener}
	ln, err := lc.Listen(ctx, "tcp4", s.Addr())
	if err != nil {
		return fmt.Errorf("core: listen %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln and hands each to a worker. It returns
// nil once ctx is cancelled and every worker has finished, or the accept
// error that stopped it.
func (s *Server[S]) Serve(ctx context.Context, ln net.Listener) error {
	if err := s.validateServing(); err != nil {
		ln.Close()
		return err
	}

	s.closing.Store(false)
	if s.maxConns > 0 {
		ln = netutil.LimitListener(ln, s.maxConns)
	}

	var limiter *rate.Limiter
	if s.acceptRate > 0 {
		limiter = rate.NewLimiter(s.acceptRate, max(s.acceptBurst, 1))
	}

	pool := pools.NewWorkerPool(s.workers, s.queueSize, pools.WithPanicHandler(func(r any) {
		s.log.Error("connection worker panicked", "panic", r)
	}))

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	s.log.Info("server listening",
		"addr", ln.Addr().String(),
		"workers", pool.Size(),
		"max_connections", s.maxConns,
	)

	err := s.acceptLoop(ctx, ln, pool, limiter)

	ln.Close()
	s.closing.Store(true)
	s.interruptConns()
	pool.Close()
	s.log.Info("server stopped", "accepted", s.stats.accepted.Load())

	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (s *Server[S]) acceptLoop(ctx context.Context, ln net.Listener, pool *pools.WorkerPool, limiter *rate.Limiter) error {
	var delay time.Duration
	for {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}

		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return err
			}
			// Back off on transient failures such as EMFILE.
			delay = min(max(delay*2, 5*time.Millisecond), maxAcceptDelay)
			s.log.Warn("accept failed", "err", err, "retry_in", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		delay = 0

		s.stats.accepted.Add(1)
		tuneConn(conn)
		s.conns.Store(conn, struct{}{})

		task := func() {
			defer s.conns.Delete(conn)
			s.serveConn(conn)
		}
		if err := pool.SubmitContext(ctx, task); err != nil {
			s.conns.Delete(conn)
			conn.Close()
			return err
		}
	}
}

// interruptConns unblocks every connection still reading so its worker can
// finish.
func (s *Server[S]) interruptConns() {
	now := time.Now()
	s.conns.Range(func(key, _ any) bool {
		key.(net.Conn).SetDeadline(now)
		return true
	})
}
