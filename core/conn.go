package core

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/searchktools/fire-server/core/http"
)

// serveConn runs the read, dispatch, write loop for one connection until
// either side asks to close or a read fails.
func (s *Server[S]) serveConn(conn net.Conn) {
	s.stats.active.Add(1)
	defer s.stats.active.Add(-1)

	socket := http.NewSocket(conn)
	log := s.log.With("remote", conn.RemoteAddr().String())
	log.Debug("connection opened")

	defer func() {
		if socket.Hijacked() {
			log.Debug("connection handed to stream")
			return
		}
		if err := socket.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Error("close connection failed", "err", err)
		}
		log.Debug("connection closed")
	}()

	parser := http.NewParser(conn, socket, s.bufferSize, s.maxHeaderBytes)
	for {
		if s.socketTimeout > 0 {
			socket.SetDeadline(time.Now().Add(s.socketTimeout))
		}
		// Checked after the deadline so interruptConns cannot be undone.
		if s.closing.Load() {
			return
		}

		req, err := parser.Next()
		if err != nil {
			var parseErr *http.ParseError
			if !errors.As(err, &parseErr) {
				if !errors.Is(err, http.ErrConnClosed) {
					log.Debug("read request failed", "err", err)
				}
				return
			}
		}
		s.stats.requests.Add(1)

		keepAlive := err == nil && req.KeepAlive()
		if req != nil {
			log.Debug("request", "method", req.Method.String(), "path", req.Path, "keep_alive", keepAlive)
		}

		req, res, err := s.pipeline.Run(req, err, s.dispatch)
		if err != nil {
			res = s.ErrorResponse(err)
		}

		if socket.Hijacked() {
			s.pipeline.End(req, res)
			return
		}

		closing := !keepAlive || res.CloseConn
		werr := socket.Exclusive(func(w io.Writer) error {
			return res.Write(w, s.defaultHeaders, closing)
		})
		if werr != nil {
			log.Error("write response failed", "err", werr)
			closing = true
		}

		s.pipeline.End(req, res)

		if closing {
			return
		}
	}
}

// dispatch resolves the route for req, binds its parameters and runs it.
func (s *Server[S]) dispatch(req *http.Request) (*http.Response, error) {
	rt, params, ok := s.routes.Resolve(req.Method, req.Path)
	if !ok {
		return nil, http.NewNotFound(req.Method, req.Path)
	}
	req.SetParams(params)

	if rt.stateful != nil {
		return rt.stateful(s.state, req), nil
	}
	return rt.stateless(req), nil
}
