//go:build !unix

package core

import (
	"net"
	"syscall"
	"time"
)

func controlListener(_, _ string, _ syscall.RawConn) error {
	return nil
}

func tuneConn(conn net.Conn) {
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetNoDelay(true)
		tc.SetKeepAlive(true)
		tc.SetKeepAlivePeriod(30 * time.Second)
	}
}
