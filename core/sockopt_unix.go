//go:build unix

package core

import (
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// controlListener sets SO_REUSEADDR so a restarted server can rebind while
// old connections sit in TIME_WAIT.
func controlListener(_, _ string, c syscall.RawConn) error {
	var serr error
	err := c.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return serr
}

// tuneConn disables Nagle and turns on TCP keepalive.
func tuneConn(conn net.Conn) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	raw, err := tc.SyscallConn()
	if err != nil {
		return
	}
	raw.Control(func(fd uintptr) {
		unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
		unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
	})
	tc.SetKeepAlivePeriod(30 * time.Second)
}
