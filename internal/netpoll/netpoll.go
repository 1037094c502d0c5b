//go:build unix

// Package netpoll wraps the raw non-blocking socket operations the reactor
// consumes: listen, accept, read, write, close and a zero-timeout select()
// readiness poll.
package netpoll

import (
	"errors"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// ErrAgain reports that a non-blocking call found nothing to do. An empty
// accept backlog and a read on a socket with no pending bytes both map to
// it.
var ErrAgain = errors.New("netpoll: operation would block")

// Capacity is the size of the select readiness set; it bounds how many
// descriptors one poll pass can watch.
const Capacity = 1024 // FD_SETSIZE

// Listen creates a non-blocking IPv4 listening socket with SO_REUSEADDR
// enabled and returns its descriptor. A port that is already bound
// surfaces as an error from bind.
func Listen(port, backlog int) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("netpoll: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("netpoll: setsockopt SO_REUSEADDR: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("netpoll: set nonblocking: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port}); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("netpoll: bind port %d: %w", port, err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("netpoll: listen: %w", err)
	}
	return fd, nil
}

// Ops is the production implementation of the reactor's socket capability.
type Ops struct{}

// Accept takes one pending connection off the listener's backlog, sets it
// non-blocking and returns its descriptor and remote address. ErrAgain
// means the backlog is empty, not a failure.
func (Ops) Accept(lfd int) (int, string, error) {
	fd, sa, err := unix.Accept(lfd)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return -1, "", ErrAgain
		}
		return -1, "", fmt.Errorf("netpoll: accept: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, "", fmt.Errorf("netpoll: set nonblocking: %w", err)
	}
	return fd, sockaddrString(sa), nil
}

func (Ops) Read(fd int, p []byte) (int, error) {
	n, err := unix.Read(fd, p)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, ErrAgain
		}
		return 0, err
	}
	return n, nil
}

func (Ops) Write(fd int, p []byte) (int, error) {
	n, err := unix.Write(fd, p)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, ErrAgain
		}
		return 0, err
	}
	return n, nil
}

func (Ops) Close(fd int) error {
	return unix.Close(fd)
}

// Readable polls fds for readability with zero wait and returns the ready
// subset in the order the caller passed them in.
func (Ops) Readable(fds []int) ([]int, error) {
	if len(fds) == 0 {
		return nil, nil
	}
	var set unix.FdSet
	nfds := 0
	for _, fd := range fds {
		// FdSet is a fixed FD_SETSIZE bitmap; Set past it corrupts memory.
		if fd < 0 || fd >= Capacity {
			return nil, fmt.Errorf("netpoll: fd %d outside select capacity %d", fd, Capacity)
		}
		set.Set(fd)
		if fd >= nfds {
			nfds = fd + 1
		}
	}
	var zero unix.Timeval
	n, err := unix.Select(nfds, &set, nil, nil, &zero)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("netpoll: select: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	ready := make([]int, 0, n)
	for _, fd := range fds {
		if set.IsSet(fd) {
			ready = append(ready, fd)
		}
	}
	return ready, nil
}

func (Ops) Capacity() int {
	return Capacity
}

func sockaddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return fmt.Sprintf("%s:%d", net.IP(a.Addr[:]), a.Port)
	case *unix.SockaddrInet6:
		return fmt.Sprintf("[%s]:%d", net.IP(a.Addr[:]), a.Port)
	}
	return ""
}
