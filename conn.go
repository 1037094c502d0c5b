package restd

import "time"

// conn is the per-client entry in the connection table. The socket
// descriptor doubles as its identity and iteration key.
type conn struct {
	fd     int
	remote string

	// buf accumulates inbound bytes until a complete request is parsed
	// out of it, then is truncated in place for the next one.
	buf []byte

	started time.Time // accept time; never reset
	last    time.Time // accept or last completed request
}

// reset prepares a persistent connection for its next request.
func (c *conn) reset(now time.Time) {
	c.buf = c.buf[:0]
	c.last = now
}

// idle reports whether the connection sits between requests.
func (c *conn) idle() bool {
	return len(c.buf) == 0
}
