package restd

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/Overv/restd/internal/http1"
	"github.com/Overv/restd/internal/netpoll"
	"github.com/Overv/restd/obs"
)

const (
	// DefaultBacklog is the listen backlog used when Bind gets a
	// non-positive one.
	DefaultBacklog = 16
	// DefaultMaxRequestBytes caps the inbound buffer of one connection;
	// crossing it force-closes the connection without a response.
	DefaultMaxRequestBytes = 4096
	// readChunk is the scratch buffer size for a single read.
	readChunk = 4096

	DefaultRequestTimeout   = 5 * time.Second
	DefaultKeepAliveTimeout = 5 * time.Second
)

const notFoundBody = "No handler found for this path"

// netops is the socket capability the reactor drives. The production
// implementation is internal/netpoll; tests substitute an in-memory fake.
type netops interface {
	Accept(lfd int) (fd int, remote string, err error)
	Read(fd int, p []byte) (int, error)
	Write(fd int, p []byte) (int, error)
	Close(fd int) error
	Readable(fds []int) ([]int, error)
	Capacity() int
}

// Server is a single-threaded, non-blocking HTTP/1.1 reactor. One
// goroutine owns the listener and the connection table; Iterate performs
// one non-blocking pass and Loop drives Iterate forever. Registration must
// finish before the loop starts; the route table is read-only while
// serving.
type Server struct {
	// RequestTimeout evicts a connection that has not produced a complete
	// request since its last activity. Zero means the default.
	RequestTimeout time.Duration
	// KeepAliveTimeout evicts an idle persistent connection, measured
	// from accept. Zero means the default.
	KeepAliveTimeout time.Duration
	// MaxRequestBytes overrides DefaultMaxRequestBytes when positive.
	MaxRequestBytes int

	// Logger and Meter receive reactor events; nil means silence.
	Logger obs.Logger
	Meter  obs.Meter

	lfd    int
	ops    netops
	conns  map[int]*conn
	router *router

	// now is sampled once per Iterate and threaded through all timeout
	// comparisons; tests swap it for a fake clock.
	now func() time.Time

	scratch [readChunk]byte
}

// Bind creates a server listening on port with the given backlog. The
// caller treats an error here as fatal; the usual cause is the port being
// bound already.
func Bind(port, backlog int) (*Server, error) {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	lfd, err := netpoll.Listen(port, backlog)
	if err != nil {
		return nil, err
	}
	return newServer(lfd, netpoll.Ops{}), nil
}

func newServer(lfd int, ops netops) *Server {
	return &Server{
		lfd:    lfd,
		ops:    ops,
		conns:  make(map[int]*conn),
		router: newRouter(),
		now:    time.Now,
	}
}

// Get registers a handler for GET requests on an exact path, and for HEAD
// requests on the same path.
func (s *Server) Get(path string, h Handler) {
	s.router.add("get", path, h)
	s.router.add("head", path, h)
}

func (s *Server) Post(path string, h Handler) {
	s.router.add("post", path, h)
}

func (s *Server) Put(path string, h Handler) {
	s.router.add("put", path, h)
}

func (s *Server) Del(path string, h Handler) {
	s.router.add("delete", path, h)
}

// Request registers the handler for GET, POST, PUT and DELETE (and HEAD,
// through Get).
func (s *Server) Request(path string, h Handler) {
	s.Get(path, h)
	s.Post(path, h)
	s.Put(path, h)
	s.Del(path, h)
}

// Loop calls Iterate forever. Callers that need to interleave other work,
// or to pace the reactor, call Iterate themselves instead.
func (s *Server) Loop() {
	for {
		s.Iterate()
	}
}

// Iterate performs exactly one non-blocking pass: drain the accept
// backlog, prune expired connections, poll the rest for readability with
// zero wait, and serve whatever arrived. It never blocks on I/O.
func (s *Server) Iterate() {
	now := s.now()
	s.acceptPending(now)
	s.pollConns(now)
}

// Close tears down every live connection and the listener.
func (s *Server) Close() error {
	for fd := range s.conns {
		_ = s.ops.Close(fd)
		delete(s.conns, fd)
	}
	return s.ops.Close(s.lfd)
}

func (s *Server) acceptPending(now time.Time) {
	for len(s.conns) < s.ops.Capacity() {
		fd, remote, err := s.ops.Accept(s.lfd)
		if err != nil {
			if !errors.Is(err, netpoll.ErrAgain) {
				s.logf(obs.Warn, "accept: %v", err)
			}
			return
		}
		if fd >= s.ops.Capacity() {
			// The descriptor value itself cannot fit in the readiness
			// set, even if the table has room. Shed the connection.
			_ = s.ops.Close(fd)
			s.count("restd_shed_total")
			s.logf(obs.Warn, "shedding %s: fd %d exceeds poll capacity", remote, fd)
			continue
		}
		s.conns[fd] = &conn{fd: fd, remote: remote, started: now, last: now}
		s.count("restd_accepted_total")
		s.logf(obs.Debug, "accepted %s (fd %d)", remote, fd)
	}
}

func (s *Server) pollConns(now time.Time) {
	fds := s.sortedFds()
	live := fds[:0]
	for _, fd := range fds {
		c := s.conns[fd]
		if cause := s.expired(c, now); cause != "" {
			s.evict(c, cause)
			continue
		}
		live = append(live, fd)
	}
	ready, err := s.ops.Readable(live)
	if err != nil {
		s.logf(obs.Warn, "poll: %v", err)
		return
	}
	for _, fd := range ready {
		if c, ok := s.conns[fd]; ok {
			s.serveReady(c, now)
		}
	}
}

// sortedFds snapshots the table keys in descending order, the fixed
// per-pass iteration order.
func (s *Server) sortedFds() []int {
	fds := make([]int, 0, len(s.conns))
	for fd := range s.conns {
		fds = append(fds, fd)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(fds)))
	return fds
}

func (s *Server) expired(c *conn, now time.Time) string {
	if now.Sub(c.last) > s.requestTimeout() {
		return "request-timeout"
	}
	if c.idle() && now.Sub(c.started) > s.keepAliveTimeout() {
		return "keepalive-timeout"
	}
	return ""
}

func (s *Server) serveReady(c *conn, now time.Time) {
	n, err := s.ops.Read(c.fd, s.scratch[:])
	if err != nil {
		if errors.Is(err, netpoll.ErrAgain) {
			return
		}
		s.evict(c, "read-error")
		return
	}
	if n == 0 {
		// Orderly close by the peer.
		s.evict(c, "peer-closed")
		return
	}
	c.buf = append(c.buf, s.scratch[:n]...)
	if len(c.buf) > s.requestLimit() {
		s.evict(c, "oversize")
		return
	}

	pr, err := http1.Parse(c.buf)
	if err != nil {
		if errors.Is(err, ErrIncompleteRequest) {
			return
		}
		// No reliable offset to the next request once parsing failed, so
		// the connection closes regardless of any keep-alive header.
		s.logf(obs.Info, "%s: %v", c.remote, err)
		s.respond(c, nil, NewStatusResponse(400))
		s.evict(c, "malformed")
		return
	}
	if !pr.Complete {
		// Headers done, body still arriving.
		return
	}

	s.observe("restd_request_bytes", float64(len(c.buf)))
	req := s.buildRequest(c, pr)
	resp := s.dispatch(req)
	if !s.respond(c, req, resp) {
		s.evict(c, "write-error")
		return
	}
	if req.KeepAlive() {
		c.reset(now)
	} else {
		s.evict(c, "done")
	}
}

func (s *Server) buildRequest(c *conn, pr *http1.ParsedRequest) *Request {
	return &Request{
		RemoteAddr: c.remote,
		Method:     pr.Method,
		Target:     pr.Target,
		Path:       pr.Path,
		Query:      pr.Query,
		Header:     Header(pr.Header),
		Body:       pr.Body,
		Form:       pr.Form,
		Complete:   pr.Complete,
	}
}

func (s *Server) dispatch(req *Request) *Response {
	h := s.router.lookup(req.Method, req.Path)
	if h == nil {
		return NewResponse(404, notFoundBody)
	}
	resp, err := s.invoke(h, req)
	if err != nil {
		s.logf(obs.Error, "handler %s /%s: %v", req.Method, req.Path, err)
		s.count("restd_handler_failures_total")
		return NewStatusResponse(500)
	}
	if resp == nil {
		return NewStatusResponse(500)
	}
	return resp
}

// invoke runs the handler, containing panics.
func (s *Server) invoke(h Handler, req *Request) (resp *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(req)
}

// maxWriteAttempts bounds retries on a full socket send buffer before the
// peer is declared stalled and the connection given up on.
const maxWriteAttempts = 100

// respond serializes and writes the full response, reporting success. The
// write retries on would-block since responses are small and bounded, but
// only so many times: a peer that never drains must not wedge the reactor.
func (s *Server) respond(c *conn, req *Request, resp *Response) bool {
	out := resp.serialize(req)
	attempts := 0
	for len(out) > 0 {
		n, err := s.ops.Write(c.fd, out)
		if err != nil {
			if errors.Is(err, netpoll.ErrAgain) {
				attempts++
				if attempts < maxWriteAttempts {
					continue
				}
				s.logf(obs.Warn, "write to %s: peer not draining", c.remote)
				return false
			}
			s.logf(obs.Warn, "write to %s: %v", c.remote, err)
			return false
		}
		out = out[n:]
	}
	s.count("restd_responses_total", obs.Label{Key: "status", Value: strconv.Itoa(resp.status)})
	return true
}

func (s *Server) evict(c *conn, cause string) {
	_ = s.ops.Close(c.fd)
	delete(s.conns, c.fd)
	s.count("restd_evicted_total", obs.Label{Key: "cause", Value: cause})
	s.logf(obs.Debug, "closed %s (fd %d): %s", c.remote, c.fd, cause)
}

func (s *Server) requestTimeout() time.Duration {
	if s.RequestTimeout <= 0 {
		return DefaultRequestTimeout
	}
	return s.RequestTimeout
}

func (s *Server) keepAliveTimeout() time.Duration {
	if s.KeepAliveTimeout <= 0 {
		return DefaultKeepAliveTimeout
	}
	return s.KeepAliveTimeout
}

func (s *Server) requestLimit() int {
	if s.MaxRequestBytes <= 0 {
		return DefaultMaxRequestBytes
	}
	return s.MaxRequestBytes
}

func (s *Server) logf(level obs.Level, format string, args ...interface{}) {
	if s.Logger != nil {
		s.Logger.Logf(level, format, args...)
	}
}

func (s *Server) count(name string, labels ...obs.Label) {
	if s.Meter != nil {
		s.Meter.Counter(name, 1, labels...)
	}
}

func (s *Server) observe(name string, value float64, labels ...obs.Label) {
	if s.Meter != nil {
		s.Meter.Histogram(name, value, labels...)
	}
}
