package restd

import "strings"

// Request is the parsed, immutable view of one HTTP request. The reactor
// never hands an incomplete request to a handler.
type Request struct {
	RemoteAddr string
	Method     string // lower-cased
	Target     string // raw request target as received
	Path       string // percent-decoded, query stripped, no leading slash
	Query      map[string]string
	Header     Header
	Body       []byte            // empty when no body was declared
	Form       map[string]string // set only for url-encoded form bodies
	Complete   bool
}

// AcceptsGzip reports whether the client advertised gzip support.
func (r *Request) AcceptsGzip() bool {
	return strings.Contains(r.Header.Get("Accept-Encoding"), "gzip")
}

// KeepAlive reports whether the connection should stay open after the
// response. An absent Connection header defaults to keep-alive.
func (r *Request) KeepAlive() bool {
	if !r.Header.Has("Connection") {
		return true
	}
	return !strings.EqualFold(r.Header.Get("Connection"), "close")
}
