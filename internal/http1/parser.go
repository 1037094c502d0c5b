package http1

import (
	"bytes"
	"errors"
	"net/url"
	"strconv"
	"strings"
)

// Parse failure taxonomy. ErrIncompleteRequest is the only recoverable
// case: the caller keeps the connection and reads more bytes. Every other
// error means the request can never become valid.
var (
	ErrIncompleteRequest    = errors.New("restd: incomplete request")
	ErrMalformedRequestLine = errors.New("restd: malformed request line")
	ErrMalformedHeaderLine  = errors.New("restd: malformed header line")
	ErrMissingHost          = errors.New("restd: missing required Host header")
	ErrContentLengthNaN     = errors.New("restd: content length isn't numeric")
	ErrTooMuchData          = errors.New("restd: too much data sent")
)

const formContentType = "application/x-www-form-urlencoded"

var knownMethods = map[string]bool{
	"GET":    true,
	"POST":   true,
	"PUT":    true,
	"DELETE": true,
	"HEAD":   true,
}

// ParsedRequest is the wire-level view of one request assembled from a
// connection's accumulated inbound buffer.
type ParsedRequest struct {
	Method string // lower-cased
	Target string // request target exactly as received
	Path   string // percent-decoded, query stripped, leading slash consumed
	Query  map[string]string
	Header map[string]string // lower-cased names, trimmed values
	Body   []byte
	Form   map[string]string // set only for url-encoded form bodies

	// Complete is false when the headers parsed but the declared body has
	// not fully arrived yet.
	Complete bool
}

// Parse attempts to assemble a request from buf. Until the blank-line
// header terminator shows up the buffer is treated as a prefix of a valid
// request and ErrIncompleteRequest is returned; full validation only runs
// once the terminator is present.
func Parse(buf []byte) (*ParsedRequest, error) {
	head, rest, found := bytes.Cut(buf, []byte("\r\n\r\n"))
	if !found {
		return nil, ErrIncompleteRequest
	}
	lines := strings.Split(string(head), "\r\n")
	req := &ParsedRequest{Header: make(map[string]string)}
	if err := parseRequestLine(lines[0], req); err != nil {
		return nil, err
	}
	for _, line := range lines[1:] {
		name, value, found := strings.Cut(line, ":")
		if !found {
			return nil, ErrMalformedHeaderLine
		}
		req.Header[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}
	if _, found := req.Header["host"]; !found {
		return nil, ErrMissingHost
	}

	declared := 0
	if cl, found := req.Header["content-length"]; found {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 {
			return nil, ErrContentLengthNaN
		}
		declared = n
	}
	switch {
	case len(rest) > declared:
		return nil, ErrTooMuchData
	case len(rest) < declared:
		// Well-formed so far; the caller keeps reading body bytes.
		return req, nil
	}
	if declared > 0 {
		req.Body = append([]byte(nil), rest...)
		if strings.HasPrefix(strings.ToLower(req.Header["content-type"]), formContentType) {
			req.Form = parsePairs(string(req.Body))
		}
	}
	req.Complete = true
	return req, nil
}

func parseRequestLine(line string, req *ParsedRequest) error {
	parts := strings.Split(line, " ")
	if len(parts) != 3 || parts[2] != "HTTP/1.1" {
		return ErrMalformedRequestLine
	}
	method, target := parts[0], parts[1]
	if !knownMethods[method] || !strings.HasPrefix(target, "/") {
		return ErrMalformedRequestLine
	}
	req.Method = strings.ToLower(method)
	req.Target = target

	rawPath := target[1:]
	req.Query = make(map[string]string)
	if i := strings.IndexByte(rawPath, '?'); i >= 0 {
		rawQuery := rawPath[i+1:]
		rawPath = rawPath[:i]
		if j := strings.IndexByte(rawQuery, '#'); j >= 0 {
			rawQuery = rawQuery[:j]
		}
		req.Query = parsePairs(rawQuery)
	}
	if decoded, err := url.PathUnescape(rawPath); err == nil {
		rawPath = decoded
	}
	req.Path = rawPath
	return nil
}

// parsePairs decodes &-separated key[=value] pairs. The last occurrence of
// a key wins; a bare key maps to the empty string.
func parsePairs(s string) map[string]string {
	pairs := make(map[string]string)
	for _, kv := range strings.Split(s, "&") {
		if kv == "" {
			continue
		}
		k, v, _ := strings.Cut(kv, "=")
		pairs[unescape(k)] = unescape(v)
	}
	return pairs
}

func unescape(s string) string {
	u, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return u
}
