package http1

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestSerializeStatusLineAndHeaders(t *testing.T) {
	out := string(Serialize(404, map[string]string{"x-request-id": "abc"}, []byte("nope"), false, false, false))
	if !strings.HasPrefix(out, "HTTP/1.1 404 Not Found\r\n") {
		t.Fatalf("status line wrong: %q", out)
	}
	for _, want := range []string{
		"Server: restd\r\n",
		"Content-Type: text/plain; charset=utf-8\r\n",
		"X-Request-Id: abc\r\n",
		"Content-Length: 4\r\n",
		"Connection: close\r\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
	if !strings.HasSuffix(out, "\r\n\r\nnope") {
		t.Fatalf("body not terminated correctly: %q", out)
	}
}

func TestSerializeKeepAlive(t *testing.T) {
	out := string(Serialize(200, nil, []byte("ok"), true, false, false))
	if !strings.Contains(out, "Connection: keep-alive\r\n") {
		t.Fatalf("missing keep-alive: %q", out)
	}
}

func TestSerializeOverridesComputedHeadersIgnored(t *testing.T) {
	hdr := map[string]string{
		"content-length":   "999",
		"content-encoding": "br",
		"connection":       "upgrade",
	}
	out := string(Serialize(200, hdr, []byte("hi"), false, false, false))
	if !strings.Contains(out, "Content-Length: 2\r\n") {
		t.Fatalf("content-length not computed: %q", out)
	}
	if strings.Contains(out, "br") || strings.Contains(out, "upgrade") {
		t.Fatalf("computed headers were overridden: %q", out)
	}
}

func TestSerializeHeadSuppressesBody(t *testing.T) {
	out := Serialize(200, nil, []byte("a body"), true, true, false)
	s := string(out)
	if !strings.Contains(s, "Content-Length: 0\r\n") {
		t.Fatalf("HEAD content-length not zero: %q", s)
	}
	if !bytes.HasSuffix(out, []byte("\r\n\r\n")) {
		t.Fatalf("HEAD response carries body bytes: %q", s)
	}
}

func TestSerializeEmptyBody(t *testing.T) {
	out := string(Serialize(500, nil, nil, false, false, true))
	if !strings.Contains(out, "Content-Length: 0\r\n") {
		t.Fatalf("empty body content-length: %q", out)
	}
	if strings.Contains(out, "Content-Encoding") {
		t.Fatalf("empty body must never be encoded: %q", out)
	}
}

func TestSerializeGzipWhenSmaller(t *testing.T) {
	body := []byte(strings.Repeat("compress me please ", 100))
	out := Serialize(200, nil, body, true, false, true)
	s := string(out)
	if !strings.Contains(s, "Content-Encoding: gzip\r\n") {
		t.Fatalf("gzip not applied: %q", s[:120])
	}
	i := bytes.Index(out, []byte("\r\n\r\n"))
	if i < 0 {
		t.Fatalf("no header terminator")
	}
	payload := out[i+4:]
	if len(payload) >= len(body) {
		t.Fatalf("compressed payload not smaller: %d vs %d", len(payload), len(body))
	}
	if !strings.Contains(s, fmt.Sprintf("Content-Length: %d\r\n", len(payload))) {
		t.Fatalf("content-length does not match compressed payload")
	}
	zr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	plain, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(plain, body) {
		t.Fatalf("round trip mismatch")
	}
}

func TestSerializeGzipSkippedWhenNotSmaller(t *testing.T) {
	body := []byte("hi")
	out := Serialize(200, nil, body, true, false, true)
	s := string(out)
	if strings.Contains(s, "Content-Encoding") {
		t.Fatalf("tiny body was compressed: %q", s)
	}
	if !strings.HasSuffix(s, "\r\n\r\nhi") {
		t.Fatalf("plain body not sent: %q", s)
	}
	if !strings.Contains(s, "Content-Length: 2\r\n") {
		t.Fatalf("plain content-length wrong: %q", s)
	}
}

func TestCanonicalHeaderKey(t *testing.T) {
	for in, want := range map[string]string{
		"content-type":    "Content-Type",
		"HOST":            "Host",
		"x-request-id":    "X-Request-Id",
		"accept-encoding": "Accept-Encoding",
	} {
		if got := canonicalHeaderKey(in); got != want {
			t.Fatalf("canonicalHeaderKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeHeaderValue(t *testing.T) {
	if got := sanitizeHeaderValue("a\r\nb\tc"); got != "ab\tc" {
		t.Fatalf("sanitize = %q", got)
	}
}
