package http1

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"sort"
	"strings"
)

// Default values for the computed Server and Content-Type headers. Callers
// override them through the extra header map.
const (
	DefaultServer      = "restd"
	DefaultContentType = "text/plain; charset=utf-8"
)

// Serialize renders one complete HTTP/1.1 response. hdr carries the
// caller's header overrides keyed by lower-cased name; Content-Length,
// Content-Encoding and Connection are always computed here and any
// override for them is discarded. head suppresses body bytes for HEAD
// requests, acceptsGzip enables compression when it actually pays off.
func Serialize(status int, hdr map[string]string, body []byte, keepAlive, head, acceptsGzip bool) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", status, ReasonPhrase(status))

	merged := map[string]string{
		"server":       DefaultServer,
		"content-type": DefaultContentType,
	}
	for k, v := range hdr {
		merged[strings.ToLower(k)] = v
	}
	delete(merged, "content-length")
	delete(merged, "content-encoding")
	delete(merged, "connection")

	// Sorted for deterministic output.
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\r\n", canonicalHeaderKey(k), sanitizeHeaderValue(merged[k]))
	}

	payload := body
	if head || len(body) == 0 {
		payload = nil
	} else if acceptsGzip {
		if z, smaller := gzipped(body); smaller {
			payload = z
			b.WriteString("Content-Encoding: gzip\r\n")
		}
	}
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(payload))
	if keepAlive {
		b.WriteString("Connection: keep-alive\r\n")
	} else {
		b.WriteString("Connection: close\r\n")
	}
	b.WriteString("\r\n")
	b.Write(payload)
	return b.Bytes()
}

// gzipped compresses body at the maximum level and reports whether the
// compressed form is strictly smaller than the original.
func gzipped(body []byte) ([]byte, bool) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, false
	}
	if _, err := zw.Write(body); err != nil {
		return nil, false
	}
	if err := zw.Close(); err != nil {
		return nil, false
	}
	if buf.Len() >= len(body) {
		return nil, false
	}
	return buf.Bytes(), true
}

// ReasonPhrase returns the standard reason for the status codes the
// framework emits itself; unknown codes get an empty reason.
func ReasonPhrase(code int) string {
	switch code {
	case 200:
		return "OK"
	case 400:
		return "Bad Request"
	case 404:
		return "Not Found"
	case 500:
		return "Internal Server Error"
	case 501:
		return "Not Implemented"
	default:
		return ""
	}
}

// canonicalHeaderKey capitalizes each hyphen-delimited segment. Small
// local canonicalizer to avoid importing textproto here.
func canonicalHeaderKey(s string) string {
	b := []byte(strings.ToLower(s))
	upper := true
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			if upper {
				b[i] = byte(c - 'a' + 'A')
			}
			upper = false
			continue
		}
		upper = c == '-'
	}
	return string(b)
}

func sanitizeHeaderValue(v string) string {
	if v == "" {
		return v
	}
	// Remove CR/LF and other control chars except HTAB.
	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c == '\r' || c == '\n' || c == 0x7f {
			continue
		}
		if c < 0x20 && c != '\t' {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
