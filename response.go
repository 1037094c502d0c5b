package restd

import (
	"fmt"
	"strings"

	"github.com/Overv/restd/internal/http1"
)

// Response is what a handler (or the framework's own error path) hands
// back for serialization. It is consumed exactly once.
type Response struct {
	status int
	body   []byte
	header Header
}

// NewResponse builds a response with the given status and a body
// stringified from an arbitrary value. A nil body yields an empty one.
func NewResponse(status int, body interface{}) *Response {
	r := &Response{status: status, header: Header{}}
	if body != nil {
		r.body = []byte(fmt.Sprint(body))
	}
	return r
}

// NewStatusResponse builds a bodyless response; the framework's 400 and
// 500 paths use it.
func NewStatusResponse(status int) *Response {
	return NewResponse(status, nil)
}

func (r *Response) Status() int {
	return r.status
}

func (r *Response) Body() []byte {
	return r.body
}

// SetHeader records a header override. Names with a colon or space and
// values that trim to empty are rejected. Content-Length, Content-Encoding
// and Connection are computed by the serializer, so attempts to set them
// are silently ignored.
func (r *Response) SetHeader(name, value string) error {
	if strings.ContainsAny(name, ": ") {
		return ErrInvalidHeaderName
	}
	if strings.TrimSpace(value) == "" {
		return ErrInvalidHeaderValue
	}
	switch strings.ToLower(name) {
	case "content-length", "content-encoding", "connection":
		return nil
	}
	r.header.Set(name, value)
	return nil
}

// serialize renders the response for the request it answers. A nil request
// means the request never parsed, which forces Connection: close.
func (r *Response) serialize(req *Request) []byte {
	keepAlive, head, acceptsGzip := false, false, false
	if req != nil {
		keepAlive = req.KeepAlive()
		head = req.Method == "head"
		acceptsGzip = req.AcceptsGzip()
	}
	return http1.Serialize(r.status, r.header, r.body, keepAlive, head, acceptsGzip)
}
