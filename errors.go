package restd

import (
	"errors"

	"github.com/Overv/restd/internal/http1"
)

var (
	// ErrInvalidHeaderName is returned by Response.SetHeader for names
	// containing a colon or space.
	ErrInvalidHeaderName = errors.New("restd: invalid header name")
	// ErrInvalidHeaderValue is returned by Response.SetHeader for values
	// that are empty after trimming.
	ErrInvalidHeaderValue = errors.New("restd: invalid header value")
)

// Parse failure categories, re-exported from the wire layer.
// ErrIncompleteRequest means "keep reading"; the rest are answered with a
// 400 and an unconditional connection close.
var (
	ErrIncompleteRequest    = http1.ErrIncompleteRequest
	ErrMalformedRequestLine = http1.ErrMalformedRequestLine
	ErrMalformedHeaderLine  = http1.ErrMalformedHeaderLine
	ErrMissingHost          = http1.ErrMissingHost
	ErrContentLengthNaN     = http1.ErrContentLengthNaN
	ErrTooMuchData          = http1.ErrTooMuchData
)
