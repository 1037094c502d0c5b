// Package restd is a minimal HTTP/1.1 server library built directly on
// raw non-blocking sockets: a single-threaded reactor that accepts TCP
// connections, incrementally parses requests off the byte stream,
// dispatches them to registered handlers and serializes the responses.
//
// Highlights
//   - Readiness-based event loop: Iterate performs exactly one
//     non-blocking pass (accept, zero-wait poll, read, dispatch) and Loop
//     drives it forever, so callers can interleave other work.
//   - Wire-level HTTP semantics: partial-read request framing,
//     Content-Length body completion, URL and form decoding, keep-alive
//     with per-request and idle timeouts, gzip content negotiation.
//   - Handlers are plain functions; a returned error or a panic becomes a
//     500 without disturbing the reactor.
//   - Observability hooks: plug-in obs.Logger and obs.Meter.
//
// Quick start:
//
//	srv, err := restd.Bind(8080, 16)
//	if err != nil { log.Fatal(err) }
//	srv.Get("/hello", func(r *restd.Request) (*restd.Response, error) {
//	    return restd.NewResponse(200, "Hello, "+r.Query["name"]), nil
//	})
//	srv.Loop()
//
// Handlers run on the reactor goroutine: one that blocks stalls the whole
// server. Chunked request bodies, pipelining, trailers, HTTP/2 and TLS
// are out of scope.
package restd
