package restd

import "strings"

// Handler produces a response for a parsed request. A returned error or a
// panic is converted to a 500 by the reactor; it never tears the reactor
// down.
type Handler func(*Request) (*Response, error)

// router maps lower-cased method -> exact path -> handler. Routes are
// registered before the loop starts and read-only while serving.
type router struct {
	routes map[string]map[string]Handler
}

func newRouter() *router {
	return &router{routes: make(map[string]map[string]Handler)}
}

// add registers h, silently replacing any previous handler for the same
// method and path. Paths are stored without their leading slash to match
// what the parser produces.
func (rt *router) add(method, path string, h Handler) {
	path = strings.TrimPrefix(path, "/")
	m := rt.routes[method]
	if m == nil {
		m = make(map[string]Handler)
		rt.routes[method] = m
	}
	m[path] = h
}

func (rt *router) lookup(method, path string) Handler {
	return rt.routes[method][path]
}
