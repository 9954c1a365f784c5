package httpx

import (
	"fmt"
	"reflect"
	"regexp"
	"runtime"
	"strings"
)

// Params holds the named path parameters captured by a route.
type Params map[string]string

// Handler serves a matched request. Returned errors are handler faults.
type Handler interface {
	Serve(r *Request, p Params) (Responder, error)
}

type HandlerFunc func(r *Request, p Params) (Responder, error)

func (f HandlerFunc) Serve(r *Request, p Params) (Responder, error) {
	return f(r, p)
}

type segment struct {
	literal string
	capture string // placeholder name; empty for literal segments
}

// Route binds a method and compiled path pattern to a handler.
// Routes are immutable after registration.
type Route struct {
	Method  string
	Pattern string
	Name    string
	Handler Handler
	CORS    *CORSPolicy

	segments []segment
	re       *regexp.Regexp
}

var placeholder = regexp.MustCompile(`<(\w+)>`)

// compile splits pattern into literal and capture segments and builds the
// anchored matcher once.
func compile(pattern string) ([]segment, *regexp.Regexp) {
	var segs []segment
	var expr strings.Builder
	expr.WriteByte('^')
	last := 0
	for _, m := range placeholder.FindAllStringSubmatchIndex(pattern, -1) {
		if m[0] > last {
			lit := pattern[last:m[0]]
			segs = append(segs, segment{literal: lit})
			expr.WriteString(regexp.QuoteMeta(lit))
		}
		name := pattern[m[2]:m[3]]
		segs = append(segs, segment{capture: name})
		expr.WriteString("(?P<" + name + ">[^/]+)")
		last = m[1]
	}
	if last < len(pattern) {
		segs = append(segs, segment{literal: pattern[last:]})
		expr.WriteString(regexp.QuoteMeta(pattern[last:]))
	}
	expr.WriteByte('$')
	return segs, regexp.MustCompile(expr.String())
}

func (rt *Route) match(path string) (Params, bool) {
	m := rt.re.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	p := Params{}
	for i, name := range rt.re.SubexpNames() {
		if name != "" {
			p[name] = m[i]
		}
	}
	return p, true
}

// Placeholders returns the capture names of the pattern in order.
func (rt *Route) Placeholders() []string {
	var out []string
	for _, s := range rt.segments {
		if s.capture != "" {
			out = append(out, s.capture)
		}
	}
	return out
}

// RouteOption customizes a route at registration.
type RouteOption func(*Route)

// WithName sets the reverse-lookup name.
func WithName(name string) RouteOption {
	return func(rt *Route) { rt.Name = name }
}

// WithCORS attaches a CORS policy consulted by the CORS middleware.
func WithCORS(p CORSPolicy) RouteOption {
	return func(rt *Route) { rt.CORS = &p }
}

// Router is an ordered route table. Register all routes before serving;
// after that it is read concurrently without locking.
type Router struct {
	routes []*Route
	named  map[string]*Route
}

func NewRouter() *Router {
	return &Router{named: make(map[string]*Route)}
}

// Handle registers h for method and path. A pattern segment written as
// <name> captures one or more non-slash characters. The route name defaults
// to the handler's function name; registering a name twice silently points
// it at the later pattern.
func (rt *Router) Handle(method, path string, h Handler, opts ...RouteOption) *Route {
	if h == nil {
		panic("httpx: nil handler passed to Handle")
	}
	segs, re := compile(path)
	r := &Route{
		Method:   method,
		Pattern:  path,
		Handler:  h,
		segments: segs,
		re:       re,
	}
	for _, o := range opts {
		o(r)
	}
	if r.Name == "" {
		r.Name = handlerName(h, method, path)
	}
	if rt.named == nil {
		rt.named = make(map[string]*Route)
	}
	rt.routes = append(rt.routes, r)
	rt.named[r.Name] = r
	return r
}

func (rt *Router) Get(path string, h HandlerFunc, opts ...RouteOption) *Route {
	return rt.Handle("GET", path, h, opts...)
}

func (rt *Router) Post(path string, h HandlerFunc, opts ...RouteOption) *Route {
	return rt.Handle("POST", path, h, opts...)
}

func (rt *Router) Put(path string, h HandlerFunc, opts ...RouteOption) *Route {
	return rt.Handle("PUT", path, h, opts...)
}

func (rt *Router) Delete(path string, h HandlerFunc, opts ...RouteOption) *Route {
	return rt.Handle("DELETE", path, h, opts...)
}

// Resolve returns the first route, in registration order, whose method
// equals method and whose pattern matches path (query excluded).
// Registration order is the only tie-break between overlapping patterns.
func (rt *Router) Resolve(method, path string) (*Route, Params, bool) {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	for _, r := range rt.routes {
		if r.Method != method {
			continue
		}
		if p, ok := r.match(path); ok {
			return r, p, true
		}
	}
	return nil, nil, false
}

// Reverse builds a path from the route registered under name, replacing each
// <key> with fmt.Sprint(params[key]). Placeholders without a param are left
// in place. Substituted values are inserted verbatim, never re-expanded.
func (rt *Router) Reverse(name string, params map[string]any) (string, error) {
	r, ok := rt.named[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownRouteName, name)
	}
	var b strings.Builder
	for _, seg := range r.segments {
		if seg.capture == "" {
			b.WriteString(seg.literal)
			continue
		}
		if v, ok := params[seg.capture]; ok {
			b.WriteString(fmt.Sprint(v))
		} else {
			b.WriteString("<" + seg.capture + ">")
		}
	}
	return b.String(), nil
}

// Routes returns a copy of the table in registration order.
func (rt *Router) Routes() []*Route {
	return append([]*Route(nil), rt.routes...)
}

func handlerName(h Handler, method, path string) string {
	if f, ok := h.(HandlerFunc); ok {
		if fn := runtime.FuncForPC(reflect.ValueOf(f).Pointer()); fn != nil {
			name := fn.Name()
			if i := strings.LastIndexByte(name, '.'); i >= 0 {
				name = name[i+1:]
			}
			if !anonymous(name) {
				return name
			}
		}
	}
	return method + " " + path
}

// anonymous reports compiler-generated closure names (func1, 2 in func1.2).
func anonymous(name string) bool {
	name = strings.TrimPrefix(name, "func")
	if name == "" {
		return true
	}
	for i := 0; i < len(name); i++ {
		if name[i] < '0' || name[i] > '9' {
			return false
		}
	}
	return true
}
