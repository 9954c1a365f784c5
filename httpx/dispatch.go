package httpx

// ErrorPages renders canned error responses. The core calls it once per
// not-found or fault outcome and never inspects the result.
type ErrorPages interface {
	Render(code int, message, detail string, debug bool) *Response
}

// ErrorPagesFunc adapts a function to ErrorPages.
type ErrorPagesFunc func(code int, message, detail string, debug bool) *Response

func (f ErrorPagesFunc) Render(code int, message, detail string, debug bool) *Response {
	return f(code, message, detail, debug)
}

// PlainPages renders the message as a text body with no detail. It is used
// when no ErrorPages is configured.
var PlainPages = ErrorPagesFunc(func(code int, message, detail string, debug bool) *Response {
	body := message
	if debug && detail != "" {
		body += "\n\n" + detail
	}
	return Text(body, code)
})

// Dispatcher resolves a decoded request to a route and runs it through the
// middleware chain. Router and Chain must not be modified while serving.
type Dispatcher struct {
	Router *Router
	Chain  *Chain
	Pages  ErrorPages
	Debug  bool
}

func (d *Dispatcher) pages() ErrorPages {
	if d.Pages == nil {
		return PlainPages
	}
	return d.Pages
}

// Match resolves r against the route table. On a miss it returns a
// *RouteNotFoundError carrying the request method and path.
func (d *Dispatcher) Match(r *Request) (*Route, Params, error) {
	if d.Router != nil {
		if rt, p, ok := d.Router.Resolve(r.Method, r.PathOnly()); ok {
			return rt, p, nil
		}
	}
	return nil, nil, &RouteNotFoundError{Method: r.Method, Path: r.Path}
}

// Dispatch produces the response for r. A miss is rendered as a 404 page.
// Errors from handlers or middleware are returned unrecovered; panics are
// left for the connection loop.
func (d *Dispatcher) Dispatch(r *Request) (*Response, error) {
	rt, params, err := d.Match(r)
	if err != nil {
		return d.pages().Render(404, "Not Found", err.Error(), d.Debug), nil
	}
	if rt.CORS != nil {
		r.CORS = rt.CORS
	}
	r = WithContext(r, withRoute(r.Context(), rt))

	terminal := func(r *Request) (*Response, error) {
		res, err := rt.Handler.Serve(r, params)
		if err != nil {
			return nil, &HandlerFault{Route: rt.Name, Err: err}
		}
		return Coerce(res), nil
	}
	res, err := d.Chain.Run(r, terminal)
	if err != nil {
		return nil, err
	}
	return Coerce(res), nil
}
