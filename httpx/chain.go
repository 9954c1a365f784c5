package httpx

// Next is the continuation handed to a middleware stage: the rest of the
// chain, ending in the route handler.
type Next func(r *Request) (*Response, error)

// Middleware transforms a request and its continuation into a response.
// A stage may return without calling next to short-circuit the chain.
type Middleware interface {
	Process(r *Request, next Next) (*Response, error)
}

type MiddlewareFunc func(r *Request, next Next) (*Response, error)

func (f MiddlewareFunc) Process(r *Request, next Next) (*Response, error) {
	return f(r, next)
}

// Chain is an ordered list of middleware stages. Stages run in the order
// they were added: the first is outermost.
type Chain struct {
	stages []Middleware
}

// Use appends stages to the chain.
func (c *Chain) Use(stages ...Middleware) *Chain {
	for _, m := range stages {
		if m == nil {
			panic("httpx: nil middleware passed to Use")
		}
	}
	c.stages = append(c.stages, stages...)
	return c
}

func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.stages)
}

// Then composes the stages around terminal into a single Next.
func (c *Chain) Then(terminal Next) Next {
	if c == nil {
		return terminal
	}
	next := terminal
	// Wrap in reverse so the first-registered stage runs outermost.
	for i := len(c.stages) - 1; i >= 0; i-- {
		next = wrap(c.stages[i], next)
	}
	return next
}

func wrap(m Middleware, next Next) Next {
	return func(r *Request) (*Response, error) {
		return m.Process(r, next)
	}
}

// Run passes r through the chain to terminal and returns the result as-is.
func (c *Chain) Run(r *Request, terminal Next) (*Response, error) {
	return c.Then(terminal)(r)
}
