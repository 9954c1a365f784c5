package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"dqx0.com/go/citra/internal/obs"
)

const defaultReadBufferSize = 1024

// connState is the position of a connection task in its lifecycle.
type connState int

const (
	stateReading connState = iota
	stateDispatching
	stateWriting
	stateError
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateReading:
		return "reading"
	case stateDispatching:
		return "dispatching"
	case stateWriting:
		return "writing"
	case stateError:
		return "error"
	default:
		return "closed"
	}
}

// Server accepts connections and handles exactly one request on each.
type Server struct {
	Addr       string
	Dispatcher *Dispatcher
	// ReadBufferSize bounds the single read taken from each connection.
	// A request head larger than this is parsed from what fits.
	ReadBufferSize int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	// Pages renders fault responses; defaults to the dispatcher's pages.
	Pages  ErrorPages
	Debug  bool
	Logger obs.Logger
	Meter  obs.Meter

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	closed    bool
	conns     sync.WaitGroup
}

func (s *Server) ListenAndServe() error {
	addr := s.Addr
	if addr == "" {
		addr = ":8000"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on l and runs each in its own goroutine. It
// never waits for connection tasks. Serve returns ErrServerClosed after
// Shutdown.
func (s *Server) Serve(l net.Listener) error {
	if !s.track(l) {
		l.Close()
		return ErrServerClosed
	}
	defer s.untrack(l)
	defer l.Close()

	s.logf(obs.Warn, "this is a development server; do not use it in production")
	s.logf(obs.Info, "listening on %s", l.Addr())

	var backoff time.Duration
	for {
		c, err := l.Accept()
		if err != nil {
			if s.shuttingDown() {
				return ErrServerClosed
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = nextBackoff(backoff)
				s.logf(obs.Warn, "accept error: %v; retrying in %v", err, backoff)
				time.Sleep(backoff)
				continue
			}
			return err
		}
		backoff = 0
		if !s.startConn() {
			c.Close()
			return ErrServerClosed
		}
		go func() {
			defer s.conns.Done()
			s.ServeConn(c)
		}()
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		d = time.Second
	}
	return d
}

// Shutdown closes all listeners and waits for in-flight connections to
// finish or ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	for l := range s.listeners {
		l.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) track(l net.Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if s.listeners == nil {
		s.listeners = make(map[net.Listener]struct{})
	}
	s.listeners[l] = struct{}{}
	return true
}

func (s *Server) untrack(l net.Listener) {
	s.mu.Lock()
	delete(s.listeners, l)
	s.mu.Unlock()
}

// startConn adds an accepted connection to the in-flight group unless
// Shutdown has begun. Must hold s.mu across the check and Add.
func (s *Server) startConn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns.Add(1)
	return true
}

func (s *Server) shuttingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ServeConn handles one connection: a single bounded read, dispatch, one
// response write. c is closed exactly once on every path.
func (s *Server) ServeConn(c net.Conn) {
	defer c.Close()
	defer func() {
		if v := recover(); v != nil {
			s.logf(obs.Error, "conn: panic while rendering error response: %v", v)
		}
	}()
	start := time.Now()
	state := stateReading
	id := genID()

	if s.ReadTimeout > 0 {
		_ = c.SetReadDeadline(time.Now().Add(s.ReadTimeout))
	}
	buf := make([]byte, s.readBufferSize())
	n, err := c.Read(buf)

	var (
		req  *Request
		res  *Response
		body []byte
	)
	switch {
	case n > 0:
		state = stateDispatching
		req, res, body, err = s.handle(buf[:n], c.RemoteAddr(), id)
	case err == nil || errors.Is(err, io.EOF):
		// peer closed without sending anything
		return
	default:
		err = fmt.Errorf("httpx: read: %w", err)
	}
	if err != nil {
		state = stateError
		res = s.fault(err, id)
		if body, err = res.Encode(); err != nil {
			res = PlainPages.Render(500, "Internal Server Error", "", false)
			body, _ = res.Encode()
		}
	}

	state = stateWriting
	if s.WriteTimeout > 0 {
		_ = c.SetWriteDeadline(time.Now().Add(s.WriteTimeout))
	}
	if _, err := c.Write(body); err != nil {
		s.logf(obs.Debug, "conn %s: write: %v", id, err)
	}

	method, path := "-", "-"
	if req != nil {
		method, path = req.Method, req.Path
	}
	s.logf(obs.Info, "%s %s %d", method, path, res.StatusCode)
	s.logf(obs.Debug, "conn %s: %s after %s in %v", id, stateClosed, state, time.Since(start))
	s.observe(method, res.StatusCode, time.Since(start))
}

// handle decodes, dispatches and encodes one request. A panic anywhere
// below it is returned as *PanicError.
func (s *Server) handle(buf []byte, remote net.Addr, id string) (req *Request, res *Response, body []byte, err error) {
	defer func() {
		if v := recover(); v != nil {
			res, body, err = nil, nil, &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	req, err = ParseRequest(buf)
	if err != nil {
		return nil, nil, nil, err
	}
	req.RequestID = id
	if req.Truncated {
		s.logf(obs.Warn, "conn %s: request head exceeds %d byte read buffer; parsed what fit", id, len(buf))
	}
	if remote != nil {
		req.RemoteAddr = remote.String()
	}
	req = WithContext(req, WithRequestID(req.Context(), id))
	if s.Dispatcher == nil {
		return req, nil, nil, errors.New("httpx: server has no dispatcher")
	}
	if res, err = s.Dispatcher.Dispatch(req); err != nil {
		return req, nil, nil, err
	}
	if res == nil {
		res = Empty(200)
	}
	body, err = res.Encode()
	return req, res, body, err
}

// fault converts an unhandled error into a 500 page. Internal detail is
// only exposed when Debug is set.
func (s *Server) fault(err error, id string) *Response {
	var detail string
	var pe *PanicError
	if s.debug() {
		detail = err.Error()
		if errors.As(err, &pe) {
			detail += "\n" + string(pe.Stack)
		}
		s.logf(obs.Error, "conn %s: debug exception:\n%s", id, detail)
	} else {
		detail = "Something wrong on our side. Please try again later."
		s.logf(obs.Error, "conn %s: server error: %v", id, err)
	}
	res := s.pages().Render(500, "Internal Server Error", detail, s.debug())
	if res == nil {
		res = PlainPages.Render(500, "Internal Server Error", "", false)
	}
	return res
}

func (s *Server) pages() ErrorPages {
	if s.Pages != nil {
		return s.Pages
	}
	if s.Dispatcher != nil {
		return s.Dispatcher.pages()
	}
	return PlainPages
}

func (s *Server) debug() bool {
	return s.Debug || (s.Dispatcher != nil && s.Dispatcher.Debug)
}

func (s *Server) readBufferSize() int {
	if s.ReadBufferSize <= 0 {
		return defaultReadBufferSize
	}
	return s.ReadBufferSize
}

func (s *Server) logf(level obs.Level, format string, args ...interface{}) {
	obs.Or(s.Logger).Logf(level, format, args...)
}

func (s *Server) observe(method string, status int, d time.Duration) {
	if s.Meter == nil {
		return
	}
	s.Meter.Counter("requests_total", 1,
		obs.Label{Key: "method", Value: method},
		obs.Label{Key: "status", Value: strconv.Itoa(status)})
	s.Meter.Histogram("request_duration_seconds", d.Seconds(),
		obs.Label{Key: "method", Value: method})
}

// String is used in startup logs.
func (s *Server) String() string {
	routes := 0
	if s.Dispatcher != nil && s.Dispatcher.Router != nil {
		routes = len(s.Dispatcher.Router.routes)
	}
	return fmt.Sprintf("httpx.Server{addr=%s routes=%d debug=%t}", s.Addr, routes, s.debug())
}
