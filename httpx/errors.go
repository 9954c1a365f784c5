package httpx

import (
	"errors"
	"fmt"

	"dqx0.com/go/citra/httpx/internal/http1"
)

var (
	ErrMalformedRequestLine = http1.ErrMalformedRequestLine
	ErrMalformedHeader      = http1.ErrMalformedHeader
	ErrRouteNotFound        = errors.New("httpx: route not found")
	ErrUnknownRouteName     = errors.New("httpx: unknown route name")
	ErrServerClosed         = errors.New("httpx: server closed")
)

// RouteNotFoundError is the dispatch outcome when no route matches.
// It is expected traffic, not a fault.
type RouteNotFoundError struct {
	Method string
	Path   string
}

func (e *RouteNotFoundError) Error() string {
	return fmt.Sprintf("Method: %s Request Path: %s not found.", e.Method, e.Path)
}

func (e *RouteNotFoundError) Is(target error) bool { return target == ErrRouteNotFound }

// HandlerFault wraps an error returned by a handler or middleware stage.
type HandlerFault struct {
	Route string
	Err   error
}

func (e *HandlerFault) Error() string {
	if e.Route == "" {
		return "httpx: handler fault: " + e.Err.Error()
	}
	return fmt.Sprintf("httpx: handler %q fault: %v", e.Route, e.Err)
}

func (e *HandlerFault) Unwrap() error { return e.Err }

// PanicError carries a value recovered from a panicking connection task.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("httpx: panic: %v", e.Value) }

// Unwrap exposes the panic value when it is itself an error (e.g. a runtime
// error such as integer divide by zero).
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
