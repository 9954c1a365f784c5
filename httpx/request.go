package httpx

import (
	"context"
	"strings"

	"dqx0.com/go/citra/httpx/internal/http1"
)

// Values maps a form or query key to its values in order of appearance.
type Values map[string][]string

// Get returns the last value for key, matching last-occurrence-wins parsing.
func (v Values) Get(key string) string {
	vv := v[key]
	if len(vv) == 0 {
		return ""
	}
	return vv[len(vv)-1]
}

// All returns every value for key.
func (v Values) All(key string) []string { return v[key] }

func (v Values) Has(key string) bool {
	_, ok := v[key]
	return ok
}

// CORSPolicy overrides the CORS headers emitted for a route. Empty fields
// fall back to the CORS middleware defaults.
type CORSPolicy struct {
	Origin  string
	Methods []string
	Headers []string
}

// Request represents a decoded HTTP/1.1 request.
//
// Header keys are lowercased and Body is never nil. The request is not
// modified after decoding except for CORS, which the dispatcher sets from
// the matched route.
type Request struct {
	Method     string
	Path       string
	Proto      string
	Header     map[string]string
	Body       []byte
	Query      Values
	Form       Values
	CORS       *CORSPolicy
	RemoteAddr string
	// RequestID is the server generated identifier for this request.
	RequestID string
	// Truncated reports a head that did not fit in the single read.
	Truncated bool
	ctx       context.Context
}

// ParseRequest decodes a single request from buf.
func ParseRequest(buf []byte) (*Request, error) {
	pr, err := http1.Parse(buf)
	if err != nil {
		return nil, err
	}
	return &Request{
		Method:    pr.Method,
		Path:      pr.RequestURI,
		Proto:     pr.Proto,
		Header:    pr.Header,
		Body:      pr.Body,
		Query:     Values(pr.Query),
		Form:      Values(pr.Form),
		Truncated: pr.Truncated,
	}, nil
}

// PathOnly returns Path without its query component.
func (r *Request) PathOnly() string {
	if i := strings.IndexByte(r.Path, '?'); i >= 0 {
		return r.Path[:i]
	}
	return r.Path
}

// Context returns the request's context. If nil, returns Background.
func (r *Request) Context() context.Context {
	if r == nil || r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// WithContext returns a shallow copy of r with its context changed to ctx.
func WithContext(r *Request, ctx context.Context) *Request {
	if r == nil {
		return nil
	}
	r2 := *r
	r2.ctx = ctx
	return &r2
}
