package httpx

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/valyala/bytebufferpool"

	"dqx0.com/go/citra/httpx/internal/http1"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeHTML = "text/html; charset=utf-8"
)

// BodyKind tags which field of Body is in use.
type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyBytes
	BodyText
	BodyJSON
)

func (k BodyKind) String() string {
	switch k {
	case BodyBytes:
		return "bytes"
	case BodyText:
		return "text"
	case BodyJSON:
		return "json"
	default:
		return "none"
	}
}

// Body is a response body: raw bytes, UTF-8 text or a JSON-serializable value.
type Body struct {
	Kind  BodyKind
	Bytes []byte
	Text  string
	Value any
}

// Response is a handler result ready to be encoded onto the wire.
type Response struct {
	StatusCode int
	Header     Header
	Body       Body
}

// Response implements Responder.
func (r *Response) Response() *Response { return r }

// Text returns a text/html response.
func Text(s string, status int) *Response {
	return &Response{StatusCode: status, Body: Body{Kind: BodyText, Text: s}}
}

// Bytes returns a response carrying b verbatim, without an inferred Content-Type.
func Bytes(b []byte, status int) *Response {
	return &Response{StatusCode: status, Body: Body{Kind: BodyBytes, Bytes: b}}
}

// JSON returns a response whose body is v serialized as JSON.
func JSON(v any, status int) *Response {
	return &Response{StatusCode: status, Body: Body{Kind: BodyJSON, Value: v}}
}

// Empty returns a bodiless response.
func Empty(status int) *Response {
	return &Response{StatusCode: status}
}

// Responder is anything a handler may return in place of a *Response.
// Coerce is the single conversion point.
type Responder interface {
	Response() *Response
}

// String is a handler result coerced to a 200 text response.
type String string

func (s String) Response() *Response { return Text(string(s), 200) }

// Raw is a handler result coerced to a 200 raw-bytes response.
type Raw []byte

func (b Raw) Response() *Response { return Bytes([]byte(b), 200) }

// Structured is a handler result coerced to a 200 JSON response.
type Structured struct{ V any }

func (s Structured) Response() *Response { return JSON(s.V, 200) }

// Coerce converts a handler result to a canonical *Response. A nil result, or
// a Responder yielding nil, becomes an empty 200.
func Coerce(res Responder) *Response {
	if res == nil {
		return Empty(200)
	}
	out := res.Response()
	if out == nil {
		return Empty(200)
	}
	if out.StatusCode == 0 {
		out.StatusCode = 200
	}
	return out
}

func (r *Response) encodeBody() ([]byte, error) {
	switch r.Body.Kind {
	case BodyJSON:
		b, err := json.Marshal(r.Body.Value)
		if err != nil {
			return nil, fmt.Errorf("httpx: encode json body: %w", err)
		}
		return b, nil
	case BodyText:
		return []byte(r.Body.Text), nil
	case BodyBytes:
		return r.Body.Bytes, nil
	default:
		return nil, nil
	}
}

// Fields returns the header fields that Encode writes: the response's own
// fields, an inferred Content-Type when none was set, and a Content-Length
// computed from bodyLen replacing any caller-set value.
func (r *Response) Fields(bodyLen int) []http1.Field {
	h := r.Header.clone()
	if !h.Has("Content-Type") {
		switch r.Body.Kind {
		case BodyJSON:
			h.Set("Content-Type", contentTypeJSON)
		case BodyText:
			h.Set("Content-Type", contentTypeHTML)
		}
	}
	h.Set("Content-Length", strconv.Itoa(bodyLen))
	return h.fields
}

var encodePool bytebufferpool.Pool

// Encode serializes r to HTTP/1.1 wire bytes. r is not modified, so encoding
// the same response twice yields identical output. The only failure is a
// structured body that cannot be marshaled.
func (r *Response) Encode() ([]byte, error) {
	body, err := r.encodeBody()
	if err != nil {
		return nil, err
	}
	status := r.StatusCode
	if status == 0 {
		status = 200
	}
	bb := encodePool.Get()
	defer encodePool.Put(bb)
	bb.B = http1.AppendResponse(bb.B[:0], status, r.Fields(len(body)), body)
	return append([]byte(nil), bb.B...), nil
}
