package httpx

import (
	"strings"

	"dqx0.com/go/citra/httpx/internal/http1"
)

// Header is an ordered set of response header fields. Lookups are
// case-insensitive; the first spelling used for a name is kept on the wire.
type Header struct {
	fields []http1.Field
}

func (h *Header) index(key string) int {
	for i, f := range h.fields {
		if strings.EqualFold(f.Name, key) {
			return i
		}
	}
	return -1
}

func (h *Header) Get(key string) string {
	if h == nil {
		return ""
	}
	if i := h.index(key); i >= 0 {
		return h.fields[i].Value
	}
	return ""
}

func (h *Header) Has(key string) bool {
	return h != nil && h.index(key) >= 0
}

// Set replaces the value of key in place, or appends it.
func (h *Header) Set(key, value string) {
	if i := h.index(key); i >= 0 {
		h.fields[i].Value = value
		for j := len(h.fields) - 1; j > i; j-- {
			if strings.EqualFold(h.fields[j].Name, key) {
				h.fields = append(h.fields[:j], h.fields[j+1:]...)
			}
		}
		return
	}
	h.fields = append(h.fields, http1.Field{Name: key, Value: value})
}

// Add appends a field even if key is already present.
func (h *Header) Add(key, value string) {
	h.fields = append(h.fields, http1.Field{Name: key, Value: value})
}

func (h *Header) Del(key string) {
	out := h.fields[:0]
	for _, f := range h.fields {
		if !strings.EqualFold(f.Name, key) {
			out = append(out, f)
		}
	}
	h.fields = out
}

func (h *Header) Len() int {
	if h == nil {
		return 0
	}
	return len(h.fields)
}

// Each calls fn for every field in insertion order.
func (h *Header) Each(fn func(name, value string)) {
	if h == nil {
		return
	}
	for _, f := range h.fields {
		fn(f.Name, f.Value)
	}
}

func (h *Header) clone() Header {
	if h == nil {
		return Header{}
	}
	return Header{fields: append([]http1.Field(nil), h.fields...)}
}
