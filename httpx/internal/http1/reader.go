package http1

import (
	"errors"
	"strings"
)

var (
	ErrMalformedRequestLine = errors.New("http1: malformed request line")
	ErrMalformedHeader      = errors.New("http1: malformed header")
)

const (
	crlf     = "\r\n"
	formType = "application/x-www-form-urlencoded"
)

// ParsedRequest is a minimal representation parsed from the wire.
// Header keys are lowercased; Body is never nil.
type ParsedRequest struct {
	Method     string
	RequestURI string
	Proto      string
	Header     map[string]string
	Body       []byte
	Query      map[string][]string
	Form       map[string][]string
	// Truncated is set when the buffer ended before the blank line that
	// terminates the head.
	Truncated bool
}

// Parse decodes one request from buf. buf is the result of a single bounded
// read; nothing beyond it is consulted.
func Parse(buf []byte) (*ParsedRequest, error) {
	lines := strings.Split(string(buf), crlf)

	parts := strings.Split(lines[0], " ")
	if len(parts) < 3 {
		return nil, ErrMalformedRequestLine
	}
	pr := &ParsedRequest{
		Method:     parts[0],
		RequestURI: parts[1],
		Proto:      parts[2],
		Header:     make(map[string]string),
		Body:       []byte{},
	}

	i := 1
	for ; i < len(lines) && lines[i] != ""; i++ {
		k, v, ok := splitHeader(lines[i])
		if !ok {
			return nil, ErrMalformedHeader
		}
		pr.Header[k] = v
	}
	if i >= len(lines) {
		pr.Truncated = true
	} else if i+1 < len(lines) {
		pr.Body = []byte(strings.Join(lines[i+1:], crlf))
	}

	pr.Query = map[string][]string{}
	if q := strings.IndexByte(pr.RequestURI, '?'); q >= 0 {
		pr.Query = ParseForm(pr.RequestURI[q+1:])
	}
	pr.Form = map[string][]string{}
	if len(pr.Body) > 0 && strings.Contains(pr.Header["content-type"], formType) {
		pr.Form = ParseForm(string(pr.Body))
	}
	return pr, nil
}

func splitHeader(line string) (string, string, bool) {
	i := strings.IndexByte(line, ':')
	if i <= 0 {
		return "", "", false
	}
	k := strings.ToLower(strings.TrimSpace(line[:i]))
	if k == "" {
		return "", "", false
	}
	return k, strings.TrimLeft(line[i+1:], " \t"), true
}

// ParseForm parses a URL-encoded form. Pairs with an empty value are
// dropped; invalid percent escapes are kept as literal text. Repeated keys
// keep every value in order of appearance.
func ParseForm(s string) map[string][]string {
	out := map[string][]string{}
	for s != "" {
		var pair string
		pair, s, _ = strings.Cut(s, "&")
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		val := unescape(v)
		if val == "" {
			continue
		}
		key := unescape(k)
		out[key] = append(out[key], val)
	}
	return out
}

// unescape decodes '+' and %XX; a '%' not followed by two hex digits is
// copied through unchanged.
func unescape(s string) string {
	if strings.IndexByte(s, '%') < 0 && strings.IndexByte(s, '+') < 0 {
		return s
	}
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			b = append(b, ' ')
		case c == '%' && i+2 < len(s) && ishex(s[i+1]) && ishex(s[i+2]):
			b = append(b, unhex(s[i+1])<<4|unhex(s[i+2]))
			i += 2
		default:
			b = append(b, c)
		}
	}
	return string(b)
}

func ishex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case c >= 'a':
		return c - 'a' + 10
	case c >= 'A':
		return c - 'A' + 10
	default:
		return c - '0'
	}
}
