package middleware

import (
	"context"
	"crypto/subtle"
	"strings"

	"dqx0.com/go/citra/httpx"
)

type ctxKey int

const ctxKeyToken ctxKey = iota

// TokenFrom returns the bearer token a request was authenticated with.
func TokenFrom(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(ctxKeyToken).(string)
	return t, ok && t != ""
}

// Auth returns a stage that admits requests carrying one of tokens, either as
// "Authorization: Bearer <token>" or in X-API-Key. Routes whose name is listed
// in public skip the check. Rejected requests get a 401 page from pages
// (httpx.PlainPages if nil) and never reach later stages.
func Auth(tokens []string, pages httpx.ErrorPages, public ...string) httpx.Middleware {
	if pages == nil {
		pages = httpx.PlainPages
	}
	open := make(map[string]struct{}, len(public))
	for _, name := range public {
		open[name] = struct{}{}
	}
	return httpx.MiddlewareFunc(func(r *httpx.Request, next httpx.Next) (*httpx.Response, error) {
		if rt, ok := httpx.RouteFrom(r.Context()); ok {
			if _, ok := open[rt.Name]; ok {
				return next(r)
			}
		}
		tok := requestToken(r)
		if tok == "" || !known(tok, tokens) {
			return pages.Render(401, "Unauthorized Access", "Missing or invalid credentials.", false), nil
		}
		return next(httpx.WithContext(r, context.WithValue(r.Context(), ctxKeyToken, tok)))
	})
}

func requestToken(r *httpx.Request) string {
	auth := r.Header["authorization"]
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		if tok := strings.TrimSpace(auth[7:]); tok != "" {
			return tok
		}
	}
	return strings.TrimSpace(r.Header["x-api-key"])
}

// known compares in constant time per candidate.
func known(tok string, tokens []string) bool {
	found := 0
	for _, t := range tokens {
		found |= subtle.ConstantTimeCompare([]byte(tok), []byte(t))
	}
	return found == 1
}
