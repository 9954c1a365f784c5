package middleware

import (
	"strings"

	"dqx0.com/go/citra/httpx"
)

var (
	defaultCORSMethods = []string{"GET", "POST", "PUT", "DELETE"}
	defaultCORSHeaders = []string{"Content-Type", "Authorization"}
)

// CORS returns a stage that adds Access-Control-Allow-Origin, -Methods and
// -Headers to every response. Values come from the matched route's policy
// (Request.CORS) field by field, then from defaults, then from the built-in
// defaults: origin "*", GET/POST/PUT/DELETE and Content-Type/Authorization.
func CORS(defaults httpx.CORSPolicy) httpx.Middleware {
	if defaults.Origin == "" {
		defaults.Origin = "*"
	}
	if len(defaults.Methods) == 0 {
		defaults.Methods = defaultCORSMethods
	}
	if len(defaults.Headers) == 0 {
		defaults.Headers = defaultCORSHeaders
	}
	return httpx.MiddlewareFunc(func(r *httpx.Request, next httpx.Next) (*httpx.Response, error) {
		p := effectivePolicy(r.CORS, defaults)
		res, err := next(r)
		if err != nil {
			return nil, err
		}
		res = httpx.Coerce(res)
		res.Header.Set("Access-Control-Allow-Origin", p.Origin)
		res.Header.Set("Access-Control-Allow-Methods", strings.Join(p.Methods, ", "))
		res.Header.Set("Access-Control-Allow-Headers", strings.Join(p.Headers, ", "))
		return res, nil
	})
}

func effectivePolicy(route *httpx.CORSPolicy, defaults httpx.CORSPolicy) httpx.CORSPolicy {
	if route == nil {
		return defaults
	}
	p := defaults
	if route.Origin != "" {
		p.Origin = route.Origin
	}
	if len(route.Methods) > 0 {
		p.Methods = route.Methods
	}
	if len(route.Headers) > 0 {
		p.Headers = route.Headers
	}
	return p
}
