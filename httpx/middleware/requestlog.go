package middleware

import (
	"time"

	"dqx0.com/go/citra/httpx"
	"dqx0.com/go/citra/internal/obs"
)

// RequestLog returns a stage that traces each request through the chain at
// debug level: once on entry with the matched route, once on exit with the
// status or fault.
func RequestLog(logger obs.Logger) httpx.Middleware {
	logger = obs.Or(logger)
	return httpx.MiddlewareFunc(func(r *httpx.Request, next httpx.Next) (*httpx.Response, error) {
		route := "-"
		if rt, ok := httpx.RouteFrom(r.Context()); ok {
			route = rt.Name
		}
		id, _ := httpx.RequestIDFrom(r.Context())
		logger.Logf(obs.Debug, "req %s: -> %s %s route=%s", id, r.Method, r.Path, route)
		start := time.Now()
		res, err := next(r)
		if err != nil {
			logger.Logf(obs.Debug, "req %s: <- fault after %v: %v", id, time.Since(start), err)
			return res, err
		}
		status := 200
		if res != nil {
			status = res.StatusCode
		}
		logger.Logf(obs.Debug, "req %s: <- %d after %v", id, status, time.Since(start))
		return res, nil
	})
}
