package middleware

import (
	"net"
	"sync"

	"golang.org/x/time/rate"

	"dqx0.com/go/citra/httpx"
)

const (
	defaultRPS   = 5
	defaultBurst = 10
)

type limiterPool struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	rps   float64
	burst int
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.m == nil {
		p.m = make(map[string]*rate.Limiter)
	}
	if l, ok := p.m[key]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(p.rps), p.burst)
	p.m[key] = l
	return l
}

func (p *limiterPool) Allow(key string) bool {
	return p.get(key).Allow()
}

// RateLimit returns a stage allowing rps requests per second with the given
// burst per client IP. Over-limit requests get a 429 page from pages
// (httpx.PlainPages if nil). Non-positive rps and burst use 5 and 10.
func RateLimit(rps float64, burst int, pages httpx.ErrorPages) httpx.Middleware {
	if rps <= 0 {
		rps = defaultRPS
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	if pages == nil {
		pages = httpx.PlainPages
	}
	pool := &limiterPool{rps: rps, burst: burst}
	return httpx.MiddlewareFunc(func(r *httpx.Request, next httpx.Next) (*httpx.Response, error) {
		if !pool.Allow(clientIP(r)) {
			res := pages.Render(429, "Too Many Requests", "Rate limit exceeded.", false)
			if res != nil {
				res.Header.Set("Retry-After", "1")
			}
			return res, nil
		}
		return next(r)
	})
}

func clientIP(r *httpx.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
