package httpx

import "context"

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyRoute
)

// WithRequestID returns ctx carrying the per-connection request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// RequestIDFrom returns the request ID the server assigned, if any.
func RequestIDFrom(ctx context.Context) (string, bool) {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id, id != ""
}

// withRoute stores the matched route so middleware can inspect it.
func withRoute(ctx context.Context, rt *Route) context.Context {
	return context.WithValue(ctx, ctxKeyRoute, rt)
}

// RouteFrom returns the route matched for the request carrying ctx.
func RouteFrom(ctx context.Context) (*Route, bool) {
	rt, ok := ctx.Value(ctxKeyRoute).(*Route)
	return rt, ok && rt != nil
}
