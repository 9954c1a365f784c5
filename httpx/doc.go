// Package httpx is a small HTTP/1.1 request pipeline for development
// servers: one request per connection, decoded from a single bounded read,
// routed against an ordered pattern table, passed through a middleware
// chain and written back with Connection closed afterwards.
//
// Highlights
//   - Router: <name> placeholders, first-registered-wins matching, reverse
//     lookup by route name.
//   - Chain: middleware stages run in registration order and may
//     short-circuit.
//   - Server: goroutine per connection, panics and handler errors turned
//     into 500 pages at a single boundary, logging/metrics hooks.
//
// Quick start:
//
//	rt := httpx.NewRouter()
//	rt.Get("/users/<id>", func(r *httpx.Request, p httpx.Params) (httpx.Responder, error) {
//	    return httpx.Structured{V: map[string]string{"id": p["id"]}}, nil
//	}, httpx.WithName("user_detail"))
//	s := &httpx.Server{Addr: ":8000", Dispatcher: &httpx.Dispatcher{Router: rt, Chain: &httpx.Chain{}}}
//	if err := s.ListenAndServe(); err != nil { log.Fatal(err) }
//
// Keep-alive, chunked transfer encoding, TLS and streaming bodies are not
// supported.
package httpx
