package main

import (
	"errors"
	"html"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"dqx0.com/go/citra/httpx"
	"dqx0.com/go/citra/httpx/middleware"
	"dqx0.com/go/citra/internal/config"
	"dqx0.com/go/citra/internal/errpage"
	"dqx0.com/go/citra/internal/obs"
)

// newServer wires the demo routes and the configured middleware.
func newServer(cfg *config.Config, logger obs.Logger, meter obs.Meter) *httpx.Server {
	pages := errpage.Pages{}
	rt := newRouter()

	chain := &httpx.Chain{}
	chain.Use(middleware.RequestLog(logger))
	if cfg.RateLimit.RPS > 0 {
		chain.Use(middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst, pages))
	}
	if cfg.CORS.Enabled {
		chain.Use(middleware.CORS(httpx.CORSPolicy{
			Origin:  cfg.CORS.Origin,
			Methods: cfg.CORS.Methods,
			Headers: cfg.CORS.Headers,
		}))
	}
	if len(cfg.Auth.Tokens) > 0 {
		chain.Use(middleware.Auth(cfg.Auth.Tokens, pages, cfg.Auth.Public...))
	}

	return &httpx.Server{
		Addr:           cfg.Addr(),
		Dispatcher:     &httpx.Dispatcher{Router: rt, Chain: chain, Pages: pages, Debug: cfg.Debug},
		ReadBufferSize: cfg.Server.ReadBuffer.Int(),
		ReadTimeout:    cfg.Server.ReadTimeout.Duration(),
		WriteTimeout:   cfg.Server.WriteTimeout.Duration(),
		Debug:          cfg.Debug,
		Logger:         logger,
		Meter:          meter,
	}
}

func newRouter() *httpx.Router {
	rt := httpx.NewRouter()
	rt.Get("/", home, httpx.WithName("home"))
	rt.Get("/users/<id>", userDetail(rt), httpx.WithName("user_detail"))
	rt.Post("/echo", echo, httpx.WithCORS(httpx.CORSPolicy{Methods: []string{"POST"}}))
	rt.Get("/divide", divide)
	rt.Get("/url/<name>", urlFor(rt))
	return rt
}

func home(r *httpx.Request, p httpx.Params) (httpx.Responder, error) {
	return httpx.String("<h1>Welcome to citra</h1>"), nil
}

func userDetail(rt *httpx.Router) httpx.HandlerFunc {
	return func(r *httpx.Request, p httpx.Params) (httpx.Responder, error) {
		self, err := rt.Reverse("user_detail", map[string]any{"id": p["id"]})
		if err != nil {
			return nil, err
		}
		return httpx.Structured{V: map[string]string{"id": p["id"], "url": self}}, nil
	}
}

// echo returns the decoded form, query and JSON body of the request.
func echo(r *httpx.Request, p httpx.Params) (httpx.Responder, error) {
	out := map[string]any{"form": r.Form, "query": r.Query}
	if strings.Contains(r.Header["content-type"], "application/json") && len(r.Body) > 0 {
		var v any
		if err := json.Unmarshal(r.Body, &v); err != nil {
			return httpx.JSON(map[string]string{"error": "invalid JSON body"}, 400), nil
		}
		out["json"] = v
	}
	return httpx.Structured{V: out}, nil
}

// divide panics on b=0; the server turns that into a 500 page.
func divide(r *httpx.Request, p httpx.Params) (httpx.Responder, error) {
	a, err := strconv.Atoi(r.Query.Get("a"))
	if err != nil {
		return httpx.Text("a must be an integer", 400), nil
	}
	b, err := strconv.Atoi(r.Query.Get("b"))
	if err != nil {
		return httpx.Text("b must be an integer", 400), nil
	}
	return httpx.Structured{V: map[string]int{"result": a / b}}, nil
}

// urlFor reverses the named route using the query string as parameters.
func urlFor(rt *httpx.Router) httpx.HandlerFunc {
	return func(r *httpx.Request, p httpx.Params) (httpx.Responder, error) {
		params := make(map[string]any, len(r.Query))
		for k := range r.Query {
			params[k] = r.Query.Get(k)
		}
		path, err := rt.Reverse(p["name"], params)
		if errors.Is(err, httpx.ErrUnknownRouteName) {
			return httpx.Text("no route named "+html.EscapeString(p["name"]), 404), nil
		}
		if err != nil {
			return nil, err
		}
		return httpx.String(path), nil
	}
}
