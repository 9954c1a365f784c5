package main

import (
	"io"
	"net"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dqx0.com/go/citra/internal/config"
	"dqx0.com/go/citra/internal/obs"
)

func serveOne(t *testing.T, cfg *config.Config, raw string) string {
	t.Helper()
	srv := newServer(cfg, obs.NopLogger{}, obs.NopMeter{})
	client, server := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.ServeConn(server)
	}()
	_ = client.SetDeadline(time.Now().Add(5 * time.Second))
	_, err := client.Write([]byte(raw))
	require.NoError(t, err)
	out, err := io.ReadAll(client)
	require.NoError(t, err)
	<-done
	return string(out)
}

func TestDemoRoutes(t *testing.T) {
	cfg := config.Default()
	cases := []struct {
		name   string
		raw    string
		status string
		body   string
		cors   bool
	}{
		{"home", "GET / HTTP/1.1\r\n\r\n", "200 OK", "Welcome to citra", true},
		{"user", "GET /users/42 HTTP/1.1\r\n\r\n", "200 OK", `{"id":"42","url":"/users/42"}`, true},
		{"url for", "GET /url/user_detail?id=7 HTTP/1.1\r\n\r\n", "200 OK", "/users/7", true},
		{"url unknown", "GET /url/nope HTTP/1.1\r\n\r\n", "404 Not Found", "no route named nope", true},
		{"divide", "GET /divide?a=9&b=3 HTTP/1.1\r\n\r\n", "200 OK", `{"result":3}`, true},
		{"divide bad", "GET /divide?a=x&b=3 HTTP/1.1\r\n\r\n", "400 Bad Request", "a must be an integer", true},
		{"divide by zero", "GET /divide?a=1&b=0 HTTP/1.1\r\n\r\n", "500 Internal Server Error", "An unexpected error occurred.", false},
		{"missing", "GET /missing HTTP/1.1\r\n\r\n", "404 Not Found", "<title>404 Not Found</title>", false},
		{"echo form", "POST /echo HTTP/1.1\r\nContent-Type: application/x-www-form-urlencoded\r\n\r\nname=ada&lang=go",
			"200 OK", `"form":{"lang":["go"],"name":["ada"]}`, true},
		{"echo json", "POST /echo HTTP/1.1\r\nContent-Type: application/json\r\n\r\n{\"n\":1}", "200 OK", `"json":{"n":1}`, true},
		{"echo bad json", "POST /echo HTTP/1.1\r\nContent-Type: application/json\r\n\r\n{", "400 Bad Request", "invalid JSON body", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := serveOne(t, cfg, tc.raw)
			assert.True(t, strings.HasPrefix(out, "HTTP/1.1 "+tc.status+"\r\n"), out)
			assert.Contains(t, out, tc.body)
			// faults and misses are rendered outside the chain
			assert.Equal(t, tc.cors, strings.Contains(out, "Access-Control-Allow-Origin: *"))
		})
	}
}

func TestDemoRoutes_EchoCORSOverride(t *testing.T) {
	out := serveOne(t, config.Default(), "POST /echo HTTP/1.1\r\n\r\n")
	assert.Contains(t, out, "Access-Control-Allow-Methods: POST\r\n")
}

func TestDemoRoutes_DebugShowsTrace(t *testing.T) {
	cfg := config.Default()
	cfg.Debug = true
	out := serveOne(t, cfg, "GET /divide?a=1&b=0 HTTP/1.1\r\n\r\n")
	assert.Contains(t, out, "Debug Console")
	assert.Contains(t, out, "integer divide by zero")
}

func TestDemoRoutes_Auth(t *testing.T) {
	cfg := config.Default()
	cfg.Auth.Tokens = []string{"tok"}
	cfg.Auth.Public = []string{"home"}

	assert.Contains(t, serveOne(t, cfg, "GET / HTTP/1.1\r\n\r\n"), "200 OK")
	assert.Contains(t, serveOne(t, cfg, "GET /users/1 HTTP/1.1\r\n\r\n"), "401 Unauthorized")
	assert.Contains(t, serveOne(t, cfg, "GET /users/1 HTTP/1.1\r\nAuthorization: Bearer tok\r\n\r\n"), "200 OK")
}

func TestDemoRoutes_RateLimit(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimit.RPS = 0.0001
	cfg.RateLimit.Burst = 1
	srv := newServer(cfg, obs.NopLogger{}, obs.NopMeter{})
	codes := make([]string, 0, 2)
	for i := 0; i < 2; i++ {
		client, server := net.Pipe()
		go srv.ServeConn(server)
		_, _ = client.Write([]byte("GET / HTTP/1.1\r\n\r\n"))
		out, _ := io.ReadAll(client)
		codes = append(codes, strings.SplitN(string(out), "\r\n", 2)[0])
	}
	assert.Equal(t, []string{"HTTP/1.1 200 OK", "HTTP/1.1 429 Too Many Requests"}, codes)
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "citra.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\ndebug: false\n"), 0o600))
	t.Setenv("CITRA_PORT", "9100")

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--config", path,
		"--env-file", filepath.Join(dir, "none.env"),
		"--debug",
	}))
	opts := &options{configFile: path, envFile: filepath.Join(dir, "none.env"), debug: true}
	cfg, err := loadConfig(cmd, opts)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port, "env beats file")
	assert.True(t, cfg.Debug, "flag beats file")

	require.NoError(t, cmd.ParseFlags([]string{"--addr", "0.0.0.0:9200"}))
	opts.addr = "0.0.0.0:9200"
	cfg, err = loadConfig(cmd, opts)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9200", cfg.Addr(), "flag beats env")
}

func TestMetricsMux(t *testing.T) {
	reg := prometheus.NewRegistry()
	meter := obs.NewPromMeter(reg, "citra")
	meter.Counter("requests_total", 1, obs.Label{Key: "method", Value: "GET"}, obs.Label{Key: "status", Value: "200"})

	rec := httptest.NewRecorder()
	metricsMux(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `citra_requests_total{method="GET",status="200"} 1`)
}
