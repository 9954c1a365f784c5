// Package config loads citrad settings from a YAML file, a .env file and
// CITRA_* environment variables, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	minReadBuffer = 64
	maxReadBuffer = 1 << 20
)

// Default returns the settings used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Address = "127.0.0.1"
	cfg.Server.Port = 8000
	cfg.Server.ReadBuffer = 1024
	cfg.Server.ReadTimeout = Duration(10 * time.Second)
	cfg.Server.WriteTimeout = Duration(10 * time.Second)
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	cfg.CORS.Enabled = true
	return cfg
}

// Load reads the YAML file at path over Default. A missing file is reported
// with an error matching os.ErrNotExist.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s: %w", path, err)
		}
		return nil, err
	}
	return Parse(b)
}

// Parse decodes YAML over Default.
func Parse(b []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the named files (".env" when none)
// into the process environment without overriding existing variables.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overlays CITRA_* variables read through getenv (os.Getenv when
// nil) onto cfg. It reports whether any variable was used.
func ApplyEnv(cfg *Config, getenv func(string) string) (bool, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	used := false
	lookup := func(key string) (string, bool) {
		v := strings.TrimSpace(getenv("CITRA_" + key))
		if v != "" {
			used = true
		}
		return v, v != ""
	}

	if v, ok := lookup("ADDR"); ok {
		h, p, err := net.SplitHostPort(v)
		if err != nil {
			return used, fmt.Errorf("CITRA_ADDR: %w", err)
		}
		port, err := strconv.Atoi(p)
		if err != nil {
			return used, fmt.Errorf("CITRA_ADDR: invalid port %q", p)
		}
		cfg.Server.Address, cfg.Server.Port = h, port
	} else {
		if v, ok := lookup("ADDRESS"); ok {
			cfg.Server.Address = v
		}
		if v, ok := lookup("PORT"); ok {
			port, err := strconv.Atoi(v)
			if err != nil {
				return used, fmt.Errorf("CITRA_PORT: invalid port %q", v)
			}
			cfg.Server.Port = port
		}
	}
	if v, ok := lookup("READ_BUFFER"); ok {
		size, err := parseSize(v)
		if err != nil {
			return used, fmt.Errorf("CITRA_READ_BUFFER: %w", err)
		}
		cfg.Server.ReadBuffer = size
	}
	if v, ok := lookup("READ_TIMEOUT"); ok {
		d, err := parseDuration(v)
		if err != nil {
			return used, fmt.Errorf("CITRA_READ_TIMEOUT: %w", err)
		}
		cfg.Server.ReadTimeout = d
	}
	if v, ok := lookup("WRITE_TIMEOUT"); ok {
		d, err := parseDuration(v)
		if err != nil {
			return used, fmt.Errorf("CITRA_WRITE_TIMEOUT: %w", err)
		}
		cfg.Server.WriteTimeout = d
	}
	if v, ok := lookup("DEBUG"); ok {
		cfg.Debug = truthy(v)
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		cfg.Logging.Level = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok {
		cfg.Logging.Format = v
	}
	if v, ok := lookup("METRICS_ADDR"); ok {
		cfg.Metrics.Address = v
	}
	if v, ok := lookup("CORS_ORIGIN"); ok {
		cfg.CORS.Origin = v
	}
	if v, ok := lookup("RATE_RPS"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return used, fmt.Errorf("CITRA_RATE_RPS: %w", err)
		}
		cfg.RateLimit.RPS = f
	}
	if v, ok := lookup("RATE_BURST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return used, fmt.Errorf("CITRA_RATE_BURST: %w", err)
		}
		cfg.RateLimit.Burst = n
	}
	if v, ok := lookup("AUTH_TOKENS"); ok {
		cfg.Auth.Tokens = parseList(v)
	}
	return used, nil
}

func parseList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if rb := c.Server.ReadBuffer; rb < minReadBuffer || rb > maxReadBuffer {
		return fmt.Errorf("server.read_buffer must be between %s and %s, got %s",
			SizeBytes(minReadBuffer), SizeBytes(maxReadBuffer), rb)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return errors.New("server timeouts must not be negative")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rate_limit values must not be negative")
	}
	return nil
}

// Addr returns host:port for the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Address, strconv.Itoa(c.Server.Port))
}
