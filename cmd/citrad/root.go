package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"dqx0.com/go/citra/httpx"
	"dqx0.com/go/citra/internal/config"
	"dqx0.com/go/citra/internal/obs"
)

const shutdownGrace = 5 * time.Second

type options struct {
	configFile string
	envFile    string
	addr       string
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "citrad",
		Short: "Run the citra demo server.",
		Long: `citrad serves the citra demo routes on a one-request-per-connection
HTTP/1.1 development server.

Settings come from --config, then .env and CITRA_* environment variables,
then command line flags.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&opts.configFile, "config", "", "config file (YAML)")
	cmd.Flags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before CITRA_* overrides")
	cmd.Flags().StringVar(&opts.addr, "addr", "127.0.0.1:8000", "listen address")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "show error details and stack traces in error pages")
	return cmd
}

func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return nil, err
	}
	cfg := config.Default()
	if opts.configFile != "" {
		var err error
		if cfg, err = config.Load(opts.configFile); err != nil {
			return nil, err
		}
	}
	if _, err := config.ApplyEnv(cfg, nil); err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("addr") {
		host, port, err := net.SplitHostPort(opts.addr)
		if err != nil {
			return nil, fmt.Errorf("--addr: %w", err)
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("--addr: invalid port %q", port)
		}
		cfg.Server.Address, cfg.Server.Port = host, p
	}
	if cmd.Flags().Changed("debug") {
		cfg.Debug = opts.debug
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := obs.NewSlog(os.Stderr, obs.ParseLevel(cfg.Logging.Level), cfg.Logging.Format == "json")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	srv := newServer(cfg, logger, obs.NewPromMeter(reg, "citra"))

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	logger.Logf(obs.Info, "citra %s: %d routes, read buffer %s, debug=%t",
		srv.Addr, len(srv.Dispatcher.Router.Routes()),
		humanize.IBytes(uint64(cfg.Server.ReadBuffer)), cfg.Debug)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, httpx.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Logf(obs.Info, "shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if cfg.Metrics.Address != "" {
		ms := &http.Server{
			Addr:              cfg.Metrics.Address,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Logf(obs.Info, "metrics on %s/metrics", cfg.Metrics.Address)
			if err := ms.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return ms.Shutdown(sctx)
		})
	}
	return g.Wait()
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}
