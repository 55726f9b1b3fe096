// Command ember serves HTTP/1.x requests from the routes in a YAML
// configuration file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/ember/pkg/ember/config"
	"github.com/yourusername/ember/pkg/ember/handlers"
	"github.com/yourusername/ember/pkg/ember/server"
	"github.com/yourusername/ember/pkg/ember/socket"
)

const (
	shutdownTimeout = 10 * time.Second
	metricsPath     = "/metrics"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "ember:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("ember", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to the YAML configuration file")
	listen := fs.String("listen", "", "listen address, overrides the configuration")
	printConfig := fs.Bool("print-config", false, "print the effective configuration and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath, *listen)
	if err != nil {
		return err
	}

	if *printConfig {
		out, err := config.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = stdout.Write(out)
		return err
	}

	log := newLogger(cfg, os.Stderr)

	router, err := handlers.Build(cfg.Routes, log)
	if err != nil {
		return err
	}

	srv := server.New(serverConfig(cfg), router, log)
	ln, err := srv.Listen()
	if err != nil {
		return err
	}

	var metricsLn net.Listener
	if cfg.MetricsListen != "" {
		if metricsLn, err = net.Listen("tcp", cfg.MetricsListen); err != nil {
			ln.Close()
			return fmt.Errorf("metrics: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := srv.Serve(gctx, ln)
		if errors.Is(err, server.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if metricsLn != nil {
		runMetrics(gctx, g, metricsLn, srv.Stats(), log)
	}

	return g.Wait()
}

// loadConfig reads path, or uses the defaults when path is empty, and
// applies the listen override.
func loadConfig(path, listen string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}
	if listen != "" {
		cfg.Listen = listen
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}

func newLogger(cfg config.Config, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if cfg.LogFormat == config.LogFormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", "ember").
		Logger()
}

func serverConfig(cfg config.Config) server.Config {
	sock := socket.DefaultConfig()
	sock.NoDelay = cfg.TCPNoDelay

	return server.Config{
		Addr:                 cfg.Listen,
		ReusePort:            cfg.ReusePort,
		ReadTimeout:          cfg.ReadTimeout.Std(),
		IdleTimeout:          cfg.IdleTimeout.Std(),
		WriteTimeout:         cfg.WriteTimeout.Std(),
		MaxConnections:       cfg.MaxConnections,
		MaxKeepAliveRequests: cfg.MaxKeepAliveRequests,
		AcceptRate:           cfg.AcceptRate,
		AcceptBurst:          cfg.AcceptBurst,
		ClientRate:           cfg.ClientRate,
		ClientBurst:          cfg.ClientBurst,
		Cork:                 cfg.Cork,
		Socket:               sock,
	}
}

// newMetricsRegistry registers the server stats and the Go runtime
// collectors.
func newMetricsRegistry(stats *server.Stats) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		stats,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// runMetrics serves metrics on ln in g until ctx is done. ln is closed on
// shutdown, so a Serve that starts after ShutdownWithContext returns at once.
func runMetrics(ctx context.Context, g *errgroup.Group, ln net.Listener, stats *server.Stats, log zerolog.Logger) {
	metrics := newMetricsServer(stats)

	g.Go(func() error {
		log.Info().Str("addr", ln.Addr().String()).Msg("serving metrics")
		return metrics.Serve(ln)
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := metrics.ShutdownWithContext(shutdownCtx)
		ln.Close()
		return err
	})
}

// newMetricsServer serves the registry on /metrics.
func newMetricsServer(stats *server.Stats) *fasthttp.Server {
	reg := newMetricsRegistry(stats)
	metrics := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &fasthttp.Server{
		Name: "ember-metrics",
		Handler: func(ctx *fasthttp.RequestCtx) {
			if string(ctx.Path()) != metricsPath {
				ctx.NotFound()
				return
			}
			metrics(ctx)
		},
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}
