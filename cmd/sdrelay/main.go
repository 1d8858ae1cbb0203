package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sdrelay/internal/backend"
	"sdrelay/internal/config"
	"sdrelay/internal/httpapi"
	"sdrelay/internal/logx"
	"sdrelay/internal/relay"
	"sdrelay/internal/stream"
)

// flagValues mirrors the command line; only flags the user set are applied.
type flagValues struct {
	configPath        string
	envFile           string
	addr              string
	backendURL        string
	backendTimeout    time.Duration
	heartbeatInterval time.Duration
	statusInterval    time.Duration
	logLevel          string
	logFormat         string
	swagger           bool
	corsOrigins       string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(func(cfg config.Config) error {
		log := logx.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, log, nil)
	})
}

// newRootCmdWith builds the command; run receives the resolved configuration.
func newRootCmdWith(run func(config.Config) error) *cobra.Command {
	var fv flagValues
	cmd := &cobra.Command{
		Use:           "sdrelay",
		Short:         "JSON-RPC relay and event stream in front of a Stable Diffusion web UI",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, fv)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}
	f := cmd.Flags()
	f.StringVar(&fv.configPath, "config", "", "Config file (.yaml, .yml, .json, .toml)")
	f.StringVar(&fv.envFile, "env-file", ".env", "Dotenv file loaded before reading SDRELAY_* variables")
	f.StringVar(&fv.addr, "addr", config.DefaultAddr, "HTTP listen address")
	f.StringVar(&fv.backendURL, "backend-url", config.DefaultBackendURL, "Stable Diffusion web UI base URL")
	f.DurationVar(&fv.backendTimeout, "backend-timeout", 0, "Timeout for backend calls (0 = none)")
	f.DurationVar(&fv.heartbeatInterval, "heartbeat-interval", config.DefaultHeartbeatInterval, "Interval between stream pings")
	f.DurationVar(&fv.statusInterval, "status-interval", config.DefaultStatusInterval, "Interval between legacy status events")
	f.StringVar(&fv.logLevel, "log-level", config.DefaultLogLevel, "Log level: debug|info|warn|error|off")
	f.StringVar(&fv.logFormat, "log-format", config.DefaultLogFormat, "Log format: console|json")
	f.BoolVar(&fv.swagger, "swagger", false, "Serve API docs under /swagger/")
	f.StringVar(&fv.corsOrigins, "cors-origins", "", "Comma-separated allowed origins")
	return cmd
}

// resolveConfig layers file, dotenv, environment and explicitly set flags.
func resolveConfig(cmd *cobra.Command, fv flagValues) (config.Config, error) {
	if err := config.LoadDotEnv(fv.envFile); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Resolve(fv.configPath)
	if err != nil {
		return config.Config{}, err
	}
	f := cmd.Flags()
	if f.Changed("addr") {
		cfg.Addr = fv.addr
	}
	if f.Changed("backend-url") {
		cfg.BackendURL = fv.backendURL
	}
	if f.Changed("backend-timeout") {
		cfg.BackendTimeout = config.Duration(fv.backendTimeout)
	}
	if f.Changed("heartbeat-interval") {
		cfg.HeartbeatInterval = config.Duration(fv.heartbeatInterval)
	}
	if f.Changed("status-interval") {
		cfg.StatusInterval = config.Duration(fv.statusInterval)
	}
	if f.Changed("log-level") {
		cfg.LogLevel = fv.logLevel
	}
	if f.Changed("log-format") {
		cfg.LogFormat = fv.logFormat
	}
	if f.Changed("swagger") {
		cfg.Swagger = fv.swagger
	}
	if f.Changed("cors-origins") {
		cfg.CORS.AllowedOrigins = config.SplitCSV(fv.corsOrigins)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newHandler assembles backend client, relay, streams and router.
func newHandler(ctx context.Context, cfg config.Config, log zerolog.Logger) http.Handler {
	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout.D())
	rel := relay.New(client, relay.Options{
		Generate: relay.Defaults(cfg.Generate),
		Txt2Img:  relay.Defaults(cfg.Txt2Img),
		Logger:   log.With().Str("component", "relay").Logger(),
	})
	streams := stream.New(stream.Options{
		Interval:       cfg.HeartbeatInterval.D(),
		StatusInterval: cfg.StatusInterval.D(),
		Capabilities:   rel.Capabilities,
		Status:         rel.Status,
		Logger:         log.With().Str("component", "stream").Logger(),
	})
	return httpapi.NewMux(rel, httpapi.Options{
		Streams:         streams,
		Logger:          log.With().Str("component", "http").Logger(),
		BaseContext:     ctx,
		MaxBodyBytes:    cfg.MaxBodyBytes,
		RequestLogLevel: requestLogLevel(cfg.LogLevel),
		CORS: httpapi.CORSOptions{
			Enabled:        !cfg.CORS.Disabled,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: cfg.CORS.AllowedMethods,
			AllowedHeaders: cfg.CORS.AllowedHeaders,
		},
		Swagger: cfg.Swagger,
	})
}

// requestLogLevel picks the per-request log default from the process level.
func requestLogLevel(level string) string {
	switch logx.ParseLevel(level) {
	case zerolog.DebugLevel, zerolog.TraceLevel:
		return "debug"
	case zerolog.InfoLevel:
		return "info"
	case zerolog.Disabled:
		return "off"
	default:
		return "error"
	}
}

// serve runs the HTTP server until ctx is done, then shuts it down. If ready
// is non-nil it receives the bound address once listening.
func serve(ctx context.Context, cfg config.Config, log zerolog.Logger, ready chan<- string) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	// streams stop when baseCtx is cancelled, before Shutdown waits on them
	baseCtx, cancelStreams := context.WithCancel(context.Background())
	defer cancelStreams()
	srv := &http.Server{
		Handler:           newHandler(baseCtx, cfg, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Str("backend", cfg.BackendURL).Msg("sdrelay listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	if ready != nil {
		ready <- ln.Addr().String()
	}

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	cancelStreams()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}
