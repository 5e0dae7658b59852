// Command plugserver serves a small demo application over any of the supported
// transports. Settings are read from the file passed via -config and the PLUG_*
// environment variables.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/dchest/uniuri"
	"github.com/namjae/plug/config"
	"github.com/namjae/plug/internal/logattr"
	"github.com/namjae/plug/pipeline"
	"github.com/namjae/plug/plugs"
	"github.com/namjae/plug/session"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	path := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		slog.Error("load config", logattr.Error(err))
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	if len(cfg.Secret.KeyBase) == 0 {
		logger.Warn("secret key base is not set, generating an ephemeral one. Sessions won't survive restarts")
		cfg.Secret.KeyBase = uniuri.NewLen(64)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", logattr.Error(err))
		os.Exit(1)
	}
}

func newLogger(cfg config.Log) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, closeStore, err := newStore(ctx, cfg.Session, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	app, err := newPipeline(cfg, store, prometheus.DefaultRegisterer, logger)
	if err != nil {
		return err
	}

	if len(cfg.Server.MetricsAddr) > 0 {
		go serveMetrics(ctx, cfg.Server.MetricsAddr, logger)
	}

	logger.Info("listening",
		slog.String("addr", cfg.Server.Addr),
		slog.String("transport", cfg.Server.Transport),
		slog.String("session_store", cfg.Session.Store),
	)

	return serve(ctx, cfg, app.Plug(), logger)
}

// newPipeline assembles the plugs every request goes through.
func newPipeline(
	cfg *config.Config, store session.Store, reg prometheus.Registerer, logger *slog.Logger,
) (pipeline.Pipeline, error) {
	clk := clock.New()

	metrics, err := plugs.NewMetrics(reg, clk)
	if err != nil {
		return pipeline.Pipeline{}, errors.Wrap(err, "register metrics")
	}

	sess, err := session.New(session.Options{
		Key:     cfg.Session.Key,
		Store:   store,
		Sign:    !cfg.Session.Encrypt,
		Encrypt: cfg.Session.Encrypt,
		Logger:  logger,
	})
	if err != nil {
		return pipeline.Pipeline{}, err
	}

	p := pipeline.New(
		plugs.RequestID(),
		plugs.Logger(logger, clk),
		metrics.Plug(),
		plugs.ServerHeader(plugs.DefaultServerHeader),
	)

	if cfg.Server.RateLimit > 0 {
		p = p.Append(plugs.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst, clk).Plug())
	}

	return p.Append(
		sess.Plug(),
		plugs.Recover(logger, routes(logger)),
	), nil
}
