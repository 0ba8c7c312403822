// Command kvserver runs the session-bounded key-value service.
//
// Configuration comes from the environment (see Config); the most relevant
// settings are KV_CAPACITY, KV_ADDR and KV_ADMIN_ADDR.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/josenovais97/distributed-systems/pkg/admin"
	"github.com/josenovais97/distributed-systems/pkg/admission"
	"github.com/josenovais97/distributed-systems/pkg/auth"
	"github.com/josenovais97/distributed-systems/pkg/config"
	"github.com/josenovais97/distributed-systems/pkg/kvstore"
	"github.com/josenovais97/distributed-systems/pkg/logger"
	"github.com/josenovais97/distributed-systems/pkg/server"
	"github.com/josenovais97/distributed-systems/pkg/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "kvserver:", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gate := admission.New[uuid.UUID](cfg.Capacity, admission.WithLogger(log))
	store := kvstore.New()
	creds := auth.NewRegistry(auth.WithBcryptCost(cfg.BcryptCost), auth.WithLogger(log))
	sessions := session.NewRegistry()

	kv := server.NewFromConfig(cfg.Server, store, gate, creds,
		server.WithLogger(log),
		server.WithSessionRegistry(sessions),
	)

	log.InfoContext(ctx, "starting kvserver",
		logger.Capacity(cfg.Capacity),
		slog.Bool("admin", cfg.adminEnabled()),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return kv.Run(ctx)
	})
	if cfg.adminEnabled() {
		adm := admin.NewFromConfig(cfg.Admin, admin.WithLogger(log.With(logger.Component("admin"))))
		routes := admin.Router(admin.Sources{
			Admission: gate,
			Store:     store,
			Users:     creds,
			Sessions:  sessions,
		}, log)
		g.Go(func() error {
			return adm.Run(ctx, routes)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("kvserver stopped with error", logger.Error(err))
		return err
	}
	log.Info("kvserver stopped")
	return nil
}

func newLogger(cfg Config) (*slog.Logger, error) {
	opts := []logger.Option{
		logger.WithEnvironment(cfg.AppEnv, "kvserver"),
		logger.WithSessionContext(),
		logger.WithContextExtractors(admin.RequestIDExtractor()),
	}
	if cfg.LogLevel != "" {
		level, err := logger.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		opts = append(opts, logger.WithLevel(level))
	}
	if cfg.LogFormat != "" {
		opts = append(opts, logger.WithFormat(logger.Format(cfg.LogFormat)))
	}
	return logger.New(opts...), nil
}
