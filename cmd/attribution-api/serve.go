package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"example.com/attribution/internal/cache"
	"example.com/attribution/internal/config"
	"example.com/attribution/internal/ingest"
	spg "example.com/attribution/internal/storage/postgres"
	transport "example.com/attribution/internal/transport/http"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), config.Parse())
		},
	}
}

func serve(parent context.Context, cfg config.Config) error {
	log, rules, err := setup(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	log.Info("config loaded",
		zap.String("port", cfg.Port),
		zap.Bool("redis", cfg.RedisURL != ""),
		zap.String("rules_file", cfg.RulesFile),
	)

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := spg.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("db connected")

	applied, err := db.RunMigrations(ctx, cfg.MigrationsDir)
	if err != nil {
		return err
	}
	log.Info("migrations applied", zap.Strings("files", applied))

	var c cache.Cache = cache.Noop{}
	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		c = cache.NewRedis(client)
		log.Info("redis connected", zap.Duration("ttl", cfg.CacheTTL))
	}

	// The ingestor outlives the HTTP server so queued rows are flushed after shutdown.
	ingestCtx, stopIngest := context.WithCancel(context.WithoutCancel(ctx))
	ingestor := ingest.NewIngestor(spg.NewWriter(db), log, cfg.QueueMaxSize, cfg.BatchMaxSize, cfg.BatchMaxWait)
	ingestor.Start(ingestCtx)
	log.Info("ingest started",
		zap.Int("queue", cfg.QueueMaxSize),
		zap.Int("batch", cfg.BatchMaxSize),
		zap.Duration("wait", cfg.BatchMaxWait),
	)

	deps := &transport.ServerDeps{
		Cfg:      cfg,
		Ingestor: ingestor,
		DB:       db,
		Cache:    c,
		Rules:    rules,
		Log:      log.Named("http"),
		Now:      func() time.Time { return time.Now().UTC() },
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           deps.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err = <-errCh:
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Warn("http shutdown", zap.Error(serr))
	}
	stopIngest()
	ingestor.Wait()
	log.Info("stopped")
	return err
}
