package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"stockticker/internal/config"
	"stockticker/internal/feeds"
	"stockticker/internal/logging"
	"stockticker/internal/watchlist"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.Log)

	resolver, err := feeds.Resolver(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("resolver")
	}
	store, err := watchlist.Open(cfg.Watch.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Watch.DBPath).Msg("watch list")
	}
	defer store.Close()

	s := &server{
		resolver: resolver,
		watch:    store,
		log:      log,
		timeout:  cfg.Server.RequestTimeout,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info().Msg("server stopped")
}
