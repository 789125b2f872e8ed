package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "soundcast/internal/adapters/http"
	"soundcast/internal/adapters/ws"
	"soundcast/internal/app"
	"soundcast/internal/auth"
	"soundcast/internal/catalog"
	"soundcast/internal/config"
	"soundcast/internal/core"
	"soundcast/internal/library"
	"soundcast/internal/netinfo"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	lib := library.New(cfg.SoundsDir, cfg.MaxUploadMB*1024*1024)
	if err := lib.EnsureDir(); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.SoundsDir).Msg("failed to create sounds directory")
	}

	var store catalog.Store
	switch cfg.Storage {
	case "sqlite":
		store, err = catalog.OpenSQLiteStore(cfg.CatalogPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("failed to open catalog database")
		}
	default:
		store = catalog.NewFileStore(cfg.CatalogPath)
	}

	cat, err := catalog.NewService(store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load catalog")
	}

	gate := auth.NewGate(cfg.Password, cfg.PasswordHash, auth.NewTokenStore(cfg.TokenTTL, cfg.MaxTokens))
	reg := core.NewRegistry()
	coord := app.NewCoordinator(reg, cat, lib)
	wsc := ws.NewController(coord, gate, cfg.SendBuffer, cfg.WriteTimeout)

	// Pick up sounds dropped into the directory outside the API.
	go func() {
		if err := lib.Watch(ctx, coord.CatalogChanged); err != nil {
			log.Error().Err(err).Msg("sounds watcher stopped")
		}
	}()

	r := router.NewRouter(ctx, cfg, router.NewAPI(gate, cat, lib, coord, cfg.Port), wsc)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Int("sounds", len(cat.List())).Msg("Soundcast server started")
		for _, a := range netinfo.Addresses() {
			log.Info().Str("iface", a.Interface).Msgf("remote access: http://%s:%d", a.Address, cfg.Port)
		}
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
