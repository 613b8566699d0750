package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/fluxsocial/voicerelay/internal/adapters/directory"
	router "github.com/fluxsocial/voicerelay/internal/adapters/http"
	"github.com/fluxsocial/voicerelay/internal/app"
	"github.com/fluxsocial/voicerelay/internal/app/orch"
	"github.com/fluxsocial/voicerelay/internal/config"
	"github.com/fluxsocial/voicerelay/internal/core"
	"github.com/fluxsocial/voicerelay/internal/metrics"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	configPath := pflag.String("config", "", "path to config file")
	port := pflag.Int("port", 0, "listen port override")
	pflag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)

	dir := buildDirectory(cfg)
	sessions := app.NewSessions()
	o := orch.New(sessions, dir, m)

	r := router.SetupRouter(ctx, cfg, o, reg)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("voice relay started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited gracefully")
}

// buildDirectory wires the external room store: the HTTP CRUD service
// when configured, otherwise the static set from the config file.
func buildDirectory(cfg *config.Config) core.RoomDirectory {
	if cfg.DirectoryURL != "" {
		log.Info().Str("url", cfg.DirectoryURL).Msg("using upstream room directory")
		return directory.NewHTTP(cfg.DirectoryURL, cfg.DirectoryTimeout)
	}
	static := directory.NewStatic()
	for _, sr := range cfg.Rooms {
		room, err := sr.Room()
		if err != nil {
			log.Error().Err(err).Str("room", sr.ID).Msg("bad static room, skipped")
			continue
		}
		static.Add(room)
	}
	log.Info().Int("rooms", len(cfg.Rooms)).Msg("using static room directory")
	return static
}
