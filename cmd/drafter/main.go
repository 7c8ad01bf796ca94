package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/xonecas/drafter/internal/config"
	"github.com/xonecas/drafter/internal/provider"
	"github.com/xonecas/drafter/internal/push"
	"github.com/xonecas/drafter/internal/server"
	"github.com/xonecas/drafter/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file (TOML)")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DRAFTER_DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	var st *store.Store
	if dbPath, err := cfg.Store.PathOrDefault(); err != nil {
		log.Warn().Err(err).Msg("transcript store unavailable, continuing without persistence")
	} else if st, err = store.Open(dbPath); err != nil {
		log.Warn().Err(err).Msg("transcript store unavailable, continuing without persistence")
		st = nil
	} else {
		defer st.Close()
	}

	var p provider.Provider
	if cfg.Provider.Endpoint != "" {
		p = provider.NewOpenAI("openai", cfg.Provider.Endpoint, cfg.Provider.APIKey, cfg.Provider.Model, cfg.Provider.Temperature)
	} else {
		log.Warn().Msg("no provider endpoint configured, using mock provider")
		p = provider.NewMock("mock")
	}

	srv := server.New(*cfg, p, st, push.NewHub())
	httpSrv := &http.Server{
		Addr:              cfg.Server.AddrOrDefault(),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", httpSrv.Addr).Msg("drafter listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown incomplete")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("provider close failed")
	}
}
