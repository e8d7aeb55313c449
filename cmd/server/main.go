package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/bida-club-backend/internal/archive"
	"github.com/DoyleJ11/bida-club-backend/internal/config"
	"github.com/DoyleJ11/bida-club-backend/internal/flow"
	"github.com/DoyleJ11/bida-club-backend/internal/httpapi"
	"github.com/DoyleJ11/bida-club-backend/internal/hub"
	"github.com/DoyleJ11/bida-club-backend/internal/room"
	"github.com/DoyleJ11/bida-club-backend/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	roomCfg := room.Config{
		Flow:    flow.Config{TurnLimit: cfg.TurnSeconds, WinScore: cfg.CaromWinScore},
		IdleTTL: cfg.RoomIdleTTL,
		Logger:  log,
	}
	opts := httpapi.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         log,
		WS: ws.Options{
			OriginPatterns: cfg.AllowedOrigins,
			RateLimit:      cfg.WSRateLimit,
			RateBurst:      cfg.WSRateBurst,
		},
	}

	if cfg.DatabaseURL != "" {
		store, err := archive.Open(cfg.DatabaseURL, log)
		if err != nil {
			return err
		}
		defer store.Close()
		roomCfg.Recorder = store
		opts.Matches = store
	} else {
		log.Warn("DATABASE_URL not set, finished matches will not be archived")
	}

	h := hub.NewHub(ctx, roomCfg)

	// Build the router *with* the hub injected
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           httpapi.SetupRoutes(h, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		h.Shutdown()
		return srv.Shutdown(shutdownCtx)
	})
	err := g.Wait()
	// let in-flight archive writes land before the store closes
	h.Wait()
	return err
}
