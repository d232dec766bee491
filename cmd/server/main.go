package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	httpapi "github.com/bankline/chat-gateway/internal/api/http"
	"github.com/bankline/chat-gateway/internal/bootstrap"
	"github.com/bankline/chat-gateway/internal/config"
	"github.com/bankline/chat-gateway/internal/infrastructure/messenger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	if cfg.PageAccessToken == "" {
		logger.Warn().Msg("PAGE_ACCESS_TOKEN not set, replies will fail")
	}
	if cfg.AppSecret == "" {
		logger.Warn().Msg("APP_SECRET not set, webhook signatures are not checked")
	}
	sender := messenger.NewClient(cfg.PageAccessToken, messenger.WithEndpoint(cfg.GraphAPIURL))

	ctx := context.Background()
	stack, err := bootstrap.Build(ctx, cfg, sender, logger)
	if err != nil {
		log.Fatalf("startup error: %v", err)
	}
	defer stack.Close()

	apiServer := httpapi.NewServer(stack.Dispatcher, stack.Backend, stack.Languages, stack.Audit, httpapi.Options{
		VerifyToken: cfg.VerifyToken,
		AppSecret:   cfg.AppSecret,
		AdminToken:  cfg.AdminToken,
		Events:      stack.Events,
	}, logger)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// background sweep for deployments with little traffic
	stopSweep := make(chan struct{})
	if cfg.SweepInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.SweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					stack.Gate.Sweep()
				case <-stopSweep:
					return
				}
			}
		}()
	}

	// start server
	go func() {
		logger.Info().
			Str("addr", cfg.ServerAddr).
			Str("backend", cfg.BackendURL).
			Bool("translation", cfg.TranslationEnabled()).
			Bool("persistent_audit", cfg.PersistentAudit()).
			Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	close(stopSweep)
	stack.Events.Stop()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
	logger.Info().Msg("http server stopped")
}
