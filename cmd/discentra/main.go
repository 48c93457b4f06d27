package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/discentra/discentra/internal/api"
	"github.com/discentra/discentra/internal/assistant"
	"github.com/discentra/discentra/internal/config"
	"github.com/discentra/discentra/internal/feed"
	"github.com/discentra/discentra/internal/logging"
	"github.com/discentra/discentra/internal/notify"
	"github.com/discentra/discentra/internal/observability"
	"github.com/discentra/discentra/internal/report"
	"github.com/discentra/discentra/internal/session"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()
	logger := slog.Default()

	// Disaster feed: periodic poller plus broadcaster for the SSE stream
	broadcaster := feed.NewBroadcaster()
	source := feed.NewReliefWeb(cfg.Feed.URL, cfg.Feed.AppName, cfg.Feed.Limit, cfg.Feed.Timeout)
	fetcher := feed.NewFetcher(source, cfg.Feed, clockwork.NewRealClock(), broadcaster, metrics, logger)
	go fetcher.Run(ctx)

	// Assistant-backed chat sessions
	client := assistant.NewClient(cfg.Assistant, logger)
	sessions := session.NewManager(client, logger)

	// Emergency-report dispatch over SMS
	sms := notify.NewHTTPSMS(cfg.SMS)
	reports := report.NewService(cfg.Worker.Count, cfg.Worker.BufferSize, client, sms, metrics, logger)
	reports.Start(ctx)

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(api.RateLimitMiddleware(5)) // 5 req/s global limit

	handler := api.NewHandler(fetcher, broadcaster, sessions, reports, metrics)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	cancel()
	reports.Stop()
	sessions.Close()
	broadcaster.Close() // Close all streams gracefully

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
