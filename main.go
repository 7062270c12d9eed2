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

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"olympics-frontend/internal/apiclient"
	"olympics-frontend/internal/config"
	"olympics-frontend/internal/database"
	"olympics-frontend/internal/logger"
	"olympics-frontend/internal/session"
	"olympics-frontend/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.New("olympics-frontend", cfg.LogLevel)

	if err := database.Open(database.Config{Path: cfg.DBPath}); err != nil {
		log.Error("failed to open session database", slog.Any("error", err))
		os.Exit(1)
	}
	defer database.Close()

	api := apiclient.New(cfg.APIBaseURL, cfg.RequestTimeout, log)
	repo := database.NewSessionRepo()
	sessions := session.NewManager(repo, api, cfg.SessionTTL, log)

	renderer, err := web.NewRenderer()
	if err != nil {
		log.Error("failed to parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "form:csrf",
		CookieName:     "_csrf",
		CookieHTTPOnly: true,
		CookieSameSite: http.SameSiteLaxMode,
		CookieSecure:   cfg.SecureCookies,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health"
		},
	}))

	srv := web.NewServer(api, sessions, log, cfg.SecureCookies)
	srv.RegisterRoutes(e)

	// Sweep expired sessions so the database does not grow unbounded.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweepSessions(sweepCtx, repo, log)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		log.Info("starting server",
			slog.String("addr", addr),
			slog.String("api_base_url", cfg.APIBaseURL),
			slog.String("environment", cfg.Environment))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Error("server stopped", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
	}
}

func sweepSessions(ctx context.Context, repo *database.SessionRepo, log *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.DeleteExpired()
			if err != nil {
				log.Warn("session sweep failed", slog.Any("error", err))
				continue
			}
			if n > 0 {
				log.Info("removed expired sessions", slog.Int64("count", n))
			}
		}
	}
}
