package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/habitual/internal/backup"
	"github.com/dukerupert/habitual/internal/config"
	"github.com/dukerupert/habitual/internal/database"
	"github.com/dukerupert/habitual/internal/server"
	"github.com/dukerupert/habitual/internal/store"
)

const (
	sessionSweepInterval   = time.Hour
	rateLimitSweepInterval = 10 * time.Minute
	shutdownTimeout        = 5 * time.Second
)

type serveCmd struct {
	config.ServeConfig
}

func (c *serveCmd) Run(app *appContext) error {
	if err := c.ServeConfig.Validate(); err != nil {
		return err
	}
	logger := app.Logger

	analyticsCfg, err := app.Config.Analytics()
	if err != nil {
		return err
	}

	db, err := database.Open(app.Config.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	srv, err := server.New(db, server.Options{
		Analytics:          analyticsCfg,
		AnalyticsCacheSize: c.AnalyticsCacheSize,
		CookieSecure:       c.CookieSecure,
		LoginRateLimit:     c.LoginRateLimit,
		Push:               c.PushConfig.Push(),
		ReminderHour:       c.ReminderHour,
	}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweepSessions(ctx, srv.SessionStore(), logger)
	go srv.RateLimiter().Run(ctx, rateLimitSweepInterval)
	if r := srv.Reminder(); r != nil {
		go r.Run(ctx)
	}
	if c.BackupInterval > 0 {
		mgr := backup.NewManager(c.BackupConfig.Backup(), db, logger.With("component", "backup"))
		go mgr.Schedule(ctx, c.BackupInterval, c.BackupRetention, c.BackupPassphrase)
	}

	httpServer := &http.Server{
		Addr:         ":" + c.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("habitual running", "addr", "http://localhost:"+c.Port, "threshold", analyticsCfg.SuccessThreshold)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func sweepSessions(ctx context.Context, sessions *store.SessionStore, logger *slog.Logger) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.DeleteExpired()
			if err != nil {
				logger.Error("sweep sessions", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("swept expired sessions", "count", n)
			}
		}
	}
}
