package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emilythestrangee/reddit-clone/votes/internal/app"
	"github.com/emilythestrangee/reddit-clone/votes/internal/config"
	"github.com/emilythestrangee/reddit-clone/votes/internal/database"
	"github.com/emilythestrangee/reddit-clone/votes/internal/handlers"
	"github.com/emilythestrangee/reddit-clone/votes/internal/server"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	a := app.New(cfg, db.GetDB(), logger)
	handler := handlers.NewHandler(a.Store, a.Votes, handlers.Options{
		ReconcileOnRead: cfg.Votes.ReconcileOnRead,
		Logger:          logger,
	})
	srv := server.NewServer(cfg.Port, []byte(cfg.JWTSecret), db, handler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go a.Sweeper.Run(ctx)

	serveErr := make(chan error, 1)
	go func() {
		fmt.Println("📝 Press Ctrl+C to stop the server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	stop()

	log.Println("Shutting down gracefully, press Ctrl+C again to force")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.Votes.Drain()

	log.Println("Server exiting")
	return nil
}
