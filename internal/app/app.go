// Package app wires the vote subsystem from configuration.
package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/emilythestrangee/reddit-clone/votes/internal/config"
	"github.com/emilythestrangee/reddit-clone/votes/internal/database"
	"github.com/emilythestrangee/reddit-clone/votes/internal/middleware"
	"github.com/emilythestrangee/reddit-clone/votes/internal/notify"
	"github.com/emilythestrangee/reddit-clone/votes/internal/votes"
)

type App struct {
	Store   *database.Store
	Votes   *votes.Service
	Sweeper votes.Sweeper
}

func New(cfg config.Config, db *gorm.DB, logger *slog.Logger) *App {
	logger = votes.ResolveLogger(logger)
	store := database.NewStore(db, logger)

	notifier := notify.Fanout{notify.NewDBDispatcher(db)}
	if cfg.Twilio.Enabled() {
		notifier = append(notifier, notify.NewTwilioDispatcher(db, cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber))
	}

	reconciler := votes.Reconciler{
		Store:    store,
		Policy:   cfg.Votes.ReconcileRetry,
		Strategy: cfg.Votes.Strategy,
		Logger:   logger,
	}

	return &App{
		Store: store,
		Votes: &votes.Service{
			Ledger:        votes.Ledger{Store: store, Logger: logger},
			Reconciler:    reconciler,
			Identity:      middleware.ContextIdentity{},
			Notifier:      notifier,
			CastPolicy:    cfg.Votes.CastRetry,
			NotifyTimeout: cfg.Votes.NotifyTimeout,
			Logger:        logger,
		},
		Sweeper: votes.Sweeper{
			Store:       store,
			Reconciler:  reconciler,
			Interval:    cfg.Votes.SweepInterval,
			BatchSize:   cfg.Votes.SweepBatchSize,
			Concurrency: cfg.Votes.SweepConcurrency,
			Logger:      logger,
		},
	}
}
