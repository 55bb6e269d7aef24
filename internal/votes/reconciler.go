package votes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/emilythestrangee/reddit-clone/votes/internal/retry"
)

// Strategy selects how counters follow a cast.
type Strategy string

const (
	// StrategyRecount tallies the ledger under the entity lock every time.
	StrategyRecount Strategy = "recount"
	// StrategyDelta applies the cast's signed delta with one atomic update
	// and falls back to a recount if that update fails.
	StrategyDelta Strategy = "delta"
)

func ParseStrategy(raw string) (Strategy, error) {
	switch Strategy(raw) {
	case "", StrategyRecount:
		return StrategyRecount, nil
	case StrategyDelta:
		return StrategyDelta, nil
	}
	return "", fmt.Errorf("unknown reconcile strategy %q", raw)
}

// Reconciler brings an entity's counters back in line with the ledger.
type Reconciler struct {
	Store    CounterStore
	Policy   retry.Policy
	Strategy Strategy
	Logger   *slog.Logger
}

// Reconcile recounts ref from the ledger and stores the result. It is safe to
// call at any time and any number of times.
func (r Reconciler) Reconcile(ctx context.Context, ref EntityRef) (Counters, error) {
	logger := ResolveLogger(r.Logger)
	var counters Counters
	attempts, err := r.Policy.Do(ctx, reconcileRetryable, func(ctx context.Context) error {
		c, err := r.Store.Recount(ctx, ref)
		if err != nil {
			return err
		}
		counters = c
		return nil
	})
	if err != nil {
		logger.Error("counter reconciliation failed",
			"event", "votes_reconcile_failed",
			"module", logModule,
			"layer", "reconciler",
			"entity", ref.String(),
			"attempts", attempts,
			"error", err.Error(),
		)
		return Counters{}, &ReconciliationError{Entity: ref, Attempts: attempts, Err: err}
	}
	if attempts > 1 {
		logger.Info("counter reconciliation recovered",
			"event", "votes_reconcile_recovered",
			"module", logModule,
			"layer", "reconciler",
			"entity", ref.String(),
			"attempts", attempts,
		)
	}
	return counters, nil
}

// AfterCast resynchronizes the counters touched by a cast.
func (r Reconciler) AfterCast(ctx context.Context, cast CastResult) (Counters, error) {
	// A replayed cast may already have had its delta applied.
	if r.Strategy != StrategyDelta || cast.Replayed {
		return r.Reconcile(ctx, cast.Key.Entity)
	}

	// A delta is not idempotent, so it gets exactly one attempt.
	up, down := cast.Delta()
	deltaCtx, cancel := ctx, context.CancelFunc(func() {})
	if r.Policy.AttemptTimeout > 0 {
		deltaCtx, cancel = context.WithTimeout(ctx, r.Policy.AttemptTimeout)
	}
	counters, err := r.Store.ApplyDelta(deltaCtx, cast.Key.Entity, up, down)
	cancel()
	if err == nil {
		return counters, nil
	}
	ResolveLogger(r.Logger).Warn("counter delta failed, recounting",
		"event", "votes_delta_failed",
		"module", logModule,
		"layer", "reconciler",
		"entity", cast.Key.Entity.String(),
		"error", err.Error(),
	)
	return r.Reconcile(ctx, cast.Key.Entity)
}

func reconcileRetryable(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return false
	}
	return Retryable(err) || errors.Is(err, context.DeadlineExceeded)
}
