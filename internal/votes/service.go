package votes

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/emilythestrangee/reddit-clone/votes/internal/retry"
)

// NotificationUpvote is the kind sent to an author when a post or comment
// receives a fresh upvote.
const NotificationUpvote = "upvote"

// VoteResult is what a vote request reports back. Pending means the ledger
// write committed but the counters could not be refreshed; Counters is then
// zero and must not be shown.
type VoteResult struct {
	CastResult
	Counters Counters
	Pending  bool
}

// Service runs a vote request end to end: identity, ledger, notification,
// reconciliation.
type Service struct {
	Ledger        Ledger
	Reconciler    Reconciler
	Identity      Identity
	Notifier      Notifier
	CastPolicy    retry.Policy
	NotifyTimeout time.Duration
	Logger        *slog.Logger

	inflight sync.WaitGroup
}

// Cast records the current voter's vote on entity and refreshes its counters.
func (s *Service) Cast(ctx context.Context, entity EntityRef, requested Value) (VoteResult, error) {
	logger := ResolveLogger(s.Logger)
	voterID, ok := s.Identity.CurrentVoterID(ctx)
	if !ok {
		return VoteResult{}, ErrUnauthenticated
	}

	// The decision is pinned to the value read before the first write. A
	// retry after a failure that may have committed replays the same
	// transition instead of toggling again; only a conflict, which never
	// commits, re-reads the ledger.
	var (
		cast      CastResult
		expected  Value
		known     bool
		uncertain bool
	)
	attempts, err := s.CastPolicy.Do(ctx, Retryable, func(ctx context.Context) error {
		if !known {
			v, err := s.Ledger.VoteOf(ctx, voterID, entity)
			if err != nil {
				return err
			}
			expected, known = v, true
		}
		res, err := s.Ledger.CastVote(ctx, voterID, entity, expected, requested)
		switch {
		case err == nil:
			cast = res
			return nil
		case errors.Is(err, ErrConflict):
			known = false
		default:
			uncertain = true
		}
		return err
	})
	if err != nil {
		if errors.Is(err, retry.ErrAttemptTimeout) {
			err = Transient(err)
		}
		return VoteResult{}, err
	}
	if attempts > 1 {
		logger.Info("vote cast after retry",
			"event", "votes_cast_retried",
			"module", logModule,
			"layer", "service",
			"voter_id", voterID,
			"entity", entity.String(),
			"attempts", attempts,
		)
	}

	// A replay with no earlier uncertain attempt was written by a concurrent
	// request of the same voter, which notified already.
	fresh := !cast.Replayed || uncertain
	if fresh && cast.Outcome == OutcomeCreated && cast.Current == Up && cast.AuthorID != voterID {
		s.notifyUpvote(ctx, cast)
	}

	counters, err := s.Reconciler.AfterCast(ctx, cast)
	if err != nil {
		logger.Warn("vote accepted with pending counters",
			"event", "votes_counters_pending",
			"module", logModule,
			"layer", "service",
			"voter_id", voterID,
			"entity", entity.String(),
			"error", err.Error(),
		)
		return VoteResult{CastResult: cast, Pending: true}, nil
	}
	return VoteResult{CastResult: cast, Counters: counters}, nil
}

// Reconcile exposes the reconciler for manual and read-path repairs.
func (s *Service) Reconcile(ctx context.Context, entity EntityRef) (Counters, error) {
	return s.Reconciler.Reconcile(ctx, entity)
}

// VoteOf returns the current voter's vote on entity.
func (s *Service) VoteOf(ctx context.Context, entity EntityRef) (Value, error) {
	voterID, ok := s.Identity.CurrentVoterID(ctx)
	if !ok {
		return None, ErrUnauthenticated
	}
	return s.Ledger.VoteOf(ctx, voterID, entity)
}

// Drain blocks until every notification already dispatched has finished.
func (s *Service) Drain() {
	s.inflight.Wait()
}

func (s *Service) notifyUpvote(ctx context.Context, cast CastResult) {
	if s.Notifier == nil {
		return
	}
	timeout := s.NotifyTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	payload := map[string]any{
		"entity_kind": string(cast.Key.Entity.Kind),
		"entity_id":   cast.Key.Entity.ID,
		"voter_id":    cast.Key.VoterID,
	}
	logger := ResolveLogger(s.Logger)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := s.Notifier.Notify(notifyCtx, cast.AuthorID, NotificationUpvote, payload); err != nil {
			logger.Warn("upvote notification failed",
				"event", "votes_notify_failed",
				"module", logModule,
				"layer", "service",
				"recipient_id", cast.AuthorID,
				"entity", cast.Key.Entity.String(),
				"error", err.Error(),
			)
		}
	}()
}
