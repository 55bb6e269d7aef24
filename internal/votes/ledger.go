package votes

import (
	"context"
	"errors"
	"log/slog"
)

// Ledger is the authoritative per-voter vote record.
type Ledger struct {
	Store  LedgerStore
	Logger *slog.Logger
}

// CastVote toggles the voter's vote on entity towards requested, starting from
// expected: it creates the row, retracts it when the same value is repeated,
// or switches polarity. Repeating a call with the same expected value is safe.
func (l Ledger) CastVote(ctx context.Context, voterID int, entity EntityRef, expected, requested Value) (CastResult, error) {
	logger := ResolveLogger(l.Logger)
	if voterID <= 0 {
		return CastResult{}, ErrUnauthenticated
	}
	if !entity.Kind.Valid() || entity.ID <= 0 || !requested.Castable() || (expected != None && !expected.Castable()) {
		logger.Warn("vote validation failed",
			"event", "votes_cast_validation_failed",
			"module", logModule,
			"layer", "ledger",
			"voter_id", voterID,
			"entity", entity.String(),
			"requested", int(requested),
		)
		return CastResult{}, ErrInvalidVote
	}

	key := VoteKey{VoterID: voterID, Entity: entity}
	result, err := l.Store.ApplyVote(ctx, key, expected, requested)
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, ErrNotFound) || Retryable(err) {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "vote cast failed",
			"event", "votes_cast_failed",
			"module", logModule,
			"layer", "ledger",
			"voter_id", voterID,
			"entity", entity.String(),
			"error", err.Error(),
		)
		return CastResult{}, err
	}

	logger.Info("vote cast",
		"event", "votes_cast_applied",
		"module", logModule,
		"layer", "ledger",
		"voter_id", voterID,
		"entity", entity.String(),
		"outcome", string(result.Outcome),
		"previous", result.Previous.String(),
		"current", result.Current.String(),
		"replayed", result.Replayed,
	)
	return result, nil
}

// VoteOf returns the value the voter currently holds on entity.
func (l Ledger) VoteOf(ctx context.Context, voterID int, entity EntityRef) (Value, error) {
	if voterID <= 0 {
		return None, ErrUnauthenticated
	}
	if !entity.Kind.Valid() {
		return None, ErrInvalidVote
	}
	return l.Store.VoteOf(ctx, VoteKey{VoterID: voterID, Entity: entity})
}
