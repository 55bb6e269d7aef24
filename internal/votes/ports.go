package votes

import "context"

// LedgerStore persists vote records. ApplyVote moves the row for key from
// expected to Decide(expected, requested).Current, reading and writing under
// one lock. A row already at the target is reported as a replay without a
// write; any other value, or losing an insert race, is ErrConflict.
type LedgerStore interface {
	ApplyVote(ctx context.Context, key VoteKey, expected, requested Value) (CastResult, error)
	VoteOf(ctx context.Context, key VoteKey) (Value, error)
}

// CounterStore owns the denormalized counters. Nothing else writes them.
type CounterStore interface {
	// Recount tallies the ledger for ref and writes both counters while
	// holding the entity lock.
	Recount(ctx context.Context, ref EntityRef) (Counters, error)
	// ApplyDelta adjusts the counters with a single atomic update.
	ApplyDelta(ctx context.Context, ref EntityRef, up, down int) (Counters, error)
	// ListDrifted returns entities whose counters disagree with the ledger.
	// A limit <= 0 means no limit.
	ListDrifted(ctx context.Context, limit int) ([]EntityRef, error)
}

// Identity resolves the voter behind the current request.
type Identity interface {
	CurrentVoterID(ctx context.Context) (int, bool)
}

// Notifier hands a notification to whatever delivers it.
type Notifier interface {
	Notify(ctx context.Context, recipientID int, kind string, payload map[string]any) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, recipientID int, kind string, payload map[string]any) error

func (f NotifierFunc) Notify(ctx context.Context, recipientID int, kind string, payload map[string]any) error {
	return f(ctx, recipientID, kind, payload)
}
