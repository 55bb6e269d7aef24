package votes

import (
	"fmt"
	"strings"
)

// EntityKind names the table a vote points at.
type EntityKind string

const (
	KindPost    EntityKind = "post"
	KindComment EntityKind = "comment"
)

func (k EntityKind) Valid() bool {
	return k == KindPost || k == KindComment
}

// ParseKind accepts the singular and plural spellings used in routes.
func ParseKind(raw string) (EntityKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "post", "posts":
		return KindPost, nil
	case "comment", "comments":
		return KindComment, nil
	}
	return "", fmt.Errorf("%w: unknown entity kind %q", ErrInvalidVote, raw)
}

// Value is the tri-state vote. None is never stored; it means "no row".
type Value int

const (
	Down Value = -1
	None Value = 0
	Up   Value = 1
)

func (v Value) String() string {
	switch v {
	case Up:
		return "up"
	case Down:
		return "down"
	}
	return "none"
}

// Castable reports whether v may be requested by a voter.
func (v Value) Castable() bool {
	return v == Up || v == Down
}

// Outcome describes what a cast did to the ledger row.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeRetracted Outcome = "retracted"
	OutcomeSwitched  Outcome = "switched"
)

// EntityRef identifies a votable post or comment.
type EntityRef struct {
	Kind EntityKind
	ID   int
}

func (r EntityRef) String() string {
	return fmt.Sprintf("%s/%d", r.Kind, r.ID)
}

// VoteKey is the ledger identity: one row per voter per entity.
type VoteKey struct {
	VoterID int
	Entity  EntityRef
}

// Transition is the ledger change for a single cast.
type Transition struct {
	Outcome  Outcome
	Previous Value
	Current  Value
}

// Decide computes the transition for a requested value given the value the
// voter already holds. Repeating a vote retracts it.
func Decide(previous, requested Value) Transition {
	switch {
	case previous == None:
		return Transition{Outcome: OutcomeCreated, Previous: None, Current: requested}
	case previous == requested:
		return Transition{Outcome: OutcomeRetracted, Previous: previous, Current: None}
	default:
		return Transition{Outcome: OutcomeSwitched, Previous: previous, Current: requested}
	}
}

// Delta is the signed change the transition applies to each counter.
func (t Transition) Delta() (up, down int) {
	return tally(t.Current).sub(tally(t.Previous))
}

type counts struct{ up, down int }

func tally(v Value) counts {
	switch v {
	case Up:
		return counts{up: 1}
	case Down:
		return counts{down: 1}
	}
	return counts{}
}

func (c counts) sub(o counts) (int, int) {
	return c.up - o.up, c.down - o.down
}

// Resolve compares the value a store found in the ledger with the value the
// caller decided from. write is false when the row already holds the target,
// meaning an earlier attempt of the same cast committed.
func Resolve(actual, expected, requested Value) (t Transition, write bool, err error) {
	t = Decide(expected, requested)
	switch actual {
	case expected:
		return t, true, nil
	case t.Current:
		return t, false, nil
	}
	return Transition{}, false, ErrConflict
}

// CastResult is what the ledger reports after a successful cast.
type CastResult struct {
	Key VoteKey
	Transition
	// AuthorID is the owner of the voted entity, used to address notifications.
	AuthorID int
	// Replayed is set when the ledger already held the target value and
	// nothing was written.
	Replayed bool
}

// Counters are the denormalized totals stored on an entity.
type Counters struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
}

func (c Counters) Net() int {
	return c.Upvotes - c.Downvotes
}
