package votes_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/emilythestrangee/reddit-clone/votes/internal/memory"
	"github.com/emilythestrangee/reddit-clone/votes/internal/middleware"
	"github.com/emilythestrangee/reddit-clone/votes/internal/models"
	"github.com/emilythestrangee/reddit-clone/votes/internal/retry"
	"github.com/emilythestrangee/reddit-clone/votes/internal/votes"
)

const authorID = 1000

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func asVoter(id int) context.Context {
	return middleware.WithVoter(context.Background(), id)
}

func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{MaxAttempts: attempts}
}

type fixture struct {
	store   *memory.Store
	notes   *recorder
	svc     *votes.Service
	post    votes.EntityRef
	comment votes.EntityRef
}

func newFixture() *fixture {
	store := memory.NewStore()
	post := store.AddPost(models.Post{Title: "hello", AuthorID: authorID})
	comment := store.AddComment(models.Comment{Body: "first", AuthorID: authorID, PostID: post.ID})
	notes := &recorder{}

	return &fixture{
		store:   store,
		notes:   notes,
		svc:     newService(store, store, notes),
		post:    votes.EntityRef{Kind: votes.KindPost, ID: post.ID},
		comment: votes.EntityRef{Kind: votes.KindComment, ID: comment.ID},
	}
}

func newService(ledger votes.LedgerStore, counters votes.CounterStore, notifier votes.Notifier) *votes.Service {
	logger := quietLogger()
	return &votes.Service{
		Ledger:     votes.Ledger{Store: ledger, Logger: logger},
		Reconciler: votes.Reconciler{Store: counters, Policy: fastPolicy(3), Logger: logger},
		Identity:   middleware.ContextIdentity{},
		Notifier:   notifier,
		CastPolicy: fastPolicy(3),
		Logger:     logger,
	}
}

type notification struct {
	recipientID int
	kind        string
	payload     map[string]any
}

type recorder struct {
	mu    sync.Mutex
	calls []notification
	err   error
}

func (r *recorder) Notify(_ context.Context, recipientID int, kind string, payload map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, notification{recipientID: recipientID, kind: kind, payload: payload})
	return r.err
}

func (r *recorder) sent() []notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification(nil), r.calls...)
}

// flakyCounters fails the first failures calls of Recount and every
// ApplyDelta when failDelta is set.
type flakyCounters struct {
	*memory.Store
	failures  int32
	failDelta bool
	recounts  atomic.Int32
	err       error
}

func (f *flakyCounters) Recount(ctx context.Context, ref votes.EntityRef) (votes.Counters, error) {
	if f.recounts.Add(1) <= f.failures {
		return votes.Counters{}, f.err
	}
	return f.Store.Recount(ctx, ref)
}

func (f *flakyCounters) ApplyDelta(ctx context.Context, ref votes.EntityRef, up, down int) (votes.Counters, error) {
	if f.failDelta {
		return votes.Counters{}, f.err
	}
	return f.Store.ApplyDelta(ctx, ref, up, down)
}

// conflictingLedger reports a lost race for the first conflicts casts.
type conflictingLedger struct {
	*memory.Store
	conflicts int32
	calls     atomic.Int32
}

func (c *conflictingLedger) ApplyVote(ctx context.Context, key votes.VoteKey, expected, requested votes.Value) (votes.CastResult, error) {
	if c.calls.Add(1) <= c.conflicts {
		return votes.CastResult{}, votes.ErrConflict
	}
	return c.Store.ApplyVote(ctx, key, expected, requested)
}

// lostReplyLedger commits the first lostReplies writes and then holds the
// call until its context expires, as if the commit acknowledgement never
// arrived.
type lostReplyLedger struct {
	*memory.Store
	lostReplies int32
	calls       atomic.Int32
}

func (l *lostReplyLedger) ApplyVote(ctx context.Context, key votes.VoteKey, expected, requested votes.Value) (votes.CastResult, error) {
	res, err := l.Store.ApplyVote(ctx, key, expected, requested)
	if err != nil || l.calls.Add(1) > l.lostReplies {
		return res, err
	}
	<-ctx.Done()
	return votes.CastResult{}, votes.Transient(ctx.Err())
}
