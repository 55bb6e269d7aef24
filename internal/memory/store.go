// Package memory is an in-process implementation of the vote stores, used by
// tests and local tooling. It gives the same guarantees as the Postgres store:
// one vote per key, and serialized recounts per entity.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/emilythestrangee/reddit-clone/votes/internal/models"
	"github.com/emilythestrangee/reddit-clone/votes/internal/votes"
)

type entity struct {
	authorID  int
	createdAt time.Time
	deleted   bool
	counters  votes.Counters
	version   int

	post    *models.Post
	comment *models.Comment
}

type Store struct {
	mu sync.RWMutex

	ledger   map[votes.VoteKey]votes.Value
	entities map[votes.EntityRef]*entity
	locks    map[votes.EntityRef]*sync.Mutex
	nextID   int
}

func NewStore() *Store {
	return &Store{
		ledger:   make(map[votes.VoteKey]votes.Value),
		entities: make(map[votes.EntityRef]*entity),
		locks:    make(map[votes.EntityRef]*sync.Mutex),
	}
}

// AddPost stores p, assigning an id and creation time when unset.
func (s *Store) AddPost(p models.Post) models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		s.nextID++
		p.ID = s.nextID
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	stored := p
	s.entities[votes.EntityRef{Kind: votes.KindPost, ID: p.ID}] = &entity{
		authorID:  p.AuthorID,
		createdAt: p.CreatedAt,
		counters:  votes.Counters{Upvotes: p.Upvotes, Downvotes: p.Downvotes},
		post:      &stored,
	}
	return p
}

// AddComment stores c, assigning an id and creation time when unset.
func (s *Store) AddComment(c models.Comment) models.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		s.nextID++
		c.ID = s.nextID
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	stored := c
	s.entities[votes.EntityRef{Kind: votes.KindComment, ID: c.ID}] = &entity{
		authorID:  c.AuthorID,
		createdAt: c.CreatedAt,
		counters:  votes.Counters{Upvotes: c.Upvotes, Downvotes: c.Downvotes},
		comment:   &stored,
	}
	return c
}

// Delete soft-deletes an entity.
func (s *Store) Delete(ref votes.EntityRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entities[ref]; ok {
		e.deleted = true
	}
}

// Counters returns the stored counters of ref.
func (s *Store) Counters(ref votes.EntityRef) (votes.Counters, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[ref]
	if !ok {
		return votes.Counters{}, false
	}
	return e.counters, true
}

// Tally counts the ledger rows of ref.
func (s *Store) Tally(ref votes.EntityRef) votes.Counters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tallyLocked(ref)
}

// Overwrite replaces the stored counters of ref without touching the ledger.
// It stands in for a crash between a ledger write and its reconciliation.
func (s *Store) Overwrite(ref votes.EntityRef, c votes.Counters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entities[ref]; ok {
		e.counters = c
	}
}

func (s *Store) ApplyVote(ctx context.Context, key votes.VoteKey, expected, requested votes.Value) (votes.CastResult, error) {
	if err := ctx.Err(); err != nil {
		return votes.CastResult{}, votes.Transient(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[key.Entity]
	if !ok || e.deleted {
		return votes.CastResult{}, votes.ErrNotFound
	}

	transition, write, err := votes.Resolve(s.ledger[key], expected, requested)
	if err != nil {
		return votes.CastResult{}, err
	}
	result := votes.CastResult{Key: key, Transition: transition, AuthorID: e.authorID, Replayed: !write}
	if !write {
		return result, nil
	}
	switch transition.Outcome {
	case votes.OutcomeCreated:
		if err := s.insertLocked(key, requested); err != nil {
			return votes.CastResult{}, err
		}
	case votes.OutcomeRetracted:
		delete(s.ledger, key)
	case votes.OutcomeSwitched:
		s.ledger[key] = requested
	}
	return result, nil
}

// insertLocked is the uniqueness constraint: a second row for a key is
// rejected, never merged.
func (s *Store) insertLocked(key votes.VoteKey, value votes.Value) error {
	if _, exists := s.ledger[key]; exists {
		return votes.ErrConflict
	}
	s.ledger[key] = value
	return nil
}

func (s *Store) VoteOf(ctx context.Context, key votes.VoteKey) (votes.Value, error) {
	if err := ctx.Err(); err != nil {
		return votes.None, votes.Transient(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger[key], nil
}

func (s *Store) Recount(ctx context.Context, ref votes.EntityRef) (votes.Counters, error) {
	lock := s.entityLock(ref)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return votes.Counters{}, votes.Transient(err)
	}

	s.mu.RLock()
	e, ok := s.entities[ref]
	if !ok || e.deleted {
		s.mu.RUnlock()
		return votes.Counters{}, votes.ErrNotFound
	}
	counters := s.tallyLocked(ref)
	s.mu.RUnlock()

	s.mu.Lock()
	e.counters = counters
	e.version++
	s.mu.Unlock()
	return counters, nil
}

func (s *Store) ApplyDelta(ctx context.Context, ref votes.EntityRef, up, down int) (votes.Counters, error) {
	if err := ctx.Err(); err != nil {
		return votes.Counters{}, votes.Transient(err)
	}
	lock := s.entityLock(ref)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[ref]
	if !ok || e.deleted {
		return votes.Counters{}, votes.ErrNotFound
	}
	e.counters.Upvotes = max(e.counters.Upvotes+up, 0)
	e.counters.Downvotes = max(e.counters.Downvotes+down, 0)
	e.version++
	return e.counters, nil
}

// ListDrifted returns drifted live entities, posts first. A limit <= 0 means
// no limit.
func (s *Store) ListDrifted(ctx context.Context, limit int) ([]votes.EntityRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, votes.Transient(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var refs []votes.EntityRef
	for ref, e := range s.entities {
		if e.deleted {
			continue
		}
		if e.counters != s.tallyLocked(ref) {
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Kind != refs[j].Kind {
			return refs[i].Kind > refs[j].Kind // posts first
		}
		return refs[i].ID < refs[j].ID
	})
	if limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}

// ListPosts returns up to limit live posts, newest first, with their current
// counters.
func (s *Store) ListPosts(_ context.Context, limit int) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var posts []models.Post
	for _, e := range s.entities {
		if e.post == nil || e.deleted {
			continue
		}
		posts = append(posts, e.postView())
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (s *Store) GetPost(_ context.Context, id int) (models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[votes.EntityRef{Kind: votes.KindPost, ID: id}]
	if !ok || e.deleted {
		return models.Post{}, votes.ErrNotFound
	}
	return e.postView(), nil
}

func (s *Store) ListComments(_ context.Context, postID int) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var comments []models.Comment
	for _, e := range s.entities {
		if e.comment == nil || e.deleted || e.comment.PostID != postID {
			continue
		}
		c := *e.comment
		c.Upvotes, c.Downvotes = e.counters.Upvotes, e.counters.Downvotes
		comments = append(comments, c)
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].CreatedAt.After(comments[j].CreatedAt) })
	return comments, nil
}

func (e *entity) postView() models.Post {
	p := *e.post
	p.Upvotes, p.Downvotes = e.counters.Upvotes, e.counters.Downvotes
	p.CounterVersion = e.version
	return p
}

func (s *Store) tallyLocked(ref votes.EntityRef) votes.Counters {
	var c votes.Counters
	for key, v := range s.ledger {
		if key.Entity != ref {
			continue
		}
		switch v {
		case votes.Up:
			c.Upvotes++
		case votes.Down:
			c.Downvotes++
		}
	}
	return c
}

func (s *Store) entityLock(ref votes.EntityRef) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[ref]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[ref] = lock
	}
	return lock
}

var (
	_ votes.LedgerStore  = (*Store)(nil)
	_ votes.CounterStore = (*Store)(nil)
)
