package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/reddit-clone/votes/internal/handlers"
	"github.com/emilythestrangee/reddit-clone/votes/internal/memory"
	"github.com/emilythestrangee/reddit-clone/votes/internal/middleware"
	"github.com/emilythestrangee/reddit-clone/votes/internal/models"
	"github.com/emilythestrangee/reddit-clone/votes/internal/retry"
	"github.com/emilythestrangee/reddit-clone/votes/internal/votes"
)

var (
	secret = []byte("server-test-secret")
	now    = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
)

type testEnv struct {
	router *gin.Engine
	store  *memory.Store
	svc    *votes.Service
	post   models.Post
	other  models.Post
	reply  models.Comment
}

func newEnv(t *testing.T, counters votes.CounterStore) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := memory.NewStore()
	post := store.AddPost(models.Post{Title: "popular", AuthorID: 1, CreatedAt: now.Add(-time.Hour)})
	other := store.AddPost(models.Post{Title: "quiet", AuthorID: 2, CreatedAt: now.Add(-time.Minute)})
	reply := store.AddComment(models.Comment{Body: "reply", AuthorID: 2, PostID: post.ID, CreatedAt: now})

	if counters == nil {
		counters = store
	}
	svc := &votes.Service{
		Ledger:     votes.Ledger{Store: store, Logger: logger},
		Reconciler: votes.Reconciler{Store: counters, Policy: retry.Policy{MaxAttempts: 2}, Logger: logger},
		Identity:   middleware.ContextIdentity{},
		CastPolicy: retry.Policy{MaxAttempts: 2},
		Logger:     logger,
	}
	t.Cleanup(svc.Drain)

	handler := handlers.NewHandler(store, svc, handlers.Options{
		ReconcileOnRead: true,
		Now:             func() time.Time { return now },
		Logger:          logger,
	})
	health := func(context.Context) map[string]string { return map[string]string{"status": "up"} }

	return &testEnv{
		router: NewRouter(handler, secret, health),
		store:  store,
		svc:    svc,
		post:   post,
		other:  other,
		reply:  reply,
	}
}

func token(t *testing.T, userID int) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString(secret)
	require.NoError(t, err)
	return signed
}

func (e *testEnv) do(t *testing.T, method, path string, userID int, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID > 0 {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var decoded map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	return w, decoded
}

func TestVotePost(t *testing.T) {
	env := newEnv(t, nil)
	path := fmt.Sprintf("/api/posts/%d/vote", env.post.ID)

	w, body := env.do(t, http.MethodPost, path, 10, `{"vote_type": 1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Vote recorded", body["message"])
	assert.Equal(t, "created", body["outcome"])
	assert.EqualValues(t, 1, body["upvotes"])
	assert.EqualValues(t, 0, body["downvotes"])
	assert.Equal(t, false, body["pending"])

	w, body = env.do(t, http.MethodPost, path, 10, `{"vote_type": -1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Vote updated", body["message"])
	assert.EqualValues(t, 1, body["previous"])
	assert.EqualValues(t, -1, body["vote_type"])
	assert.EqualValues(t, 1, body["downvotes"])

	w, body = env.do(t, http.MethodGet, path, 10, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, -1, body["vote_type"])

	w, body = env.do(t, http.MethodPost, path, 10, `{"vote_type": -1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Vote removed", body["message"])
	assert.EqualValues(t, 0, body["vote_type"])
	assert.EqualValues(t, 0, body["downvotes"])
}

func TestVotePostErrors(t *testing.T) {
	env := newEnv(t, nil)
	path := fmt.Sprintf("/api/posts/%d/vote", env.post.ID)

	tests := []struct {
		name   string
		path   string
		user   int
		body   string
		status int
	}{
		{"anonymous", path, 0, `{"vote_type": 1}`, http.StatusUnauthorized},
		{"zero vote", path, 3, `{"vote_type": 0}`, http.StatusBadRequest},
		{"out of range", path, 3, `{"vote_type": 2}`, http.StatusBadRequest},
		{"missing body", path, 3, "", http.StatusBadRequest},
		{"bad id", "/api/posts/abc/vote", 3, `{"vote_type": 1}`, http.StatusBadRequest},
		{"unknown post", "/api/posts/9999/vote", 3, `{"vote_type": 1}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := env.do(t, http.MethodPost, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	c, _ := env.store.Counters(votes.EntityRef{Kind: votes.KindPost, ID: env.post.ID})
	assert.Equal(t, votes.Counters{}, c)
}

func TestInvalidTokenIsRejected(t *testing.T) {
	env := newEnv(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	req.Header.Set("Authorization", "Bearer forged")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCommentVoteRoutes(t *testing.T) {
	env := newEnv(t, nil)
	base := fmt.Sprintf("/api/comments/%d", env.reply.ID)

	w, body := env.do(t, http.MethodPost, base+"/upvote", 4, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "created", body["outcome"])

	w, body = env.do(t, http.MethodPost, base+"/downvote", 4, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "switched", body["outcome"])
	assert.EqualValues(t, 0, body["upvotes"])
	assert.EqualValues(t, 1, body["downvotes"])

	w, body = env.do(t, http.MethodPost, base+"/vote", 5, `{"vote_type": -1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, body["downvotes"])

	w, _ = env.do(t, http.MethodPost, "/api/comments/9999/upvote", 4, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Comment not found")
}

func TestPendingVoteOmitsCounters(t *testing.T) {
	failing := &failingRecounts{}
	env := newEnv(t, failing)
	failing.Store = env.store

	w, body := env.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/vote", env.post.ID), 6, `{"vote_type": 1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["pending"])
	assert.NotContains(t, body, "upvotes")

	w, _ = env.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/reconcile", env.post.ID), 6, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetPostsSorted(t *testing.T) {
	env := newEnv(t, nil)
	for voter := 20; voter < 25; voter++ {
		_, err := env.svc.Cast(middleware.WithVoter(context.Background(), voter),
			votes.EntityRef{Kind: votes.KindPost, ID: env.post.ID}, votes.Up)
		require.NoError(t, err)
	}

	var list []map[string]any

	w, _ := env.do(t, http.MethodGet, "/api/posts?sort=top", 0, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.EqualValues(t, env.post.ID, list[0]["id"])
	assert.EqualValues(t, 5, list[0]["upvotes"])
	assert.Contains(t, list[0], "score")

	w, _ = env.do(t, http.MethodGet, "/api/posts?sort=new&limit=1", 0, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.EqualValues(t, env.other.ID, list[0]["id"])

	w, _ = env.do(t, http.MethodGet, "/api/posts?sort=best", 0, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHotFeedRanksOnlyTheWindow(t *testing.T) {
	env := newEnv(t, nil)
	ancient := env.store.AddPost(models.Post{Title: "ancient", AuthorID: 3, CreatedAt: now.Add(-48 * time.Hour)})

	handler := handlers.NewHandler(env.store, env.svc, handlers.Options{
		FeedWindow: 2,
		Now:        func() time.Time { return now },
	})
	router := NewRouter(handler, secret, func(context.Context) map[string]string { return nil })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/posts?sort=hot", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	// The older post inside the window outranks the newer one, while the
	// oldest post overall is never a candidate.
	assert.EqualValues(t, env.post.ID, list[0]["id"])
	assert.EqualValues(t, env.other.ID, list[1]["id"])
	for _, item := range list {
		assert.NotEqualValues(t, ancient.ID, item["id"])
	}
}

func TestGetPostReconcilesOnRead(t *testing.T) {
	env := newEnv(t, nil)
	ref := votes.EntityRef{Kind: votes.KindPost, ID: env.post.ID}
	_, err := env.svc.Cast(middleware.WithVoter(context.Background(), 30), ref, votes.Down)
	require.NoError(t, err)
	env.store.Overwrite(ref, votes.Counters{Upvotes: 99})

	w, body := env.do(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", env.post.ID), 0, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, body["upvotes"])
	assert.EqualValues(t, 1, body["downvotes"])

	w, _ = env.do(t, http.MethodGet, "/api/posts/9999", 0, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetComments(t *testing.T) {
	env := newEnv(t, nil)

	w, _ := env.do(t, http.MethodGet, fmt.Sprintf("/api/posts/%d/comments", env.post.ID), 0, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "reply", list[0]["body"])

	w, _ = env.do(t, http.MethodGet, "/api/posts/9999/comments", 0, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReconcileRoute(t *testing.T) {
	env := newEnv(t, nil)
	ref := votes.EntityRef{Kind: votes.KindComment, ID: env.reply.ID}
	_, err := env.svc.Cast(middleware.WithVoter(context.Background(), 8), ref, votes.Up)
	require.NoError(t, err)
	env.store.Overwrite(ref, votes.Counters{})

	w, body := env.do(t, http.MethodPost, fmt.Sprintf("/api/comments/%d/reconcile", env.reply.ID), 8, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["upvotes"])

	c, _ := env.store.Counters(ref)
	assert.Equal(t, votes.Counters{Upvotes: 1}, c)
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := handlers.NewHandler(memory.NewStore(), &votes.Service{}, handlers.Options{})

	for status, code := range map[string]int{"up": http.StatusOK, "down": http.StatusServiceUnavailable} {
		health := func(context.Context) map[string]string { return map[string]string{"status": status} }
		w := httptest.NewRecorder()
		NewRouter(handler, secret, health).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, code, w.Code, status)
	}
}

type failingRecounts struct {
	*memory.Store
}

func (f *failingRecounts) Recount(context.Context, votes.EntityRef) (votes.Counters, error) {
	return votes.Counters{}, votes.Transient(errors.New("connection reset by peer"))
}
