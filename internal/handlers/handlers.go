package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/reddit-clone/votes/internal/models"
	"github.com/emilythestrangee/reddit-clone/votes/internal/votes"
)

// VoteService is what the vote endpoints need from the vote subsystem.
type VoteService interface {
	Cast(ctx context.Context, entity votes.EntityRef, requested votes.Value) (votes.VoteResult, error)
	Reconcile(ctx context.Context, entity votes.EntityRef) (votes.Counters, error)
	VoteOf(ctx context.Context, entity votes.EntityRef) (votes.Value, error)
}

// FeedStore reads posts and comments along with their stored counters.
type FeedStore interface {
	ListPosts(ctx context.Context, limit int) ([]models.Post, error)
	GetPost(ctx context.Context, id int) (models.Post, error)
	ListComments(ctx context.Context, postID int) ([]models.Comment, error)
}

type Options struct {
	// ReconcileOnRead recounts a post before returning it from GetPost.
	ReconcileOnRead bool
	// FeedWindow is how many recent posts are ranked for a feed page.
	// Only the newest FeedWindow posts are candidates, while ranking.Score
	// adds the age term and so favors the older posts inside the window.
	// A hot feed is therefore ordered within that window only, not across
	// every post.
	FeedWindow int
	Now        func() time.Time
	Logger     *slog.Logger
}

// Handler combines all handler types
type Handler struct {
	Post    *PostHandler
	Comment *CommentHandler
	Vote    *VoteHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(feed FeedStore, svc VoteService, opts Options) *Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.FeedWindow <= 0 {
		opts.FeedWindow = 500
	}
	opts.Logger = votes.ResolveLogger(opts.Logger)

	return &Handler{
		Post:    NewPostHandler(feed, svc, opts),
		Comment: NewCommentHandler(feed, opts),
		Vote:    NewVoteHandler(svc),
	}
}

func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

// queryLimit reads ?limit=, clamped to [1, 100].
func queryLimit(c *gin.Context, fallback int) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return fallback
	}
	return min(limit, 100)
}

// writeError maps the vote error taxonomy onto HTTP statuses.
func writeError(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, votes.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
	case errors.Is(err, votes.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
	case errors.Is(err, votes.ErrInvalidVote):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Vote type must be -1 or 1"})
	case errors.Is(err, votes.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Vote changed concurrently, please retry"})
	case errors.Is(err, votes.ErrTransientStorage), errors.Is(err, votes.ErrReconciliationFailed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage temporarily unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
