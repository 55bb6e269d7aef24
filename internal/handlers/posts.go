package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/reddit-clone/votes/internal/models"
	"github.com/emilythestrangee/reddit-clone/votes/internal/ranking"
	"github.com/emilythestrangee/reddit-clone/votes/internal/votes"
)

type PostHandler struct {
	feed FeedStore
	svc  VoteService
	opts Options
}

func NewPostHandler(feed FeedStore, svc VoteService, opts Options) *PostHandler {
	return &PostHandler{feed: feed, svc: svc, opts: opts}
}

// GetPosts returns a ranked page of posts. ?sort= picks hot, top, new or
// controversial.
func (h *PostHandler) GetPosts(c *gin.Context) {
	order, err := ranking.ParseOrder(c.Query("sort"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit := queryLimit(c, 25)

	posts, err := h.feed.ListPosts(c.Request.Context(), h.opts.FeedWindow)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	now := h.opts.Now()
	byID := make(map[int]models.Post, len(posts))
	items := make([]ranking.Item, 0, len(posts))
	for _, post := range posts {
		byID[post.ID] = post
		items = append(items, ranking.Item{
			ID:        post.ID,
			Upvotes:   post.Upvotes,
			Downvotes: post.Downvotes,
			CreatedAt: post.CreatedAt,
		})
	}
	ranking.Sort(items, order, now)
	if len(items) > limit {
		items = items[:limit]
	}

	// DON'T embed models.Post, build each response manually
	responses := make([]gin.H, 0, len(items))
	for _, item := range items {
		responses = append(responses, postResponse(byID[item.ID], now))
	}

	c.JSON(http.StatusOK, responses)
}

// GetPost returns a single post by ID
func (h *PostHandler) GetPost(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	post, err := h.feed.GetPost(ctx, postID)
	if err != nil {
		writeError(c, err, "Post not found")
		return
	}

	if h.opts.ReconcileOnRead {
		counters, err := h.svc.Reconcile(ctx, votes.EntityRef{Kind: votes.KindPost, ID: post.ID})
		if err != nil {
			// Serve the stored counters; the sweep will catch up.
			h.opts.Logger.Warn("read-path reconciliation failed",
				"event", "votes_read_reconcile_failed",
				"module", "votes",
				"layer", "handler",
				"post_id", post.ID,
				"error", err.Error(),
			)
		} else {
			post.Upvotes, post.Downvotes = counters.Upvotes, counters.Downvotes
		}
	}

	c.JSON(http.StatusOK, postResponse(post, h.opts.Now()))
}

func postResponse(post models.Post, now time.Time) gin.H {
	return gin.H{
		"id":           post.ID,
		"title":        post.Title,
		"body":         post.Body,
		"image":        post.Image,
		"author_id":    post.AuthorID,
		"community_id": post.CommunityID,
		"user":         post.User,
		"upvotes":      post.Upvotes,
		"downvotes":    post.Downvotes,
		"score":        ranking.Score(post.Upvotes, post.Downvotes, post.CreatedAt, now),
		"created_at":   post.CreatedAt,
		"updated_at":   post.UpdatedAt,
	}
}
