package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/reddit-clone/votes/internal/models"
	"github.com/emilythestrangee/reddit-clone/votes/internal/ranking"
)

type CommentHandler struct {
	feed FeedStore
	opts Options
}

func NewCommentHandler(feed FeedStore, opts Options) *CommentHandler {
	return &CommentHandler{feed: feed, opts: opts}
}

// GetComments returns the comments of a post ordered by ?sort= (default hot)
func (h *CommentHandler) GetComments(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := ranking.ParseOrder(c.Query("sort"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.feed.GetPost(ctx, postID); err != nil {
		writeError(c, err, "Post not found")
		return
	}

	comments, err := h.feed.ListComments(ctx, postID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}

	now := h.opts.Now()
	byID := make(map[int]models.Comment, len(comments))
	items := make([]ranking.Item, 0, len(comments))
	for _, comment := range comments {
		byID[comment.ID] = comment
		items = append(items, ranking.Item{
			ID:        comment.ID,
			Upvotes:   comment.Upvotes,
			Downvotes: comment.Downvotes,
			CreatedAt: comment.CreatedAt,
		})
	}
	ranking.Sort(items, order, now)

	responses := make([]gin.H, 0, len(items))
	for _, item := range items {
		comment := byID[item.ID]
		responses = append(responses, gin.H{
			"id":                comment.ID,
			"body":              comment.Body,
			"author_id":         comment.AuthorID,
			"post_id":           comment.PostID,
			"parent_comment_id": comment.ParentCommentID,
			"user":              comment.User,
			"upvotes":           comment.Upvotes,
			"downvotes":         comment.Downvotes,
			"score":             ranking.Score(comment.Upvotes, comment.Downvotes, comment.CreatedAt, now),
			"created_at":        comment.CreatedAt,
			"updated_at":        comment.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, responses)
}
