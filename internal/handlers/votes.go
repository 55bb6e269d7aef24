package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/reddit-clone/votes/internal/votes"
)

type VoteHandler struct {
	svc VoteService
}

func NewVoteHandler(svc VoteService) *VoteHandler {
	return &VoteHandler{svc: svc}
}

var outcomeMessages = map[votes.Outcome]string{
	votes.OutcomeCreated:   "Vote recorded",
	votes.OutcomeRetracted: "Vote removed",
	votes.OutcomeSwitched:  "Vote updated",
}

// VotePost handles upvoting/downvoting a post
func (h *VoteHandler) VotePost(c *gin.Context) {
	h.vote(c, votes.KindPost, "id", 0)
}

// VoteComment handles upvoting/downvoting a comment
func (h *VoteHandler) VoteComment(c *gin.Context) {
	h.vote(c, votes.KindComment, "commentId", 0)
}

// UpvoteComment toggles the caller's upvote on a comment
func (h *VoteHandler) UpvoteComment(c *gin.Context) {
	h.vote(c, votes.KindComment, "commentId", votes.Up)
}

// DownvoteComment toggles the caller's downvote on a comment
func (h *VoteHandler) DownvoteComment(c *gin.Context) {
	h.vote(c, votes.KindComment, "commentId", votes.Down)
}

// vote casts fixed when it is non-zero, otherwise the vote_type in the body.
func (h *VoteHandler) vote(c *gin.Context, kind votes.EntityKind, param string, fixed votes.Value) {
	id, ok := pathID(c, param)
	if !ok {
		return
	}

	requested := fixed
	if requested == votes.None {
		var input struct {
			VoteType int `json:"vote_type" binding:"required,oneof=-1 1"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Vote type must be -1 or 1"})
			return
		}
		requested = votes.Value(input.VoteType)
	}

	ref := votes.EntityRef{Kind: kind, ID: id}
	result, err := h.svc.Cast(c.Request.Context(), ref, requested)
	if err != nil {
		writeError(c, err, notFoundMessage(kind))
		return
	}

	resp := gin.H{
		"message":   outcomeMessages[result.Outcome],
		"outcome":   result.Outcome,
		"previous":  int(result.Previous),
		"vote_type": int(result.Current),
		"pending":   result.Pending,
	}
	if !result.Pending {
		resp["upvotes"] = result.Counters.Upvotes
		resp["downvotes"] = result.Counters.Downvotes
	}
	c.JSON(http.StatusOK, resp)
}

// GetPostVote returns the caller's current vote on a post
func (h *VoteHandler) GetPostVote(c *gin.Context) {
	h.current(c, votes.KindPost, "id")
}

// GetCommentVote returns the caller's current vote on a comment
func (h *VoteHandler) GetCommentVote(c *gin.Context) {
	h.current(c, votes.KindComment, "commentId")
}

func (h *VoteHandler) current(c *gin.Context, kind votes.EntityKind, param string) {
	id, ok := pathID(c, param)
	if !ok {
		return
	}
	value, err := h.svc.VoteOf(c.Request.Context(), votes.EntityRef{Kind: kind, ID: id})
	if err != nil {
		writeError(c, err, notFoundMessage(kind))
		return
	}
	c.JSON(http.StatusOK, gin.H{"vote_type": int(value)})
}

// ReconcilePost recounts a post's votes
func (h *VoteHandler) ReconcilePost(c *gin.Context) {
	h.reconcile(c, votes.KindPost, "id")
}

// ReconcileComment recounts a comment's votes
func (h *VoteHandler) ReconcileComment(c *gin.Context) {
	h.reconcile(c, votes.KindComment, "commentId")
}

func (h *VoteHandler) reconcile(c *gin.Context, kind votes.EntityKind, param string) {
	id, ok := pathID(c, param)
	if !ok {
		return
	}
	counters, err := h.svc.Reconcile(c.Request.Context(), votes.EntityRef{Kind: kind, ID: id})
	if err != nil {
		writeError(c, err, notFoundMessage(kind))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"upvotes":   counters.Upvotes,
		"downvotes": counters.Downvotes,
	})
}

func notFoundMessage(kind votes.EntityKind) string {
	if kind == votes.KindComment {
		return "Comment not found"
	}
	return "Post not found"
}
