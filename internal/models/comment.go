package models

import (
	"time"

	"gorm.io/gorm"
)

type Comment struct {
	ID              int    `gorm:"primaryKey" json:"id"`
	Body            string `gorm:"not null" json:"body"`
	AuthorID        int    `gorm:"index" json:"author_id"`
	User            User   `gorm:"foreignKey:AuthorID" json:"user"`
	PostID          int    `gorm:"index" json:"post_id"`
	ParentCommentID *int   `json:"parent_comment_id,omitempty"`

	// Written only by the counter reconciler.
	Upvotes        int `gorm:"not null;default:0;check:chk_comments_upvotes,upvotes >= 0" json:"upvotes"`
	Downvotes      int `gorm:"not null;default:0;check:chk_comments_downvotes,downvotes >= 0" json:"downvotes"`
	CounterVersion int `gorm:"not null;default:0" json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
