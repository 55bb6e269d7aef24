package models

import (
	"time"

	"gorm.io/gorm"
)

type Post struct {
	ID          int    `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"not null" json:"title"`
	Body        string `json:"body"`
	Image       string `json:"image"`
	AuthorID    int    `gorm:"index" json:"author_id"`
	User        User   `gorm:"foreignKey:AuthorID" json:"user"`
	CommunityID int    `gorm:"index" json:"community_id"`

	// Written only by the counter reconciler.
	Upvotes        int `gorm:"not null;default:0;check:chk_posts_upvotes,upvotes >= 0" json:"upvotes"`
	Downvotes      int `gorm:"not null;default:0;check:chk_posts_downvotes,downvotes >= 0" json:"downvotes"`
	CounterVersion int `gorm:"not null;default:0" json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
