package models

import "time"

// Vote is one voter's current vote on a post or comment. A retracted vote is
// deleted, so Value is always 1 or -1.
type Vote struct {
	ID         int       `gorm:"primaryKey" json:"id"`
	UserID     int       `gorm:"not null;uniqueIndex:idx_vote_identity" json:"user_id"`
	EntityKind string    `gorm:"type:varchar(16);not null;uniqueIndex:idx_vote_identity;index:idx_vote_entity" json:"entity_kind"`
	EntityID   int       `gorm:"not null;uniqueIndex:idx_vote_identity;index:idx_vote_entity" json:"entity_id"`
	Value      int       `gorm:"not null;check:chk_votes_value,value IN (-1, 1)" json:"value"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
