package models

import "time"

// User carries the profile fields the vote subsystem reads. Accounts are
// managed elsewhere.
type User struct {
	ID       int    `gorm:"primaryKey" json:"id"`
	Username string `gorm:"unique;not null" json:"username"`
	Avatar   string `json:"avatar"`
	Phone    string `json:"-"` // E.164, used for SMS notifications

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
