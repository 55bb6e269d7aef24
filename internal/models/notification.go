package models

import "time"

// Notification is an in-app notification row.
type Notification struct {
	ID          int        `gorm:"primaryKey" json:"id"`
	RecipientID int        `gorm:"not null;index" json:"recipient_id"`
	Kind        string     `gorm:"type:varchar(32);not null" json:"kind"`
	Payload     string     `gorm:"type:text" json:"payload"` // JSON object
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
