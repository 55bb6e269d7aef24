// Package notify delivers vote notifications to post and comment authors.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/emilythestrangee/reddit-clone/votes/internal/models"
	"github.com/emilythestrangee/reddit-clone/votes/internal/votes"
)

// DBDispatcher writes in-app notification rows.
type DBDispatcher struct {
	db *gorm.DB
}

func NewDBDispatcher(db *gorm.DB) *DBDispatcher {
	return &DBDispatcher{db: db}
}

func (d *DBDispatcher) Notify(ctx context.Context, recipientID int, kind string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode notification payload: %w", err)
	}
	row := models.Notification{
		RecipientID: recipientID,
		Kind:        kind,
		Payload:     string(body),
	}
	if err := d.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("store notification for user %d: %w", recipientID, err)
	}
	return nil
}

// Fanout calls every dispatcher and joins their errors.
type Fanout []votes.Notifier

func (f Fanout) Notify(ctx context.Context, recipientID int, kind string, payload map[string]any) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, recipientID, kind, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ votes.Notifier = (*DBDispatcher)(nil)
	_ votes.Notifier = Fanout(nil)
)
