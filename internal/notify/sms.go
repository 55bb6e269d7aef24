package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gorm.io/gorm"

	"github.com/emilythestrangee/reddit-clone/votes/internal/models"
	"github.com/emilythestrangee/reddit-clone/votes/internal/votes"
)

// MessageSender is the slice of the Twilio client the SMS dispatcher needs.
type MessageSender interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// SMSDispatcher texts the recipient's phone number on file. Users without a
// phone number are skipped.
type SMSDispatcher struct {
	db     *gorm.DB
	sender MessageSender
	from   string
}

// NewTwilioDispatcher builds an SMSDispatcher on a Twilio REST client.
func NewTwilioDispatcher(db *gorm.DB, accountSID, authToken, from string) *SMSDispatcher {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return NewSMSDispatcher(db, client.Api, from)
}

func NewSMSDispatcher(db *gorm.DB, sender MessageSender, from string) *SMSDispatcher {
	return &SMSDispatcher{db: db, sender: sender, from: from}
}

func (d *SMSDispatcher) Notify(ctx context.Context, recipientID int, kind string, payload map[string]any) error {
	var user models.User
	if err := d.db.WithContext(ctx).Select("id", "phone").First(&user, recipientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("look up phone for user %d: %w", recipientID, err)
	}
	if user.Phone == "" {
		return nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(user.Phone)
	params.SetFrom(d.from)
	params.SetBody(messageBody(kind, payload))

	if _, err := d.sender.CreateMessage(params); err != nil {
		return fmt.Errorf("send sms to user %d: %w", recipientID, err)
	}
	return nil
}

func messageBody(kind string, payload map[string]any) string {
	if kind == votes.NotificationUpvote {
		return fmt.Sprintf("Your %v received a new upvote.", payload["entity_kind"])
	}
	return fmt.Sprintf("You have a new %s notification.", kind)
}

var _ votes.Notifier = (*SMSDispatcher)(nil)
