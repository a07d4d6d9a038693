package dispatch

import (
	"context"
	"fmt"

	"maintenance-service/internal/logging"
	"maintenance-service/internal/models"
)

// NotificationStore persists in-app records and resolves recipient contacts.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	UserContacts(ctx context.Context, userID int) (models.Contact, error)
}

// EmailSender delivers one email. Best-effort.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// TelegramSender delivers one telegram message. Best-effort.
type TelegramSender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Dispatcher fans a notification out to the in-app inbox (required), the
// recipient's websocket connections, and any external channels their contact
// record resolves to. Only the in-app write can fail the dispatch; external
// deliveries are logged and dropped on error, retryable by the next human
// glance at the inbox rather than by re-firing the escalation.
type Dispatcher struct {
	store    NotificationStore
	ws       *WSManager
	email    EmailSender
	telegram TelegramSender
	logger   *logging.Logger
}

func New(store NotificationStore, ws *WSManager, email EmailSender, telegram TelegramSender, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		ws:       ws,
		email:    email,
		telegram: telegram,
		logger:   logger,
	}
}

// Dispatch delivers one notification to one recipient.
func (d *Dispatcher) Dispatch(ctx context.Context, n models.Notification) error {
	if err := d.store.CreateNotification(ctx, &n); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}

	if d.ws != nil {
		d.ws.SendToUser(n.UserID, []byte(n.Title))
	}

	contact, err := d.store.UserContacts(ctx, n.UserID)
	if err != nil {
		d.logger.Warnf("Contact lookup failed for user %d, in-app only: %v", n.UserID, err)
		return nil
	}

	if contact.Email != "" && d.email != nil {
		if err := d.email.Send(ctx, contact.Email, n.Title, n.Message); err != nil {
			d.logger.Errorf("Email to %s failed: %v", contact.Email, err)
		}
	}
	if contact.TelegramChatID != 0 && d.telegram != nil {
		if err := d.telegram.Send(ctx, contact.TelegramChatID, n.Title+"\n\n"+n.Message); err != nil {
			d.logger.Errorf("Telegram to chat %d failed: %v", contact.TelegramChatID, err)
		}
	}
	return nil
}
