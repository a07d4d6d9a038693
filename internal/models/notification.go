package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is one in-app inbox entry for one recipient. Escalation sweeps
// create one per notified user; delivery over email/telegram is best-effort
// and tracked independently of the record itself.
type Notification struct {
	ID         uuid.UUID `json:"id"`
	UserID     int       `json:"user_id"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	EntityType string    `json:"entity_type"`
	EntityID   uuid.UUID `json:"entity_id"`
	Level      int       `json:"level,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Notification status values.
const (
	NotificationUnread = "unread"
	NotificationRead   = "read"
)

// Contact holds the resolvable delivery addresses for a user. Empty fields
// mean the corresponding channel is skipped for that user.
type Contact struct {
	UserID         int    `json:"user_id"`
	Email          string `json:"email,omitempty"`
	TelegramChatID int64  `json:"telegram_chat_id,omitempty"`
}
