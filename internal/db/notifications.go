package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"maintenance-service/internal/models"
)

// CreateNotification persists an in-app notification record.
func (d *DB) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Status == "" {
		n.Status = models.NotificationUnread
	}
	query := `
		INSERT INTO notifications (id, user_id, title, message, entity_type, entity_id, level, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at`
	err := d.Pool.QueryRow(ctx, query,
		n.ID, n.UserID, n.Title, n.Message, n.EntityType, n.EntityID, n.Level, n.Status,
	).Scan(&n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification for user %d: %w", n.UserID, err)
	}
	return nil
}

// ListNotificationsByUser returns a user's inbox, newest first.
func (d *DB) ListNotificationsByUser(ctx context.Context, userID, limit, offset int) ([]models.Notification, error) {
	query := `
		SELECT id, user_id, title, message, entity_type, entity_id, level, status, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := d.Pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications for user %d: %w", userID, err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.EntityType, &n.EntityID, &n.Level, &n.Status, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead flips one unread notification to read. The update is
// conditioned on ownership and current status.
func (d *DB) MarkNotificationRead(ctx context.Context, id uuid.UUID, userID int) error {
	query := `
		UPDATE notifications
		SET status = 'read'
		WHERE id = $1 AND user_id = $2 AND status = 'unread'`
	result, err := d.Pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification %s read: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// UserContacts resolves a user's delivery addresses from the identity
// directory. A missing row is not an error: the user simply has no external
// channels and receives in-app notifications only.
func (d *DB) UserContacts(ctx context.Context, userID int) (models.Contact, error) {
	var c models.Contact
	query := `
		SELECT user_id, COALESCE(email, ''), COALESCE(telegram_chat_id, 0)
		FROM user_contacts
		WHERE user_id = $1`
	err := d.Pool.QueryRow(ctx, query, userID).Scan(&c.UserID, &c.Email, &c.TelegramChatID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.Contact{UserID: userID}, nil
		}
		return models.Contact{}, fmt.Errorf("failed to resolve contacts for user %d: %w", userID, err)
	}
	return c, nil
}
