// internal/repository/notification_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gurkanbulca/workhub/internal/models"
)

type NotificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{
		db: db,
	}
}

func (r *NotificationRepository) Create(ctx context.Context, input *NotificationInput) (*models.Notification, error) {
	n := &models.Notification{
		ID:          uuid.New().String(),
		RecipientID: input.RecipientID,
		ActorID:     input.ActorID,
		ActorName:   input.ActorName,
		Type:        input.Type,
		Data:        input.Data,
		IsRead:      false,
		CreatedAt:   time.Now().UTC(),
	}
	if n.Data == nil {
		n.Data = models.NotificationData{}
	}

	query := r.db.Rebind(`
		INSERT INTO notifications (
			id, recipient_id, actor_id, actor_name, type, data, is_read, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.RecipientID, n.ActorID, n.ActorName, n.Type, n.Data, n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating notification: %w", err)
	}

	return n, nil
}

func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	query := r.db.Rebind("SELECT * FROM notifications WHERE id = ?")
	if err := r.db.GetContext(ctx, &n, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting notification %s: %w", id, err)
	}
	return &n, nil
}

func (r *NotificationRepository) ListUnread(ctx context.Context, recipientID string) ([]models.Notification, error) {
	var notifications []models.Notification
	query := r.db.Rebind(`
		SELECT * FROM notifications
		WHERE recipient_id = ? AND is_read = ?
		ORDER BY created_at DESC`)
	if err := r.db.SelectContext(ctx, &notifications, query, recipientID, false); err != nil {
		return nil, fmt.Errorf("listing unread notifications: %w", err)
	}
	return notifications, nil
}

// Backlog returns the unread notifications created since the given instant,
// newest first, capped at limit. Used for replay on reconnect.
func (r *NotificationRepository) Backlog(ctx context.Context, recipientID string, since time.Time, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	query := r.db.Rebind(fmt.Sprintf(`
		SELECT * FROM notifications
		WHERE recipient_id = ? AND is_read = ? AND created_at >= ?
		ORDER BY created_at DESC
		LIMIT %d`, limit))
	if err := r.db.SelectContext(ctx, &notifications, query, recipientID, false, since); err != nil {
		return nil, fmt.Errorf("querying notification backlog: %w", err)
	}
	return notifications, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id string) (*models.Notification, error) {
	query := r.db.Rebind(`
		UPDATE notifications SET is_read = ?, read_at = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, true, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("marking notification %s read: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	query := r.db.Rebind(`
		UPDATE notifications SET is_read = ?, read_at = ?
		WHERE recipient_id = ? AND is_read = ?`)
	result, err := r.db.ExecContext(ctx, query, true, time.Now().UTC(), recipientID, false)
	if err != nil {
		return 0, fmt.Errorf("marking all notifications read: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

type NotificationInput struct {
	RecipientID string
	ActorID     *string
	ActorName   *string
	Type        string
	Data        models.NotificationData
}
