package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/nathan7836/sportsant-api/internal/models"
)

type CreateNotificationInput struct {
	UserID  int64
	Type    string
	Title   string
	Message string
	Link    *string
}

type NotificationRepository struct {
	db DBTX
}

func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(
	ctx context.Context,
	input CreateNotificationInput,
) (*models.Notification, error) {
	query := `
		INSERT INTO notifications (user_id, type, title, message, link)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, type, title, message, link, read, created_at
	`
	var notification models.Notification
	err := r.db.QueryRow(
		ctx,
		query,
		input.UserID,
		input.Type,
		input.Title,
		input.Message,
		input.Link,
	).Scan(
		&notification.ID,
		&notification.UserID,
		&notification.Type,
		&notification.Title,
		&notification.Message,
		&notification.Link,
		&notification.Read,
		&notification.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *NotificationRepository) ListByUser(
	ctx context.Context,
	userID int64,
	limit int,
) ([]models.Notification, error) {
	query := `
		SELECT id, user_id, type, title, message, link, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]models.Notification, 0)
	for rows.Next() {
		var notification models.Notification
		if err := rows.Scan(
			&notification.ID,
			&notification.UserID,
			&notification.Type,
			&notification.Title,
			&notification.Message,
			&notification.Link,
			&notification.Read,
			&notification.CreatedAt,
		); err != nil {
			return nil, err
		}
		notifications = append(notifications, notification)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM notifications
		WHERE user_id = $1 AND read = FALSE
	`
	var count int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRead is idempotent: marking an already-read notification again matches
// the row and is a no-op on its content.
func (r *NotificationRepository) MarkRead(ctx context.Context, notificationID int64) error {
	tag, err := r.db.Exec(
		ctx,
		"UPDATE notifications SET read = TRUE WHERE id = $1",
		notificationID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(
		ctx,
		"UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE",
		userID,
	)
	return err
}
