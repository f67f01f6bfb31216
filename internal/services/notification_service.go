package services

import (
	"context"
	"fmt"
	"log"

	"github.com/nathan7836/sportsant-api/internal/models"
	"github.com/nathan7836/sportsant-api/internal/repository"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 50
)

type notificationStore interface {
	Create(ctx context.Context, input repository.CreateNotificationInput) (*models.Notification, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, notificationID int64) error
	MarkAllRead(ctx context.Context, userID int64) error
}

// notificationPusher delivers a just-persisted notification to live
// listeners. Delivery is best effort and never affects the stored row.
type notificationPusher interface {
	Push(userID int64, notification *models.Notification)
}

type NotificationService struct {
	notifications notificationStore
	stream        notificationPusher
}

func NewNotificationService(
	notifications notificationStore,
	stream notificationPusher,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		stream:        stream,
	}
}

// FanOut writes one notification row per recipient. Each write is
// independent: a failing recipient is logged and skipped so the rest of the
// set is still notified. Returns how many rows were created.
func (s *NotificationService) FanOut(
	ctx context.Context,
	recipientIDs []int64,
	notificationType string,
	title string,
	message string,
	link *string,
) int {
	delivered := 0
	for _, recipientID := range recipientIDs {
		notification, err := s.notifications.Create(ctx, repository.CreateNotificationInput{
			UserID:  recipientID,
			Type:    notificationType,
			Title:   title,
			Message: message,
			Link:    link,
		})
		if err != nil {
			log.Printf("notification fan-out: recipient %d: %v", recipientID, err)
			continue
		}
		delivered++
		if s.stream != nil {
			s.stream.Push(recipientID, notification)
		}
	}
	return delivered
}

func (s *NotificationService) ListForUser(
	ctx context.Context,
	userID int64,
	limit int,
) ([]models.Notification, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}

	notifications, err := s.notifications.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return notifications, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID int64) (int, error) {
	if userID <= 0 {
		return 0, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	count, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return 0, classifyStoreError(err)
	}
	return count, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, notificationID int64) error {
	if notificationID <= 0 {
		return fmt.Errorf("%w: notification id is required", ErrValidation)
	}
	if err := s.notifications.MarkRead(ctx, notificationID); err != nil {
		return classifyStoreError(err)
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if err := s.notifications.MarkAllRead(ctx, userID); err != nil {
		return classifyStoreError(err)
	}
	return nil
}
