package models

import "time"

const (
	NotificationTypeRequestNew      = "request_new"
	NotificationTypeRequestApproved = "request_approved"
	NotificationTypeRequestRejected = "request_rejected"
)

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      *string   `json:"link"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
