package models

import "time"

const (
	ChangeRequestTypeCancel     = "cancel"
	ChangeRequestTypeReschedule = "reschedule"

	ChangeRequestStatusPending  = "pending"
	ChangeRequestStatusApproved = "approved"
	ChangeRequestStatusRejected = "rejected"
)

func ValidChangeRequestType(requestType string) bool {
	return requestType == ChangeRequestTypeCancel || requestType == ChangeRequestTypeReschedule
}

// ChangeRequest is a one-shot audit record, unlike the session status field:
// pending is the only mutable state, and a request that has been approved or
// rejected is never touched again. ProposedAt is kept after rejection.
type ChangeRequest struct {
	ID            int64      `json:"id"`
	SessionID     int64      `json:"session_id"`
	CoachID       int64      `json:"coach_id"`
	Type          string     `json:"type"`
	Reason        string     `json:"reason"`
	ProposedAt    *time.Time `json:"proposed_at"`
	Status        string     `json:"status"`
	AdminResponse *string    `json:"admin_response"`
	CreatedAt     time.Time  `json:"created_at"`
	RespondedAt   *time.Time `json:"responded_at"`
}
