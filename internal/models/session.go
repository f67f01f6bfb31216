package models

import "time"

const (
	SessionStatusPlanned   = "planned"
	SessionStatusConfirmed = "confirmed"
	SessionStatusDone      = "done"
	SessionStatusCancelled = "cancelled"
)

// Session statuses are a free-form field, not a strict machine: any status
// can be set over any other through an update so operators can correct
// mistakes (including un-cancelling). New sessions always start planned.
var sessionStatuses = map[string]struct{}{
	SessionStatusPlanned:   {},
	SessionStatusConfirmed: {},
	SessionStatusDone:      {},
	SessionStatusCancelled: {},
}

func ValidSessionStatus(status string) bool {
	_, ok := sessionStatuses[status]
	return ok
}

type Session struct {
	ID             int64     `json:"id"`
	ClientID       int64     `json:"client_id"`
	CoachID        int64     `json:"coach_id"`
	ServiceID      int64     `json:"service_id"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	Status         string    `json:"status"`
	Notes          *string   `json:"notes"`
	CalendarSynced bool      `json:"calendar_synced"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
