package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nathan7836/sportsant-api/internal/models"
	"github.com/nathan7836/sportsant-api/internal/repository"
)

const recurringNoteMarker = "[recurring]"

type sessionStore interface {
	Create(ctx context.Context, input repository.CreateSessionInput) (*models.Session, error)
	GetByID(ctx context.Context, sessionID int64) (*models.Session, error)
	Update(ctx context.Context, input repository.UpdateSessionInput) (*models.Session, error)
	Delete(ctx context.Context, sessionID int64) error
	List(ctx context.Context, filter repository.SessionListFilter) ([]models.Session, error)
}

type SchedulingService struct {
	sessions sessionStore
}

func NewSchedulingService(sessions sessionStore) *SchedulingService {
	return &SchedulingService{sessions: sessions}
}

type CreateSessionInput struct {
	ClientID    int64
	CoachID     int64
	ServiceID   int64
	ScheduledAt time.Time
	Notes       *string
}

type RecurringSessionsInput struct {
	ClientID  int64
	CoachID   int64
	ServiceID int64
	Start     time.Time
	End       time.Time
	Weekdays  map[time.Weekday]struct{}
	Notes     *string
}

type OccurrenceFailure struct {
	ScheduledAt time.Time `json:"scheduled_at"`
	Reason      string    `json:"reason"`
}

// RecurringResult reports a batch that is written one occurrence at a time:
// an item failure never rolls back or aborts the rest of the batch.
type RecurringResult struct {
	Created []models.Session    `json:"created"`
	Failed  []OccurrenceFailure `json:"failed"`
}

type UpdateSessionInput struct {
	ID          int64
	ScheduledAt time.Time
	CoachID     int64
	Status      string
	Notes       *string
}

func (s *SchedulingService) CreateSession(
	ctx context.Context,
	input CreateSessionInput,
) (*models.Session, error) {
	if input.ClientID <= 0 || input.CoachID <= 0 || input.ServiceID <= 0 {
		return nil, fmt.Errorf("%w: client, coach and service are required", ErrValidation)
	}
	if input.ScheduledAt.IsZero() {
		return nil, fmt.Errorf("%w: scheduled_at is required", ErrValidation)
	}

	session, err := s.sessions.Create(ctx, repository.CreateSessionInput{
		ClientID:    input.ClientID,
		CoachID:     input.CoachID,
		ServiceID:   input.ServiceID,
		ScheduledAt: input.ScheduledAt,
		Notes:       input.Notes,
	})
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return session, nil
}

func (s *SchedulingService) CreateRecurringSessions(
	ctx context.Context,
	input RecurringSessionsInput,
) (*RecurringResult, error) {
	if input.ClientID <= 0 || input.CoachID <= 0 || input.ServiceID <= 0 {
		return nil, fmt.Errorf("%w: client, coach and service are required", ErrValidation)
	}
	if input.Start.IsZero() || input.End.IsZero() {
		return nil, fmt.Errorf("%w: start and end dates are required", ErrValidation)
	}

	occurrences, err := ExpandWeekly(input.Start, input.End, input.Weekdays)
	if err != nil {
		return nil, err
	}

	notes := recurringNoteMarker
	if input.Notes != nil && strings.TrimSpace(*input.Notes) != "" {
		notes = strings.TrimSpace(*input.Notes) + " " + recurringNoteMarker
	}

	result := &RecurringResult{
		Created: make([]models.Session, 0, len(occurrences)),
		Failed:  make([]OccurrenceFailure, 0),
	}
	for _, occurrence := range occurrences {
		session, err := s.sessions.Create(ctx, repository.CreateSessionInput{
			ClientID:    input.ClientID,
			CoachID:     input.CoachID,
			ServiceID:   input.ServiceID,
			ScheduledAt: occurrence,
			Notes:       &notes,
		})
		if err != nil {
			log.Printf("recurring batch: occurrence %s: %v", occurrence.Format(time.RFC3339), err)
			result.Failed = append(result.Failed, OccurrenceFailure{
				ScheduledAt: occurrence,
				Reason:      classifyStoreError(err).Error(),
			})
			continue
		}
		result.Created = append(result.Created, *session)
	}

	return result, nil
}

// UpdateSession overwrites schedule, coach, status and notes. Cross-field
// consistency (say, a done session dated in the future) is not checked:
// manual correction by an operator is a first-class use case here.
func (s *SchedulingService) UpdateSession(
	ctx context.Context,
	input UpdateSessionInput,
) (*models.Session, error) {
	if input.ID <= 0 {
		return nil, fmt.Errorf("%w: session id is required", ErrValidation)
	}
	if input.ScheduledAt.IsZero() || input.CoachID <= 0 {
		return nil, fmt.Errorf("%w: scheduled_at and coach are required", ErrValidation)
	}
	if !models.ValidSessionStatus(input.Status) {
		return nil, fmt.Errorf("%w: invalid status %q", ErrValidation, input.Status)
	}

	session, err := s.sessions.Update(ctx, repository.UpdateSessionInput{
		ID:          input.ID,
		ScheduledAt: input.ScheduledAt,
		CoachID:     input.CoachID,
		Status:      input.Status,
		Notes:       input.Notes,
	})
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return session, nil
}

func (s *SchedulingService) DeleteSession(ctx context.Context, sessionID int64) error {
	if sessionID <= 0 {
		return fmt.Errorf("%w: session id is required", ErrValidation)
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return classifyStoreError(err)
	}
	return nil
}

func (s *SchedulingService) GetSession(ctx context.Context, sessionID int64) (*models.Session, error) {
	if sessionID <= 0 {
		return nil, fmt.Errorf("%w: session id is required", ErrValidation)
	}
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return session, nil
}

func (s *SchedulingService) ListSessions(
	ctx context.Context,
	filter repository.SessionListFilter,
) ([]models.Session, error) {
	if filter.Status != "" && !models.ValidSessionStatus(filter.Status) {
		return nil, fmt.Errorf("%w: invalid status %q", ErrValidation, filter.Status)
	}
	sessions, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return sessions, nil
}
