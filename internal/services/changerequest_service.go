package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nathan7836/sportsant-api/internal/models"
	"github.com/nathan7836/sportsant-api/internal/repository"
)

const (
	ActionApprove = "approve"
	ActionReject  = "reject"

	// Minimum lead time before session start for a coach to file a request.
	// The boundary is strict: exactly 24.0 hours is still eligible.
	eligibilityWindowHours = 24.0
)

type changeRequestStore interface {
	Create(ctx context.Context, input repository.CreateChangeRequestInput) (*models.ChangeRequest, error)
	GetByID(ctx context.Context, requestID int64) (*models.ChangeRequest, error)
	HasPendingForSession(ctx context.Context, sessionID int64) (bool, error)
	RespondIfPending(ctx context.Context, input repository.RespondInput) (*models.ChangeRequest, error)
	ListByStatus(ctx context.Context, status string) ([]models.ChangeRequest, error)
	ListByCoach(ctx context.Context, coachID int64) ([]models.ChangeRequest, error)
}

type sessionMutator interface {
	GetByID(ctx context.Context, sessionID int64) (*models.Session, error)
	UpdateStatus(ctx context.Context, sessionID int64, status string) (*models.Session, error)
	Reschedule(ctx context.Context, sessionID int64, scheduledAt time.Time) (*models.Session, error)
}

type userDirectory interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	ListAdmins(ctx context.Context) ([]models.User, error)
}

type clientReader interface {
	GetByID(ctx context.Context, id int64) (*models.Client, error)
}

type serviceReader interface {
	GetByID(ctx context.Context, id int64) (*models.Service, error)
}

type notificationSender interface {
	FanOut(ctx context.Context, recipientIDs []int64, notificationType, title, message string, link *string) int
}

type ChangeRequestService struct {
	requests changeRequestStore
	sessions sessionMutator
	users    userDirectory
	clients  clientReader
	catalog  serviceReader
	notifier notificationSender
	clock    Clock
}

func NewChangeRequestService(
	requests changeRequestStore,
	sessions sessionMutator,
	users userDirectory,
	clients clientReader,
	catalog serviceReader,
	notifier notificationSender,
	clock Clock,
) *ChangeRequestService {
	return &ChangeRequestService{
		requests: requests,
		sessions: sessions,
		users:    users,
		clients:  clients,
		catalog:  catalog,
		notifier: notifier,
		clock:    clock,
	}
}

type CreateChangeRequestInput struct {
	SessionID     int64
	RequesterID   int64
	RequesterRole string
	Type          string
	Reason        string
	ProposedAt    *time.Time
}

type RespondToChangeRequestInput struct {
	RequestID     int64
	ResponderRole string
	Action        string
	AdminResponse *string
}

func (s *ChangeRequestService) CreateChangeRequest(
	ctx context.Context,
	input CreateChangeRequestInput,
) (*models.ChangeRequest, error) {
	if input.SessionID <= 0 || !models.ValidChangeRequestType(input.Type) ||
		strings.TrimSpace(input.Reason) == "" {
		return nil, fmt.Errorf("%w: session, type and reason are required", ErrValidation)
	}

	session, err := s.sessions.GetByID(ctx, input.SessionID)
	if err != nil {
		return nil, classifyStoreError(err)
	}

	if input.RequesterRole != models.RoleAdmin && input.RequesterID != session.CoachID {
		return nil, ErrForbidden
	}

	if session.ScheduledAt.Sub(s.clock.Now()).Hours() < eligibilityWindowHours {
		return nil, fmt.Errorf("%w: cannot request a change within 24h of session start", ErrNotEligible)
	}

	pending, err := s.requests.HasPendingForSession(ctx, input.SessionID)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	if pending {
		return nil, fmt.Errorf("%w: a request is already pending for this session", ErrConflict)
	}

	if input.Type == models.ChangeRequestTypeReschedule &&
		(input.ProposedAt == nil || input.ProposedAt.IsZero()) {
		return nil, fmt.Errorf("%w: a valid proposed date and time is required for a reschedule", ErrValidation)
	}

	request, err := s.requests.Create(ctx, repository.CreateChangeRequestInput{
		SessionID:  input.SessionID,
		CoachID:    session.CoachID,
		Type:       input.Type,
		Reason:     strings.TrimSpace(input.Reason),
		ProposedAt: input.ProposedAt,
	})
	if err != nil {
		return nil, classifyStoreError(err)
	}

	s.notifyAdmins(ctx, request, session)

	return request, nil
}

func (s *ChangeRequestService) RespondToChangeRequest(
	ctx context.Context,
	input RespondToChangeRequestInput,
) (*models.ChangeRequest, error) {
	if input.ResponderRole != models.RoleAdmin {
		return nil, ErrForbidden
	}

	var nextStatus string
	switch input.Action {
	case ActionApprove:
		nextStatus = models.ChangeRequestStatusApproved
	case ActionReject:
		nextStatus = models.ChangeRequestStatusRejected
	default:
		return nil, fmt.Errorf("%w: action must be %q or %q", ErrValidation, ActionApprove, ActionReject)
	}

	request, err := s.requests.GetByID(ctx, input.RequestID)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	if request.Status != models.ChangeRequestStatusPending {
		return nil, fmt.Errorf("%w: request already processed", ErrConflict)
	}

	// The conditional update is the real guard: a second responder racing
	// past the status check above matches no row and loses here.
	updated, err := s.requests.RespondIfPending(ctx, repository.RespondInput{
		RequestID:     input.RequestID,
		Status:        nextStatus,
		AdminResponse: input.AdminResponse,
		RespondedAt:   s.clock.Now(),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: request already processed", ErrConflict)
		}
		return nil, classifyStoreError(err)
	}

	if updated.Status == models.ChangeRequestStatusApproved {
		if err := s.applyApprovedRequest(ctx, updated); err != nil {
			return nil, err
		}
	}

	s.notifyCoach(ctx, updated)

	return updated, nil
}

func (s *ChangeRequestService) applyApprovedRequest(
	ctx context.Context,
	request *models.ChangeRequest,
) error {
	switch request.Type {
	case models.ChangeRequestTypeCancel:
		if _, err := s.sessions.UpdateStatus(ctx, request.SessionID, models.SessionStatusCancelled); err != nil {
			return classifyStoreError(err)
		}
	case models.ChangeRequestTypeReschedule:
		if request.ProposedAt == nil {
			return fmt.Errorf("%w: reschedule request %d has no proposed time", ErrValidation, request.ID)
		}
		if _, err := s.sessions.Reschedule(ctx, request.SessionID, *request.ProposedAt); err != nil {
			return classifyStoreError(err)
		}
	}
	return nil
}

func (s *ChangeRequestService) ListPendingRequests(
	ctx context.Context,
	role string,
) ([]models.ChangeRequest, error) {
	if role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	requests, err := s.requests.ListByStatus(ctx, models.ChangeRequestStatusPending)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return requests, nil
}

func (s *ChangeRequestService) ListMyRequests(
	ctx context.Context,
	coachID int64,
) ([]models.ChangeRequest, error) {
	if coachID <= 0 {
		return nil, fmt.Errorf("%w: coach id is required", ErrValidation)
	}
	requests, err := s.requests.ListByCoach(ctx, coachID)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return requests, nil
}

// notifyAdmins fans a request_new notification out to every administrator.
// Notifications are a side effect of an already-persisted request, so
// failures here are logged and never surfaced to the caller.
func (s *ChangeRequestService) notifyAdmins(
	ctx context.Context,
	request *models.ChangeRequest,
	session *models.Session,
) {
	admins, err := s.users.ListAdmins(ctx)
	if err != nil {
		log.Printf("change request %d: list admins: %v", request.ID, err)
		return
	}
	if len(admins) == 0 {
		return
	}

	coach := s.coachLabel(ctx, session.CoachID)
	client := s.clientLabel(ctx, session.ClientID)
	service := s.serviceLabel(ctx, session.ServiceID)

	var message string
	if request.Type == models.ChangeRequestTypeCancel {
		message = fmt.Sprintf("%s requested to cancel the session with %s (%s).", coach, client, service)
	} else {
		message = fmt.Sprintf("%s requested to reschedule the session with %s (%s).", coach, client, service)
	}

	recipientIDs := make([]int64, 0, len(admins))
	for _, admin := range admins {
		recipientIDs = append(recipientIDs, admin.ID)
	}

	link := fmt.Sprintf("/change-requests/%d", request.ID)
	s.notifier.FanOut(ctx, recipientIDs, models.NotificationTypeRequestNew, "New change request", message, &link)
}

func (s *ChangeRequestService) notifyCoach(ctx context.Context, request *models.ChangeRequest) {
	client := "your client"
	if session, err := s.sessions.GetByID(ctx, request.SessionID); err == nil {
		client = s.clientLabel(ctx, session.ClientID)
	} else {
		log.Printf("change request %d: load session for notification: %v", request.ID, err)
	}

	notificationType := models.NotificationTypeRequestApproved
	title := "Change request approved"
	message := fmt.Sprintf("Your request for the session with %s was approved.", client)
	if request.Status == models.ChangeRequestStatusRejected {
		notificationType = models.NotificationTypeRequestRejected
		title = "Change request rejected"
		message = fmt.Sprintf("Your request for the session with %s was rejected.", client)
	}
	if request.AdminResponse != nil && strings.TrimSpace(*request.AdminResponse) != "" {
		message = fmt.Sprintf("%s Admin note: %s", message, strings.TrimSpace(*request.AdminResponse))
	}

	link := fmt.Sprintf("/change-requests/%d", request.ID)
	s.notifier.FanOut(ctx, []int64{request.CoachID}, notificationType, title, message, &link)
}

func (s *ChangeRequestService) coachLabel(ctx context.Context, coachID int64) string {
	user, err := s.users.GetByID(ctx, coachID)
	if err != nil {
		return fmt.Sprintf("Coach #%d", coachID)
	}
	if strings.TrimSpace(user.FullName) == "" {
		return fmt.Sprintf("Coach #%d", coachID)
	}
	return user.FullName
}

func (s *ChangeRequestService) clientLabel(ctx context.Context, clientID int64) string {
	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return fmt.Sprintf("Client #%d", clientID)
	}
	if strings.TrimSpace(client.FullName) == "" {
		return fmt.Sprintf("Client #%d", clientID)
	}
	return client.FullName
}

func (s *ChangeRequestService) serviceLabel(ctx context.Context, serviceID int64) string {
	service, err := s.catalog.GetByID(ctx, serviceID)
	if err != nil {
		return fmt.Sprintf("Service #%d", serviceID)
	}
	if strings.TrimSpace(service.Name) == "" {
		return fmt.Sprintf("Service #%d", serviceID)
	}
	return service.Name
}
