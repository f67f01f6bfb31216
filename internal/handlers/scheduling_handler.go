package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nathan7836/sportsant-api/internal/models"
	"github.com/nathan7836/sportsant-api/internal/repository"
	"github.com/nathan7836/sportsant-api/internal/services"
)

// Timestamps on the wire are naive local wall-clock: no zone, no offset.
const (
	wallClockLayout = "2006-01-02T15:04"
	dateLayout      = "2006-01-02"
)

type schedulingApplicationService interface {
	CreateSession(ctx context.Context, input services.CreateSessionInput) (*models.Session, error)
	CreateRecurringSessions(ctx context.Context, input services.RecurringSessionsInput) (*services.RecurringResult, error)
	UpdateSession(ctx context.Context, input services.UpdateSessionInput) (*models.Session, error)
	DeleteSession(ctx context.Context, sessionID int64) error
	GetSession(ctx context.Context, sessionID int64) (*models.Session, error)
	ListSessions(ctx context.Context, filter repository.SessionListFilter) ([]models.Session, error)
}

type SchedulingHandler struct {
	service schedulingApplicationService
}

func NewSchedulingHandler(service *services.SchedulingService) *SchedulingHandler {
	return &SchedulingHandler{service: service}
}

type createSessionRequest struct {
	ClientID    int64   `json:"client_id" validate:"required,gt=0"`
	CoachID     int64   `json:"coach_id" validate:"required,gt=0"`
	ServiceID   int64   `json:"service_id" validate:"required,gt=0"`
	ScheduledAt string  `json:"scheduled_at" validate:"required"`
	Notes       *string `json:"notes"`
}

type createRecurringSessionsRequest struct {
	ClientID  int64   `json:"client_id" validate:"required,gt=0"`
	CoachID   int64   `json:"coach_id" validate:"required,gt=0"`
	ServiceID int64   `json:"service_id" validate:"required,gt=0"`
	StartDate string  `json:"start_date" validate:"required"`
	EndDate   string  `json:"end_date" validate:"required"`
	Weekdays  []int   `json:"weekdays"`
	Notes     *string `json:"notes"`
}

type updateSessionRequest struct {
	ScheduledAt string  `json:"scheduled_at" validate:"required"`
	CoachID     int64   `json:"coach_id" validate:"required,gt=0"`
	Status      string  `json:"status" validate:"required"`
	Notes       *string `json:"notes"`
}

func (h *SchedulingHandler) CreateSession(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	var req createSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationMessage(err)})
	}

	scheduledAt, err := parseWallClock(req.ScheduledAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "scheduled_at must be a valid date and time (YYYY-MM-DDTHH:MM)"})
	}

	session, err := h.service.CreateSession(c.Context(), services.CreateSessionInput{
		ClientID:    req.ClientID,
		CoachID:     req.CoachID,
		ServiceID:   req.ServiceID,
		ScheduledAt: scheduledAt,
		Notes:       req.Notes,
	})
	if err != nil {
		return mapSchedulingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": session})
}

func (h *SchedulingHandler) CreateRecurringSessions(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	var req createRecurringSessionsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationMessage(err)})
	}

	start, err := parseWallClock(req.StartDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "start_date must be a valid date and time (YYYY-MM-DDTHH:MM)"})
	}
	end, err := time.Parse(dateLayout, strings.TrimSpace(req.EndDate))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "end_date must be a valid date (YYYY-MM-DD)"})
	}

	weekdays := make(map[time.Weekday]struct{}, len(req.Weekdays))
	for _, weekday := range req.Weekdays {
		if weekday < 0 || weekday > 6 {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"error": "weekdays must be between 0 (Sunday) and 6 (Saturday)"})
		}
		weekdays[time.Weekday(weekday)] = struct{}{}
	}

	result, err := h.service.CreateRecurringSessions(c.Context(), services.RecurringSessionsInput{
		ClientID:  req.ClientID,
		CoachID:   req.CoachID,
		ServiceID: req.ServiceID,
		Start:     start,
		End:       end,
		Weekdays:  weekdays,
		Notes:     req.Notes,
	})
	if err != nil {
		return mapSchedulingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"created_count": len(result.Created),
		"created":       result.Created,
		"failed":        result.Failed,
	})
}

func (h *SchedulingHandler) ListSessions(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != models.RoleAdmin && role != models.RoleCoach) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	filter := repository.SessionListFilter{
		Status: strings.TrimSpace(c.Query("status")),
	}

	// Coaches only see their own schedule; admins may filter by coach.
	if role == models.RoleCoach {
		filter.CoachID = actorID
	} else if raw := strings.TrimSpace(c.Query("coach_id")); raw != "" {
		coachID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || coachID <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid coach id"})
		}
		filter.CoachID = coachID
	}

	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		from, err := time.Parse(dateLayout, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "from must be a valid date (YYYY-MM-DD)"})
		}
		filter.From = from
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		to, err := time.Parse(dateLayout, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "to must be a valid date (YYYY-MM-DD)"})
		}
		// The whole "to" day is included: the filter bound is exclusive,
		// so push it to the next midnight.
		filter.To = to.AddDate(0, 0, 1)
	}

	sessions, err := h.service.ListSessions(c.Context(), filter)
	if err != nil {
		return mapSchedulingError(c, err)
	}

	return c.JSON(fiber.Map{"sessions": sessions})
}

func (h *SchedulingHandler) GetSession(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != models.RoleAdmin && role != models.RoleCoach) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	sessionID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || sessionID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	session, err := h.service.GetSession(c.Context(), sessionID)
	if err != nil {
		return mapSchedulingError(c, err)
	}

	return c.JSON(fiber.Map{"session": session})
}

func (h *SchedulingHandler) UpdateSession(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	sessionID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || sessionID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req updateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationMessage(err)})
	}

	scheduledAt, err := parseWallClock(req.ScheduledAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "scheduled_at must be a valid date and time (YYYY-MM-DDTHH:MM)"})
	}

	session, err := h.service.UpdateSession(c.Context(), services.UpdateSessionInput{
		ID:          sessionID,
		ScheduledAt: scheduledAt,
		CoachID:     req.CoachID,
		Status:      req.Status,
		Notes:       req.Notes,
	})
	if err != nil {
		return mapSchedulingError(c, err)
	}

	return c.JSON(fiber.Map{"session": session})
}

func (h *SchedulingHandler) DeleteSession(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	sessionID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || sessionID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	if err := h.service.DeleteSession(c.Context(), sessionID); err != nil {
		return mapSchedulingError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func parseWallClock(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if parsed, err := time.Parse(wallClockLayout+":05", raw); err == nil {
		return parsed, nil
	}
	return time.Parse(wallClockLayout, raw)
}

func parseActorID(c *fiber.Ctx) (int64, error) {
	userIDValue := c.Locals("user_id")
	userIDStr, ok := userIDValue.(string)
	if !ok {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(userIDStr, 10, 64)
}

func mapSchedulingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	case errors.Is(err, services.ErrReference):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Storage temporarily unavailable"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process session request"})
	}
}
