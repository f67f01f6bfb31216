package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nathan7836/sportsant-api/internal/models"
	"github.com/nathan7836/sportsant-api/internal/services"
)

type changeRequestApplicationService interface {
	CreateChangeRequest(ctx context.Context, input services.CreateChangeRequestInput) (*models.ChangeRequest, error)
	RespondToChangeRequest(ctx context.Context, input services.RespondToChangeRequestInput) (*models.ChangeRequest, error)
	ListPendingRequests(ctx context.Context, role string) ([]models.ChangeRequest, error)
	ListMyRequests(ctx context.Context, coachID int64) ([]models.ChangeRequest, error)
}

type ChangeRequestHandler struct {
	service changeRequestApplicationService
}

func NewChangeRequestHandler(service *services.ChangeRequestService) *ChangeRequestHandler {
	return &ChangeRequestHandler{service: service}
}

type createChangeRequestRequest struct {
	SessionID    int64  `json:"session_id" validate:"required,gt=0"`
	Type         string `json:"type" validate:"required,oneof=cancel reschedule"`
	Reason       string `json:"reason" validate:"required"`
	ProposedDate string `json:"proposed_date"`
	ProposedTime string `json:"proposed_time"`
}

type respondChangeRequestRequest struct {
	Action        string  `json:"action" validate:"required,oneof=approve reject"`
	AdminResponse *string `json:"admin_response"`
}

func (h *ChangeRequestHandler) CreateChangeRequest(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != models.RoleAdmin && role != models.RoleCoach) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createChangeRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationMessage(err)})
	}

	// A missing or malformed proposed time is not rejected here: the service
	// checks preconditions in a fixed order and the reschedule payload comes
	// last, behind existence, ownership, eligibility and pending checks.
	var proposedAt *time.Time
	if req.Type == models.ChangeRequestTypeReschedule {
		if parsed, err := combineDateAndTime(req.ProposedDate, req.ProposedTime); err == nil {
			proposedAt = &parsed
		}
	}

	request, err := h.service.CreateChangeRequest(c.Context(), services.CreateChangeRequestInput{
		SessionID:     req.SessionID,
		RequesterID:   actorID,
		RequesterRole: role,
		Type:          req.Type,
		Reason:        req.Reason,
		ProposedAt:    proposedAt,
	})
	if err != nil {
		return mapChangeRequestError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"change_request": request})
}

func (h *ChangeRequestHandler) RespondToChangeRequest(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	requestID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || requestID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid change request id"})
	}

	var req respondChangeRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationMessage(err)})
	}

	request, err := h.service.RespondToChangeRequest(c.Context(), services.RespondToChangeRequestInput{
		RequestID:     requestID,
		ResponderRole: role,
		Action:        req.Action,
		AdminResponse: req.AdminResponse,
	})
	if err != nil {
		return mapChangeRequestError(c, err)
	}

	return c.JSON(fiber.Map{"change_request": request})
}

func (h *ChangeRequestHandler) ListPendingRequests(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	requests, err := h.service.ListPendingRequests(c.Context(), role)
	if err != nil {
		return mapChangeRequestError(c, err)
	}

	return c.JSON(fiber.Map{"change_requests": requests})
}

func (h *ChangeRequestHandler) ListMyRequests(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleCoach {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	requests, err := h.service.ListMyRequests(c.Context(), actorID)
	if err != nil {
		return mapChangeRequestError(c, err)
	}

	return c.JSON(fiber.Map{"change_requests": requests})
}

func combineDateAndTime(date, clock string) (time.Time, error) {
	return time.Parse(wallClockLayout, strings.TrimSpace(date)+"T"+strings.TrimSpace(clock))
}

func mapChangeRequestError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.Is(err, services.ErrNotEligible):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrReference):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Storage temporarily unavailable"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process change request"})
	}
}
