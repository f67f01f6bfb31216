package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nathan7836/sportsant-api/internal/models"
	"github.com/nathan7836/sportsant-api/internal/services"
)

type stubChangeRequestService struct {
	createInput  services.CreateChangeRequestInput
	createErr    error
	respondInput services.RespondToChangeRequestInput
	respondErr   error
	pendingRole  string
	mineCoachID  int64
}

func (s *stubChangeRequestService) CreateChangeRequest(
	_ context.Context,
	input services.CreateChangeRequestInput,
) (*models.ChangeRequest, error) {
	s.createInput = input
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &models.ChangeRequest{ID: 1, Status: models.ChangeRequestStatusPending}, nil
}

func (s *stubChangeRequestService) RespondToChangeRequest(
	_ context.Context,
	input services.RespondToChangeRequestInput,
) (*models.ChangeRequest, error) {
	s.respondInput = input
	if s.respondErr != nil {
		return nil, s.respondErr
	}
	return &models.ChangeRequest{ID: input.RequestID, Status: models.ChangeRequestStatusApproved}, nil
}

func (s *stubChangeRequestService) ListPendingRequests(
	_ context.Context,
	role string,
) ([]models.ChangeRequest, error) {
	s.pendingRole = role
	if role != models.RoleAdmin {
		return nil, services.ErrForbidden
	}
	return []models.ChangeRequest{}, nil
}

func (s *stubChangeRequestService) ListMyRequests(
	_ context.Context,
	coachID int64,
) ([]models.ChangeRequest, error) {
	s.mineCoachID = coachID
	return []models.ChangeRequest{}, nil
}

func newChangeRequestApp(stub *stubChangeRequestService, userID, role string) *fiber.App {
	app := fiber.New()
	handler := &ChangeRequestHandler{service: stub}
	group := app.Group("/api/v1", authLocals(userID, role))
	group.Post("/change-requests", handler.CreateChangeRequest)
	group.Get("/change-requests/pending", handler.ListPendingRequests)
	group.Get("/change-requests/mine", handler.ListMyRequests)
	group.Post("/change-requests/:id/respond", handler.RespondToChangeRequest)
	return app
}

func TestCreateChangeRequestCombinesProposedDateAndTime(t *testing.T) {
	stub := &stubChangeRequestService{}
	app := newChangeRequestApp(stub, "30", models.RoleCoach)

	body, _ := json.Marshal(fiber.Map{
		"session_id":    int64(10),
		"type":          "reschedule",
		"reason":        "clash with another client",
		"proposed_date": "2025-05-10",
		"proposed_time": "15:00",
	})
	req := httptest.NewRequest("POST", "/api/v1/change-requests", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	if stub.createInput.RequesterID != 30 || stub.createInput.RequesterRole != models.RoleCoach {
		t.Fatalf("expected requester forwarded from token, got %+v", stub.createInput)
	}
	want := time.Date(2025, 5, 10, 15, 0, 0, 0, time.UTC)
	if stub.createInput.ProposedAt == nil || !stub.createInput.ProposedAt.Equal(want) {
		t.Fatalf("expected proposed time %s, got %v", want, stub.createInput.ProposedAt)
	}
}

func TestCreateChangeRequestMalformedProposedTimeDefersToServiceOrder(t *testing.T) {
	// The session does not exist, so the precondition chain must answer
	// not-found even though the proposed time is also unparseable.
	stub := &stubChangeRequestService{createErr: services.ErrNotFound}
	app := newChangeRequestApp(stub, "30", models.RoleCoach)

	body, _ := json.Marshal(fiber.Map{
		"session_id":    int64(404),
		"type":          "reschedule",
		"reason":        "clash with another client",
		"proposed_date": "10/05/2025",
		"proposed_time": "3pm",
	})
	req := httptest.NewRequest("POST", "/api/v1/change-requests", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if stub.createInput.SessionID != 404 {
		t.Fatal("expected the service to be consulted despite the bad proposed time")
	}
	if stub.createInput.ProposedAt != nil {
		t.Fatalf("expected nil proposed time for unparseable input, got %v", stub.createInput.ProposedAt)
	}
}

func TestCreateChangeRequestRejectsUnknownType(t *testing.T) {
	app := newChangeRequestApp(&stubChangeRequestService{}, "30", models.RoleCoach)

	body, _ := json.Marshal(fiber.Map{
		"session_id": int64(10),
		"type":       "postpone",
		"reason":     "because",
	})
	req := httptest.NewRequest("POST", "/api/v1/change-requests", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateChangeRequestMapsEligibilityError(t *testing.T) {
	stub := &stubChangeRequestService{createErr: services.ErrNotEligible}
	app := newChangeRequestApp(stub, "30", models.RoleCoach)

	body, _ := json.Marshal(fiber.Map{
		"session_id": int64(10),
		"type":       "cancel",
		"reason":     "sick leave",
	})
	req := httptest.NewRequest("POST", "/api/v1/change-requests", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestCreateChangeRequestMapsPendingConflict(t *testing.T) {
	stub := &stubChangeRequestService{createErr: services.ErrConflict}
	app := newChangeRequestApp(stub, "30", models.RoleCoach)

	body, _ := json.Marshal(fiber.Map{
		"session_id": int64(10),
		"type":       "cancel",
		"reason":     "sick leave",
	})
	req := httptest.NewRequest("POST", "/api/v1/change-requests", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestRespondForwardsRoleToService(t *testing.T) {
	stub := &stubChangeRequestService{}
	app := newChangeRequestApp(stub, "1", models.RoleAdmin)

	body, _ := json.Marshal(fiber.Map{
		"action":         "approve",
		"admin_response": "fine",
	})
	req := httptest.NewRequest("POST", "/api/v1/change-requests/7/respond", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if stub.respondInput.RequestID != 7 || stub.respondInput.ResponderRole != models.RoleAdmin {
		t.Fatalf("unexpected forwarded input: %+v", stub.respondInput)
	}
	if stub.respondInput.AdminResponse == nil || *stub.respondInput.AdminResponse != "fine" {
		t.Fatalf("expected admin response forwarded, got %v", stub.respondInput.AdminResponse)
	}
}

func TestRespondCoachIsForbiddenByService(t *testing.T) {
	stub := &stubChangeRequestService{respondErr: services.ErrForbidden}
	app := newChangeRequestApp(stub, "30", models.RoleCoach)

	body, _ := json.Marshal(fiber.Map{"action": "approve"})
	req := httptest.NewRequest("POST", "/api/v1/change-requests/7/respond", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestRespondRejectsUnknownAction(t *testing.T) {
	app := newChangeRequestApp(&stubChangeRequestService{}, "1", models.RoleAdmin)

	body, _ := json.Marshal(fiber.Map{"action": "defer"})
	req := httptest.NewRequest("POST", "/api/v1/change-requests/7/respond", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRespondMapsAlreadyProcessedConflict(t *testing.T) {
	stub := &stubChangeRequestService{respondErr: services.ErrConflict}
	app := newChangeRequestApp(stub, "1", models.RoleAdmin)

	body, _ := json.Marshal(fiber.Map{"action": "reject"})
	req := httptest.NewRequest("POST", "/api/v1/change-requests/7/respond", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestListMyRequestsUsesTokenIdentity(t *testing.T) {
	stub := &stubChangeRequestService{}
	app := newChangeRequestApp(stub, "30", models.RoleCoach)

	req := httptest.NewRequest("GET", "/api/v1/change-requests/mine", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if stub.mineCoachID != 30 {
		t.Fatalf("expected coach 30 from token, got %d", stub.mineCoachID)
	}
}

func TestListMyRequestsAdminIsForbidden(t *testing.T) {
	app := newChangeRequestApp(&stubChangeRequestService{}, "1", models.RoleAdmin)

	req := httptest.NewRequest("GET", "/api/v1/change-requests/mine", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestListPendingCoachIsForbidden(t *testing.T) {
	app := newChangeRequestApp(&stubChangeRequestService{}, "30", models.RoleCoach)

	req := httptest.NewRequest("GET", "/api/v1/change-requests/pending", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}
