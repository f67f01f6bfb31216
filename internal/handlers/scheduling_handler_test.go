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
	"github.com/nathan7836/sportsant-api/internal/repository"
	"github.com/nathan7836/sportsant-api/internal/services"
)

type stubSchedulingService struct {
	createInput    services.CreateSessionInput
	createErr      error
	recurringInput services.RecurringSessionsInput
	recurringErr   error
	updateInput    services.UpdateSessionInput
	updateErr      error
	deleteErr      error
	getErr         error
	listFilter     repository.SessionListFilter
	listErr        error
}

func (s *stubSchedulingService) CreateSession(
	_ context.Context,
	input services.CreateSessionInput,
) (*models.Session, error) {
	s.createInput = input
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &models.Session{ID: 1, Status: models.SessionStatusPlanned}, nil
}

func (s *stubSchedulingService) CreateRecurringSessions(
	_ context.Context,
	input services.RecurringSessionsInput,
) (*services.RecurringResult, error) {
	s.recurringInput = input
	if s.recurringErr != nil {
		return nil, s.recurringErr
	}
	return &services.RecurringResult{
		Created: []models.Session{{ID: 1}, {ID: 2}},
		Failed:  []services.OccurrenceFailure{},
	}, nil
}

func (s *stubSchedulingService) UpdateSession(
	_ context.Context,
	input services.UpdateSessionInput,
) (*models.Session, error) {
	s.updateInput = input
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return &models.Session{ID: input.ID, Status: input.Status}, nil
}

func (s *stubSchedulingService) DeleteSession(_ context.Context, _ int64) error {
	return s.deleteErr
}

func (s *stubSchedulingService) GetSession(_ context.Context, sessionID int64) (*models.Session, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &models.Session{ID: sessionID}, nil
}

func (s *stubSchedulingService) ListSessions(
	_ context.Context,
	filter repository.SessionListFilter,
) ([]models.Session, error) {
	s.listFilter = filter
	if s.listErr != nil {
		return nil, s.listErr
	}
	return []models.Session{}, nil
}

func authLocals(userID, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		c.Locals("role", role)
		return c.Next()
	}
}

func newSchedulingApp(stub *stubSchedulingService, userID, role string) *fiber.App {
	app := fiber.New()
	handler := &SchedulingHandler{service: stub}
	group := app.Group("/api/v1", authLocals(userID, role))
	group.Post("/sessions", handler.CreateSession)
	group.Post("/sessions/recurring", handler.CreateRecurringSessions)
	group.Get("/sessions", handler.ListSessions)
	group.Get("/sessions/:id", handler.GetSession)
	group.Put("/sessions/:id", handler.UpdateSession)
	group.Delete("/sessions/:id", handler.DeleteSession)
	return app
}

func TestCreateSessionParsesWallClockTime(t *testing.T) {
	stub := &stubSchedulingService{}
	app := newSchedulingApp(stub, "1", models.RoleAdmin)

	body, _ := json.Marshal(fiber.Map{
		"client_id":    int64(3),
		"coach_id":     int64(4),
		"service_id":   int64(5),
		"scheduled_at": "2025-02-03T10:00",
	})
	req := httptest.NewRequest("POST", "/api/v1/sessions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	want := time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)
	if !stub.createInput.ScheduledAt.Equal(want) {
		t.Fatalf("expected scheduled_at %s, got %s", want, stub.createInput.ScheduledAt)
	}
}

func TestCreateSessionRejectsCoachRole(t *testing.T) {
	app := newSchedulingApp(&stubSchedulingService{}, "1", models.RoleCoach)

	body, _ := json.Marshal(fiber.Map{
		"client_id":    int64(3),
		"coach_id":     int64(4),
		"service_id":   int64(5),
		"scheduled_at": "2025-02-03T10:00",
	})
	req := httptest.NewRequest("POST", "/api/v1/sessions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestCreateSessionRejectsBadTimestamp(t *testing.T) {
	app := newSchedulingApp(&stubSchedulingService{}, "1", models.RoleAdmin)

	body, _ := json.Marshal(fiber.Map{
		"client_id":    int64(3),
		"coach_id":     int64(4),
		"service_id":   int64(5),
		"scheduled_at": "03.02.2025 10:00",
	})
	req := httptest.NewRequest("POST", "/api/v1/sessions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateRecurringSessionsBuildsWeekdaySet(t *testing.T) {
	stub := &stubSchedulingService{}
	app := newSchedulingApp(stub, "1", models.RoleAdmin)

	body, _ := json.Marshal(fiber.Map{
		"client_id":  int64(3),
		"coach_id":   int64(4),
		"service_id": int64(5),
		"start_date": "2025-02-03T10:00",
		"end_date":   "2025-02-28",
		"weekdays":   []int{1, 3},
	})
	req := httptest.NewRequest("POST", "/api/v1/sessions/recurring", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var payload struct {
		CreatedCount int `json:"created_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.CreatedCount != 2 {
		t.Fatalf("expected created_count 2, got %d", payload.CreatedCount)
	}

	if len(stub.recurringInput.Weekdays) != 2 {
		t.Fatalf("expected 2 weekdays forwarded, got %v", stub.recurringInput.Weekdays)
	}
	for _, day := range []time.Weekday{time.Monday, time.Wednesday} {
		if _, ok := stub.recurringInput.Weekdays[day]; !ok {
			t.Fatalf("expected %s in weekday set", day)
		}
	}
}

func TestCreateRecurringSessionsRejectsOutOfRangeWeekday(t *testing.T) {
	app := newSchedulingApp(&stubSchedulingService{}, "1", models.RoleAdmin)

	body, _ := json.Marshal(fiber.Map{
		"client_id":  int64(3),
		"coach_id":   int64(4),
		"service_id": int64(5),
		"start_date": "2025-02-03T10:00",
		"end_date":   "2025-02-28",
		"weekdays":   []int{7},
	})
	req := httptest.NewRequest("POST", "/api/v1/sessions/recurring", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListSessionsCoachIsScopedToOwnSchedule(t *testing.T) {
	stub := &stubSchedulingService{}
	app := newSchedulingApp(stub, "42", models.RoleCoach)

	req := httptest.NewRequest("GET", "/api/v1/sessions?coach_id=7", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if stub.listFilter.CoachID != 42 {
		t.Fatalf("coach filter must be the caller's own id, got %d", stub.listFilter.CoachID)
	}
}

func TestListSessionsAdminDateRangeIsInclusive(t *testing.T) {
	stub := &stubSchedulingService{}
	app := newSchedulingApp(stub, "1", models.RoleAdmin)

	req := httptest.NewRequest("GET", "/api/v1/sessions?from=2025-02-01&to=2025-02-28&coach_id=7", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if stub.listFilter.CoachID != 7 {
		t.Fatalf("expected coach filter 7, got %d", stub.listFilter.CoachID)
	}
	// The exclusive bound sits at the next midnight so a session at
	// 23:59:59 on the "to" day is still inside the range.
	nextMidnight := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if !stub.listFilter.To.Equal(nextMidnight) {
		t.Fatalf("expected exclusive bound %s, got %s", nextMidnight, stub.listFilter.To)
	}
}

func TestUpdateSessionMapsNotFound(t *testing.T) {
	stub := &stubSchedulingService{updateErr: services.ErrNotFound}
	app := newSchedulingApp(stub, "1", models.RoleAdmin)

	body, _ := json.Marshal(fiber.Map{
		"scheduled_at": "2025-02-03T10:00",
		"coach_id":     int64(4),
		"status":       "confirmed",
	})
	req := httptest.NewRequest("PUT", "/api/v1/sessions/99", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestDeleteSessionReturnsNoContent(t *testing.T) {
	app := newSchedulingApp(&stubSchedulingService{}, "1", models.RoleAdmin)

	req := httptest.NewRequest("DELETE", "/api/v1/sessions/5", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
}
