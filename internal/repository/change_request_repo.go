package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nathan7836/sportsant-api/internal/models"
)

const changeRequestColumns = "id, session_id, coach_id, type, reason, proposed_at, status, admin_response, created_at, responded_at"

type CreateChangeRequestInput struct {
	SessionID  int64
	CoachID    int64
	Type       string
	Reason     string
	ProposedAt *time.Time
}

type RespondInput struct {
	RequestID     int64
	Status        string
	AdminResponse *string
	RespondedAt   time.Time
}

type ChangeRequestRepository struct {
	db DBTX
}

func NewChangeRequestRepository(db DBTX) *ChangeRequestRepository {
	return &ChangeRequestRepository{db: db}
}

func scanChangeRequest(row pgx.Row) (*models.ChangeRequest, error) {
	var request models.ChangeRequest
	err := row.Scan(
		&request.ID,
		&request.SessionID,
		&request.CoachID,
		&request.Type,
		&request.Reason,
		&request.ProposedAt,
		&request.Status,
		&request.AdminResponse,
		&request.CreatedAt,
		&request.RespondedAt,
	)
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// Create relies on the partial unique index on (session_id) WHERE
// status = 'pending': a concurrent duplicate surfaces as a 23505 error.
func (r *ChangeRequestRepository) Create(
	ctx context.Context,
	input CreateChangeRequestInput,
) (*models.ChangeRequest, error) {
	query := fmt.Sprintf(`
		INSERT INTO change_requests (session_id, coach_id, type, reason, proposed_at, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING %s
	`, changeRequestColumns)

	return scanChangeRequest(r.db.QueryRow(
		ctx,
		query,
		input.SessionID,
		input.CoachID,
		input.Type,
		input.Reason,
		input.ProposedAt,
	))
}

func (r *ChangeRequestRepository) GetByID(
	ctx context.Context,
	requestID int64,
) (*models.ChangeRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM change_requests
		WHERE id = $1
	`, changeRequestColumns)

	return scanChangeRequest(r.db.QueryRow(ctx, query, requestID))
}

func (r *ChangeRequestRepository) HasPendingForSession(
	ctx context.Context,
	sessionID int64,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM change_requests
			WHERE session_id = $1 AND status = 'pending'
		)
	`
	var pending bool
	if err := r.db.QueryRow(ctx, query, sessionID).Scan(&pending); err != nil {
		return false, err
	}
	return pending, nil
}

// RespondIfPending flips a pending request to its terminal status. The status
// guard in the WHERE clause makes two racing responders mutually exclusive:
// the loser matches no row and gets pgx.ErrNoRows back.
func (r *ChangeRequestRepository) RespondIfPending(
	ctx context.Context,
	input RespondInput,
) (*models.ChangeRequest, error) {
	query := fmt.Sprintf(`
		UPDATE change_requests
		SET status = $2, admin_response = $3, responded_at = $4
		WHERE id = $1 AND status = 'pending'
		RETURNING %s
	`, changeRequestColumns)

	return scanChangeRequest(r.db.QueryRow(
		ctx,
		query,
		input.RequestID,
		input.Status,
		input.AdminResponse,
		input.RespondedAt,
	))
}

func (r *ChangeRequestRepository) ListByStatus(
	ctx context.Context,
	status string,
) ([]models.ChangeRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM change_requests
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
	`, changeRequestColumns)

	return r.list(ctx, query, status)
}

func (r *ChangeRequestRepository) ListByCoach(
	ctx context.Context,
	coachID int64,
) ([]models.ChangeRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM change_requests
		WHERE coach_id = $1
		ORDER BY created_at DESC, id DESC
	`, changeRequestColumns)

	return r.list(ctx, query, coachID)
}

func (r *ChangeRequestRepository) list(
	ctx context.Context,
	query string,
	args ...any,
) ([]models.ChangeRequest, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]models.ChangeRequest, 0)
	for rows.Next() {
		var request models.ChangeRequest
		if err := rows.Scan(
			&request.ID,
			&request.SessionID,
			&request.CoachID,
			&request.Type,
			&request.Reason,
			&request.ProposedAt,
			&request.Status,
			&request.AdminResponse,
			&request.CreatedAt,
			&request.RespondedAt,
		); err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return requests, nil
}
