package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nathan7836/sportsant-api/internal/models"
)

const sessionColumns = "id, client_id, coach_id, service_id, scheduled_at, status, notes, calendar_synced, created_at, updated_at"

type CreateSessionInput struct {
	ClientID    int64
	CoachID     int64
	ServiceID   int64
	ScheduledAt time.Time
	Notes       *string
}

type UpdateSessionInput struct {
	ID          int64
	ScheduledAt time.Time
	CoachID     int64
	Status      string
	Notes       *string
}

// SessionListFilter narrows a session listing. From is inclusive, To is
// exclusive.
type SessionListFilter struct {
	CoachID int64
	Status  string
	From    time.Time
	To      time.Time
}

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID,
		&session.ClientID,
		&session.CoachID,
		&session.ServiceID,
		&session.ScheduledAt,
		&session.Status,
		&session.Notes,
		&session.CalendarSynced,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Create(
	ctx context.Context,
	input CreateSessionInput,
) (*models.Session, error) {
	query := fmt.Sprintf(`
		INSERT INTO sessions (client_id, coach_id, service_id, scheduled_at, status, notes)
		VALUES ($1, $2, $3, $4, 'planned', $5)
		RETURNING %s
	`, sessionColumns)

	return scanSession(r.db.QueryRow(
		ctx,
		query,
		input.ClientID,
		input.CoachID,
		input.ServiceID,
		input.ScheduledAt,
		input.Notes,
	))
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID int64) (*models.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions
		WHERE id = $1
	`, sessionColumns)

	return scanSession(r.db.QueryRow(ctx, query, sessionID))
}

// Update overwrites the schedule, coach, status and notes in one statement.
// Cross-field consistency is deliberately not enforced here.
func (r *SessionRepository) Update(
	ctx context.Context,
	input UpdateSessionInput,
) (*models.Session, error) {
	query := fmt.Sprintf(`
		UPDATE sessions
		SET scheduled_at = $2, coach_id = $3, status = $4, notes = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, sessionColumns)

	return scanSession(r.db.QueryRow(
		ctx,
		query,
		input.ID,
		input.ScheduledAt,
		input.CoachID,
		input.Status,
		input.Notes,
	))
}

func (r *SessionRepository) UpdateStatus(
	ctx context.Context,
	sessionID int64,
	status string,
) (*models.Session, error) {
	query := fmt.Sprintf(`
		UPDATE sessions
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, sessionColumns)

	return scanSession(r.db.QueryRow(ctx, query, sessionID, status))
}

func (r *SessionRepository) Reschedule(
	ctx context.Context,
	sessionID int64,
	scheduledAt time.Time,
) (*models.Session, error) {
	query := fmt.Sprintf(`
		UPDATE sessions
		SET scheduled_at = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, sessionColumns)

	return scanSession(r.db.QueryRow(ctx, query, sessionID, scheduledAt))
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM sessions WHERE id = $1", sessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *SessionRepository) List(
	ctx context.Context,
	filter SessionListFilter,
) ([]models.Session, error) {
	args := []any{}
	whereParts := []string{}

	if filter.CoachID > 0 {
		args = append(args, filter.CoachID)
		whereParts = append(whereParts, fmt.Sprintf("coach_id = $%d", len(args)))
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		whereParts = append(whereParts, fmt.Sprintf("scheduled_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		whereParts = append(whereParts, fmt.Sprintf("scheduled_at < $%d", len(args)))
	}

	whereClause := ""
	if len(whereParts) > 0 {
		whereClause = "WHERE " + strings.Join(whereParts, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions
		%s
		ORDER BY scheduled_at ASC, id ASC
	`, sessionColumns, whereClause)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		var session models.Session
		if err := rows.Scan(
			&session.ID,
			&session.ClientID,
			&session.CoachID,
			&session.ServiceID,
			&session.ScheduledAt,
			&session.Status,
			&session.Notes,
			&session.CalendarSynced,
			&session.CreatedAt,
			&session.UpdatedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}
