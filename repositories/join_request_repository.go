package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/volley-tournament/models"
	"github.com/lib/pq"
)

var (
	ErrJoinRequestNotFound      = errors.New("join request not found")
	ErrJoinRequestPendingExists = errors.New("team already has a pending join request for this tournament")
	ErrJoinRequestTeamInvalid   = errors.New("join request team conflict or invalid")
)

type JoinRequestRepository interface {
	Create(ctx context.Context, exec SQLExecutor, jr *models.JoinRequest) error
	// FindPending returns the single pending request of teamID, or ErrJoinRequestNotFound.
	FindPending(ctx context.Context, exec SQLExecutor, tournamentID, teamID int) (*models.JoinRequest, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.JoinRequestStatus, handledAt time.Time) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.JoinRequest, error)
}

type postgresJoinRequestRepository struct {
	db *sql.DB
}

func NewPostgresJoinRequestRepository(db *sql.DB) JoinRequestRepository {
	return &postgresJoinRequestRepository{db: db}
}

const joinRequestColumns = `id, tournament_id, team_id, status, requested_at, handled_at`

func (r *postgresJoinRequestRepository) Create(ctx context.Context, exec SQLExecutor, jr *models.JoinRequest) error {
	executor := getExecutor(exec, r.db)
	query := `
		INSERT INTO tournament_join_requests (tournament_id, team_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, requested_at`

	err := executor.QueryRowContext(ctx, query, jr.TournamentID, jr.TeamID, jr.Status).Scan(&jr.ID, &jr.RequestedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case "23505": // unique_violation
				if pqErr.Constraint == "tournament_join_requests_one_pending" {
					return ErrJoinRequestPendingExists
				}
			case "23503": // foreign_key_violation
				switch pqErr.Constraint {
				case "tournament_join_requests_team_id_fkey":
					return ErrJoinRequestTeamInvalid
				case "tournament_join_requests_tournament_id_fkey":
					return ErrTournamentNotFound
				}
			}
		}
		return fmt.Errorf("failed to create join request: %w", err)
	}
	return nil
}

func (r *postgresJoinRequestRepository) FindPending(ctx context.Context, exec SQLExecutor, tournamentID, teamID int) (*models.JoinRequest, error) {
	executor := getExecutor(exec, r.db)
	query := `SELECT ` + joinRequestColumns + `
		FROM tournament_join_requests
		WHERE tournament_id = $1 AND team_id = $2 AND status = $3`

	jr, err := scanJoinRequest(executor.QueryRowContext(ctx, query, tournamentID, teamID, models.JoinRequestPending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJoinRequestNotFound
		}
		return nil, fmt.Errorf("failed to find pending join request: %w", err)
	}
	return jr, nil
}

func (r *postgresJoinRequestRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.JoinRequestStatus, handledAt time.Time) error {
	executor := getExecutor(exec, r.db)
	query := `UPDATE tournament_join_requests SET status = $1, handled_at = $2 WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, status, handledAt, id)
	if err != nil {
		return fmt.Errorf("failed to update join request status: %w", err)
	}
	return checkRowsAffected(result, ErrJoinRequestNotFound)
}

func (r *postgresJoinRequestRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.JoinRequest, error) {
	executor := getExecutor(exec, r.db)
	query := `SELECT ` + joinRequestColumns + `
		FROM tournament_join_requests
		WHERE tournament_id = $1
		ORDER BY requested_at, id`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list join requests: %w", err)
	}
	defer rows.Close()

	requests := make([]*models.JoinRequest, 0)
	for rows.Next() {
		jr, err := scanJoinRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan join request: %w", err)
		}
		requests = append(requests, jr)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return requests, nil
}

func scanJoinRequest(row rowScanner) (*models.JoinRequest, error) {
	jr := &models.JoinRequest{}
	var handledAt sql.NullTime
	if err := row.Scan(&jr.ID, &jr.TournamentID, &jr.TeamID, &jr.Status, &jr.RequestedAt, &handledAt); err != nil {
		return nil, err
	}
	if handledAt.Valid {
		t := handledAt.Time
		jr.HandledAt = &t
	}
	return jr, nil
}
