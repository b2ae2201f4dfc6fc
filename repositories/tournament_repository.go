package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/volley-tournament/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentTeamExists   = errors.New("team already accepted into tournament")
	ErrTournamentInvalidTeam  = errors.New("invalid team reference")
	ErrTournamentNoOrganizers = errors.New("tournament requires at least one organizer")
)

type TournamentRepository interface {
	// Create inserts the tournament and its organizers. Accepted teams and structure start empty.
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	// LockByID takes a row lock on the tournament for the rest of the transaction and returns it.
	LockByID(ctx context.Context, exec SQLExecutor, id int, mode LockMode) (*models.Tournament, error)
	// AddTeam appends teamID to the accepted list; the position preserves acceptance order.
	AddTeam(ctx context.Context, exec SQLExecutor, tournamentID, teamID int) error
	UpdateStructure(ctx context.Context, exec SQLExecutor, tournamentID int, structure models.Structure) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	if len(t.OrganizerIDs) == 0 {
		return ErrTournamentNoOrganizers
	}
	executor := getExecutor(exec, r.db)
	query := `
		INSERT INTO tournaments (
			name, start_date, end_date, location, prize, number_team, format,
			structure_match_ids, structure_groups, structure_rounds
		) VALUES ($1, $2, $3, $4, $5, $6, $7, '{}', '[]', 0)
		RETURNING id, created_at, updated_at`

	err := executor.QueryRowContext(ctx, query,
		t.Name, t.StartDate, t.EndDate, t.Location, t.Prize, t.NumberTeam, t.Format,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return r.handleTournamentError(err)
	}

	for _, organizerID := range t.OrganizerIDs {
		_, err := executor.ExecContext(ctx,
			`INSERT INTO tournament_organizers (tournament_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			t.ID, organizerID)
		if err != nil {
			return fmt.Errorf("failed to add organizer %d to tournament %d: %w", organizerID, t.ID, err)
		}
	}
	t.TeamIDs = []int{}
	t.Structure = models.Structure{}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	executor := getExecutor(exec, r.db)
	query := `
		SELECT
			id, name, start_date, end_date, location, prize, number_team, format,
			structure_match_ids, structure_groups, structure_rounds, created_at, updated_at
		FROM tournaments
		WHERE id = $1`

	t, err := scanTournament(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	if t.OrganizerIDs, err = r.listIDs(ctx, executor,
		`SELECT user_id FROM tournament_organizers WHERE tournament_id = $1 ORDER BY user_id`, id); err != nil {
		return nil, fmt.Errorf("failed to load organizers for tournament %d: %w", id, err)
	}
	if t.TeamIDs, err = r.listIDs(ctx, executor,
		`SELECT team_id FROM tournament_teams WHERE tournament_id = $1 ORDER BY position`, id); err != nil {
		return nil, fmt.Errorf("failed to load teams for tournament %d: %w", id, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) LockByID(ctx context.Context, exec SQLExecutor, id int, mode LockMode) (*models.Tournament, error) {
	executor := getExecutor(exec, r.db)
	var lockedID int
	err := executor.QueryRowContext(ctx, `SELECT id FROM tournaments WHERE id = $1 `+lockClause(mode), id).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to lock tournament %d: %w", id, err)
	}
	return r.GetByID(ctx, executor, id)
}

func (r *postgresTournamentRepository) AddTeam(ctx context.Context, exec SQLExecutor, tournamentID, teamID int) error {
	executor := getExecutor(exec, r.db)
	query := `
		INSERT INTO tournament_teams (tournament_id, team_id, position)
		SELECT $1, $2, COALESCE(MAX(position), 0) + 1
		FROM tournament_teams
		WHERE tournament_id = $1`
	_, err := executor.ExecContext(ctx, query, tournamentID, teamID)
	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) UpdateStructure(ctx context.Context, exec SQLExecutor, tournamentID int, s models.Structure) error {
	executor := getExecutor(exec, r.db)
	groups := s.Groups
	if groups == nil {
		groups = []models.Group{}
	}
	groupsJSON, err := json.Marshal(groups)
	if err != nil {
		return fmt.Errorf("failed to encode groups for tournament %d: %w", tournamentID, err)
	}
	matchIDs := make([]int64, len(s.MatchIDs))
	for i, id := range s.MatchIDs {
		matchIDs[i] = int64(id)
	}

	query := `
		UPDATE tournaments SET
			structure_match_ids = $1,
			structure_groups = $2,
			structure_rounds = $3,
			updated_at = NOW()
		WHERE id = $4`
	result, err := executor.ExecContext(ctx, query, pq.Array(matchIDs), groupsJSON, s.Rounds, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to update structure of tournament %d: %w", tournamentID, err)
	}
	return checkRowsAffected(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) listIDs(ctx context.Context, executor SQLExecutor, query string, id int) ([]int, error) {
	rows, err := executor.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		ids = append(ids, v)
	}
	return ids, rows.Err()
}

func scanTournament(row rowScanner) (*models.Tournament, error) {
	var (
		t          models.Tournament
		matchIDs   pq.Int64Array
		groupsJSON []byte
	)
	err := row.Scan(
		&t.ID, &t.Name, &t.StartDate, &t.EndDate, &t.Location, &t.Prize, &t.NumberTeam, &t.Format,
		&matchIDs, &groupsJSON, &t.Structure.Rounds, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(matchIDs) > 0 {
		t.Structure.MatchIDs = make([]int, len(matchIDs))
		for i, id := range matchIDs {
			t.Structure.MatchIDs[i] = int(id)
		}
	}
	if len(groupsJSON) > 0 {
		if err := json.Unmarshal(groupsJSON, &t.Structure.Groups); err != nil {
			return nil, fmt.Errorf("failed to decode groups of tournament %d: %w", t.ID, err)
		}
		if len(t.Structure.Groups) == 0 {
			t.Structure.Groups = nil
		}
	}
	return &t, nil
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "tournament_teams_pkey" {
				return ErrTournamentTeamExists
			}
		case "23503":
			switch pqErr.Constraint {
			case "tournament_teams_team_id_fkey":
				return ErrTournamentInvalidTeam
			case "tournament_teams_tournament_id_fkey":
				return ErrTournamentNotFound
			}
		}
	}
	return err
}
