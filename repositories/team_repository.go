package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/volley-tournament/models"
)

var ErrTeamNotFound = errors.New("team not found")

// TeamRepository reads teams owned by the team-management service.
type TeamRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error)
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error) {
	executor := getExecutor(exec, r.db)
	team := &models.Team{}
	err := executor.QueryRowContext(ctx,
		`SELECT id, name, leader_id, created_at FROM teams WHERE id = $1`, id,
	).Scan(&team.ID, &team.Name, &team.LeaderID, &team.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", id, err)
	}

	rows, err := executor.QueryContext(ctx, `SELECT user_id FROM team_players WHERE team_id = $1 ORDER BY user_id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list players of team %d: %w", id, err)
	}
	defer rows.Close()

	team.PlayerIDs = make([]int, 0)
	for rows.Next() {
		var userID int
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		team.PlayerIDs = append(team.PlayerIDs, userID)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return team, nil
}
