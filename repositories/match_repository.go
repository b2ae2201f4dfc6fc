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
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchTournamentInvalid = errors.New("match tournament conflict or invalid")
	ErrMatchTeamInvalid       = errors.New("match team conflict or invalid")
	ErrMatchNextInvalid       = errors.New("next match reference invalid")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	// ListByTournament returns bracket matches ordered by round, then match number.
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error)
	// ListFeeders returns matches whose next match is nextMatchID, ordered by match number.
	ListFeeders(ctx context.Context, exec SQLExecutor, nextMatchID int) ([]*models.Match, error)
	UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, matchID int, nextMatchID *int, slot *models.Slot) error
	// UpdateState writes slots, winner, sets, scores and status.
	UpdateState(ctx context.Context, exec SQLExecutor, match *models.Match) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `
	id, kind, tournament_id, round, match_number, group_name,
	team_a_id, team_b_id, winner_id, sets, score_a, score_b, max_sets, terrain_type, status,
	next_match_id, next_match_slot, bye_slot, creator_id, is_public, created_at, updated_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	executor := getExecutor(exec, r.db)
	setsJSON, err := encodeSets(m.Sets)
	if err != nil {
		return err
	}

	var (
		tournamentID, round, matchNumber, nextMatchID, nextSlot, byeSlot sql.NullInt64
		groupName                                                        sql.NullString
		creatorID                                                        sql.NullInt64
		isPublic                                                         sql.NullBool
	)
	switch m.Kind {
	case models.MatchKindTournament:
		if m.Bracket == nil {
			return fmt.Errorf("tournament match requires bracket info")
		}
		b := m.Bracket
		tournamentID = sql.NullInt64{Int64: int64(b.TournamentID), Valid: true}
		round = sql.NullInt64{Int64: int64(b.Round), Valid: true}
		matchNumber = sql.NullInt64{Int64: int64(b.MatchNumber), Valid: true}
		if b.GroupName != nil {
			groupName = sql.NullString{String: *b.GroupName, Valid: true}
		}
		nextMatchID = nullInt(b.NextMatchID)
		nextSlot = nullSlot(b.NextMatchSlot)
		byeSlot = nullSlot(b.ByeSlot)
	case models.MatchKindQuick:
		if m.Quick == nil {
			return fmt.Errorf("quick match requires creator info")
		}
		creatorID = sql.NullInt64{Int64: int64(m.Quick.CreatorID), Valid: true}
		isPublic = sql.NullBool{Bool: m.Quick.IsPublic, Valid: true}
	default:
		return fmt.Errorf("unknown match kind %q", m.Kind)
	}

	query := `
		INSERT INTO matches (
			kind, tournament_id, round, match_number, group_name,
			team_a_id, team_b_id, winner_id, sets, score_a, score_b, max_sets, terrain_type, status,
			next_match_id, next_match_slot, bye_slot, creator_id, is_public
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, created_at, updated_at`

	err = executor.QueryRowContext(ctx, query,
		m.Kind, tournamentID, round, matchNumber, groupName,
		m.TeamAID, m.TeamBID, m.WinnerID, setsJSON, m.ScoreA, m.ScoreB, m.MaxSets, m.TerrainType, m.Status,
		nextMatchID, nextSlot, byeSlot, creatorID, isPublic,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.getOne(ctx, exec, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
}

func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.getOne(ctx, exec, `SELECT `+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresMatchRepository) getOne(ctx context.Context, exec SQLExecutor, query string, id int) (*models.Match, error) {
	executor := getExecutor(exec, r.db)
	m, err := scanMatch(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %d: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error) {
	return r.list(ctx, exec, `SELECT `+matchColumns+`
		FROM matches
		WHERE tournament_id = $1
		ORDER BY round ASC, match_number ASC, id ASC`, tournamentID)
}

func (r *postgresMatchRepository) ListFeeders(ctx context.Context, exec SQLExecutor, nextMatchID int) ([]*models.Match, error) {
	return r.list(ctx, exec, `SELECT `+matchColumns+`
		FROM matches
		WHERE next_match_id = $1
		ORDER BY match_number ASC, id ASC`, nextMatchID)
}

func (r *postgresMatchRepository) list(ctx context.Context, exec SQLExecutor, query string, arg int) ([]*models.Match, error) {
	executor := getExecutor(exec, r.db)
	rows, err := executor.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *postgresMatchRepository) UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, matchID int, nextMatchID *int, slot *models.Slot) error {
	executor := getExecutor(exec, r.db)
	query := `UPDATE matches SET next_match_id = $1, next_match_slot = $2, updated_at = NOW() WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, nullInt(nextMatchID), nullSlot(slot), matchID)
	if err != nil {
		return fmt.Errorf("UpdateNextMatchInfo: failed to execute query for match %d: %w", matchID, r.handleMatchError(err))
	}
	return checkRowsAffected(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateState(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	executor := getExecutor(exec, r.db)
	setsJSON, err := encodeSets(m.Sets)
	if err != nil {
		return err
	}
	query := `
		UPDATE matches SET
			team_a_id = $1,
			team_b_id = $2,
			winner_id = $3,
			sets = $4,
			score_a = $5,
			score_b = $6,
			status = $7,
			updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at`
	err = executor.QueryRowContext(ctx, query,
		m.TeamAID, m.TeamBID, m.WinnerID, setsJSON, m.ScoreA, m.ScoreB, m.Status, m.ID,
	).Scan(&m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMatchNotFound
		}
		return r.handleMatchError(err)
	}
	return nil
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := getExecutor(exec, r.db)
	if _, err := executor.ExecContext(ctx, `DELETE FROM matches WHERE tournament_id = $1`, tournamentID); err != nil {
		return fmt.Errorf("failed to delete matches of tournament %d: %w", tournamentID, err)
	}
	return nil
}

func scanMatch(row rowScanner) (*models.Match, error) {
	var (
		m                                                                models.Match
		tournamentID, round, matchNumber, nextMatchID, nextSlot, byeSlot sql.NullInt64
		teamA, teamB, winner, creatorID                                  sql.NullInt64
		groupName                                                        sql.NullString
		isPublic                                                         sql.NullBool
		setsJSON                                                         []byte
	)
	err := row.Scan(
		&m.ID, &m.Kind, &tournamentID, &round, &matchNumber, &groupName,
		&teamA, &teamB, &winner, &setsJSON, &m.ScoreA, &m.ScoreB, &m.MaxSets, &m.TerrainType, &m.Status,
		&nextMatchID, &nextSlot, &byeSlot, &creatorID, &isPublic, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.TeamAID = intPtrFromNull(teamA)
	m.TeamBID = intPtrFromNull(teamB)
	m.WinnerID = intPtrFromNull(winner)
	if len(setsJSON) > 0 {
		if err := json.Unmarshal(setsJSON, &m.Sets); err != nil {
			return nil, fmt.Errorf("failed to decode sets of match %d: %w", m.ID, err)
		}
		if len(m.Sets) == 0 {
			m.Sets = nil
		}
	}

	switch m.Kind {
	case models.MatchKindTournament:
		m.Bracket = &models.BracketInfo{
			TournamentID:  int(tournamentID.Int64),
			Round:         int(round.Int64),
			MatchNumber:   int(matchNumber.Int64),
			NextMatchID:   intPtrFromNull(nextMatchID),
			NextMatchSlot: slotFromNull(nextSlot),
			ByeSlot:       slotFromNull(byeSlot),
		}
		if groupName.Valid {
			name := groupName.String
			m.Bracket.GroupName = &name
		}
	case models.MatchKindQuick:
		m.Quick = &models.QuickMatchInfo{CreatorID: int(creatorID.Int64), IsPublic: isPublic.Bool}
	}
	return &m, nil
}

func encodeSets(sets []models.SetScore) ([]byte, error) {
	if sets == nil {
		sets = []models.SetScore{}
	}
	b, err := json.Marshal(sets)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sets: %w", err)
	}
	return b, nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullSlot(p *models.Slot) sql.NullInt64 {
	if p == nil || *p == models.SlotNone {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func slotFromNull(v sql.NullInt64) *models.Slot {
	if !v.Valid {
		return nil
	}
	s := models.Slot(v.Int64)
	return &s
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23503" { // foreign_key_violation
		switch pqErr.Constraint {
		case "matches_tournament_id_fkey":
			return ErrMatchTournamentInvalid
		case "matches_team_a_id_fkey", "matches_team_b_id_fkey", "matches_winner_id_fkey":
			return ErrMatchTeamInvalid
		case "matches_next_match_id_fkey":
			return ErrMatchNextInvalid
		}
	}
	return err
}
