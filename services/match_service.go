package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Dosada05/volley-tournament/brackets"
	"github.com/Dosada05/volley-tournament/metrics"
	"github.com/Dosada05/volley-tournament/models"
	"github.com/Dosada05/volley-tournament/repositories"
	"github.com/Dosada05/volley-tournament/scoring"
)

// MatchResult describes a committed submission.
type MatchResult struct {
	Match *models.Match `json:"match"`
	// Changed lists the submitted match followed by every successor rewritten by propagation.
	Changed []*models.Match `json:"changed"`
	// Reset is the number of downstream results that were cleared.
	Reset int `json:"reset"`
}

type MatchService interface {
	SubmitMatchResult(ctx context.Context, actor Actor, matchID int, sets []models.SetScore) (*MatchResult, error)
	GetMatch(ctx context.Context, matchID int) (*models.Match, error)
	MatchesByRound(ctx context.Context, tournamentID int) (map[int][]*models.Match, error)
	GroupStandings(ctx context.Context, tournamentID int) ([]models.GroupStandings, error)
}

type matchService struct {
	tx             repositories.Transactor
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	teamRepo       repositories.TeamRepository
	broadcaster    brackets.Broadcaster
	metrics        metrics.Recorder
	propagator     *propagator
	logger         *slog.Logger
}

func NewMatchService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	broadcaster brackets.Broadcaster,
	recorder metrics.Recorder,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		teamRepo:       teamRepo,
		broadcaster:    broadcaster,
		metrics:        recorder,
		propagator:     &propagator{matchRepo: matchRepo, logger: logger},
		logger:         logger,
	}
}

func (s *matchService) SubmitMatchResult(ctx context.Context, actor Actor, matchID int, sets []models.SetScore) (*MatchResult, error) {
	var result *MatchResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		m, err := s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			return handleRepositoryError(err)
		}

		// Порядок блокировок: турнир (share), затем матч и его преемники по цепочке.
		var tournament *models.Tournament
		if m.Kind == models.MatchKindTournament {
			if tournament, err = s.tournamentRepo.LockByID(ctx, exec, m.Bracket.TournamentID, repositories.LockShared); err != nil {
				return handleRepositoryError(err)
			}
		}
		if m, err = s.matchRepo.GetByIDForUpdate(ctx, exec, matchID); err != nil {
			return handleRepositoryError(err)
		}

		if err := s.authorizeSubmission(ctx, exec, actor, m, tournament); err != nil {
			return err
		}
		if m.TeamAID == nil || m.TeamBID == nil {
			return ErrMatchTeamsMissing
		}

		outcome, err := scoring.VolleyballRules(m.MaxSets).Evaluate(sets)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSetScores, err)
		}
		if !outcome.Decided() {
			return fmt.Errorf("%w: %d-%d in sets, %d needed", ErrMatchUndecided, outcome.WinsA, outcome.WinsB, outcome.Required)
		}

		m.Sets = append([]models.SetScore(nil), sets...)
		m.ScoreA, m.ScoreB = outcome.WinsA, outcome.WinsB
		m.WinnerID = cloneIntPtr(m.TeamInSlot(outcome.Winner))
		m.Status = models.MatchStatusCompleted
		if err := s.matchRepo.UpdateState(ctx, exec, m); err != nil {
			return handleRepositoryError(err)
		}

		result = &MatchResult{Match: m, Changed: []*models.Match{m}}
		if tournament == nil {
			return nil
		}
		walked, err := s.propagator.advance(ctx, exec, m, tournament.Structure.Rounds)
		if err != nil {
			return err
		}
		result.Changed = append(result.Changed, walked.Changed...)
		result.Reset = walked.Reset
		return nil
	})
	if err != nil {
		if !isClientError(err) {
			s.logger.ErrorContext(ctx, "match result submission failed", slog.Int("match_id", matchID), slog.Any("error", err))
		}
		return nil, err
	}

	m := result.Match
	s.logger.InfoContext(ctx, "match result recorded",
		slog.Int("match_id", m.ID),
		slog.Int("winner_id", *m.WinnerID),
		slog.Int("score_a", m.ScoreA),
		slog.Int("score_b", m.ScoreB),
		slog.Int("reset", result.Reset))
	s.metrics.ResultSubmitted(m.Kind)
	s.metrics.MatchesReset(result.Reset)

	if m.Bracket != nil {
		room := brackets.TournamentRoom(m.Bracket.TournamentID)
		s.broadcaster.BroadcastToRoom(room, brackets.WebSocketMessage{
			Type:    brackets.MessageMatchUpdated,
			Payload: MatchesUpdatedPayload{TournamentID: m.Bracket.TournamentID, Matches: result.Changed},
			RoomID:  room,
		})
	}
	return result, nil
}

// authorizeSubmission allows admins, organizers of the owning tournament, the creator of a quick
// match and the leaders of the two playing teams.
func (s *matchService) authorizeSubmission(ctx context.Context, exec repositories.SQLExecutor, actor Actor, m *models.Match, t *models.Tournament) error {
	if actor.IsAdmin() {
		return nil
	}
	if t != nil && t.IsOrganizer(actor.UserID) {
		return nil
	}
	if m.Quick != nil && m.Quick.CreatorID == actor.UserID {
		return nil
	}
	for _, teamID := range []*int{m.TeamAID, m.TeamBID} {
		if teamID == nil {
			continue
		}
		team, err := s.teamRepo.GetByID(ctx, exec, *teamID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if team.LeaderID == actor.UserID {
			return nil
		}
	}
	return ErrResultSubmitForbidden
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return m, nil
}

func (s *matchService) MatchesByRound(ctx context.Context, tournamentID int) (map[int][]*models.Match, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, handleRepositoryError(err)
	}
	matches, err := s.matchRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for tournament %d: %w", tournamentID, err)
	}
	byRound := make(map[int][]*models.Match)
	for _, m := range matches {
		byRound[m.Bracket.Round] = append(byRound[m.Bracket.Round], m)
	}
	return byRound, nil
}

// GroupStandings ranks every group of a generated group stage by its completed matches.
func (s *matchService) GroupStandings(ctx context.Context, tournamentID int) ([]models.GroupStandings, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if len(t.Structure.Groups) == 0 {
		return nil, ErrNoGroupStage
	}
	matches, err := s.matchRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for tournament %d: %w", tournamentID, err)
	}

	byGroup := make(map[string][]*models.Match)
	for _, m := range matches {
		if m.Bracket.GroupName != nil {
			byGroup[*m.Bracket.GroupName] = append(byGroup[*m.Bracket.GroupName], m)
		}
	}

	standings := make([]models.GroupStandings, 0, len(t.Structure.Groups))
	for _, g := range t.Structure.Groups {
		standings = append(standings, models.GroupStandings{
			Group:     g.Name,
			Standings: scoring.RankGroup(g.TeamIDs, byGroup[g.Name]),
		})
	}
	return standings, nil
}
