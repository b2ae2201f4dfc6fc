package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/volley-tournament/metrics"
	"github.com/Dosada05/volley-tournament/models"
	"github.com/Dosada05/volley-tournament/repositories"
	"golang.org/x/sync/errgroup"
)

type CreateTournamentInput struct {
	Name       string                  `json:"name"`
	StartDate  time.Time               `json:"start_date"`
	EndDate    time.Time               `json:"end_date"`
	Location   string                  `json:"location"`
	Prize      string                  `json:"prize"`
	NumberTeam int                     `json:"number_team"`
	Format     models.TournamentFormat `json:"format"`
	// CoOrganizerIDs are added next to the creator.
	CoOrganizerIDs []int `json:"co_organizer_ids,omitempty"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, actor Actor, input CreateTournamentInput) (*models.Tournament, error)
	// GetTournament returns the tournament with its join requests and current matches.
	GetTournament(ctx context.Context, id int) (*models.Tournament, error)
	CreateJoinRequest(ctx context.Context, actor Actor, tournamentID, teamID int) (*models.JoinRequest, error)
	HandleJoinRequest(ctx context.Context, actor Actor, tournamentID, teamID int, status models.JoinRequestStatus) (*models.JoinRequest, error)
}

type tournamentService struct {
	tx              repositories.Transactor
	tournamentRepo  repositories.TournamentRepository
	teamRepo        repositories.TeamRepository
	joinRequestRepo repositories.JoinRequestRepository
	matchRepo       repositories.MatchRepository
	metrics         metrics.Recorder
	logger          *slog.Logger
	now             func() time.Time
}

func NewTournamentService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	joinRequestRepo repositories.JoinRequestRepository,
	matchRepo repositories.MatchRepository,
	recorder metrics.Recorder,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tx:              tx,
		tournamentRepo:  tournamentRepo,
		teamRepo:        teamRepo,
		joinRequestRepo: joinRequestRepo,
		matchRepo:       matchRepo,
		metrics:         recorder,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, actor Actor, input CreateTournamentInput) (*models.Tournament, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTournamentNameRequired
	}
	if err := validateTournamentDates(input.StartDate, input.EndDate); err != nil {
		return nil, err
	}
	if input.NumberTeam <= 0 {
		return nil, ErrTournamentInvalidCapacity
	}
	if !input.Format.Valid() {
		return nil, fmt.Errorf("%w: '%s'", ErrTournamentInvalidFormat, input.Format)
	}

	organizers := []int{actor.UserID}
	for _, id := range input.CoOrganizerIDs {
		if id != actor.UserID && id > 0 {
			organizers = append(organizers, id)
		}
	}

	t := &models.Tournament{
		Name:         name,
		OrganizerIDs: organizers,
		StartDate:    input.StartDate,
		EndDate:      input.EndDate,
		Location:     strings.TrimSpace(input.Location),
		Prize:        strings.TrimSpace(input.Prize),
		NumberTeam:   input.NumberTeam,
		Format:       input.Format,
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		return s.tournamentRepo.Create(ctx, exec, t)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", handleRepositoryError(err))
	}

	s.logger.InfoContext(ctx, "tournament created",
		slog.Int("tournament_id", t.ID),
		slog.Int("organizer_id", actor.UserID),
		slog.String("format", string(t.Format)))
	return t, nil
}

func (s *tournamentService) GetTournament(ctx context.Context, id int) (*models.Tournament, error) {
	var (
		tournament *models.Tournament
		requests   []*models.JoinRequest
		matches    []*models.Match
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.tournamentRepo.GetByID(gCtx, nil, id)
		if err != nil {
			return handleRepositoryError(err)
		}
		tournament = t
		return nil
	})
	g.Go(func() error {
		list, err := s.joinRequestRepo.ListByTournament(gCtx, nil, id)
		if err != nil {
			return fmt.Errorf("failed to list join requests for tournament %d: %w", id, err)
		}
		requests = list
		return nil
	})
	g.Go(func() error {
		list, err := s.matchRepo.ListByTournament(gCtx, nil, id)
		if err != nil {
			return fmt.Errorf("failed to list matches for tournament %d: %w", id, err)
		}
		matches = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tournament.JoinRequests = make([]models.JoinRequest, 0, len(requests))
	for _, jr := range requests {
		tournament.JoinRequests = append(tournament.JoinRequests, *jr)
	}
	tournament.Matches = matchesToValues(matches)
	return tournament, nil
}

func (s *tournamentService) CreateJoinRequest(ctx context.Context, actor Actor, tournamentID, teamID int) (*models.JoinRequest, error) {
	var created *models.JoinRequest
	err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.LockByID(ctx, exec, tournamentID, repositories.LockShared)
		if err != nil {
			return handleRepositoryError(err)
		}
		team, err := s.teamRepo.GetByID(ctx, exec, teamID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if team.LeaderID != actor.UserID {
			return ErrTeamLeaderRequired
		}
		if !team.HasFullRoster() {
			return fmt.Errorf("%w: %d players, %d required", ErrTeamRosterTooSmall, len(team.PlayerIDs), models.MinTeamPlayers)
		}
		if t.IsFull() {
			return ErrTournamentFull
		}
		if t.HasTeam(teamID) {
			return ErrTeamAlreadyAccepted
		}

		jr := &models.JoinRequest{TournamentID: tournamentID, TeamID: teamID, Status: models.JoinRequestPending}
		if err := s.joinRequestRepo.Create(ctx, exec, jr); err != nil {
			return handleRepositoryError(err)
		}
		created = jr
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "join request created",
		slog.Int("tournament_id", tournamentID),
		slog.Int("team_id", teamID),
		slog.Int("join_request_id", created.ID))
	return created, nil
}

func (s *tournamentService) HandleJoinRequest(ctx context.Context, actor Actor, tournamentID, teamID int, status models.JoinRequestStatus) (*models.JoinRequest, error) {
	var handled *models.JoinRequest
	err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		// Эксклюзивная блокировка: проверка вместимости и добавление команды атомарны.
		t, err := s.tournamentRepo.LockByID(ctx, exec, tournamentID, repositories.LockExclusive)
		if err != nil {
			return handleRepositoryError(err)
		}
		if !t.IsOrganizer(actor.UserID) {
			return ErrOrganizerRequired
		}
		if !status.IsTerminal() {
			return fmt.Errorf("%w: got '%s'", ErrInvalidJoinRequestStatus, status)
		}
		jr, err := s.joinRequestRepo.FindPending(ctx, exec, tournamentID, teamID)
		if err != nil {
			return handleRepositoryError(err)
		}

		if status == models.JoinRequestAccepted {
			if t.IsFull() {
				return fmt.Errorf("%w: %d of %d teams accepted", ErrTournamentFull, len(t.TeamIDs), t.NumberTeam)
			}
			team, err := s.teamRepo.GetByID(ctx, exec, teamID)
			if err != nil {
				return handleRepositoryError(err)
			}
			if !team.HasFullRoster() {
				return fmt.Errorf("%w: %d players, %d required", ErrTeamRosterTooSmall, len(team.PlayerIDs), models.MinTeamPlayers)
			}
			if err := s.tournamentRepo.AddTeam(ctx, exec, tournamentID, teamID); err != nil {
				return handleRepositoryError(err)
			}
		}

		handledAt := s.now()
		if err := s.joinRequestRepo.UpdateStatus(ctx, exec, jr.ID, status, handledAt); err != nil {
			return handleRepositoryError(err)
		}
		jr.Status = status
		jr.HandledAt = &handledAt
		handled = jr
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.JoinRequestHandled(status)
	s.logger.InfoContext(ctx, "join request handled",
		slog.Int("tournament_id", tournamentID),
		slog.Int("team_id", teamID),
		slog.String("status", string(status)),
		slog.Int("organizer_id", actor.UserID))
	return handled, nil
}
