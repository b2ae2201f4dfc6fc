package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/volley-tournament/brackets"
	"github.com/Dosada05/volley-tournament/metrics"
	"github.com/Dosada05/volley-tournament/models"
	"github.com/Dosada05/volley-tournament/repositories"
	"github.com/Dosada05/volley-tournament/scoring"
	"github.com/Dosada05/volley-tournament/storage"
)

type GenerateOptions struct {
	TerrainType models.TerrainType `json:"terrain_type"`
	MaxSets     int                `json:"max_sets"`
}

type GeneratedStructure struct {
	TournamentID int              `json:"tournament_id"`
	Format       string           `json:"format"`
	Structure    models.Structure `json:"structure"`
	Matches      []*models.Match  `json:"matches"`
}

type MatchesUpdatedPayload struct {
	TournamentID int             `json:"tournament_id"`
	Matches      []*models.Match `json:"matches"`
}

type BracketService interface {
	// GenerateStructure replaces the tournament's structure and every match it had.
	GenerateStructure(ctx context.Context, actor Actor, tournamentID int, opts GenerateOptions) (*GeneratedStructure, error)
	// AssignMatchTeams seeds a knockout match that no earlier match feeds.
	AssignMatchTeams(ctx context.Context, actor Actor, tournamentID, matchID, teamAID, teamBID int) (*models.Match, error)
}

type bracketService struct {
	tx             repositories.Transactor
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	archiver       storage.BracketArchiver
	broadcaster    brackets.Broadcaster
	metrics        metrics.Recorder
	propagator     *propagator
	logger         *slog.Logger
	now            func() time.Time
}

func NewBracketService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	archiver storage.BracketArchiver,
	broadcaster brackets.Broadcaster,
	recorder metrics.Recorder,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		archiver:       archiver,
		broadcaster:    broadcaster,
		metrics:        recorder,
		propagator:     &propagator{matchRepo: matchRepo, logger: logger},
		logger:         logger,
		now:            time.Now,
	}
}

func (o GenerateOptions) withDefaults() (GenerateOptions, error) {
	if o.MaxSets == 0 {
		o.MaxSets = models.DefaultMaxSets
	}
	if o.TerrainType == "" {
		o.TerrainType = models.DefaultTerrainType
	}
	if !scoring.ValidMaxSets(o.MaxSets) {
		return o, fmt.Errorf("%w: max sets must be 3 or 5, got %d", ErrInvalidMatchSettings, o.MaxSets)
	}
	if !o.TerrainType.Valid() {
		return o, fmt.Errorf("%w: unknown terrain type '%s'", ErrInvalidMatchSettings, o.TerrainType)
	}
	return o, nil
}

func (s *bracketService) GenerateStructure(ctx context.Context, actor Actor, tournamentID int, opts GenerateOptions) (*GeneratedStructure, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	started := s.now()

	var (
		result       *GeneratedStructure
		tournament   *models.Tournament
		byesAdvanced int
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.LockByID(ctx, exec, tournamentID, repositories.LockExclusive)
		if err != nil {
			return handleRepositoryError(err)
		}
		if !t.IsOrganizer(actor.UserID) {
			return ErrOrganizerRequired
		}
		if len(t.TeamIDs) < 2 {
			return fmt.Errorf("%w: found %d", ErrNotEnoughTeams, len(t.TeamIDs))
		}
		generator, err := brackets.NewGenerator(t.Format)
		if err != nil {
			return fmt.Errorf("%w: '%s'", ErrUnsupportedFormat, t.Format)
		}

		plan, err := generator.GenerateBracket(ctx, brackets.GenerateBracketParams{TournamentID: t.ID, TeamIDs: t.TeamIDs})
		if err != nil {
			if errors.Is(err, brackets.ErrNotEnoughTeams) {
				return ErrNotEnoughTeams
			}
			return fmt.Errorf("failed to generate bracket for tournament %d: %w", t.ID, err)
		}

		if err := s.matchRepo.DeleteByTournament(ctx, exec, t.ID); err != nil {
			return err
		}

		structure, created, err := s.persistPlan(ctx, exec, t.ID, plan, opts)
		if err != nil {
			return err
		}
		if err := s.tournamentRepo.UpdateStructure(ctx, exec, t.ID, structure); err != nil {
			return handleRepositoryError(err)
		}

		byes, err := s.propagator.advanceByes(ctx, exec, created, structure.Rounds)
		if err != nil {
			return err
		}
		if byes.Byes > 0 {
			s.logger.InfoContext(ctx, "byes advanced", slog.Int("tournament_id", t.ID), slog.Int("byes", byes.Byes))
		}

		matches, err := s.matchRepo.ListByTournament(ctx, exec, t.ID)
		if err != nil {
			return err
		}
		t.Structure = structure
		tournament = t
		result = &GeneratedStructure{
			TournamentID: t.ID,
			Format:       generator.GetName(),
			Structure:    structure,
			Matches:      matches,
		}
		byesAdvanced = byes.Byes
		return nil
	})
	if err != nil {
		if !isClientError(err) {
			s.logger.ErrorContext(ctx, "bracket generation failed", slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "bracket generated",
		slog.Int("tournament_id", tournamentID),
		slog.String("format", result.Format),
		slog.Int("matches", len(result.Matches)),
		slog.Int("rounds", result.Structure.Rounds))
	s.metrics.BracketGenerated(tournament.Format, len(result.Matches), s.now().Sub(started))
	s.metrics.ByesAdvanced(byesAdvanced)

	s.archive(ctx, tournament, result)
	s.broadcaster.BroadcastToRoom(brackets.TournamentRoom(tournamentID), brackets.WebSocketMessage{
		Type:    brackets.MessageBracketUpdated,
		Payload: result,
		RoomID:  brackets.TournamentRoom(tournamentID),
	})
	return result, nil
}

// persistPlan creates every match, then links next-match edges once all targets exist.
func (s *bracketService) persistPlan(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, plan *brackets.Bracket, opts GenerateOptions) (models.Structure, []*models.Match, error) {
	byUID := make(map[string]*models.Match, len(plan.Matches))
	created := make([]*models.Match, 0, len(plan.Matches))
	structure := models.Structure{
		MatchIDs: make([]int, 0, len(plan.Matches)),
		Rounds:   plan.Rounds,
	}

	// ПЕРВЫЙ ПРОХОД: создаём все матчи
	for _, bm := range plan.Matches {
		m := &models.Match{
			Kind:        models.MatchKindTournament,
			TeamAID:     cloneIntPtr(bm.TeamAID),
			TeamBID:     cloneIntPtr(bm.TeamBID),
			MaxSets:     opts.MaxSets,
			TerrainType: opts.TerrainType,
			Status:      models.StatusScheduled,
			Bracket: &models.BracketInfo{
				TournamentID: tournamentID,
				Round:        bm.Round,
				MatchNumber:  bm.MatchNumber,
				GroupName:    bm.GroupName,
			},
		}
		if bm.ByeSlot != models.SlotNone {
			slot := bm.ByeSlot
			m.Bracket.ByeSlot = &slot
		}
		if err := s.matchRepo.Create(ctx, exec, m); err != nil {
			return structure, nil, fmt.Errorf("failed to create match %s: %w", bm.UID, err)
		}
		byUID[bm.UID] = m
		created = append(created, m)
		structure.MatchIDs = append(structure.MatchIDs, m.ID)
	}

	// ВТОРОЙ ПРОХОД: связи next_match_id / next_match_slot
	for _, bm := range plan.Matches {
		if bm.NextMatchUID == nil {
			continue
		}
		m := byUID[bm.UID]
		next, ok := byUID[*bm.NextMatchUID]
		if !ok {
			return structure, nil, fmt.Errorf("%w: plan links %s to unknown match %s", ErrBracketInconsistent, bm.UID, *bm.NextMatchUID)
		}
		nextID, slot := next.ID, bm.NextMatchSlot
		if err := s.matchRepo.UpdateNextMatchInfo(ctx, exec, m.ID, &nextID, &slot); err != nil {
			return structure, nil, fmt.Errorf("failed to link match %d to %d: %w", m.ID, nextID, err)
		}
		m.Bracket.NextMatchID = &nextID
		m.Bracket.NextMatchSlot = &slot
	}

	for _, g := range plan.Groups {
		group := models.Group{
			Name:     g.Name,
			TeamIDs:  append([]int(nil), g.TeamIDs...),
			MatchIDs: make([]int, 0, len(g.MatchUIDs)),
		}
		for _, uid := range g.MatchUIDs {
			group.MatchIDs = append(group.MatchIDs, byUID[uid].ID)
		}
		structure.Groups = append(structure.Groups, group)
	}
	return structure, created, nil
}

func (s *bracketService) archive(ctx context.Context, t *models.Tournament, result *GeneratedStructure) {
	res, err := s.archiver.Archive(ctx, storage.BracketSnapshot{
		TournamentID: t.ID,
		Format:       t.Format,
		GeneratedAt:  s.now(),
		Structure:    result.Structure,
		Matches:      result.Matches,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to archive bracket snapshot", slog.Int("tournament_id", t.ID), slog.Any("error", err))
		return
	}
	if res != nil {
		s.logger.InfoContext(ctx, "bracket snapshot archived", slog.Int("tournament_id", t.ID), slog.String("key", res.Key))
	}
}

func (s *bracketService) AssignMatchTeams(ctx context.Context, actor Actor, tournamentID, matchID, teamAID, teamBID int) (*models.Match, error) {
	if teamAID == teamBID {
		return nil, fmt.Errorf("%w: a team cannot play itself", ErrInvalidTeamAssignment)
	}

	var assigned *models.Match
	err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.LockByID(ctx, exec, tournamentID, repositories.LockShared)
		if err != nil {
			return handleRepositoryError(err)
		}
		if !t.IsOrganizer(actor.UserID) {
			return ErrOrganizerRequired
		}
		m, err := s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if m.Bracket == nil || m.Bracket.TournamentID != t.ID {
			return ErrMatchNotInTournament
		}
		if m.Bracket.GroupName != nil || m.Bracket.Round < 2 {
			return fmt.Errorf("%w: only knockout placeholders can be seeded manually", ErrMatchNotAssignable)
		}
		feeders, err := s.matchRepo.ListFeeders(ctx, exec, m.ID)
		if err != nil {
			return err
		}
		if len(feeders) > 0 {
			return ErrMatchNotAssignable
		}
		if m.IsDecided() {
			return ErrMatchAlreadyDecided
		}
		for _, id := range []int{teamAID, teamBID} {
			if !t.HasTeam(id) {
				return fmt.Errorf("%w: team %d is not accepted into the tournament", ErrInvalidTeamAssignment, id)
			}
		}

		m.TeamAID = intPtr(teamAID)
		m.TeamBID = intPtr(teamBID)
		if err := s.matchRepo.UpdateState(ctx, exec, m); err != nil {
			return handleRepositoryError(err)
		}
		assigned = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "match teams assigned",
		slog.Int("tournament_id", tournamentID),
		slog.Int("match_id", matchID),
		slog.Int("team_a_id", teamAID),
		slog.Int("team_b_id", teamBID))
	s.broadcaster.BroadcastToRoom(brackets.TournamentRoom(tournamentID), brackets.WebSocketMessage{
		Type:    brackets.MessageMatchUpdated,
		Payload: MatchesUpdatedPayload{TournamentID: tournamentID, Matches: []*models.Match{assigned}},
		RoomID:  brackets.TournamentRoom(tournamentID),
	})
	return assigned, nil
}
