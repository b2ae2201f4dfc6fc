package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dosada05/volley-tournament/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTournament(t *testing.T, store *MemoryStore) *models.Tournament {
	t.Helper()
	tournament := &models.Tournament{
		Name:         "Spring Cup",
		OrganizerIDs: []int{1},
		StartDate:    time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC),
		NumberTeam:   4,
		Format:       models.FormatSingleElimination,
	}
	require.NoError(t, store.Tournaments().Create(context.Background(), nil, tournament))
	return tournament
}

func bracketMatch(tournamentID, round, number int) *models.Match {
	return &models.Match{
		Kind:        models.MatchKindTournament,
		MaxSets:     models.DefaultMaxSets,
		TerrainType: models.DefaultTerrainType,
		Status:      models.StatusScheduled,
		Bracket:     &models.BracketInfo{TournamentID: tournamentID, Round: round, MatchNumber: number},
	}
}

func TestMemoryStoreTournamentTeamsKeepAcceptanceOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, id := range []int{30, 10, 20} {
		store.PutTeam(&models.Team{ID: id, Name: "team", LeaderID: id})
	}
	tournament := newTournament(t, store)
	repo := store.Tournaments()

	for _, id := range []int{30, 10, 20} {
		require.NoError(t, repo.AddTeam(ctx, nil, tournament.ID, id))
	}
	assert.ErrorIs(t, repo.AddTeam(ctx, nil, tournament.ID, 10), ErrTournamentTeamExists)
	assert.ErrorIs(t, repo.AddTeam(ctx, nil, tournament.ID, 99), ErrTournamentInvalidTeam)
	assert.ErrorIs(t, repo.AddTeam(ctx, nil, 404, 10), ErrTournamentNotFound)

	got, err := repo.GetByID(ctx, nil, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{30, 10, 20}, got.TeamIDs)
	assert.True(t, got.Structure.IsEmpty())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tournament := newTournament(t, store)

	m := bracketMatch(tournament.ID, 1, 1)
	require.NoError(t, store.Matches().Create(ctx, nil, m))

	got, err := store.Matches().GetByID(ctx, nil, m.ID)
	require.NoError(t, err)
	team := 5
	got.TeamAID = &team
	got.Bracket.Round = 9

	again, err := store.Matches().GetByID(ctx, nil, m.ID)
	require.NoError(t, err)
	assert.Nil(t, again.TeamAID)
	assert.Equal(t, 1, again.Bracket.Round)
}

func TestMemoryStoreFeedersAndOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tournament := newTournament(t, store)
	repo := store.Matches()

	final := bracketMatch(tournament.ID, 2, 1)
	require.NoError(t, repo.Create(ctx, nil, final))
	second := bracketMatch(tournament.ID, 1, 2)
	first := bracketMatch(tournament.ID, 1, 1)
	require.NoError(t, repo.Create(ctx, nil, second))
	require.NoError(t, repo.Create(ctx, nil, first))

	slotB, slotA := models.SlotB, models.SlotA
	require.NoError(t, repo.UpdateNextMatchInfo(ctx, nil, second.ID, &final.ID, &slotB))
	require.NoError(t, repo.UpdateNextMatchInfo(ctx, nil, first.ID, &final.ID, &slotA))

	feeders, err := repo.ListFeeders(ctx, nil, final.ID)
	require.NoError(t, err)
	require.Len(t, feeders, 2)
	assert.Equal(t, first.ID, feeders[0].ID)
	assert.Equal(t, second.ID, feeders[1].ID)

	all, err := repo.ListByTournament(ctx, nil, tournament.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int{first.ID, second.ID, final.ID}, []int{all[0].ID, all[1].ID, all[2].ID})

	missing := 404
	assert.ErrorIs(t, repo.UpdateNextMatchInfo(ctx, nil, first.ID, &missing, &slotA), ErrMatchNextInvalid)
}

func TestMemoryStoreDeleteByTournament(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	a := newTournament(t, store)
	b := newTournament(t, store)

	require.NoError(t, store.Matches().Create(ctx, nil, bracketMatch(a.ID, 1, 1)))
	require.NoError(t, store.Matches().Create(ctx, nil, bracketMatch(a.ID, 1, 2)))
	kept := bracketMatch(b.ID, 1, 1)
	require.NoError(t, store.Matches().Create(ctx, nil, kept))

	require.NoError(t, store.Matches().DeleteByTournament(ctx, nil, a.ID))

	left, err := store.Matches().ListByTournament(ctx, nil, a.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
	_, err = store.Matches().GetByID(ctx, nil, kept.ID)
	assert.NoError(t, err)
}

func TestMemoryStoreWithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.PutTeam(&models.Team{ID: 7, Name: "Blockers", LeaderID: 70})
	tournament := newTournament(t, store)
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(ctx context.Context, exec SQLExecutor) error {
		require.NoError(t, store.Tournaments().AddTeam(ctx, exec, tournament.ID, 7))
		require.NoError(t, store.Matches().Create(ctx, exec, bracketMatch(tournament.ID, 1, 1)))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.Tournaments().GetByID(ctx, nil, tournament.ID)
	require.NoError(t, err)
	assert.Empty(t, got.TeamIDs)
	matches, err := store.Matches().ListByTournament(ctx, nil, tournament.ID)
	require.NoError(t, err)
	assert.Empty(t, matches)

	err = store.WithinTx(ctx, func(ctx context.Context, exec SQLExecutor) error {
		return store.Tournaments().AddTeam(ctx, exec, tournament.ID, 7)
	})
	require.NoError(t, err)
	got, err = store.Tournaments().GetByID(ctx, nil, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{7}, got.TeamIDs)
}

func TestMemoryStoreSinglePendingJoinRequest(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.PutTeam(&models.Team{ID: 7, Name: "Blockers", LeaderID: 70})
	tournament := newTournament(t, store)
	repo := store.JoinRequests()

	first := &models.JoinRequest{TournamentID: tournament.ID, TeamID: 7, Status: models.JoinRequestPending}
	require.NoError(t, repo.Create(ctx, nil, first))
	err := repo.Create(ctx, nil, &models.JoinRequest{TournamentID: tournament.ID, TeamID: 7, Status: models.JoinRequestPending})
	assert.ErrorIs(t, err, ErrJoinRequestPendingExists)

	pending, err := repo.FindPending(ctx, nil, tournament.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, first.ID, pending.ID)

	handled := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateStatus(ctx, nil, first.ID, models.JoinRequestRejected, handled))
	_, err = repo.FindPending(ctx, nil, tournament.ID, 7)
	assert.ErrorIs(t, err, ErrJoinRequestNotFound)

	// a rejected team may ask again
	require.NoError(t, repo.Create(ctx, nil, &models.JoinRequest{TournamentID: tournament.ID, TeamID: 7, Status: models.JoinRequestPending}))

	list, err := repo.ListByTournament(ctx, nil, tournament.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, models.JoinRequestRejected, list[0].Status)
	require.NotNil(t, list[0].HandledAt)
	assert.True(t, handled.Equal(*list[0].HandledAt))
	assert.Equal(t, models.JoinRequestPending, list[1].Status)
}
