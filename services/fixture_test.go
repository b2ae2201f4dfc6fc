package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/volley-tournament/brackets"
	"github.com/Dosada05/volley-tournament/metrics"
	"github.com/Dosada05/volley-tournament/models"
	"github.com/Dosada05/volley-tournament/repositories"
	"github.com/Dosada05/volley-tournament/storage"
	"github.com/stretchr/testify/require"
)

const organizerID = 1

var organizer = Actor{UserID: organizerID, Role: models.RoleOrganizer}

type recordingBroadcaster struct {
	mu       sync.Mutex
	rooms    []string
	messages []brackets.WebSocketMessage
}

func (b *recordingBroadcaster) BroadcastToRoom(roomID string, message interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rooms = append(b.rooms, roomID)
	if msg, ok := message.(brackets.WebSocketMessage); ok {
		b.messages = append(b.messages, msg)
	}
}

func (b *recordingBroadcaster) last() brackets.WebSocketMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.messages) == 0 {
		return brackets.WebSocketMessage{}
	}
	return b.messages[len(b.messages)-1]
}

type fixture struct {
	store       *repositories.MemoryStore
	broadcaster *recordingBroadcaster
	uploader    *storage.MemoryUploader
	tournaments TournamentService
	brackets    BracketService
	matches     MatchService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repositories.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	broadcaster := &recordingBroadcaster{}
	uploader := storage.NewMemoryUploader("https://cdn.example.com")
	recorder := metrics.NoopRecorder{}

	return &fixture{
		store:       store,
		broadcaster: broadcaster,
		uploader:    uploader,
		tournaments: NewTournamentService(store, store.Tournaments(), store.Teams(), store.JoinRequests(), store.Matches(), recorder, logger),
		brackets:    NewBracketService(store, store.Tournaments(), store.Matches(), storage.NewBracketArchiver(uploader), broadcaster, recorder, logger),
		matches:     NewMatchService(store, store.Tournaments(), store.Matches(), store.Teams(), broadcaster, recorder, logger),
	}
}

func leaderOf(teamID int) Actor {
	return Actor{UserID: teamID * 10, Role: models.RolePlayer}
}

// putTeam stores a team whose leader is teamID*10.
func (f *fixture) putTeam(teamID, players int) {
	ids := make([]int, players)
	for i := range ids {
		ids[i] = teamID*100 + i
	}
	f.store.PutTeam(&models.Team{ID: teamID, Name: "team", LeaderID: teamID * 10, PlayerIDs: ids})
}

func (f *fixture) createTournament(t *testing.T, format models.TournamentFormat, capacity int) *models.Tournament {
	t.Helper()
	tournament, err := f.tournaments.CreateTournament(context.Background(), organizer, CreateTournamentInput{
		Name:       "Beach Open",
		StartDate:  time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 7, 2, 18, 0, 0, 0, time.UTC),
		NumberTeam: capacity,
		Format:     format,
	})
	require.NoError(t, err)
	return tournament
}

// tournamentWithTeams creates a tournament and accepts teams 101..100+n in order.
func (f *fixture) tournamentWithTeams(t *testing.T, format models.TournamentFormat, n int) (*models.Tournament, []int) {
	t.Helper()
	ctx := context.Background()
	tournament := f.createTournament(t, format, n)
	ids := make([]int, n)
	for i := range ids {
		id := 101 + i
		ids[i] = id
		f.putTeam(id, models.MinTeamPlayers)
		_, err := f.tournaments.CreateJoinRequest(ctx, leaderOf(id), tournament.ID, id)
		require.NoError(t, err)
		_, err = f.tournaments.HandleJoinRequest(ctx, organizer, tournament.ID, id, models.JoinRequestAccepted)
		require.NoError(t, err)
	}
	return tournament, ids
}

func (f *fixture) generate(t *testing.T, tournamentID int) *GeneratedStructure {
	t.Helper()
	gen, err := f.brackets.GenerateStructure(context.Background(), organizer, tournamentID, GenerateOptions{})
	require.NoError(t, err)
	return gen
}

// matchAt returns the stored match at round/number of a single-elimination bracket.
func (f *fixture) matchAt(t *testing.T, tournamentID, round, number int) *models.Match {
	t.Helper()
	byRound, err := f.matches.MatchesByRound(context.Background(), tournamentID)
	require.NoError(t, err)
	for _, m := range byRound[round] {
		if m.Bracket.MatchNumber == number {
			return m
		}
	}
	t.Fatalf("no match R%dM%d in tournament %d", round, number, tournamentID)
	return nil
}

func (f *fixture) reload(t *testing.T, id int) *models.Match {
	t.Helper()
	m, err := f.store.Matches().GetByID(context.Background(), nil, id)
	require.NoError(t, err)
	return m
}

func sets(scores ...int) []models.SetScore {
	out := make([]models.SetScore, 0, len(scores)/2)
	for i := 0; i+1 < len(scores); i += 2 {
		out = append(out, models.SetScore{TeamA: scores[i], TeamB: scores[i+1]})
	}
	return out
}

var (
	aWins = sets(25, 20, 25, 18)
	bWins = sets(20, 25, 18, 25)
)

func (f *fixture) submit(t *testing.T, matchID int, s []models.SetScore) *MatchResult {
	t.Helper()
	res, err := f.matches.SubmitMatchResult(context.Background(), organizer, matchID, s)
	require.NoError(t, err)
	return res
}
