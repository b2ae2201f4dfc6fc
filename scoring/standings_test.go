package scoring

import (
	"testing"

	"github.com/Dosada05/volley-tournament/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completed(a, b int, sets ...models.SetScore) *models.Match {
	m := &models.Match{TeamAID: &a, TeamBID: &b, MaxSets: 5, Status: models.MatchStatusCompleted, Sets: sets}
	res, err := VolleyballRules(5).Evaluate(sets)
	if err != nil || !res.Decided() {
		panic("test match must be decided")
	}
	m.ScoreA, m.ScoreB = res.WinsA, res.WinsB
	m.WinnerID = m.TeamInSlot(res.Winner)
	return m
}

func TestMatchPoints(t *testing.T) {
	tests := []struct {
		name       string
		maxSets    int
		won, lost  int
		wantWinner int
		wantLoser  int
	}{
		{name: "straight sets best of five", maxSets: 5, won: 3, lost: 0, wantWinner: 3},
		{name: "four sets", maxSets: 5, won: 3, lost: 1, wantWinner: 3},
		{name: "tie-break best of five", maxSets: 5, won: 3, lost: 2, wantWinner: 2, wantLoser: 1},
		{name: "straight sets best of three", maxSets: 3, won: 2, lost: 0, wantWinner: 3},
		{name: "tie-break best of three", maxSets: 3, won: 2, lost: 1, wantWinner: 2, wantLoser: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, l := MatchPoints(tt.maxSets, tt.won, tt.lost)
			assert.Equal(t, tt.wantWinner, w)
			assert.Equal(t, tt.wantLoser, l)
		})
	}
}

func TestRankGroup(t *testing.T) {
	matches := []*models.Match{
		completed(1, 2, s(25, 20), s(25, 20), s(25, 20)),
		completed(3, 4, s(25, 20), s(20, 25), s(25, 20), s(20, 25), s(15, 13)),
		completed(1, 3, s(20, 25), s(20, 25), s(25, 20), s(25, 20), s(13, 15)),
		completed(2, 4, s(25, 10), s(25, 10), s(25, 10)),
		// не сыгран
		{TeamAID: intPtr(1), TeamBID: intPtr(4), MaxSets: 5, Status: models.StatusScheduled},
		// чужая команда
		completed(1, 9, s(25, 0), s(25, 0), s(25, 0)),
	}

	table := RankGroup([]int{1, 2, 3, 4}, matches)
	require.Len(t, table, 4)

	got := make([]int, len(table))
	for i, row := range table {
		got[i] = row.TeamID
		assert.Equal(t, i+1, row.Rank)
	}

	byTeam := map[int]models.TeamStanding{}
	for _, row := range table {
		byTeam[row.TeamID] = row
	}
	assert.Equal(t, 4, byTeam[1].Points)
	assert.Equal(t, 4, byTeam[3].Points)
	assert.Equal(t, 3, byTeam[2].Points)
	assert.Equal(t, 1, byTeam[4].Points)
	assert.Equal(t, 2, byTeam[1].GamesPlayed)
	assert.Equal(t, 1, byTeam[1].Wins)
	assert.Equal(t, 1, byTeam[1].Losses)
	assert.Equal(t, 5, byTeam[1].SetsWon)
	assert.Equal(t, 3, byTeam[1].SetsLost)
	assert.Equal(t, 2, byTeam[4].GamesPlayed)
	assert.Equal(t, 178, byTeam[1].PointsFor)
	assert.Equal(t, 165, byTeam[1].PointsAgainst)

	// 1 и 3 по 4 очка, у 3 две победы
	assert.Equal(t, 2, byTeam[3].Wins)
	assert.Equal(t, []int{3, 1, 2, 4}, got)
}

func TestRankGroupEmpty(t *testing.T) {
	table := RankGroup([]int{7, 5}, nil)
	require.Len(t, table, 2)
	assert.Equal(t, 5, table[0].TeamID)
	assert.Equal(t, 7, table[1].TeamID)
	assert.Equal(t, 1, table[0].Rank)
}

func intPtr(v int) *int { return &v }
