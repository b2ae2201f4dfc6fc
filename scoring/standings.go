package scoring

import (
	"cmp"
	"slices"

	"github.com/Dosada05/volley-tournament/models"
)

// Table points for a decided match. A win in the deciding set earns the loser one point.
const (
	PointsWin          = 3
	PointsDecidingWin  = 2
	PointsDecidingLoss = 1
)

// MatchPoints returns table points for the winner and the loser of a decided match.
func MatchPoints(maxSets, winnerSets, loserSets int) (winner, loser int) {
	required := (maxSets + 1) / 2
	if winnerSets == required && loserSets == required-1 {
		return PointsDecidingWin, PointsDecidingLoss
	}
	return PointsWin, 0
}

// RankGroup builds the table for teamIDs from the completed matches among them.
// Teams are ordered by points, wins, set difference, point difference and finally team id.
func RankGroup(teamIDs []int, matches []*models.Match) []models.TeamStanding {
	rows := make(map[int]*models.TeamStanding, len(teamIDs))
	for _, id := range teamIDs {
		rows[id] = &models.TeamStanding{TeamID: id}
	}

	for _, m := range matches {
		if m.Status != models.MatchStatusCompleted || m.TeamAID == nil || m.TeamBID == nil || m.WinnerID == nil {
			continue
		}
		a, okA := rows[*m.TeamAID]
		b, okB := rows[*m.TeamBID]
		if !okA || !okB {
			continue
		}

		a.GamesPlayed++
		b.GamesPlayed++
		a.SetsWon += m.ScoreA
		a.SetsLost += m.ScoreB
		b.SetsWon += m.ScoreB
		b.SetsLost += m.ScoreA
		for _, set := range m.Sets {
			a.PointsFor += set.TeamA
			a.PointsAgainst += set.TeamB
			b.PointsFor += set.TeamB
			b.PointsAgainst += set.TeamA
		}

		winner, loser := a, b
		winnerSets, loserSets := m.ScoreA, m.ScoreB
		if *m.WinnerID == *m.TeamBID {
			winner, loser = b, a
			winnerSets, loserSets = m.ScoreB, m.ScoreA
		}
		wp, lp := MatchPoints(m.MaxSets, winnerSets, loserSets)
		winner.Wins++
		winner.Points += wp
		loser.Losses++
		loser.Points += lp
	}

	table := make([]models.TeamStanding, 0, len(rows))
	for _, id := range teamIDs {
		table = append(table, *rows[id])
	}
	slices.SortStableFunc(table, func(x, y models.TeamStanding) int {
		return cmp.Or(
			cmp.Compare(y.Points, x.Points),
			cmp.Compare(y.Wins, x.Wins),
			cmp.Compare(y.SetDifference(), x.SetDifference()),
			cmp.Compare(y.PointDifference(), x.PointDifference()),
			cmp.Compare(x.TeamID, y.TeamID),
		)
	})
	for i := range table {
		table[i].Rank = i + 1
	}
	return table
}
