package brackets

import (
	"context"
	"fmt"

	"github.com/Dosada05/volley-tournament/models"
)

const TeamsPerGroup = 4

type GroupKnockoutGenerator struct {
	teamsPerGroup int
}

func NewGroupKnockoutGenerator() BracketGenerator {
	return &GroupKnockoutGenerator{teamsPerGroup: TeamsPerGroup}
}

func (g *GroupKnockoutGenerator) GetName() string {
	return string(models.FormatGroupKnockout)
}

// GenerateBracket splits teams into groups of four in seeding order and plays a round robin inside
// every group. With more than one group a knockout phase follows: two semifinals (round 2) feeding a
// final (round 3). The semifinal slots stay empty; group results do not seed them.
func (g *GroupKnockoutGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*Bracket, error) {
	teams := params.TeamIDs
	if len(teams) < 2 {
		return nil, ErrNotEnoughTeams
	}

	numGroups := ceilDiv(len(teams), g.teamsPerGroup)
	bracket := &Bracket{Rounds: 1}
	matchNumber := 0

	for gi := 0; gi < numGroups; gi++ {
		end := (gi + 1) * g.teamsPerGroup
		if end > len(teams) {
			end = len(teams)
		}
		groupTeams := append([]int(nil), teams[gi*g.teamsPerGroup:end]...)
		plan := GroupPlan{
			Name:    fmt.Sprintf("Group %d", gi+1),
			TeamIDs: groupTeams,
		}

		for _, p := range RoundRobinPairings(groupTeams) {
			matchNumber++
			bm := &BracketMatch{
				UID:         fmt.Sprintf("G%dM%d", gi+1, matchNumber),
				Round:       1,
				MatchNumber: matchNumber,
				GroupName:   strPtr(plan.Name),
				TeamAID:     intPtr(p.TeamAID),
				TeamBID:     intPtr(p.TeamBID),
			}
			bracket.Matches = append(bracket.Matches, bm)
			plan.MatchUIDs = append(plan.MatchUIDs, bm.UID)
		}
		bracket.Groups = append(bracket.Groups, plan)
	}

	if numGroups > 1 {
		final := &BracketMatch{UID: matchUID(3, 1), Round: 3, MatchNumber: 1}
		for i := 0; i < 2; i++ {
			slot := models.SlotA
			if i == 1 {
				slot = models.SlotB
			}
			bracket.Matches = append(bracket.Matches, &BracketMatch{
				UID:           matchUID(2, i+1),
				Round:         2,
				MatchNumber:   i + 1,
				NextMatchUID:  strPtr(final.UID),
				NextMatchSlot: slot,
			})
		}
		bracket.Matches = append(bracket.Matches, final)
		bracket.Rounds = 3
	}

	return bracket, nil
}
