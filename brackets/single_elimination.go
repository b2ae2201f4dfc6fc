package brackets

import (
	"context"
	"math/bits"

	"github.com/Dosada05/volley-tournament/models"
)

type SingleEliminationGenerator struct {
}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return string(models.FormatSingleElimination)
}

// SingleEliminationRounds returns ceil(log2(n)).
func SingleEliminationRounds(n int) int {
	if n < 2 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

// GenerateBracket pairs teams [2i] and [2i+1] in round 1 and builds placeholder rounds up to the final.
// Match i of round r feeds match i/2 of round r+1: even i into slot A, odd i into slot B.
func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*Bracket, error) {
	teams := params.TeamIDs
	n := len(teams)
	if n < 2 {
		return nil, ErrNotEnoughTeams
	}

	numRounds := SingleEliminationRounds(n)
	firstRoundMatches := (n + 1) / 2

	bracket := &Bracket{
		Rounds:  numRounds,
		Matches: make([]*BracketMatch, 0, 2*firstRoundMatches),
	}

	rounds := make([][]*BracketMatch, numRounds+1)
	for i := 0; i < firstRoundMatches; i++ {
		bm := &BracketMatch{
			UID:         matchUID(1, i+1),
			Round:       1,
			MatchNumber: i + 1,
			TeamAID:     intPtr(teams[2*i]),
		}
		if 2*i+1 < n {
			bm.TeamBID = intPtr(teams[2*i+1])
		} else {
			bm.ByeSlot = models.SlotB
		}
		rounds[1] = append(rounds[1], bm)
	}

	for r := 2; r <= numRounds; r++ {
		count := ceilDiv(firstRoundMatches, 1<<uint(r-1))
		for i := 0; i < count; i++ {
			rounds[r] = append(rounds[r], &BracketMatch{
				UID:         matchUID(r, i+1),
				Round:       r,
				MatchNumber: i + 1,
			})
		}
	}

	for r := 1; r < numRounds; r++ {
		for i, bm := range rounds[r] {
			target := rounds[r+1][i/2]
			bm.NextMatchUID = strPtr(target.UID)
			if i%2 == 0 {
				bm.NextMatchSlot = models.SlotA
			} else {
				bm.NextMatchSlot = models.SlotB
			}
		}
		// Нечётное число матчей: последний матч следующего раунда получает только одного участника.
		if len(rounds[r])%2 == 1 {
			rounds[r+1][len(rounds[r+1])-1].ByeSlot = models.SlotB
		}
	}

	for r := 1; r <= numRounds; r++ {
		bracket.Matches = append(bracket.Matches, rounds[r]...)
	}
	return bracket, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
