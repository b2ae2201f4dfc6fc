package brackets

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/volley-tournament/models"
)

var (
	ErrNotEnoughTeams    = errors.New("not enough teams to generate a bracket (minimum 2)")
	ErrUnsupportedFormat = errors.New("unsupported tournament format")
)

type GenerateBracketParams struct {
	TournamentID int
	TeamIDs      []int // порядок посева = порядок принятия заявок
}

// BracketMatch - матч сетки до сохранения в БД. Связи задаются через UID.
type BracketMatch struct {
	UID         string
	Round       int
	MatchNumber int
	GroupName   *string

	TeamAID *int
	TeamBID *int

	NextMatchUID  *string
	NextMatchSlot models.Slot

	// ByeSlot marks a slot that will never be filled.
	ByeSlot models.Slot
}

// IsBye reports a match whose sole team advances without playing.
func (bm *BracketMatch) IsBye() bool {
	if bm.ByeSlot == models.SlotNone {
		return false
	}
	return (bm.TeamAID != nil) != (bm.TeamBID != nil)
}

type GroupPlan struct {
	Name      string
	TeamIDs   []int
	MatchUIDs []string
}

type Bracket struct {
	Rounds  int
	Matches []*BracketMatch
	Groups  []GroupPlan
}

// Feeders returns the matches that send their winner into target, in match number order.
func (b *Bracket) Feeders(targetUID string) []*BracketMatch {
	var out []*BracketMatch
	for _, bm := range b.Matches {
		if bm.NextMatchUID != nil && *bm.NextMatchUID == targetUID {
			out = append(out, bm)
		}
	}
	return out
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) (*Bracket, error)

	GetName() string
}

func NewGenerator(format models.TournamentFormat) (BracketGenerator, error) {
	switch format {
	case models.FormatSingleElimination:
		return NewSingleEliminationGenerator(), nil
	case models.FormatGroupKnockout:
		return NewGroupKnockoutGenerator(), nil
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrUnsupportedFormat, format)
	}
}

func matchUID(round, number int) string {
	return fmt.Sprintf("R%dM%d", round, number)
}

func intPtr(v int) *int {
	return &v
}

func strPtr(v string) *string {
	return &v
}
