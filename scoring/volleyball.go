// Package scoring decides set and match winners under volleyball scoring rules.
package scoring

import (
	"errors"
	"fmt"

	"github.com/Dosada05/volley-tournament/models"
)

var (
	ErrNoSets         = errors.New("at least one set score is required")
	ErrNegativeScore  = errors.New("set scores must be non-negative")
	ErrTooManySets    = errors.New("more sets than the match allows")
	ErrInvalidMaxSets = errors.New("max sets must be 3 or 5")

	// ErrSetsAfterDecision: sets listed after the one that already decided the match.
	ErrSetsAfterDecision = errors.New("sets listed after the match was decided")
)

const (
	SetPoints         = 25
	DecidingSetPoints = 15
	MinLead           = 2
)

type Rules struct {
	MaxSets           int
	SetPoints         int
	DecidingSetPoints int
	MinLead           int
}

// VolleyballRules returns the standard rules for a best-of-maxSets match.
func VolleyballRules(maxSets int) Rules {
	return Rules{
		MaxSets:           maxSets,
		SetPoints:         SetPoints,
		DecidingSetPoints: DecidingSetPoints,
		MinLead:           MinLead,
	}
}

func ValidMaxSets(maxSets int) bool {
	return maxSets == 3 || maxSets == 5
}

// RequiredWins is the number of sets needed to take the match.
func (r Rules) RequiredWins() int {
	return (r.MaxSets + 1) / 2
}

type Result struct {
	WinsA    int
	WinsB    int
	Required int
	// SetWinners[i] is the side that won set i, SlotNone if the set is not won yet.
	SetWinners []models.Slot
	Winner     models.Slot
	// DecidedAfter is the 1-based set number at which the winner reached Required, 0 if undecided.
	DecidedAfter int
}

func (r Result) Decided() bool {
	return r.Winner != models.SlotNone
}

// SetWinner returns the side that won set idx (0-based).
func (r Rules) SetWinner(idx int, set models.SetScore) models.Slot {
	threshold := r.SetPoints
	if idx == r.MaxSets-1 {
		threshold = r.DecidingSetPoints
	}
	switch {
	case set.TeamA >= threshold && set.TeamA-set.TeamB >= r.MinLead:
		return models.SlotA
	case set.TeamB >= threshold && set.TeamB-set.TeamA >= r.MinLead:
		return models.SlotB
	default:
		return models.SlotNone
	}
}

// Evaluate counts sets won per side. An undecided match is a normal result, not an error.
func (r Rules) Evaluate(sets []models.SetScore) (Result, error) {
	if !ValidMaxSets(r.MaxSets) {
		return Result{}, fmt.Errorf("%w: got %d", ErrInvalidMaxSets, r.MaxSets)
	}
	if len(sets) == 0 {
		return Result{}, ErrNoSets
	}
	if len(sets) > r.MaxSets {
		return Result{}, fmt.Errorf("%w: %d sets for best of %d", ErrTooManySets, len(sets), r.MaxSets)
	}

	res := Result{
		Required:   r.RequiredWins(),
		SetWinners: make([]models.Slot, len(sets)),
	}
	for i, set := range sets {
		if set.TeamA < 0 || set.TeamB < 0 {
			return Result{}, fmt.Errorf("%w: set %d is %d-%d", ErrNegativeScore, i+1, set.TeamA, set.TeamB)
		}
		w := r.SetWinner(i, set)
		res.SetWinners[i] = w
		switch w {
		case models.SlotA:
			res.WinsA++
		case models.SlotB:
			res.WinsB++
		}
		if res.DecidedAfter == 0 && (res.WinsA == res.Required || res.WinsB == res.Required) {
			res.DecidedAfter = i + 1
			res.Winner = w
		}
	}
	if res.DecidedAfter > 0 && len(sets) > res.DecidedAfter {
		return Result{}, fmt.Errorf("%w: decided after set %d, got %d sets", ErrSetsAfterDecision, res.DecidedAfter, len(sets))
	}
	return res, nil
}
