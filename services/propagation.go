package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/volley-tournament/models"
	"github.com/Dosada05/volley-tournament/repositories"
)

// propagator moves winners along next-match links and clears results that depended on a changed one.
type propagator struct {
	matchRepo repositories.MatchRepository
	logger    *slog.Logger
}

type propagationResult struct {
	// Changed holds every successor rewritten by the walk, in walk order.
	Changed []*models.Match
	Reset   int
	Byes    int
}

func (r *propagationResult) merge(other propagationResult) {
	r.Changed = append(r.Changed, other.Changed...)
	r.Reset += other.Reset
	r.Byes += other.Byes
}

// advance pushes the winner of a match whose state was just saved into its next match. When that
// next match already had a result, the result is cleared and every decided match further along the
// chain is reset completely (see clearDownstream). A bye decided on the way keeps the walk going.
// maxSteps is the tournament's round count.
func (p *propagator) advance(ctx context.Context, exec repositories.SQLExecutor, from *models.Match, maxSteps int) (propagationResult, error) {
	var res propagationResult
	cur := from

	for step := 0; ; step++ {
		if cur.Bracket == nil || cur.Bracket.NextMatchID == nil {
			return res, nil
		}
		if step >= maxSteps {
			return res, p.inconsistent(ctx, cur, "propagation did not reach the end of the chain within the round count")
		}

		next, feeders, err := p.loadNext(ctx, exec, cur)
		if err != nil {
			return res, err
		}
		slot, other := feederSlot(cur, feeders)

		stale := next.IsDecided()
		previousWinner := cloneIntPtr(next.WinnerID)
		next.ClearResult()
		next.SetTeamInSlot(slot, cloneIntPtr(cur.WinnerID))
		// слот, очищенный прошлым каскадом, снова получает победителя соседнего матча
		if other != nil && other.IsDecided() && next.TeamInSlot(slot.Opposite()) == nil {
			next.SetTeamInSlot(slot.Opposite(), cloneIntPtr(other.WinnerID))
		}
		bye := applyBye(next)

		if err := p.matchRepo.UpdateState(ctx, exec, next); err != nil {
			return res, fmt.Errorf("failed to update match %d: %w", next.ID, err)
		}
		res.Changed = append(res.Changed, next)

		// a bye re-derived to the same team is not a reset
		if stale && !(bye && sameTeam(previousWinner, next.WinnerID)) {
			res.Reset++
			p.logger.DebugContext(ctx, "stale result cleared",
				slog.Int("match_id", next.ID),
				slog.Int("cleared_by_match_id", cur.ID))
		}
		if bye {
			res.Byes++
			cur = next
			continue
		}
		if !stale {
			return res, nil
		}

		cleared, err := p.clearDownstream(ctx, exec, next, maxSteps-step-1)
		res.merge(cleared)
		return res, err
	}
}

// clearDownstream resets every decided match reachable from stale, whose own result was just cleared:
// winner, sets and both slots. The first undecided match on the chain only loses the team that
// stale had sent into it.
func (p *propagator) clearDownstream(ctx context.Context, exec repositories.SQLExecutor, stale *models.Match, maxSteps int) (propagationResult, error) {
	var res propagationResult
	cur := stale

	for step := 0; ; step++ {
		if cur.Bracket == nil || cur.Bracket.NextMatchID == nil {
			return res, nil
		}
		if step >= maxSteps {
			return res, p.inconsistent(ctx, cur, "reset did not reach the end of the chain within the round count")
		}

		next, feeders, err := p.loadNext(ctx, exec, cur)
		if err != nil {
			return res, err
		}

		decided := next.IsDecided()
		if decided {
			next.Reset()
		} else {
			slot, _ := feederSlot(cur, feeders)
			if next.TeamInSlot(slot) == nil {
				return res, nil
			}
			next.SetTeamInSlot(slot, nil)
		}
		if err := p.matchRepo.UpdateState(ctx, exec, next); err != nil {
			return res, fmt.Errorf("failed to reset match %d: %w", next.ID, err)
		}
		res.Changed = append(res.Changed, next)
		if !decided {
			return res, nil
		}

		res.Reset++
		p.logger.DebugContext(ctx, "downstream match reset",
			slog.Int("match_id", next.ID),
			slog.Int("reset_by_match_id", cur.ID))
		cur = next
	}
}

// loadNext locks cur's next match and returns it with its feeders ordered by match number.
func (p *propagator) loadNext(ctx context.Context, exec repositories.SQLExecutor, cur *models.Match) (*models.Match, []*models.Match, error) {
	nextID := *cur.Bracket.NextMatchID
	next, err := p.matchRepo.GetByIDForUpdate(ctx, exec, nextID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, nil, p.inconsistent(ctx, cur, fmt.Sprintf("next match %d does not exist", nextID))
		}
		return nil, nil, fmt.Errorf("failed to load next match %d: %w", nextID, err)
	}
	feeders, err := p.matchRepo.ListFeeders(ctx, exec, nextID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list feeders of match %d: %w", nextID, err)
	}
	if err := p.checkFeeders(ctx, cur, next, feeders); err != nil {
		return nil, nil, err
	}
	return next, feeders, nil
}

// feederSlot returns the slot cur fills in its next match (first feeder A, second B) and the other
// feeder, if any. feeders must contain cur.
func feederSlot(cur *models.Match, feeders []*models.Match) (models.Slot, *models.Match) {
	slot := models.SlotA
	var other *models.Match
	for i, f := range feeders {
		if f.ID == cur.ID {
			if i == 1 {
				slot = models.SlotB
			}
			continue
		}
		other = f
	}
	return slot, other
}

// advanceByes resolves bye matches after generation, in round order, and pushes their winners forward.
func (p *propagator) advanceByes(ctx context.Context, exec repositories.SQLExecutor, matches []*models.Match, maxSteps int) (propagationResult, error) {
	var res propagationResult
	for _, m := range matches {
		if m.IsDecided() || !applyBye(m) {
			continue
		}
		if err := p.matchRepo.UpdateState(ctx, exec, m); err != nil {
			return res, fmt.Errorf("failed to record bye for match %d: %w", m.ID, err)
		}
		res.Byes++
		res.Changed = append(res.Changed, m)

		walked, err := p.advance(ctx, exec, m, maxSteps)
		if err != nil {
			return res, err
		}
		res.merge(walked)
	}
	return res, nil
}

func (p *propagator) checkFeeders(ctx context.Context, cur, next *models.Match, feeders []*models.Match) error {
	if len(feeders) > 2 {
		return p.inconsistent(ctx, cur, fmt.Sprintf("match %d has %d feeders", next.ID, len(feeders)))
	}
	for _, f := range feeders {
		if f.ID == cur.ID {
			return nil
		}
	}
	return p.inconsistent(ctx, cur, fmt.Sprintf("match is not among the feeders of its next match %d", next.ID))
}

func (p *propagator) inconsistent(ctx context.Context, m *models.Match, reason string) error {
	attrs := []any{slog.Int("match_id", m.ID), slog.String("reason", reason)}
	if m.Bracket != nil {
		attrs = append(attrs, slog.Int("tournament_id", m.Bracket.TournamentID), slog.Int("round", m.Bracket.Round))
	}
	p.logger.ErrorContext(ctx, "bracket invariant violated", attrs...)
	return fmt.Errorf("%w: match %d: %s", ErrBracketInconsistent, m.ID, reason)
}

// applyBye gives an undecided match with a bye slot to the team in the other slot.
func applyBye(m *models.Match) bool {
	if m.Bracket == nil || m.Bracket.ByeSlot == nil || m.IsDecided() {
		return false
	}
	byeSlot := *m.Bracket.ByeSlot
	other := byeSlot.Opposite()
	if m.TeamInSlot(byeSlot) != nil || m.TeamInSlot(other) == nil {
		return false
	}
	m.WinnerID = cloneIntPtr(m.TeamInSlot(other))
	m.Status = models.MatchStatusBye
	return true
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
