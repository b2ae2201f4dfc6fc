package services

import (
	"errors"
	"fmt"

	"github.com/Dosada05/volley-tournament/repositories"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrNotFound           = errors.New("requested resource not found")
	ErrValidationFailed   = errors.New("validation failed")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")

	// ErrBracketInconsistent means stored next-match links contradict each other. Never caused by user input.
	ErrBracketInconsistent = errors.New("bracket structure is inconsistent")
)

// Ошибки, специфичные для сущностей
var (
	ErrTournamentNotFound  = fmt.Errorf("%w: tournament not found", ErrNotFound)
	ErrTeamNotFound        = fmt.Errorf("%w: team not found", ErrNotFound)
	ErrMatchNotFound       = fmt.Errorf("%w: match not found", ErrNotFound)
	ErrJoinRequestNotFound = fmt.Errorf("%w: no pending join request for this team", ErrNotFound)
)

// Ошибки валидации
var (
	ErrTournamentNameRequired     = fmt.Errorf("%w: tournament name is required", ErrValidationFailed)
	ErrTournamentDatesRequired    = fmt.Errorf("%w: tournament start and end dates are required", ErrValidationFailed)
	ErrTournamentInvalidDateRange = fmt.Errorf("%w: tournament end date must not be before start date", ErrValidationFailed)
	ErrTournamentInvalidCapacity  = fmt.Errorf("%w: tournament capacity must be positive", ErrValidationFailed)
	ErrTournamentInvalidFormat    = fmt.Errorf("%w: unknown tournament format", ErrValidationFailed)
	ErrUnsupportedFormat          = fmt.Errorf("%w: bracket generation is not supported for this format", ErrValidationFailed)
	ErrInvalidMatchSettings       = fmt.Errorf("%w: invalid match settings", ErrValidationFailed)
	ErrInvalidSetScores           = fmt.Errorf("%w: invalid set scores", ErrValidationFailed)
	ErrMatchUndecided             = fmt.Errorf("%w: submitted sets do not decide the match", ErrValidationFailed)
	ErrTeamRosterTooSmall         = fmt.Errorf("%w: team roster is too small", ErrValidationFailed)
	ErrInvalidJoinRequestStatus   = fmt.Errorf("%w: join request status must be accepted or rejected", ErrValidationFailed)
	ErrInvalidTeamAssignment      = fmt.Errorf("%w: invalid team assignment", ErrValidationFailed)
)

// Ошибки предусловий (состояние не позволяет выполнить операцию)
var (
	ErrNotEnoughTeams      = fmt.Errorf("%w: not enough accepted teams to generate a bracket", ErrPreconditionFailed)
	ErrMatchTeamsMissing   = fmt.Errorf("%w: both match slots must be filled", ErrPreconditionFailed)
	ErrTournamentFull      = fmt.Errorf("%w: tournament is full", ErrPreconditionFailed)
	ErrTeamAlreadyAccepted = fmt.Errorf("%w: team is already accepted", ErrPreconditionFailed)
	ErrJoinRequestPending  = fmt.Errorf("%w: team already has a pending join request", ErrPreconditionFailed)
	ErrMatchNotAssignable  = fmt.Errorf("%w: match slots are filled by earlier matches", ErrPreconditionFailed)
	ErrMatchAlreadyDecided = fmt.Errorf("%w: match already has a result", ErrPreconditionFailed)
	ErrNoGroupStage        = fmt.Errorf("%w: tournament has no generated group stage", ErrPreconditionFailed)
)

// Ошибки доступа
var (
	ErrMatchNotInTournament  = fmt.Errorf("%w: match does not belong to this tournament", ErrNotFound)
	ErrOrganizerRequired     = fmt.Errorf("%w: only a tournament organizer can do this", ErrForbiddenOperation)
	ErrTeamLeaderRequired    = fmt.Errorf("%w: only the team leader can do this", ErrForbiddenOperation)
	ErrResultSubmitForbidden = fmt.Errorf("%w: only organizers, admins or the leaders of the playing teams can submit results", ErrForbiddenOperation)
)

// handleRepositoryError translates repository errors into service errors.
func handleRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrTeamNotFound), errors.Is(err, repositories.ErrTournamentInvalidTeam),
		errors.Is(err, repositories.ErrJoinRequestTeamInvalid):
		return ErrTeamNotFound
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrJoinRequestNotFound):
		return ErrJoinRequestNotFound
	case errors.Is(err, repositories.ErrJoinRequestPendingExists):
		return ErrJoinRequestPending
	case errors.Is(err, repositories.ErrTournamentTeamExists):
		return ErrTeamAlreadyAccepted
	}
	return err
}
