package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/volley-tournament/models"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID int
	Role   models.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

func validateTournamentDates(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return ErrTournamentDatesRequired
	}
	if end.Before(start) {
		return fmt.Errorf("%w: start %s, end %s", ErrTournamentInvalidDateRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return nil
}

func intPtr(v int) *int {
	return &v
}

func sameTeam(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func matchesToValues(slice []*models.Match) []models.Match {
	result := make([]models.Match, 0, len(slice))
	for _, m := range slice {
		if m != nil {
			result = append(result, *m)
		}
	}
	return result
}

func isClientError(err error) bool {
	return errors.Is(err, ErrValidationFailed) || errors.Is(err, ErrPreconditionFailed) ||
		errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbiddenOperation)
}
