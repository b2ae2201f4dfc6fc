package models

import "time"

type JoinRequestStatus string

const (
	JoinRequestPending  JoinRequestStatus = "pending"
	JoinRequestAccepted JoinRequestStatus = "accepted"
	JoinRequestRejected JoinRequestStatus = "rejected"
)

func (s JoinRequestStatus) IsTerminal() bool {
	return s == JoinRequestAccepted || s == JoinRequestRejected
}

type JoinRequest struct {
	ID           int               `json:"id"`
	TournamentID int               `json:"tournament_id"`
	TeamID       int               `json:"team_id"`
	Status       JoinRequestStatus `json:"status"`
	RequestedAt  time.Time         `json:"requested_at"`
	HandledAt    *time.Time        `json:"handled_at,omitempty"`
}
