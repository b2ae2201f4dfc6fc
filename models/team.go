package models

import "time"

// MinTeamPlayers - минимальный состав команды для турнира по волейболу.
const MinTeamPlayers = 6

type Team struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	LeaderID  int       `json:"leader_id"`
	PlayerIDs []int     `json:"player_ids"`
	CreatedAt time.Time `json:"created_at"`
}

func (t *Team) HasFullRoster() bool {
	return len(t.PlayerIDs) >= MinTeamPlayers
}
