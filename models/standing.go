package models

// TeamStanding - строка таблицы группы. Считается по сыгранным матчам, в БД не хранится.
type TeamStanding struct {
	TeamID        int `json:"team_id"`
	Rank          int `json:"rank"`
	Points        int `json:"points"`
	GamesPlayed   int `json:"games_played"`
	Wins          int `json:"wins"`
	Losses        int `json:"losses"`
	SetsWon       int `json:"sets_won"`
	SetsLost      int `json:"sets_lost"`
	PointsFor     int `json:"points_for"`
	PointsAgainst int `json:"points_against"`
}

func (s TeamStanding) SetDifference() int {
	return s.SetsWon - s.SetsLost
}

func (s TeamStanding) PointDifference() int {
	return s.PointsFor - s.PointsAgainst
}

type GroupStandings struct {
	Group     string         `json:"group"`
	Standings []TeamStanding `json:"standings"`
}
