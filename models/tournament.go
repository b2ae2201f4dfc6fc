package models

import "time"

// TournamentFormat - тип турнирной сетки.
type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "SingleElimination"
	FormatDoubleElimination TournamentFormat = "DoubleElimination"
	FormatRoundRobin        TournamentFormat = "RoundRobin"
	FormatLeague            TournamentFormat = "League"
	FormatGroupKnockout     TournamentFormat = "GroupKnockout"
)

func (f TournamentFormat) Valid() bool {
	switch f {
	case FormatSingleElimination, FormatDoubleElimination, FormatRoundRobin, FormatLeague, FormatGroupKnockout:
		return true
	}
	return false
}

type Group struct {
	Name     string `json:"name"`
	TeamIDs  []int  `json:"team_ids"`
	MatchIDs []int  `json:"match_ids"`
}

// Structure - сгенерированная сетка турнира. Пустая до первой генерации.
type Structure struct {
	MatchIDs []int   `json:"match_ids"`
	Groups   []Group `json:"groups"`
	Rounds   int     `json:"rounds"`
}

func (s Structure) IsEmpty() bool {
	return len(s.MatchIDs) == 0 && len(s.Groups) == 0 && s.Rounds == 0
}

func (s Structure) Clone() Structure {
	c := Structure{Rounds: s.Rounds}
	if s.MatchIDs != nil {
		c.MatchIDs = append([]int(nil), s.MatchIDs...)
	}
	if s.Groups != nil {
		c.Groups = make([]Group, len(s.Groups))
		for i, g := range s.Groups {
			c.Groups[i] = Group{
				Name:     g.Name,
				TeamIDs:  append([]int(nil), g.TeamIDs...),
				MatchIDs: append([]int(nil), g.MatchIDs...),
			}
		}
	}
	return c
}

// Tournament представляет турнир.
type Tournament struct {
	ID           int              `json:"id"`
	Name         string           `json:"name"`
	OrganizerIDs []int            `json:"organizer_ids"`
	StartDate    time.Time        `json:"start_date"`
	EndDate      time.Time        `json:"end_date"`
	Location     string           `json:"location"`
	Prize        string           `json:"prize"`
	NumberTeam   int              `json:"number_team"`
	Format       TournamentFormat `json:"format"`
	TeamIDs      []int            `json:"team_ids"` // в порядке принятия заявок
	Structure    Structure        `json:"structure"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	JoinRequests []JoinRequest `json:"join_requests,omitempty"`
	Matches      []Match       `json:"matches,omitempty"`
}

func (t *Tournament) IsOrganizer(userID int) bool {
	for _, id := range t.OrganizerIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (t *Tournament) HasTeam(teamID int) bool {
	for _, id := range t.TeamIDs {
		if id == teamID {
			return true
		}
	}
	return false
}

func (t *Tournament) IsFull() bool {
	return len(t.TeamIDs) >= t.NumberTeam
}

func (t *Tournament) Clone() *Tournament {
	if t == nil {
		return nil
	}
	c := *t
	c.OrganizerIDs = append([]int(nil), t.OrganizerIDs...)
	c.TeamIDs = append([]int(nil), t.TeamIDs...)
	c.Structure = t.Structure.Clone()
	c.JoinRequests = nil
	c.Matches = nil
	return &c
}
