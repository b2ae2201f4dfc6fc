package models

import "time"

type MatchStatus string

const (
	StatusScheduled      MatchStatus = "scheduled"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusBye       MatchStatus = "bye" // победитель определён без игры
)

// MatchKind - дискриминатор варианта матча.
type MatchKind string

const (
	MatchKindTournament MatchKind = "tournament"
	MatchKindQuick      MatchKind = "quick"
)

type TerrainType string

const (
	TerrainIndoor TerrainType = "indoor"
	TerrainBeach  TerrainType = "beach"
)

func (t TerrainType) Valid() bool {
	return t == TerrainIndoor || t == TerrainBeach
}

const (
	DefaultMaxSets     = 3
	DefaultTerrainType = TerrainIndoor
)

// Slot identifies one side of a match. Values match the winner_to_slot column (1 or 2).
type Slot int

const (
	SlotNone Slot = 0
	SlotA    Slot = 1
	SlotB    Slot = 2
)

func (s Slot) String() string {
	switch s {
	case SlotA:
		return "A"
	case SlotB:
		return "B"
	default:
		return "none"
	}
}

func (s Slot) Opposite() Slot {
	switch s {
	case SlotA:
		return SlotB
	case SlotB:
		return SlotA
	default:
		return SlotNone
	}
}

type SetScore struct {
	TeamA int `json:"team_a"`
	TeamB int `json:"team_b"`
}

// BracketInfo - данные матча, принадлежащего турнирной сетке.
type BracketInfo struct {
	TournamentID  int     `json:"tournament_id"`
	Round         int     `json:"round"`
	MatchNumber   int     `json:"match_number"`
	GroupName     *string `json:"group_name,omitempty"`
	NextMatchID   *int    `json:"next_match_id,omitempty"`
	NextMatchSlot *Slot   `json:"next_match_slot,omitempty"`
	// ByeSlot is a slot that no team and no earlier match will ever fill.
	ByeSlot *Slot `json:"bye_slot,omitempty"`
}

// QuickMatchInfo - данные товарищеского матча, создаваемого внешним сервисом.
type QuickMatchInfo struct {
	CreatorID int  `json:"creator_id"`
	IsPublic  bool `json:"is_public"`
}

type Match struct {
	ID          int         `json:"id"`
	Kind        MatchKind   `json:"kind"`
	TeamAID     *int        `json:"team_a_id"`
	TeamBID     *int        `json:"team_b_id"`
	WinnerID    *int        `json:"winner_id"`
	Sets        []SetScore  `json:"sets"`
	ScoreA      int         `json:"score_a"`
	ScoreB      int         `json:"score_b"`
	MaxSets     int         `json:"max_sets"`
	TerrainType TerrainType `json:"terrain_type"`
	Status      MatchStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	Bracket *BracketInfo    `json:"bracket,omitempty"`
	Quick   *QuickMatchInfo `json:"quick,omitempty"`
}

func (m *Match) TeamInSlot(s Slot) *int {
	switch s {
	case SlotA:
		return m.TeamAID
	case SlotB:
		return m.TeamBID
	default:
		return nil
	}
}

func (m *Match) SetTeamInSlot(s Slot, teamID *int) {
	switch s {
	case SlotA:
		m.TeamAID = teamID
	case SlotB:
		m.TeamBID = teamID
	}
}

func (m *Match) IsDecided() bool {
	return m.WinnerID != nil
}

func (m *Match) HasTeam(teamID int) bool {
	return (m.TeamAID != nil && *m.TeamAID == teamID) || (m.TeamBID != nil && *m.TeamBID == teamID)
}

// ClearResult drops winner, sets and scores together.
func (m *Match) ClearResult() {
	m.WinnerID = nil
	m.Sets = nil
	m.ScoreA = 0
	m.ScoreB = 0
	m.Status = StatusScheduled
}

// Reset clears the result and both slots.
func (m *Match) Reset() {
	m.ClearResult()
	m.TeamAID = nil
	m.TeamBID = nil
}

// Clone returns a deep copy; stores hand out clones so callers never alias stored state.
func (m *Match) Clone() *Match {
	if m == nil {
		return nil
	}
	c := *m
	c.TeamAID = cloneInt(m.TeamAID)
	c.TeamBID = cloneInt(m.TeamBID)
	c.WinnerID = cloneInt(m.WinnerID)
	if m.Sets != nil {
		c.Sets = append([]SetScore(nil), m.Sets...)
	}
	if m.Bracket != nil {
		b := *m.Bracket
		b.GroupName = cloneString(m.Bracket.GroupName)
		b.NextMatchID = cloneInt(m.Bracket.NextMatchID)
		b.NextMatchSlot = cloneSlot(m.Bracket.NextMatchSlot)
		b.ByeSlot = cloneSlot(m.Bracket.ByeSlot)
		c.Bracket = &b
	}
	if m.Quick != nil {
		q := *m.Quick
		c.Quick = &q
	}
	return &c
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneSlot(p *Slot) *Slot {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
